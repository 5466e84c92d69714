package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/smithy-go"

	"github.com/satriahrh/cocoa-fruit/ragchat/domain"
)

var errNoStream = errors.New("provider returned no stream")

// AWSCredentials selects the region and static keys used for Bedrock calls.
// Empty keys defer to the SDK's default credential chain.
type AWSCredentials struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

func (c AWSCredentials) load(ctx context.Context) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(c.Region),
	}
	if c.AccessKeyID != "" || c.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading aws config: %w", err)
	}
	return cfg, nil
}

var awsErrorKinds = map[string]domain.ErrorKind{
	"ValidationException":         domain.KindValidation,
	"AccessDeniedException":       domain.KindAuthorization,
	"UnrecognizedClientException": domain.KindAuthorization,
	"ExpiredTokenException":       domain.KindAuthorization,
	"InvalidSignatureException":   domain.KindAuthorization,
}

// classifyAWSError wraps err with the kind implied by its AWS error code.
func classifyAWSError(op string, err error) error {
	kind := domain.KindUnknown
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if k, ok := awsErrorKinds[apiErr.ErrorCode()]; ok {
			kind = k
		}
	}
	return domain.NewError(kind, op, err)
}

type eventStream interface {
	Close() error
	Err() error
}

// eventSeq adapts an SDK event channel into a FragmentSeq. The stream is
// closed when iteration ends, whether drained, failed or abandoned.
func eventSeq[E any](ctx context.Context, events <-chan E, stream eventStream, decode func(E) (domain.Fragment, bool, error)) domain.FragmentSeq {
	return func(yield func(domain.Fragment, error) bool) {
		defer stream.Close()

		for {
			select {
			case <-ctx.Done():
				yield(domain.Fragment{}, ctx.Err())
				return
			case ev, ok := <-events:
				if !ok {
					if err := stream.Err(); err != nil {
						yield(domain.Fragment{}, classifyAWSError("reading stream", err))
					}
					return
				}
				frag, emit, err := decode(ev)
				if err != nil {
					yield(domain.Fragment{}, domain.NewError(domain.KindUnknown, "reading stream", err))
					return
				}
				if !emit {
					continue
				}
				if !yield(frag, nil) {
					return
				}
			}
		}
	}
}
