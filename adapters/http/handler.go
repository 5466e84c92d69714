package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/satriahrh/cocoa-fruit/ragchat/adapters/metrics"
	"github.com/satriahrh/cocoa-fruit/ragchat/adapters/relay"
	"github.com/satriahrh/cocoa-fruit/ragchat/config"
	"github.com/satriahrh/cocoa-fruit/ragchat/domain"
	"github.com/satriahrh/cocoa-fruit/ragchat/usecase"
	"github.com/satriahrh/cocoa-fruit/ragchat/utils/log"
	"go.uber.org/zap"
)

const (
	streamContentType = "text/plain; charset=utf-8"
	modeQueryParam    = "mode"
)

type ChatHandler struct {
	chatService *usecase.ChatService
	metrics     *metrics.Metrics
	defaultMode config.ResponseMode
}

func NewChatHandler(chatService *usecase.ChatService, m *metrics.Metrics, mode config.ResponseMode) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		metrics:     m,
		defaultMode: mode,
	}
}

// Chat accepts {"prompt": "..."} and answers buffered or streamed depending
// on the configured mode, which ?mode= overrides per request.
func (h *ChatHandler) Chat(c echo.Context) error {
	ctx := requestContext(c)

	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		log.WithCtx(ctx).Info("Rejected malformed chat request", zap.Error(err))
		return writeError(c, domain.NewError(domain.KindValidation, "decoding body", errors.New(bindMessage(err))))
	}
	if err := c.Validate(&req); err != nil {
		return writeError(c, domain.NewError(domain.KindValidation, "validating body", domain.ErrEmptyPrompt))
	}

	mode := config.ParseResponseMode(c.QueryParam(modeQueryParam), h.defaultMode)
	if mode == config.ModeBuffered {
		return h.complete(ctx, c, req.Prompt)
	}
	return h.stream(ctx, c, req.Prompt)
}

func (h *ChatHandler) complete(ctx context.Context, c echo.Context, prompt string) error {
	start := time.Now()
	doc, err := h.chatService.Complete(ctx, prompt)
	if err != nil {
		h.recordCall(config.ModeBuffered, "error", start)
		log.WithCtx(ctx).Error("Buffered generation failed", zap.Error(err), zap.Stringer("kind", domain.KindOf(err)))
		return writeError(c, err)
	}
	h.recordCall(config.ModeBuffered, "ok", start)

	if len(doc.Raw) > 0 {
		return c.JSONBlob(http.StatusOK, doc.Raw)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"text":      doc.Text,
		"citations": doc.Citations,
	})
}

func (h *ChatHandler) stream(ctx context.Context, c echo.Context, prompt string) error {
	start := time.Now()
	seq, err := h.chatService.Stream(ctx, prompt)
	if err != nil {
		h.recordCall(config.ModeStream, "error", start)
		log.WithCtx(ctx).Error("Failed to open provider stream", zap.Error(err), zap.Stringer("kind", domain.KindOf(err)))
		return writeError(c, err)
	}

	h.metrics.StreamsInFlight.Inc()
	defer h.metrics.StreamsInFlight.Dec()

	res := c.Response()
	write := relay.TextWriter(res)
	stats, err := relay.Relay(seq, func(frag domain.Fragment) error {
		if !res.Committed {
			res.Header().Set(echo.HeaderContentType, streamContentType)
			res.Header().Set(echo.HeaderCacheControl, "no-cache")
			res.WriteHeader(http.StatusOK)
		}
		return write(frag)
	})
	h.metrics.RecordStreamed(stats.Fragments, stats.Bytes)

	if err == nil {
		h.recordCall(config.ModeStream, "ok", start)
		if !res.Committed {
			res.Header().Set(echo.HeaderContentType, streamContentType)
			res.WriteHeader(http.StatusOK)
		}
		log.WithCtx(ctx).Debug("Stream completed",
			zap.Int("fragments", stats.Fragments),
			zap.Int("bytes", stats.Bytes),
			zap.Int("citations", stats.Citations))
		return nil
	}

	h.recordCall(config.ModeStream, "error", start)
	if !res.Committed {
		// Nothing has reached the client yet, so a status code is still possible.
		log.WithCtx(ctx).Error("Provider stream failed before first fragment", zap.Error(err))
		return writeError(c, err)
	}

	cause := "provider"
	if errors.Is(err, relay.ErrSink) {
		cause = "client"
	}
	h.metrics.RecordAbort(cause)
	log.WithCtx(ctx).Error("Aborting stream mid-flight",
		zap.Error(err),
		zap.String("cause", cause),
		zap.Int("fragments_sent", stats.Fragments))
	panic(http.ErrAbortHandler)
}

func (h *ChatHandler) recordCall(mode config.ResponseMode, outcome string, start time.Time) {
	h.metrics.RecordProviderCall(string(h.chatService.Provider()), string(mode), outcome, time.Since(start))
}

// HealthCheck endpoint
func (h *ChatHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "ragchat",
		"provider":  h.chatService.Provider(),
	})
}

// StatusFor maps an error's kind to the status returned before streaming starts.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c echo.Context, err error) error {
	status := StatusFor(err)
	var message string
	switch status {
	case http.StatusBadRequest:
		message = "Invalid request"
	case http.StatusForbidden:
		message = "Not authorized to use the model provider"
	default:
		message = "Failed to process request"
	}
	return c.JSON(status, domain.ErrorResponse{Error: message, Details: err.Error()})
}

func bindMessage(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			return he.Internal.Error()
		}
		if msg, ok := he.Message.(string); ok {
			return msg
		}
	}
	return err.Error()
}

func requestContext(c echo.Context) context.Context {
	ctx := c.Request().Context()
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		ctx = log.WithRequestID(ctx, id)
	}
	return ctx
}
