// Package client talks to the chat relay and keeps the resulting transcript.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/satriahrh/cocoa-fruit/ragchat/config"
	"github.com/satriahrh/cocoa-fruit/ragchat/domain"
)

// FailureText replaces the assistant reply whenever a submission fails.
const FailureText = "Sorry, something went wrong. Please try again."

const (
	chatPath  = "/api/chat"
	tokenPath = "/api/auth/token"

	readChunkSize = 4096
)

var (
	ErrBusy       = errors.New("a request is already in flight")
	ErrEmptyReply = errors.New("reply carried no text")
)

type Client struct {
	http       *resty.Client
	mode       config.ResponseMode
	transcript *Transcript
	busy       atomic.Bool
}

type Option func(*Client)

// WithMode selects buffered or streamed replies. Streaming is the default.
func WithMode(mode config.ResponseMode) Option {
	return func(c *Client) { c.mode = mode }
}

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.http.SetAuthToken(token) }
}

func New(baseURL string, transcript *Transcript, opts ...Option) *Client {
	c := &Client{
		http:       resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")),
		mode:       config.ModeStream,
		transcript: transcript,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Transcript() *Transcript {
	return c.transcript
}

func (c *Client) Busy() bool {
	return c.busy.Load()
}

// Authenticate exchanges an API key pair for a bearer token and uses it for
// later requests.
func (c *Client) Authenticate(ctx context.Context, apiKey, apiSecret string) error {
	var out struct {
		Token string `json:"token"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-API-Key", apiKey).
		SetHeader("X-API-Secret", apiSecret).
		SetResult(&out).
		Post(tokenPath)
	if err != nil {
		return fmt.Errorf("requesting token: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("requesting token: unexpected status %d", resp.StatusCode())
	}
	if out.Token == "" {
		return errors.New("requesting token: empty token")
	}

	c.http.SetAuthToken(out.Token)
	return nil
}

// Send submits prompt and records both sides of the exchange in the
// transcript. Every accepted submission adds exactly one user entry and one
// assistant entry; on failure the assistant entry holds FailureText and the
// cause is returned. Blank prompts are ignored and ErrBusy is returned while
// another submission is outstanding.
func (c *Client) Send(ctx context.Context, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return domain.ErrEmptyPrompt
	}
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.busy.Store(false)

	c.transcript.Append(domain.UserRole, prompt, nil)

	if c.mode == config.ModeBuffered {
		return c.sendBuffered(ctx, prompt)
	}
	return c.sendStreaming(ctx, prompt)
}

func (c *Client) request(ctx context.Context, prompt string) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetQueryParam("mode", string(c.mode)).
		SetHeader("Content-Type", "application/json").
		SetBody(domain.ChatRequest{Prompt: prompt})
}

func (c *Client) sendBuffered(ctx context.Context, prompt string) error {
	fail := func(err error) error {
		c.transcript.Append(domain.AssistantRole, FailureText, nil)
		return err
	}

	resp, err := c.request(ctx, prompt).Post(chatPath)
	if err != nil {
		return fail(fmt.Errorf("posting prompt: %w", err))
	}
	if !resp.IsSuccess() {
		return fail(statusError(resp.StatusCode(), resp.Body()))
	}

	text, sources, err := extractReply(resp.Body())
	if err != nil {
		return fail(err)
	}

	c.transcript.Append(domain.AssistantRole, text, sources)
	return nil
}

func (c *Client) sendStreaming(ctx context.Context, prompt string) error {
	id := c.transcript.Append(domain.AssistantRole, "", nil)
	fail := func(err error) error {
		c.transcript.ReplaceText(id, FailureText)
		return err
	}

	resp, err := c.request(ctx, prompt).SetDoNotParseResponse(true).Post(chatPath)
	if err != nil {
		return fail(fmt.Errorf("posting prompt: %w", err))
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		msg, _ := io.ReadAll(io.LimitReader(body, readChunkSize))
		return fail(statusError(resp.StatusCode(), msg))
	}

	buf := make([]byte, readChunkSize)
	var pending []byte
	for {
		n, err := body.Read(buf)
		if n > 0 {
			var text []byte
			text, pending = splitUTF8(append(pending, buf[:n]...))
			if len(text) > 0 {
				c.transcript.AppendText(id, string(text))
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(fmt.Errorf("reading reply: %w", err))
		}
	}
	if len(pending) > 0 {
		c.transcript.AppendText(id, string(pending))
	}
	return nil
}

// splitUTF8 returns the longest prefix of b that does not end inside a
// multi-byte rune, and the remaining bytes.
func splitUTF8(b []byte) ([]byte, []byte) {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return b, nil
		}
		rest := append([]byte(nil), b[i:]...)
		return b[:i], rest
	}
	return b, nil
}

// reply covers the buffered shapes the relay passes through: Claude
// messages, knowledge base answers, Gemini responses and the plain fallback.
type reply struct {
	Output *struct {
		Text string `json:"text"`
	} `json:"output"`
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Text      *string           `json:"text"`
	Citations []domain.Citation `json:"citations"`
}

func extractReply(body []byte) (string, []domain.Citation, error) {
	var r reply
	if err := json.Unmarshal(body, &r); err != nil {
		return "", nil, fmt.Errorf("decoding reply: %w", err)
	}

	switch {
	case r.Output != nil:
		return r.Output.Text, r.Citations, nil
	case len(r.Content) > 0:
		var sb strings.Builder
		for _, block := range r.Content {
			sb.WriteString(block.Text)
		}
		return sb.String(), r.Citations, nil
	case r.Text != nil:
		return *r.Text, r.Citations, nil
	case len(r.Candidates) > 0:
		var sb strings.Builder
		for _, part := range r.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
		return sb.String(), r.Citations, nil
	}
	return "", nil, ErrEmptyReply
}

func statusError(status int, body []byte) error {
	var resp domain.ErrorResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		return fmt.Errorf("unexpected status %d: %s", status, resp.Error)
	}
	return fmt.Errorf("unexpected status %d", status)
}
