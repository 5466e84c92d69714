package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	chathttp "github.com/satriahrh/cocoa-fruit/ragchat/adapters/http"
	"github.com/satriahrh/cocoa-fruit/ragchat/adapters/metrics"
	"github.com/satriahrh/cocoa-fruit/ragchat/adapters/relay"
	"github.com/satriahrh/cocoa-fruit/ragchat/domain"
	"github.com/satriahrh/cocoa-fruit/ragchat/usecase"
	"github.com/satriahrh/cocoa-fruit/ragchat/utils/log"
	"go.uber.org/zap"
)

type Server struct {
	upgrader websocket.Upgrader
	svc      *usecase.ChatService
	metrics  *metrics.Metrics
	hub      *Hub

	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewServer(svc *usecase.ChatService, m *metrics.Metrics) *Server {
	return &Server{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		svc:      svc,
		metrics:  m,
		hub:      NewHub(),

		pongWait:   pongWait,
		pingPeriod: pingPeriod,
	}
}

func (s *Server) GetHub() *Hub {
	return s.hub
}

// handlePrompt streams one reply for a {"prompt": "..."} frame.
func (s *Server) handlePrompt(ctx context.Context, client *Client, payload []byte) {
	var req domain.ChatRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(ctx, client, domain.NewError(domain.KindValidation, "decoding message", err))
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.sendError(ctx, client, domain.NewError(domain.KindValidation, "validating message", domain.ErrEmptyPrompt))
		return
	}

	seq, err := s.svc.Stream(ctx, req.Prompt)
	if err != nil {
		log.WithCtx(ctx).Error("Failed to open provider stream", zap.Error(err))
		s.sendError(ctx, client, err)
		return
	}

	s.metrics.StreamsInFlight.Inc()
	defer s.metrics.StreamsInFlight.Dec()

	stats, err := relay.Relay(seq, func(frag domain.Fragment) error {
		return client.Send(ServerMessage{Type: TypeDelta, Text: frag.Text})
	})
	s.metrics.RecordStreamed(stats.Fragments, stats.Bytes)
	if err != nil {
		if errors.Is(err, relay.ErrSink) {
			s.metrics.RecordAbort("client")
			log.WithCtx(ctx).Info("Socket closed mid-stream", zap.Error(err))
			return
		}
		s.metrics.RecordAbort("provider")
		log.WithCtx(ctx).Error("Provider stream failed", zap.Error(err), zap.Int("fragments_sent", stats.Fragments))
		s.sendError(ctx, client, err)
		return
	}

	if err := client.Send(ServerMessage{Type: TypeDone}); err != nil {
		log.WithCtx(ctx).Debug("Failed to send done frame", zap.Error(err))
	}
}

func (s *Server) sendError(ctx context.Context, client *Client, err error) {
	status := chathttp.StatusFor(err)
	msg := ServerMessage{
		Type:    TypeError,
		Status:  status,
		Error:   http.StatusText(status),
		Details: err.Error(),
	}
	if sendErr := client.Send(msg); sendErr != nil {
		log.WithCtx(ctx).Debug("Failed to send error frame", zap.Error(sendErr))
	}
}

func (s *Server) rejectBusy(ctx context.Context, client *Client) {
	log.WithCtx(ctx).Warn("Dropping prompt, inbox full")
	msg := ServerMessage{
		Type:    TypeError,
		Status:  http.StatusTooManyRequests,
		Error:   http.StatusText(http.StatusTooManyRequests),
		Details: ErrInboxFull.Error(),
	}
	if err := client.Send(msg); err != nil {
		log.WithCtx(ctx).Debug("Failed to send error frame", zap.Error(err))
	}
}
