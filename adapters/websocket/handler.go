package websocket

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/satriahrh/cocoa-fruit/ragchat/utils/log"
)

// Handler upgrades the request and serves prompts until the socket closes.
func (s *Server) Handler(c echo.Context) error {
	ctx := context.WithoutCancel(c.Request().Context())
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		ctx = log.WithRequestID(ctx, id)
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := NewClient(ctx, conn)
	client.pongWait, client.pingPeriod = s.pongWait, s.pingPeriod
	s.hub.Register(client)
	defer s.hub.Unregister(client)

	client.Run(
		func(ctx context.Context, payload []byte) { s.handlePrompt(ctx, client, payload) },
		func(ctx context.Context) { s.rejectBusy(ctx, client) },
	)

	return nil
}
