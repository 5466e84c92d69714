package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/satriahrh/cocoa-fruit/ragchat/utils/log"
	"go.uber.org/zap"
)

type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	inbox  chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
	closed bool

	pongWait   time.Duration
	pingPeriod time.Duration
}

// Message types sent to the client
const (
	TypeDelta = "delta"
	TypeDone  = "done"
	TypeError = "error"
)

// ServerMessage is one frame written to the socket.
type ServerMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Status  int    `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
	inboxSize      = 16
)

// ErrInboxFull is reported when prompts arrive faster than they are answered.
var ErrInboxFull = errors.New("too many prompts waiting")

// NewClient wraps conn. ctx carries the request-scoped logging fields and
// must not be cancelled by the HTTP server once the connection is hijacked.
func NewClient(ctx context.Context, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(ctx)
	return &Client{
		conn:   conn,
		send:   make(chan []byte, 256),
		inbox:  make(chan []byte, inboxSize),
		ctx:    ctx,
		cancel: cancel,

		pongWait:   pongWait,
		pingPeriod: pingPeriod,
	}
}

// Run starts the write pump and the prompt worker, then reads frames until
// the connection closes. Prompts are answered one at a time in arrival
// order while the read side keeps consuming pongs and control frames.
// onFull is called for a prompt that arrives while the inbox is full.
func (c *Client) Run(onMessage func(ctx context.Context, payload []byte), onFull func(ctx context.Context)) {
	c.setupHandlers()

	go c.writePump()
	go c.dispatch(onMessage)
	c.readPump(onFull)
}

func (c *Client) setupHandlers() {
	c.conn.SetCloseHandler(func(code int, text string) error {
		log.WithCtx(c.ctx).Debug("WebSocket connection closed", zap.Int("code", code), zap.String("text", text))
		c.Close()
		return nil
	})

	c.conn.SetPongHandler(func(appData string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})
}

// Close stops the client. The write pump flushes frames already queued,
// sends a close frame and then closes the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.cancel()
}

// IsClosed returns true if the client connection is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Context returns the client's context
func (c *Client) Context() context.Context {
	return c.ctx
}

func (c *Client) readPump(onFull func(ctx context.Context)) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithCtx(c.ctx).Error("WebSocket error", zap.Error(err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))

		select {
		case c.inbox <- message:
		default:
			onFull(c.ctx)
		}
	}
}

func (c *Client) dispatch(onMessage func(ctx context.Context, payload []byte)) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case payload := <-c.inbox:
			onMessage(c.ctx, payload)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				log.WithCtx(c.ctx).Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.WithCtx(c.ctx).Debug("Failed to send ping", zap.Error(err))
				return
			}

		case <-c.ctx.Done():
			c.flush()
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// flush writes whatever is still queued without waiting for more.
func (c *Client) flush() {
	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				log.WithCtx(c.ctx).Debug("Dropped queued frames on close", zap.Error(err), zap.Int("remaining", len(c.send)))
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(message []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// Send queues msg for the write pump. It blocks while the queue is full and
// fails once the connection is gone.
func (c *Client) Send(msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if c.IsClosed() {
		return websocket.ErrCloseSent
	}

	select {
	case c.send <- data:
		return nil
	case <-c.ctx.Done():
		return websocket.ErrCloseSent
	}
}
