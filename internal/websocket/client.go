package websocket

import (
	"context"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/time/rate"

	"github.com/johndosdos/eventhub/internal/model"
)

const writeTimeout = 10 * time.Second

type Client struct {
	UserID     string
	Username   string
	conn       *websocket.Conn
	Hub        *Hub
	MessageCh  chan model.Envelope
	messageLim *rate.Limiter
	typingLim  *rate.Limiter

	// Rooms the client has joined. Owned by the hub goroutine.
	rooms map[string]struct{}
}

func NewClient(conn *websocket.Conn, userID, username string) *Client {
	return &Client{
		conn:       conn,
		MessageCh:  make(chan model.Envelope, 64),
		UserID:     userID,
		Username:   username,
		messageLim: rate.NewLimiter(rate.Inf, 0),
		typingLim:  rate.NewLimiter(rate.Inf, 0),
		rooms:      make(map[string]struct{}),
	}
}

// SetMessageLimiter allows requests messages per window with a burst of
// requests.
func (c *Client) SetMessageLimiter(requests int, window time.Duration) {
	c.messageLim = newLimiter(requests, window)
}

func (c *Client) SetTypingLimiter(requests int, window time.Duration) {
	c.typingLim = newLimiter(requests, window)
}

func newLimiter(requests int, window time.Duration) *rate.Limiter {
	if requests <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(window/time.Duration(requests)), requests)
}

// enqueue hands env to the write pump without blocking the hub. Called from
// the hub goroutine only.
func (c *Client) enqueue(env model.Envelope) {
	select {
	case c.MessageCh <- env:
	default:
		slog.Warn("skipping event - channel full or client slow",
			"user_id", c.UserID,
			"event", env.Event)
	}
}

func (c *Client) sendError(message string) {
	env, err := model.NewEnvelope(model.EventError, model.ErrorPayload{Message: message})
	if err != nil {
		slog.Error("failed to encode error event", "error", err)
		return
	}
	c.enqueue(env)
}

// WriteMessage writes queued events to the websocket stream.
func (c *Client) WriteMessage(ctx context.Context) {
	for {
		select {
		case env, ok := <-c.MessageCh:
			// We don't want to continue processing when the channel has already been
			// closed.
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, c.conn, env)
			cancel()
			if err != nil {
				slog.WarnContext(ctx, "failed to write event",
					"error", err,
					"event", env.Event,
					"user_id", c.UserID)
				c.conn.CloseNow()
				return
			}

		case <-ctx.Done():
			c.conn.Close(websocket.StatusGoingAway, "context cancelled")
			return
		}
	}
}
