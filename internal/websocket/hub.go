// Package websocket runs the enquiry chat rooms of the relay server.
package websocket

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/johndosdos/eventhub/internal/broker"
	"github.com/johndosdos/eventhub/internal/database"
	"github.com/johndosdos/eventhub/internal/metrics"
	"github.com/johndosdos/eventhub/internal/model"
)

// Error messages sent to clients as "error" events.
const (
	ErrMsgInvalidEvent = "Invalid event"
	ErrMsgNotFound     = "Enquiry not found"
	ErrMsgForbidden    = "You are not part of this enquiry"
	ErrMsgNotJoined    = "Join the chat before sending messages"
	ErrMsgEmpty        = "Message cannot be empty"
	ErrMsgTooLong      = "Message is too long"
	ErrMsgRateLimited  = "You are sending messages too quickly"
	ErrMsgSendFailed   = "Failed to send message"
)

// MaxMessageLength bounds a chat message after sanitizing.
const MaxMessageLength = 2000

type sanitizer interface {
	Sanitize(s string) string
}

type Registration struct {
	Client *Client
	Done   chan struct{}
}

// Inbound is an event read from a client connection.
type Inbound struct {
	Client   *Client
	Envelope model.Envelope
}

// Hub owns room membership. All fields below the channels are only touched by
// the Run goroutine.
type Hub struct {
	db        database.Store
	jetstream jetstream.JetStream
	metrics   *metrics.Metrics
	sanitizer sanitizer

	Register   chan Registration
	Unregister chan *Client
	ClientMsg  chan Inbound
	BrokerMsg  chan model.ChatMessage
	done       chan struct{}

	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

// NewHub returns a new instance of Hub. A nil js delivers messages to local
// room members only.
func NewHub(js jetstream.JetStream, db database.Store, m *metrics.Metrics) *Hub {
	return &Hub{
		db:         db,
		jetstream:  js,
		metrics:    m,
		sanitizer:  bluemonday.StrictPolicy(),
		Register:   make(chan Registration),
		Unregister: make(chan *Client),
		ClientMsg:  make(chan Inbound, 1024),
		BrokerMsg:  make(chan model.ChatMessage, 1024),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
	}
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Run manages incoming and outgoing hub traffic. stream may be nil when the
// hub runs without JetStream.
func (h *Hub) Run(ctx context.Context, stream jetstream.Stream) {
	defer close(h.done)

	if h.jetstream != nil {
		if err := broker.Subscriber(ctx, stream, h.BrokerMsg); err != nil {
			slog.ErrorContext(ctx, "failed to subscribe to broker", "error", err)
		}
	}

	for {
		select {
		case reg := <-h.Register:
			client := reg.Client
			client.Hub = h
			h.clients[client] = struct{}{}
			h.metrics.ConnectedClients.Inc()
			close(reg.Done)

		case client := <-h.Unregister:
			if _, ok := h.clients[client]; !ok {
				continue
			}
			for requestID := range client.rooms {
				h.leave(client, requestID)
			}
			delete(h.clients, client)
			close(client.MessageCh)
			h.metrics.ConnectedClients.Dec()

		case in := <-h.ClientMsg:
			// Events queued before an unregister are dropped.
			if _, ok := h.clients[in.Client]; !ok {
				continue
			}
			h.handle(ctx, in.Client, in.Envelope)

		case msg := <-h.BrokerMsg:
			h.deliver(msg)

		case <-ctx.Done():
			slog.InfoContext(ctx, "hub stopped", "reason", ctx.Err())
			return
		}
	}
}

func (h *Hub) handle(ctx context.Context, c *Client, env model.Envelope) {
	switch env.Event {
	case model.EventJoin:
		var p model.RoomPayload
		if err := env.Decode(&p); err != nil || p.RequestID == "" {
			c.sendError(ErrMsgInvalidEvent)
			return
		}
		h.join(ctx, c, p.RequestID)

	case model.EventLeave:
		var p model.RoomPayload
		if err := env.Decode(&p); err != nil || p.RequestID == "" {
			c.sendError(ErrMsgInvalidEvent)
			return
		}
		h.leave(c, p.RequestID)

	case model.EventTyping:
		var p model.TypingPayload
		if err := env.Decode(&p); err != nil {
			c.sendError(ErrMsgInvalidEvent)
			return
		}
		if _, joined := c.rooms[p.RequestID]; !joined {
			return
		}
		// Typing stops always pass so no indicator is left stuck.
		if p.IsTyping && !c.typingLim.Allow() {
			return
		}
		h.typing(c, p.RequestID, p.IsTyping)

	case model.EventSend:
		var p model.SendPayload
		if err := env.Decode(&p); err != nil {
			c.sendError(ErrMsgInvalidEvent)
			return
		}
		h.send(ctx, c, p)

	default:
		slog.DebugContext(ctx, "unknown event", "event", env.Event, "user_id", c.UserID)
		c.sendError(ErrMsgInvalidEvent)
	}
}

func (h *Hub) join(ctx context.Context, c *Client, requestID string) {
	if _, joined := c.rooms[requestID]; joined {
		return
	}

	enquiry, err := h.db.GetEnquiry(ctx, requestID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			slog.ErrorContext(ctx, "failed to load enquiry", "error", err, "request_id", requestID)
		}
		c.sendError(ErrMsgNotFound)
		return
	}
	if !enquiry.HasParticipant(c.UserID) {
		slog.WarnContext(ctx, "join rejected",
			"user_id", c.UserID,
			"request_id", requestID)
		c.sendError(ErrMsgForbidden)
		return
	}

	room, ok := h.rooms[requestID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[requestID] = room
	}
	room[c] = struct{}{}
	c.rooms[requestID] = struct{}{}
	h.metrics.Rooms.Set(float64(len(h.rooms)))

	slog.InfoContext(ctx, "client joined room",
		"user_id", c.UserID,
		"request_id", requestID,
		"members", len(room))
}

// leave removes c from the room and clears any typing indicator it left
// behind.
func (h *Hub) leave(c *Client, requestID string) {
	room, ok := h.rooms[requestID]
	if !ok {
		return
	}
	if _, member := room[c]; !member {
		return
	}

	delete(room, c)
	delete(c.rooms, requestID)
	if len(room) == 0 {
		delete(h.rooms, requestID)
	} else {
		h.typing(c, requestID, false)
	}
	h.metrics.Rooms.Set(float64(len(h.rooms)))
}

// typing relays a typing state to the other members of the room.
func (h *Hub) typing(from *Client, requestID string, isTyping bool) {
	env, err := model.NewEnvelope(model.EventUserTyping, model.UserTypingPayload{
		UserID:   from.UserID,
		UserName: from.Username,
		IsTyping: isTyping,
	})
	if err != nil {
		slog.Error("failed to encode typing event", "error", err)
		return
	}

	for member := range h.rooms[requestID] {
		if member == from {
			continue
		}
		member.enqueue(env)
	}
}

func (h *Hub) send(ctx context.Context, c *Client, p model.SendPayload) {
	if _, joined := c.rooms[p.RequestID]; !joined {
		h.metrics.Messages.WithLabelValues(metrics.ResultRejected).Inc()
		c.sendError(ErrMsgNotJoined)
		return
	}

	if !c.messageLim.Allow() {
		h.metrics.Messages.WithLabelValues(metrics.ResultRateLimited).Inc()
		c.sendError(ErrMsgRateLimited)
		return
	}

	// Markup is stripped; entities the sanitizer escapes are turned back into
	// plain text, as messages travel as JSON strings.
	text := strings.TrimSpace(html.UnescapeString(h.sanitizer.Sanitize(p.Message)))
	switch {
	case text == "":
		h.metrics.Messages.WithLabelValues(metrics.ResultRejected).Inc()
		c.sendError(ErrMsgEmpty)
		return
	case len(text) > MaxMessageLength:
		h.metrics.Messages.WithLabelValues(metrics.ResultRejected).Inc()
		c.sendError(ErrMsgTooLong)
		return
	}

	// The store assigns ID, Seq and SentAt.
	msg, err := h.db.CreateVenueMessage(ctx, model.ChatMessage{
		RequestID:  p.RequestID,
		SenderID:   c.UserID,
		SenderName: c.Username,
		Text:       text,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to store message", "error", err, "request_id", p.RequestID)
		h.metrics.Messages.WithLabelValues(metrics.ResultFailed).Inc()
		c.sendError(ErrMsgSendFailed)
		return
	}
	h.metrics.Messages.WithLabelValues(metrics.ResultDelivered).Inc()

	if h.jetstream == nil {
		h.deliver(msg)
		return
	}

	if _, err := broker.Publisher(ctx, h.jetstream, msg); err != nil {
		// The message is stored; deliver locally so this instance's room
		// still sees it.
		slog.ErrorContext(ctx, "failed to publish message", "error", err)
		h.deliver(msg)
	}
}

// deliver sends a stored message to every local member of its room,
// including the sender.
func (h *Hub) deliver(msg model.ChatMessage) {
	room, ok := h.rooms[msg.RequestID]
	if !ok {
		return
	}

	env, err := model.NewEnvelope(model.EventNewMessage, model.NewMessagePayload{Message: msg})
	if err != nil {
		slog.Error("failed to encode message event", "error", err)
		return
	}

	for member := range room {
		member.enqueue(env)
	}
}
