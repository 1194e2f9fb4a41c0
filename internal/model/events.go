package model

import (
	"encoding/json"
	"fmt"
)

// Real-time event names. Outbound events are sent by the client, inbound
// events by the relay server.
const (
	EventJoin       = "join-venue-chat"
	EventLeave      = "leave-venue-chat"
	EventTyping     = "venue-typing"
	EventSend       = "send-venue-message"
	EventNewMessage = "new-venue-message"
	EventUserTyping = "venue-user-typing"
	EventError      = "error"
)

// Envelope frames every event on the wire.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope encodes data under the given event name.
func NewEnvelope(event string, data any) (Envelope, error) {
	p, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("model: encode %s payload: %w", event, err)
	}
	return Envelope{Event: event, Data: p}, nil
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("model: %s event has no payload", e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("model: decode %s payload: %w", e.Event, err)
	}
	return nil
}

type RoomPayload struct {
	RequestID string `json:"requestId"`
}

type TypingPayload struct {
	RequestID string `json:"requestId"`
	IsTyping  bool   `json:"isTyping"`
}

type SendPayload struct {
	RequestID string `json:"requestId"`
	Message   string `json:"message"`
}

type NewMessagePayload struct {
	Message ChatMessage `json:"message"`
}

type UserTypingPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
