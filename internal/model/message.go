// Package model defines data structure shared by the relay server and the
// client library.
package model

import (
	"time"
)

// ChatMessage is a single enquiry chat message. Messages are immutable once
// created; Seq is assigned by the server and increases by one per request.
type ChatMessage struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"requestId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sentAt"`
	Seq        int64     `json:"seq,omitempty"`
}

// MessageHistory is the body of GET /venue-requests/{id}/messages.
type MessageHistory struct {
	Messages []ChatMessage `json:"messages"`
}
