// Package database persists users, enquiries, enquiry chat messages and
// contact submissions.
package database

import (
	"context"
	"errors"
	"time"

	"github.com/johndosdos/eventhub/internal/model"
)

var (
	ErrNotFound       = errors.New("internal/database: not found")
	ErrDuplicateEmail = errors.New("internal/database: email already registered")
)

// Store is the persistence surface used by the handlers and the hub.
type Store interface {
	CreateUser(ctx context.Context, user model.User, hashedPassword string) (model.User, error)
	GetUserByID(ctx context.Context, id string) (model.User, error)
	// GetUserWithPasswordByEmail returns the user and its password hash.
	GetUserWithPasswordByEmail(ctx context.Context, email string) (model.User, string, error)
	BanUser(ctx context.Context, id, reason string, at time.Time) error
	UnbanUser(ctx context.Context, id string) error
	VerifyUser(ctx context.Context, id string) error

	CreateEnquiry(ctx context.Context, enquiry model.Enquiry) (model.Enquiry, error)
	GetEnquiry(ctx context.Context, id string) (model.Enquiry, error)
	ListEnquiriesForUser(ctx context.Context, userID string) ([]model.Enquiry, error)

	// CreateVenueMessage assigns ID, Seq and SentAt and stores the message.
	// Seq increases by one per request id.
	CreateVenueMessage(ctx context.Context, msg model.ChatMessage) (model.ChatMessage, error)
	// ListVenueMessages returns at most limit of the most recent messages of a
	// request in ascending seq order.
	ListVenueMessages(ctx context.Context, requestID string, limit int) ([]model.ChatMessage, error)

	CreateContact(ctx context.Context, contact model.ContactMessage) (model.ContactMessage, error)
}

// DefaultHistoryLimit bounds chat history responses.
const DefaultHistoryLimit = 100
