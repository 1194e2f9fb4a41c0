package model

import "time"

// ErrorResponse is the JSON error body returned by the API. A 403 carrying a
// message that contains "banned" or RequiresVerification drives the client's
// interception policy.
type ErrorResponse struct {
	Message              string     `json:"message"`
	RequiresVerification bool       `json:"requiresVerification,omitempty"`
	BanReason            string     `json:"banReason,omitempty"`
	BannedAt             *time.Time `json:"bannedAt,omitempty"`
}

// Roles.
const (
	RoleUser         = "user"
	RoleOrganizer    = "organizer"
	RoleVenuePartner = "venue_partner"
	RoleAdmin        = "admin"
)

// User is an account as seen by the API.
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Verified  bool       `json:"verified"`
	BannedAt  *time.Time `json:"bannedAt,omitempty"`
	BanReason string     `json:"banReason,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Banned reports whether the account is currently banned.
func (u User) Banned() bool {
	return u.BannedAt != nil
}

// Enquiry is a venue enquiry submitted by an organizer to a venue partner.
// It scopes the enquiry chat room.
type Enquiry struct {
	ID          string    `json:"id"`
	OrganizerID string    `json:"organizerId"`
	PartnerID   string    `json:"partnerId"`
	VenueName   string    `json:"venueName"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HasParticipant reports whether userID is one of the two conversation parties.
func (e Enquiry) HasParticipant(userID string) bool {
	return userID != "" && (e.OrganizerID == userID || e.PartnerID == userID)
}

// ContactMessage is a general contact form submission.
type ContactMessage struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=user organizer venue_partner"`
}

// LoginResponse carries the access token and the authenticated user.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// StatusResponse is the generic {status} acknowledgement body.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type BanRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type CreateEnquiryRequest struct {
	PartnerID string `json:"partnerId" validate:"required"`
	VenueName string `json:"venueName" validate:"required,max=200"`
}
