package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/johndosdos/eventhub/internal"
	"github.com/johndosdos/eventhub/internal/database"
	"github.com/johndosdos/eventhub/internal/model"
)

// SubmitGeneralContact stores a contact form submission. No account is
// required.
func SubmitGeneralContact(db database.Store, validate *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req model.ContactRequest
		if !decode(w, r, validate, &req) {
			return
		}

		contact, err := db.CreateContact(ctx, model.ContactMessage{
			Name:    req.Name,
			Email:   req.Email,
			Subject: req.Subject,
			Message: req.Message,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to store contact", "error", err)
			internal.WriteError(w, http.StatusInternalServerError, "Failed to send message")
			return
		}

		internal.WriteJSON(w, http.StatusCreated, model.StatusResponse{
			Status:  "success",
			Message: "Your message has been sent",
		})

		slog.InfoContext(ctx, "contact submitted", "contact_id", contact.ID)
	}
}
