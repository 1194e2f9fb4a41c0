package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/johndosdos/eventhub/internal"
	"github.com/johndosdos/eventhub/internal/auth"
	"github.com/johndosdos/eventhub/internal/database"
	"github.com/johndosdos/eventhub/internal/model"
)

// CreateEnquiry opens an enquiry from the authenticated organizer to a venue
// partner.
func CreateEnquiry(db database.Store, validate *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user, err := auth.GetUserFromContext(ctx)
		if err != nil {
			internal.WriteError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		var req model.CreateEnquiryRequest
		if !decode(w, r, validate, &req) {
			return
		}

		partner, err := db.GetUserByID(ctx, req.PartnerID)
		if err != nil || partner.Role != model.RoleVenuePartner {
			internal.WriteError(w, http.StatusNotFound, "Venue partner not found")
			return
		}

		enquiry, err := db.CreateEnquiry(ctx, model.Enquiry{
			OrganizerID: user.ID,
			PartnerID:   partner.ID,
			VenueName:   req.VenueName,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create enquiry", "error", err)
			internal.WriteError(w, http.StatusInternalServerError, "Database error")
			return
		}

		internal.WriteJSON(w, http.StatusCreated, enquiry)
	}
}

// ListEnquiries returns the enquiries the authenticated user takes part in.
func ListEnquiries(db database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user, err := auth.GetUserFromContext(ctx)
		if err != nil {
			internal.WriteError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		enquiries, err := db.ListEnquiriesForUser(ctx, user.ID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to list enquiries", "error", err)
			internal.WriteError(w, http.StatusInternalServerError, "Database error")
			return
		}

		internal.WriteJSON(w, http.StatusOK, enquiries)
	}
}

// participantEnquiry loads the {id} enquiry and checks that the
// authenticated user is one of its parties. It writes the error response and
// returns false otherwise.
func participantEnquiry(w http.ResponseWriter, r *http.Request, db database.Store) (model.Enquiry, bool) {
	ctx := r.Context()
	user, err := auth.GetUserFromContext(ctx)
	if err != nil {
		internal.WriteError(w, http.StatusUnauthorized, "Authentication required")
		return model.Enquiry{}, false
	}

	enquiry, err := db.GetEnquiry(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			internal.WriteError(w, http.StatusNotFound, "Enquiry not found")
			return model.Enquiry{}, false
		}
		slog.ErrorContext(ctx, "failed to load enquiry", "error", err)
		internal.WriteError(w, http.StatusInternalServerError, "Database error")
		return model.Enquiry{}, false
	}

	if !enquiry.HasParticipant(user.ID) && user.Role != model.RoleAdmin {
		internal.WriteError(w, http.StatusForbidden, "You are not part of this enquiry")
		return model.Enquiry{}, false
	}
	return enquiry, true
}
