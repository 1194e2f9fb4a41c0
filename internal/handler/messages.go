package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/johndosdos/eventhub/internal"
	"github.com/johndosdos/eventhub/internal/database"
	"github.com/johndosdos/eventhub/internal/model"
)

// ServeMessages returns the recent chat history of an enquiry in ascending
// seq order. ?limit= caps the count.
func ServeMessages(db database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		enquiry, ok := participantEnquiry(w, r, db)
		if !ok {
			return
		}

		limit := database.DefaultHistoryLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				internal.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, database.DefaultHistoryLimit)
		}

		messages, err := db.ListVenueMessages(ctx, enquiry.ID, limit)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.ErrorContext(ctx, "failed to load messages from database",
				"error", err,
				"request_id", enquiry.ID)
			internal.WriteError(w, http.StatusInternalServerError, "Database error")
			return
		}

		internal.WriteJSON(w, http.StatusOK, model.MessageHistory{Messages: messages})
	}
}
