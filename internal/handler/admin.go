package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/johndosdos/eventhub/internal"
	"github.com/johndosdos/eventhub/internal/auth"
	"github.com/johndosdos/eventhub/internal/database"
	"github.com/johndosdos/eventhub/internal/model"
)

func writeStoreError(w http.ResponseWriter, r *http.Request, err error, action string) {
	if errors.Is(err, database.ErrNotFound) {
		internal.WriteError(w, http.StatusNotFound, "User not found")
		return
	}
	slog.ErrorContext(r.Context(), "failed to "+action, "error", err)
	internal.WriteError(w, http.StatusInternalServerError, "Database error")
}

// BanUser bans the {id} user. Their next authenticated request is rejected
// with the ban 403.
func BanUser(db database.Store, validate *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		admin, _ := auth.GetUserFromContext(ctx)

		var req model.BanRequest
		if !decode(w, r, validate, &req) {
			return
		}

		id := chi.URLParam(r, "id")
		if id == admin.ID {
			internal.WriteError(w, http.StatusBadRequest, "You cannot ban yourself")
			return
		}

		if err := db.BanUser(ctx, id, req.Reason, time.Now().UTC()); err != nil {
			writeStoreError(w, r, err, "ban user")
			return
		}

		slog.InfoContext(ctx, "user banned",
			"user_id", id,
			"admin_id", admin.ID)
		internal.WriteJSON(w, http.StatusOK, model.StatusResponse{Status: "success", Message: "User banned"})
	}
}

func UnbanUser(db database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.UnbanUser(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeStoreError(w, r, err, "unban user")
			return
		}
		internal.WriteJSON(w, http.StatusOK, model.StatusResponse{Status: "success", Message: "User unbanned"})
	}
}

func VerifyUser(db database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.VerifyUser(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeStoreError(w, r, err, "verify user")
			return
		}
		internal.WriteJSON(w, http.StatusOK, model.StatusResponse{Status: "success", Message: "User verified"})
	}
}
