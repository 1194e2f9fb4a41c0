// Package internal holds the HTTP middleware shared by the relay server's
// routes.
package internal

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/johndosdos/eventhub/internal/auth"
	"github.com/johndosdos/eventhub/internal/database"
	"github.com/johndosdos/eventhub/internal/model"
)

const (
	MsgBanned               = "Your account has been banned"
	MsgVerificationRequired = "Please verify your account to continue"
)

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// Middleware validates the bearer token, loads the user and rejects banned
// accounts with a 403 carrying the ban details.
func Middleware(store database.Store, tokens auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := BearerToken(r)
			if !ok {
				WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			userID, err := tokens.Validate(token)
			if err != nil {
				slog.DebugContext(ctx, "rejected access token", "error", err)
				WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			user, err := store.GetUserByID(ctx, userID)
			if err != nil {
				if errors.Is(err, database.ErrNotFound) {
					WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
					return
				}
				slog.ErrorContext(ctx, "failed to load user",
					"error", err,
					"user_id", userID)
				WriteError(w, http.StatusInternalServerError, "Server error")
				return
			}

			if user.Banned() {
				slog.InfoContext(ctx, "banned user rejected",
					"user_id", user.ID,
					"path", r.URL.Path)
				WriteJSON(w, http.StatusForbidden, BannedResponse(user))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUser(ctx, user)))
		})
	}
}

// BannedResponse is the 403 body for a banned account.
func BannedResponse(user model.User) model.ErrorResponse {
	return model.ErrorResponse{
		Message:   MsgBanned,
		BanReason: user.BanReason,
		BannedAt:  user.BannedAt,
	}
}

// RequireVerified rejects unverified accounts. It must run after Middleware.
func RequireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := auth.GetUserFromContext(r.Context())
		if err != nil {
			WriteError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		if !user.Verified {
			WriteJSON(w, http.StatusForbidden, model.ErrorResponse{
				Message:              MsgVerificationRequired,
				RequiresVerification: true,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects users whose role is not listed.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.GetUserFromContext(r.Context())
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			WriteError(w, http.StatusForbidden, "You do not have access to this resource")
		})
	}
}
