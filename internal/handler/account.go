package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/johndosdos/eventhub/internal"
	"github.com/johndosdos/eventhub/internal/auth"
	"github.com/johndosdos/eventhub/internal/database"
	"github.com/johndosdos/eventhub/internal/model"
)

const msgInvalidCredentials = "Invalid email or password"

// decode reads a JSON body into v and validates it. On failure it writes the
// 400 response and returns false.
func decode(w http.ResponseWriter, r *http.Request, validate *validator.Validate, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		internal.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(v); err != nil {
		internal.WriteError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min", "max":
		return field + " has an invalid length"
	default:
		return field + " is invalid"
	}
}

// SubmitLogin handles user login. Banned accounts get the ban 403 instead of
// a token.
func SubmitLogin(db database.Store, tokens auth.TokenIssuer, validate *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req model.LoginRequest
		if !decode(w, r, validate, &req) {
			return
		}

		user, hash, err := db.GetUserWithPasswordByEmail(ctx, req.Email)
		if err != nil {
			if !errors.Is(err, database.ErrNotFound) {
				slog.ErrorContext(ctx, "failed to retrieve user from db", "error", err)
				internal.WriteError(w, http.StatusInternalServerError, "Server error")
				return
			}
			internal.WriteError(w, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}

		ok, err := auth.CheckPasswordHash(req.Password, hash)
		if err != nil {
			slog.ErrorContext(ctx, "cannot verify password, hash may be corrupted",
				"error", err,
				"user_id", user.ID)
			internal.WriteError(w, http.StatusInternalServerError, "Server error")
			return
		}
		if !ok {
			internal.WriteError(w, http.StatusUnauthorized, msgInvalidCredentials)
			return
		}

		if user.Banned() {
			internal.WriteJSON(w, http.StatusForbidden, internal.BannedResponse(user))
			return
		}

		token, err := tokens.Make(user.ID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to create JWT", "error", err)
			internal.WriteError(w, http.StatusInternalServerError, "Server error")
			return
		}

		internal.WriteJSON(w, http.StatusOK, model.LoginResponse{Token: token, User: user})

		slog.InfoContext(ctx, "user logged in", "user_id", user.ID)
	}
}

// SubmitSignup handles user account creation. New accounts are unverified.
func SubmitSignup(db database.Store, tokens auth.TokenIssuer, validate *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req model.SignupRequest
		if !decode(w, r, validate, &req) {
			return
		}

		hashedPw, err := auth.HashPassword(req.Password)
		if err != nil {
			slog.ErrorContext(ctx, "argon2id hash creation failed", "error", err)
			internal.WriteError(w, http.StatusInternalServerError, "Server error")
			return
		}

		user, err := db.CreateUser(ctx, model.User{
			Name:  strings.TrimSpace(req.Name),
			Email: strings.TrimSpace(req.Email),
			Role:  req.Role,
		}, hashedPw)
		if err != nil {
			if errors.Is(err, database.ErrDuplicateEmail) {
				internal.WriteError(w, http.StatusConflict, "Email is already registered")
				return
			}
			slog.ErrorContext(ctx, "failed to create user entry in database", "error", err)
			internal.WriteError(w, http.StatusInternalServerError, "Database error")
			return
		}

		token, err := tokens.Make(user.ID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to create JWT", "error", err)
			internal.WriteError(w, http.StatusInternalServerError, "Server error")
			return
		}

		internal.WriteJSON(w, http.StatusCreated, model.LoginResponse{Token: token, User: user})

		slog.InfoContext(ctx, "user signed up", "user_id", user.ID, "role", user.Role)
	}
}

// ServeMe returns the authenticated user.
func ServeMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := auth.GetUserFromContext(r.Context())
		if err != nil {
			internal.WriteError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		internal.WriteJSON(w, http.StatusOK, user)
	}
}
