// Package handler implements the relay server's HTTP routes.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/johndosdos/eventhub/internal"
	"github.com/johndosdos/eventhub/internal/auth"
	"github.com/johndosdos/eventhub/internal/database"
	"github.com/johndosdos/eventhub/internal/metrics"
	"github.com/johndosdos/eventhub/internal/model"
	ratelimiter "github.com/johndosdos/eventhub/internal/rate_limiter"
	ws "github.com/johndosdos/eventhub/internal/websocket"
)

// Deps are the collaborators the routes need. Limiter is optional.
type Deps struct {
	Store    database.Store
	Hub      *ws.Hub
	Tokens   auth.TokenIssuer
	Metrics  *metrics.Metrics
	Limiter  *ratelimiter.IPRateLimiter
	Validate *validator.Validate
	Chat     ChatLimits
}

func NewRouter(d Deps) http.Handler {
	if d.Validate == nil {
		d.Validate = validator.New(validator.WithRequiredStructEnabled())
	}

	r := chi.NewRouter()
	r.Use(d.Metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		internal.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Group(func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}

		r.Post("/auth/login", SubmitLogin(d.Store, d.Tokens, d.Validate))
		r.Post("/auth/signup", SubmitSignup(d.Store, d.Tokens, d.Validate))
		r.Post("/contacts/general", SubmitGeneralContact(d.Store, d.Validate))

		r.Group(func(r chi.Router) {
			r.Use(internal.Middleware(d.Store, d.Tokens))

			r.Get("/auth/me", ServeMe())
			r.Get("/venue-requests", ListEnquiries(d.Store))
			r.With(internal.RequireVerified, internal.RequireRole(model.RoleOrganizer)).
				Post("/venue-requests", CreateEnquiry(d.Store, d.Validate))
			r.Get("/venue-requests/{id}/messages", ServeMessages(d.Store))

			// Chatting requires a verified account.
			r.With(internal.RequireVerified).Get("/ws", ServeWs(d.Hub, d.Chat))

			r.Route("/admin", func(r chi.Router) {
				r.Use(internal.RequireRole(model.RoleAdmin))
				r.Post("/users/{id}/ban", BanUser(d.Store, d.Validate))
				r.Post("/users/{id}/unban", UnbanUser(d.Store))
				r.Post("/users/{id}/verify", VerifyUser(d.Store))
			})
		})
	})

	return r
}
