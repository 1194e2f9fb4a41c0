package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/johndosdos/eventhub/internal"
	"github.com/johndosdos/eventhub/internal/auth"
	ws "github.com/johndosdos/eventhub/internal/websocket"
)

// ChatLimits are the per-connection event rates, per minute.
type ChatLimits struct {
	MessagesPerMinute int
	TypingPerMinute   int
}

// ServeWs handles the client's websocket connection upgrade. Rooms are
// joined afterwards with join-venue-chat events.
func ServeWs(h *ws.Hub, limits ChatLimits) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		user, err := auth.GetUserFromContext(ctx)
		if err != nil {
			internal.WriteError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to upgrade connection", "error", err)
			return
		}

		slog.InfoContext(ctx, "upgraded connection", "user_id", user.ID)

		// We'll register our new client to the central hub.
		c := ws.NewClient(conn, user.ID, user.Name)
		c.SetMessageLimiter(limits.MessagesPerMinute, time.Minute)
		c.SetTypingLimiter(limits.TypingPerMinute, time.Minute)
		reg := ws.Registration{
			Client: c,
			Done:   make(chan struct{}),
		}

		select {
		case h.Register <- reg:
		case <-h.Done():
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}

		// Wait for registration to complete
		<-reg.Done

		// We block on c.ReadMessage() because the request context will be canceled as soon
		// we return from the ServeWs() handler.
		go c.WriteMessage(ctx)
		c.ReadMessage(ctx)
	}
}
