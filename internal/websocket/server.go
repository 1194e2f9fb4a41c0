package websocket

import (
	"context"
	"log/slog"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/johndosdos/eventhub/internal/model"
)

// ReadMessage reads events from the websocket stream and forwards them to
// the hub. It unregisters the client when the connection ends.
func (c *Client) ReadMessage(ctx context.Context) {
	defer func() {
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.done:
		}
		c.conn.CloseNow()
	}()

	for {
		// A frame that is not a JSON envelope closes the connection.
		var env model.Envelope
		if err := wsjson.Read(ctx, c.conn, &env); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure &&
				status != websocket.StatusGoingAway &&
				status != -1 {
				slog.InfoContext(ctx, "connection closed",
					"status", status,
					"user_id", c.UserID)
			}
			return
		}

		select {
		case c.Hub.ClientMsg <- Inbound{Client: c, Envelope: env}:
		case <-c.Hub.done:
			return
		case <-ctx.Done():
			return
		}
	}
}
