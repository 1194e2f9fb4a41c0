package venuechat

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/johndosdos/eventhub/internal/model"
)

// Conn is an open event connection to the relay server.
type Conn interface {
	Write(ctx context.Context, env model.Envelope) error
	// Read blocks for the next event. Only one goroutine reads.
	Read(ctx context.Context) (model.Envelope, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// WSDialer dials the relay server over WebSocket with JSON frames.
type WSDialer struct {
	HTTPClient *http.Client
}

func (d WSDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient: d.HTTPClient,
		HTTPHeader: header,
	})
	if err != nil {
		return nil, fmt.Errorf("venuechat: dial %s: %w", url, err)
	}
	return &wsConn{conn: c}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) Write(ctx context.Context, env model.Envelope) error {
	return wsjson.Write(ctx, w.conn, env)
}

func (w *wsConn) Read(ctx context.Context) (model.Envelope, error) {
	var env model.Envelope
	err := wsjson.Read(ctx, w.conn, &env)
	return env, err
}

func (w *wsConn) Close() error {
	return w.conn.Close(websocket.StatusNormalClosure, "")
}
