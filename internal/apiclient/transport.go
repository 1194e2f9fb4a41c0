package apiclient

import (
	"net/http"

	"github.com/johndosdos/eventhub/internal/session"
)

// authTransport sets the bearer token from the current session on every
// request. Without a session the request goes out unauthenticated.
type authTransport struct {
	base     http.RoundTripper
	sessions *session.Manager
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	if s, ok := t.sessions.Get(); ok {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	return base.RoundTrip(req)
}

// AuthHeader returns the Authorization header for the current session, or
// an empty header when signed out.
func AuthHeader(sessions *session.Manager) http.Header {
	h := make(http.Header)
	if s, ok := sessions.Get(); ok {
		h.Set("Authorization", "Bearer "+s.Token)
	}
	return h
}
