// Package apiclient is the HTTP client every client-side request goes
// through. It attaches the session's bearer token to outgoing requests and
// reacts to the two 403 failure modes the API signals: a banned account and
// an account that requires verification.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/johndosdos/eventhub/internal/notify"
	"github.com/johndosdos/eventhub/internal/session"
)

const maxErrorBody = 1 << 20

// DefaultLoginPath is where a banned user is sent.
const DefaultLoginPath = "/login"

// Navigator reports and changes the application's current location.
type Navigator interface {
	Location() string
	Navigate(path string)
}

// Client issues JSON requests against the API.
type Client struct {
	baseURL   string
	http      *http.Client
	sessions  *session.Manager
	bus       *notify.Bus
	nav       Navigator
	loginPath string
	log       *slog.Logger
}

type Option func(*Client)

// WithHTTPClient sets the underlying client. Its transport is wrapped with
// the bearer token injector.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithNavigator(nav Navigator) Option {
	return func(c *Client) { c.nav = nav }
}

func WithLoginPath(path string) Option {
	return func(c *Client) { c.loginPath = path }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, sessions *session.Manager, bus *notify.Bus, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		sessions:  sessions,
		bus:       bus,
		loginPath: DefaultLoginPath,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := &http.Client{Timeout: 30 * time.Second}
	if c.http != nil {
		copied := *c.http
		hc = &copied
	}
	hc.Transport = &authTransport{base: hc.Transport, sessions: sessions}
	c.http = hc

	return c
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Sessions returns the session manager the client reads tokens from.
func (c *Client) Sessions() *session.Manager { return c.sessions }

// Bus returns the notification bus interception events are published on.
func (c *Client) Bus() *notify.Bus { return c.bus }

// Do sends a request with body encoded as JSON (when non-nil) and decodes a
// successful response into out (when non-nil). Non-2xx responses are
// returned as *Error; network failures as *TransportError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		p, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: encode request body: %w", err)
		}
		reader = bytes.NewReader(p)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(res.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("apiclient: decode %s %s response: %w", method, path, err)
		}
		return nil
	}

	apiErr := newError(res)
	if apiErr.Status == http.StatusForbidden {
		c.intercept(ctx, apiErr)
	}
	return apiErr
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// intercept applies the 403 policy. The error is returned to the caller
// regardless of the branch taken.
func (c *Client) intercept(ctx context.Context, e *Error) {
	switch {
	case e.Banned():
		if err := c.sessions.Clear(); err != nil {
			c.log.ErrorContext(ctx, "failed to clear session after ban", "error", err)
		}
		c.bus.UserBanned.Publish(notify.UserBanned{
			Message:   e.Message,
			BanReason: e.Body.BanReason,
			BannedAt:  e.Body.BannedAt,
		})
		if c.nav != nil && c.nav.Location() != c.loginPath {
			c.nav.Navigate(c.loginPath)
		}
		c.log.WarnContext(ctx, "account banned; session cleared",
			"ban_reason", e.Body.BanReason)

	case e.RequiresVerification():
		c.bus.VerificationRequired.Publish(notify.VerificationRequired{Message: e.Message})
	}
}

func newError(res *http.Response) *Error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))

	e := &Error{Status: res.StatusCode}
	if err := json.Unmarshal(raw, &e.Body); err == nil {
		e.Message = e.Body.Message
	}
	if e.Message == "" {
		e.Message = http.StatusText(res.StatusCode)
	}
	return e
}
