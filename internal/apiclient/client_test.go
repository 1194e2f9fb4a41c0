package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndosdos/eventhub/internal/model"
	"github.com/johndosdos/eventhub/internal/notify"
	"github.com/johndosdos/eventhub/internal/session"
)

type fakeNavigator struct {
	location string
	visits   []string
}

func (n *fakeNavigator) Location() string { return n.location }

func (n *fakeNavigator) Navigate(path string) {
	n.visits = append(n.visits, path)
	n.location = path
}

type fixture struct {
	client   *Client
	sessions *session.Manager
	bus      *notify.Bus
	nav      *fakeNavigator
	banned   []notify.UserBanned
	verify   []notify.VerificationRequired
}

func newFixture(t *testing.T, handler http.HandlerFunc) *fixture {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	f := &fixture{
		sessions: session.NewManager(session.NewMemoryStore()),
		bus:      notify.NewBus(),
		nav:      &fakeNavigator{location: "/events"},
	}
	f.bus.UserBanned.Subscribe(func(e notify.UserBanned) { f.banned = append(f.banned, e) })
	f.bus.VerificationRequired.Subscribe(func(e notify.VerificationRequired) { f.verify = append(f.verify, e) })
	f.client = New(srv.URL, f.sessions, f.bus, WithNavigator(f.nav))
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_BanInterception(t *testing.T) {
	bannedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, model.ErrorResponse{
			Message:   "Your account has been banned",
			BanReason: "fraudulent listings",
			BannedAt:  &bannedAt,
		})
	})
	require.NoError(t, f.sessions.Set(session.Session{Token: "tok", UserID: "u1"}))

	err := f.client.Get(context.Background(), "/events", nil)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	_, ok := f.sessions.Get()
	assert.False(t, ok, "session must be cleared")

	require.Len(t, f.banned, 1)
	assert.Equal(t, "Your account has been banned", f.banned[0].Message)
	assert.Equal(t, "fraudulent listings", f.banned[0].BanReason)
	require.NotNil(t, f.banned[0].BannedAt)
	assert.True(t, bannedAt.Equal(*f.banned[0].BannedAt))

	assert.Equal(t, []string{DefaultLoginPath}, f.nav.visits)
	assert.Empty(t, f.verify)
}

func TestClient_BanInterception_AlreadyOnLogin(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, model.ErrorResponse{Message: "Account banned"})
	})
	f.nav.location = DefaultLoginPath
	require.NoError(t, f.sessions.Set(session.Session{Token: "tok"}))

	err := f.client.Post(context.Background(), "/auth/login", map[string]string{"email": "a@x.com"}, nil)
	require.Error(t, err)

	assert.Empty(t, f.nav.visits, "no navigation when already on the login page")
	assert.Len(t, f.banned, 1)
}

func TestClient_VerificationInterception(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, model.ErrorResponse{
			Message:              "Please verify your email address",
			RequiresVerification: true,
		})
	})
	want := session.Session{Token: "tok", UserID: "u1"}
	require.NoError(t, f.sessions.Set(want))

	err := f.client.Post(context.Background(), "/venue-requests", map[string]string{}, nil)
	assert.Equal(t, http.StatusForbidden, StatusOf(err))

	got, ok := f.sessions.Get()
	require.True(t, ok, "session must be kept")
	assert.Equal(t, want, got)

	require.Len(t, f.verify, 1)
	assert.Equal(t, "Please verify your email address", f.verify[0].Message)
	assert.Empty(t, f.banned)
	assert.Empty(t, f.nav.visits)
}

func TestClient_OtherErrorsPropagate(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		want   string
	}{
		{"forbidden_without_flags", http.StatusForbidden, model.ErrorResponse{Message: "Not your event"}, "Not your event"},
		{"not_found", http.StatusNotFound, model.ErrorResponse{Message: "Event not found"}, "Event not found"},
		{"server_error_no_body", http.StatusInternalServerError, nil, "Internal Server Error"},
		{"unauthorized_banned_text", http.StatusUnauthorized, model.ErrorResponse{Message: "banned"}, "banned"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.body == nil {
					w.WriteHeader(tt.status)
					return
				}
				writeJSON(w, tt.status, tt.body)
			})
			require.NoError(t, f.sessions.Set(session.Session{Token: "tok"}))

			err := f.client.Get(context.Background(), "/x", nil)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.want, apiErr.Message)

			_, ok := f.sessions.Get()
			assert.True(t, ok, "session untouched")
			assert.Empty(t, f.banned)
			assert.Empty(t, f.verify)
			assert.Empty(t, f.nav.visits)
		})
	}
}

func TestClient_AuthHeader(t *testing.T) {
	var mu sync.Mutex
	var headers []string
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		headers = append(headers, r.Header.Get("Authorization"))
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	ctx := context.Background()
	require.NoError(t, f.client.Get(ctx, "/a", nil))

	require.NoError(t, f.sessions.Set(session.Session{Token: "tok-1", UserID: "u1"}))
	for i := 0; i < 3; i++ {
		require.NoError(t, f.client.Get(ctx, "/b", nil))
	}

	require.NoError(t, f.sessions.Clear())
	require.NoError(t, f.client.Get(ctx, "/c", nil))
	require.NoError(t, f.client.Get(ctx, "/d", nil))

	assert.Equal(t, []string{"", "Bearer tok-1", "Bearer tok-1", "Bearer tok-1", "", ""}, headers)
}

func TestClient_DecodesSuccess(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		writeJSON(w, http.StatusCreated, model.StatusResponse{Status: "success", Message: in["name"]})
	})

	var out model.StatusResponse
	err := f.client.Post(context.Background(), "/contacts/general", map[string]string{"name": "A"}, &out)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResponse{Status: "success", Message: "A"}, out)
}

func TestClient_NoContent(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	var out model.StatusResponse
	assert.NoError(t, f.client.Delete(context.Background(), "/reviews/1", &out))
}

func TestClient_TransportError(t *testing.T) {
	sessions := session.NewManager(session.NewMemoryStore())
	client := New("http://127.0.0.1:1", sessions, notify.NewBus())

	err := client.Get(context.Background(), "/events", nil)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 0, StatusOf(err))
	assert.Equal(t, "Something went wrong", Message(err, "Something went wrong"))
}

func TestLatest(t *testing.T) {
	var l Latest

	first := l.Issue()
	second := l.Issue()

	assert.False(t, l.IsLatest(first))
	assert.True(t, l.IsLatest(second))

	applied := ""
	assert.False(t, l.Apply(first, func() { applied = "first" }))
	assert.True(t, l.Apply(second, func() { applied = "second" }))
	assert.Equal(t, "second", applied)
}
