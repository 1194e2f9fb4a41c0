package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndosdos/eventhub/internal/apiclient"
	"github.com/johndosdos/eventhub/internal/model"
	"github.com/johndosdos/eventhub/internal/notify"
	"github.com/johndosdos/eventhub/internal/session"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

type fixture struct {
	api      *API
	sessions *session.Manager
	bus      *notify.Bus
	srv      *httptest.Server

	mu       sync.Mutex
	requests []recorded
	toasts   []notify.Toast
}

// newFixture serves every request with reply, or 200 {} when reply is nil.
func newFixture(t *testing.T, reply http.HandlerFunc) *fixture {
	t.Helper()

	f := &fixture{
		sessions: session.NewManager(session.NewMemoryStore()),
		bus:      notify.NewBus(),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
		}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.Body)
		}
		f.mu.Lock()
		f.requests = append(f.requests, rec)
		f.mu.Unlock()

		if reply != nil {
			reply(w, r)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{})
	}))
	t.Cleanup(f.srv.Close)

	f.bus.Toasts.Subscribe(func(tst notify.Toast) {
		f.mu.Lock()
		f.toasts = append(f.toasts, tst)
		f.mu.Unlock()
	})
	f.api = New(apiclient.New(f.srv.URL, f.sessions, f.bus))
	return f
}

func (f *fixture) recorded() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.requests...)
}

func (f *fixture) last(t *testing.T) recorded {
	t.Helper()
	reqs := f.recorded()
	require.NotEmpty(t, reqs)
	return reqs[len(reqs)-1]
}

func (f *fixture) gotToasts() []notify.Toast {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Toast(nil), f.toasts...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestLoginLogout(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			writeJSON(w, http.StatusOK, model.LoginResponse{
				Token: "tok-1",
				User:  model.User{ID: "u1", Name: "Ana", Email: "ana@x.com", Role: model.RoleOrganizer},
			})
			return
		}
		writeJSON(w, http.StatusOK, model.User{ID: "u1"})
	})
	ctx := context.Background()

	user, err := f.api.Login(ctx, "ana@x.com", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	s, ok := f.sessions.Get()
	require.True(t, ok)
	assert.Equal(t, session.Session{Token: "tok-1", UserID: "u1", Name: "Ana", Email: "ana@x.com", Role: model.RoleOrganizer}, s)

	login := f.last(t)
	assert.Equal(t, http.MethodPost, login.Method)
	assert.Equal(t, "", login.Auth)
	assert.Equal(t, map[string]any{"email": "ana@x.com", "password": "secret-pass"}, login.Body)

	_, err = f.api.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", f.last(t).Auth)

	require.NoError(t, f.api.Logout())
	_, ok = f.sessions.Get()
	assert.False(t, ok)

	_, err = f.api.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", f.last(t).Auth)
}

func TestLogin_Rejected(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, model.ErrorResponse{Message: "Invalid email or password"})
	})

	_, err := f.api.Login(context.Background(), "ana@x.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apiclient.StatusOf(err))
	assert.Equal(t, "Invalid email or password", apiclient.Message(err, ""))

	_, ok := f.sessions.Get()
	assert.False(t, ok)
}

func TestValidationStopsRequest(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"login without email", func() error { _, err := f.api.Login(ctx, "", "pw"); return err }},
		{"review rating out of range", func() error {
			_, err := f.api.CreateReview(ctx, "e1", ReviewRequest{Rating: 6})
			return err
		}},
		{"report without reason", func() error { return f.api.ReportReview(ctx, "r1", ReportRequest{}) }},
		{"contact bad email", func() error {
			_, err := f.api.SubmitGeneralContact(ctx, model.ContactRequest{
				Name: "A", Email: "not-an-email", Subject: "Other", Message: "hi",
			})
			return err
		}},
		{"unknown contact status", func() error { return f.api.UpdateContactStatus(ctx, "c1", "archived") }},
		{"ban without reason", func() error { return f.api.BanUser(ctx, "u1", "") }},
		{"quote without currency", func() error {
			_, err := f.api.SendQuote(ctx, "q1", Quote{Amount: 100})
			return err
		}},
		{"unknown resolve action", func() error {
			return f.api.ResolveVenueReport(ctx, "r1", ResolveRequest{Action: "ignore"})
		}},
		{"refund without reason", func() error { _, err := f.api.RequestRefund(ctx, "b1", ""); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			var verrs validator.ValidationErrors
			assert.ErrorAs(t, err, &verrs)
		})
	}
	assert.Empty(t, f.recorded())
}

func TestEndpoints(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		call   func() error
		method string
		path   string
		query  string
		body   map[string]any
	}{
		{
			name:   "create review",
			call:   func() error { _, err := f.api.CreateReview(ctx, "e1", ReviewRequest{Rating: 5, Comment: "great"}); return err },
			method: http.MethodPost, path: "/events/e1/reviews",
			body: map[string]any{"rating": float64(5), "comment": "great"},
		},
		{
			name:   "list reviews",
			call:   func() error { _, err := f.api.ListReviews(ctx, "e1"); return err },
			method: http.MethodGet, path: "/events/e1/reviews",
		},
		{
			name:   "report review",
			call:   func() error { return f.api.ReportReview(ctx, "r1", ReportRequest{Reason: "spam"}) },
			method: http.MethodPost, path: "/reviews/r1/report",
			body: map[string]any{"reason": "spam"},
		},
		{
			name:   "list contacts",
			call:   func() error { _, err := f.api.ListContacts(ctx); return err },
			method: http.MethodGet, path: "/admin/contacts",
		},
		{
			name:   "update contact status",
			call:   func() error { return f.api.UpdateContactStatus(ctx, "c1", ContactResolved) },
			method: http.MethodPatch, path: "/admin/contacts/c1",
			body: map[string]any{"status": "resolved"},
		},
		{
			name:   "report venue",
			call:   func() error { return f.api.ReportVenue(ctx, "v1", ReportRequest{Reason: "fake listing"}) },
			method: http.MethodPost, path: "/venues/v1/reports",
			body: map[string]any{"reason": "fake listing"},
		},
		{
			name:   "list venue reports",
			call:   func() error { _, err := f.api.ListVenueReports(ctx, "open"); return err },
			method: http.MethodGet, path: "/admin/venue-reports", query: "status=open",
		},
		{
			name: "resolve venue report",
			call: func() error {
				return f.api.ResolveVenueReport(ctx, "r9", ResolveRequest{Action: "remove", Note: "confirmed"})
			},
			method: http.MethodPatch, path: "/admin/venue-reports/r9",
			body: map[string]any{"action": "remove", "note": "confirmed"},
		},
		{
			name:   "ban user",
			call:   func() error { return f.api.BanUser(ctx, "u2", "fraud") },
			method: http.MethodPost, path: "/admin/users/u2/ban",
			body: map[string]any{"reason": "fraud"},
		},
		{
			name:   "unban user",
			call:   func() error { return f.api.UnbanUser(ctx, "u2") },
			method: http.MethodPost, path: "/admin/users/u2/unban",
		},
		{
			name:   "verify user",
			call:   func() error { return f.api.VerifyUser(ctx, "u2") },
			method: http.MethodPost, path: "/admin/users/u2/verify",
		},
		{
			name:   "list organizers",
			call:   func() error { _, err := f.api.ListOrganizers(ctx); return err },
			method: http.MethodGet, path: "/admin/organizers",
		},
		{
			name: "create enquiry",
			call: func() error {
				_, err := f.api.CreateEnquiry(ctx, model.CreateEnquiryRequest{PartnerID: "p1", VenueName: "Hall"})
				return err
			},
			method: http.MethodPost, path: "/venue-requests",
			body: map[string]any{"partnerId": "p1", "venueName": "Hall"},
		},
		{
			name: "send quote",
			call: func() error {
				_, err := f.api.SendQuote(ctx, "q1", Quote{Amount: 150000, Currency: "usd"})
				return err
			},
			method: http.MethodPost, path: "/venue-requests/q1/quote",
			body: map[string]any{"amount": float64(150000), "currency": "usd"},
		},
		{
			name:   "decline quote",
			call:   func() error { _, err := f.api.RespondToQuote(ctx, "q1", false); return err },
			method: http.MethodPost, path: "/venue-requests/q1/quote/respond",
			body: map[string]any{"decision": "decline"},
		},
		{
			name:   "enquiry messages",
			call:   func() error { _, err := f.api.EnquiryMessages(ctx, "q1", 20); return err },
			method: http.MethodGet, path: "/venue-requests/q1/messages", query: "limit=20",
		},
		{
			name:   "escaped id",
			call:   func() error { _, err := f.api.ListReviews(ctx, "a/b"); return err },
			method: http.MethodGet, path: "/events/a%2Fb/reviews",
		},
		{
			name:   "request refund",
			call:   func() error { _, err := f.api.RequestRefund(ctx, "b1", "cannot attend"); return err },
			method: http.MethodPost, path: "/bookings/b1/refund",
			body: map[string]any{"reason": "cannot attend"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.call())

			got := f.last(t)
			assert.Equal(t, tt.method, got.Method)
			assert.Equal(t, tt.path, got.Path)
			assert.Equal(t, tt.query, got.Query)
			assert.Equal(t, tt.body, got.Body)
		})
	}
}

func TestErrorsPropagate(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, model.ErrorResponse{Message: "Enquiry not found"})
	})

	_, err := f.api.SendQuote(context.Background(), "missing", Quote{Amount: 1, Currency: "usd"})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apiclient.StatusOf(err))
	assert.Equal(t, "Enquiry not found", apiclient.Message(err, "fallback"))
}

func TestListEvents(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"events": []Event{{ID: "e1", Title: "Jazz night"}},
		})
	})

	events, err := f.api.ListEvents(context.Background(), EventFilter{
		Query: "jazz",
		City:  "Lisbon",
		From:  time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Page:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, []Event{{ID: "e1", Title: "Jazz night"}}, events)

	got := f.last(t)
	assert.Equal(t, "/events", got.Path)
	assert.Equal(t, "city=Lisbon&from=2026-05-01T00%3A00%3A00Z&page=2&q=jazz", got.Query)

	_, err = f.api.ListEvents(context.Background(), EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, "", f.last(t).Query)
}
