package service

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/johndosdos/eventhub/internal/apiclient"
)

// DefaultSearchDelay is how long EventSearch waits for filter changes to
// settle before querying.
const DefaultSearchDelay = 500 * time.Millisecond

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	City        string    `json:"city"`
	StartsAt    time.Time `json:"startsAt"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	OrganizerID string    `json:"organizerId"`
}

// EventFilter narrows the event listing. Zero fields are not sent.
type EventFilter struct {
	Query    string
	Category string
	City     string
	From     time.Time
	To       time.Time
	Page     int
}

func (f EventFilter) values() url.Values {
	v := url.Values{}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if f.Category != "" {
		v.Set("category", f.Category)
	}
	if f.City != "" {
		v.Set("city", f.City)
	}
	if !f.From.IsZero() {
		v.Set("from", f.From.UTC().Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		v.Set("to", f.To.UTC().Format(time.RFC3339))
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	return v
}

func (a *API) ListEvents(ctx context.Context, f EventFilter) ([]Event, error) {
	path := "/events"
	if q := f.values().Encode(); q != "" {
		path += "?" + q
	}
	var res struct {
		Events []Event `json:"events"`
	}
	err := a.client.Get(ctx, path, &res)
	return res.Events, err
}

// EventSearch drives a filter-driven listing. Changes within Delay of each
// other collapse into one request, and only the response to the most recent
// request is delivered.
type EventSearch struct {
	api      *API
	delay    time.Duration
	onResult func([]Event)
	onError  func(error)

	mu     sync.Mutex
	timer  *time.Timer
	latest apiclient.Latest
	closed bool
}

// NewEventSearch returns a search that reports results to onResult and
// failures to onError. Either may be nil. A delay <= 0 uses
// DefaultSearchDelay.
func NewEventSearch(api *API, delay time.Duration, onResult func([]Event), onError func(error)) *EventSearch {
	if delay <= 0 {
		delay = DefaultSearchDelay
	}
	return &EventSearch{
		api:      api,
		delay:    delay,
		onResult: onResult,
		onError:  onError,
	}
}

// SetFilter schedules a query for f, replacing any query not yet sent.
func (s *EventSearch) SetFilter(ctx context.Context, f EventFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() { s.run(ctx, f) })
}

func (s *EventSearch) run(ctx context.Context, f EventFilter) {
	token := s.latest.Issue()
	events, err := s.api.ListEvents(ctx, f)

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	applied := s.latest.Apply(token, func() {
		if err != nil {
			if s.onError != nil {
				s.onError(err)
			}
			return
		}
		if s.onResult != nil {
			s.onResult(events)
		}
	})
	if !applied {
		slog.DebugContext(ctx, "discarded stale event listing", "filter_query", f.Query)
	}
}

// Close cancels a pending query and suppresses responses still in flight.
func (s *EventSearch) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.latest.Issue()
}
