package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRefundPolicy(t *testing.T) {
	start := time.Date(2026, 9, 1, 20, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"two months out", start.Add(-60 * day), 100},
		{"exactly 30 days", start.Add(-30 * day), 100},
		{"just under 30 days", start.Add(-30*day + time.Minute), 50},
		{"14 days", start.Add(-14 * day), 50},
		{"10 days", start.Add(-10 * day), 25},
		{"7 days", start.Add(-7 * day), 25},
		{"6 days", start.Add(-6 * day), 0},
		{"an hour before", start.Add(-time.Hour), 0},
		{"after start", start.Add(time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RefundPercent(start, tt.now))
		})
	}
}

func TestNewRefundPolicy(t *testing.T) {
	tests := []struct {
		name    string
		tiers   []RefundTier
		wantErr bool
	}{
		{"unordered input", []RefundTier{{7, 10}, {60, 90}, {21, 40}}, false},
		{"empty", nil, true},
		{"percent over 100", []RefundTier{{10, 120}}, true},
		{"negative percent", []RefundTier{{10, -1}}, true},
		{"negative days", []RefundTier{{-1, 10}}, true},
		{"duplicate days", []RefundTier{{10, 50}, {10, 40}}, true},
		{"later refunds more", []RefundTier{{30, 20}, {7, 80}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRefundPolicy(tt.tiers)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPolicy)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRefundPolicy_Custom(t *testing.T) {
	p, err := NewRefundPolicy([]RefundTier{{7, 10}, {60, 90}, {21, 40}})
	require.NoError(t, err)
	assert.Equal(t, []RefundTier{{60, 90}, {21, 40}, {7, 10}}, p.Tiers())

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 90, p.Percent(start, start.AddDate(0, 0, -61)))
	assert.Equal(t, 40, p.Percent(start, start.AddDate(0, 0, -30)))
	assert.Equal(t, 10, p.Percent(start, start.AddDate(0, 0, -7)))
	assert.Equal(t, 0, p.Percent(start, start.AddDate(0, 0, -3)))
}

func TestGetRefundPolicy(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/events/custom/refund-policy" {
			writeJSON(w, http.StatusOK, map[string]any{
				"tiers": []RefundTier{{DaysBefore: 3, Percent: 100}},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tiers": []RefundTier{}})
	})
	ctx := context.Background()

	p, err := f.api.GetRefundPolicy(ctx, "custom")
	require.NoError(t, err)
	assert.Equal(t, []RefundTier{{DaysBefore: 3, Percent: 100}}, p.Tiers())

	p, err = f.api.GetRefundPolicy(ctx, "plain")
	require.NoError(t, err)
	assert.Equal(t, DefaultRefundPolicy().Tiers(), p.Tiers())
}
