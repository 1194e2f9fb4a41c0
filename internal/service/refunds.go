package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

var ErrInvalidPolicy = errors.New("internal/service: invalid refund policy")

// RefundTier grants Percent of the ticket price when a refund is requested at
// least DaysBefore whole days before the event starts.
type RefundTier struct {
	DaysBefore int `json:"daysBefore"`
	Percent    int `json:"percent"`
}

// RefundPolicy is an ordered set of tiers, most generous first. Both the
// default and organizer-defined policies are expressed with it; the server
// decides the amount actually refunded.
type RefundPolicy struct {
	tiers []RefundTier
}

// DefaultRefundPolicy is applied to events without a custom policy.
func DefaultRefundPolicy() RefundPolicy {
	p, _ := NewRefundPolicy([]RefundTier{
		{DaysBefore: 30, Percent: 100},
		{DaysBefore: 14, Percent: 50},
		{DaysBefore: 7, Percent: 25},
	})
	return p
}

// NewRefundPolicy validates tiers and orders them by DaysBefore, descending.
// Percentages must lie in 0..100, days must be unique and non-negative, and
// an earlier cancellation never refunds less than a later one.
func NewRefundPolicy(tiers []RefundTier) (RefundPolicy, error) {
	if len(tiers) == 0 {
		return RefundPolicy{}, fmt.Errorf("%w: no tiers", ErrInvalidPolicy)
	}

	sorted := slices.Clone(tiers)
	slices.SortFunc(sorted, func(a, b RefundTier) int { return b.DaysBefore - a.DaysBefore })

	for i, t := range sorted {
		if t.DaysBefore < 0 {
			return RefundPolicy{}, fmt.Errorf("%w: negative days %d", ErrInvalidPolicy, t.DaysBefore)
		}
		if t.Percent < 0 || t.Percent > 100 {
			return RefundPolicy{}, fmt.Errorf("%w: percent %d out of range", ErrInvalidPolicy, t.Percent)
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		if prev.DaysBefore == t.DaysBefore {
			return RefundPolicy{}, fmt.Errorf("%w: duplicate tier for %d days", ErrInvalidPolicy, t.DaysBefore)
		}
		if t.Percent > prev.Percent {
			return RefundPolicy{}, fmt.Errorf("%w: %d days refunds more than %d days",
				ErrInvalidPolicy, t.DaysBefore, prev.DaysBefore)
		}
	}
	return RefundPolicy{tiers: sorted}, nil
}

// Tiers returns a copy of the tiers, most generous first.
func (p RefundPolicy) Tiers() []RefundTier {
	return slices.Clone(p.tiers)
}

// Percent returns the refund percentage for a cancellation at now. Once the
// event has started nothing is refunded.
func (p RefundPolicy) Percent(eventStart, now time.Time) int {
	if !now.Before(eventStart) {
		return 0
	}
	days := int(eventStart.Sub(now) / (24 * time.Hour))
	for _, t := range p.tiers {
		if days >= t.DaysBefore {
			return t.Percent
		}
	}
	return 0
}

// RefundPercent applies the default policy.
func RefundPercent(eventStart, now time.Time) int {
	return DefaultRefundPolicy().Percent(eventStart, now)
}

type RefundRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type Refund struct {
	BookingID string `json:"bookingId"`
	Percent   int    `json:"percent"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
}

func (a *API) RequestRefund(ctx context.Context, bookingID, reason string) (Refund, error) {
	req := RefundRequest{Reason: reason}
	var r Refund
	if err := a.check(req); err != nil {
		return r, err
	}
	err := a.client.Post(ctx, pathf("/bookings/%s/refund", bookingID), req, &r)
	return r, err
}

// GetRefundPolicy fetches the policy configured for an event.
func (a *API) GetRefundPolicy(ctx context.Context, eventID string) (RefundPolicy, error) {
	var res struct {
		Tiers []RefundTier `json:"tiers"`
	}
	if err := a.client.Get(ctx, pathf("/events/%s/refund-policy", eventID), &res); err != nil {
		return RefundPolicy{}, err
	}
	if len(res.Tiers) == 0 {
		return DefaultRefundPolicy(), nil
	}
	return NewRefundPolicy(res.Tiers)
}
