package service

import (
	"context"
	"time"
)

type Review struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type ReportRequest struct {
	Reason  string `json:"reason" validate:"required,max=200"`
	Details string `json:"details,omitempty" validate:"max=2000"`
}

func (a *API) CreateReview(ctx context.Context, eventID string, req ReviewRequest) (Review, error) {
	var r Review
	if err := a.check(req); err != nil {
		return r, err
	}
	err := a.client.Post(ctx, pathf("/events/%s/reviews", eventID), req, &r)
	return r, err
}

func (a *API) ListReviews(ctx context.Context, eventID string) ([]Review, error) {
	var res struct {
		Reviews []Review `json:"reviews"`
	}
	err := a.client.Get(ctx, pathf("/events/%s/reviews", eventID), &res)
	return res.Reviews, err
}

// ReportReview flags a review for moderation.
func (a *API) ReportReview(ctx context.Context, reviewID string, req ReportRequest) error {
	if err := a.check(req); err != nil {
		return err
	}
	return a.client.Post(ctx, pathf("/reviews/%s/report", reviewID), req, nil)
}
