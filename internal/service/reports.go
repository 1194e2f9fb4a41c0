package service

import (
	"context"
	"net/url"
	"time"
)

type VenueReport struct {
	ID         string     `json:"id"`
	VenueID    string     `json:"venueId"`
	ReporterID string     `json:"reporterId"`
	Reason     string     `json:"reason"`
	Details    string     `json:"details,omitempty"`
	Status     string     `json:"status"`
	Resolution string     `json:"resolution,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

type ResolveRequest struct {
	Action string `json:"action" validate:"required,oneof=dismiss warn remove"`
	Note   string `json:"note,omitempty" validate:"max=2000"`
}

func (a *API) ReportVenue(ctx context.Context, venueID string, req ReportRequest) error {
	if err := a.check(req); err != nil {
		return err
	}
	return a.client.Post(ctx, pathf("/venues/%s/reports", venueID), req, nil)
}

// ListVenueReports returns reports for the admin queue. An empty status
// returns every report.
func (a *API) ListVenueReports(ctx context.Context, status string) ([]VenueReport, error) {
	path := "/admin/venue-reports"
	if status != "" {
		path += "?" + url.Values{"status": {status}}.Encode()
	}
	var res struct {
		Reports []VenueReport `json:"reports"`
	}
	err := a.client.Get(ctx, path, &res)
	return res.Reports, err
}

func (a *API) ResolveVenueReport(ctx context.Context, reportID string, req ResolveRequest) error {
	if err := a.check(req); err != nil {
		return err
	}
	return a.client.Patch(ctx, pathf("/admin/venue-reports/%s", reportID), req, nil)
}
