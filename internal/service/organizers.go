package service

import (
	"context"

	"github.com/johndosdos/eventhub/internal/model"
)

func (a *API) BanUser(ctx context.Context, userID, reason string) error {
	req := model.BanRequest{Reason: reason}
	if err := a.check(req); err != nil {
		return err
	}
	return a.client.Post(ctx, pathf("/admin/users/%s/ban", userID), req, nil)
}

func (a *API) UnbanUser(ctx context.Context, userID string) error {
	return a.client.Post(ctx, pathf("/admin/users/%s/unban", userID), nil, nil)
}

func (a *API) VerifyUser(ctx context.Context, userID string) error {
	return a.client.Post(ctx, pathf("/admin/users/%s/verify", userID), nil, nil)
}

func (a *API) ListOrganizers(ctx context.Context) ([]model.User, error) {
	var res struct {
		Organizers []model.User `json:"organizers"`
	}
	err := a.client.Get(ctx, "/admin/organizers", &res)
	return res.Organizers, err
}
