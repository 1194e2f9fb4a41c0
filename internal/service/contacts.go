package service

import (
	"context"

	"github.com/johndosdos/eventhub/internal/model"
)

// Contact statuses an admin can move a message through.
const (
	ContactNew      = "new"
	ContactRead     = "read"
	ContactResolved = "resolved"
)

type contactStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new read resolved"`
}

// SubmitGeneralContact sends the public contact form.
func (a *API) SubmitGeneralContact(ctx context.Context, req model.ContactRequest) (model.StatusResponse, error) {
	var res model.StatusResponse
	if err := a.check(req); err != nil {
		return res, err
	}
	err := a.client.Post(ctx, "/contacts/general", req, &res)
	return res, err
}

func (a *API) ListContacts(ctx context.Context) ([]model.ContactMessage, error) {
	var res struct {
		Contacts []model.ContactMessage `json:"contacts"`
	}
	err := a.client.Get(ctx, "/admin/contacts", &res)
	return res.Contacts, err
}

func (a *API) UpdateContactStatus(ctx context.Context, contactID, status string) error {
	req := contactStatusRequest{Status: status}
	if err := a.check(req); err != nil {
		return err
	}
	return a.client.Patch(ctx, pathf("/admin/contacts/%s", contactID), req, nil)
}
