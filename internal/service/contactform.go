package service

import (
	"context"
	"sync"

	"github.com/johndosdos/eventhub/internal/apiclient"
	"github.com/johndosdos/eventhub/internal/model"
)

const (
	MsgContactSent   = "Your message has been sent"
	MsgContactFailed = "Failed to send message. Please try again."
)

// ContactForm holds the values of the general contact form between edits.
type ContactForm struct {
	api *API

	mu         sync.Mutex
	values     model.ContactRequest
	submitting bool
}

func NewContactForm(api *API) *ContactForm {
	return &ContactForm{api: api}
}

func (f *ContactForm) Values() model.ContactRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

func (f *ContactForm) SetValues(v model.ContactRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = v
}

// Submitting reports whether a submission is in flight.
func (f *ContactForm) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Submit sends the current values. On success the form is cleared and a
// success toast published; on failure an error toast carries the server
// message and the values are kept.
func (f *ContactForm) Submit(ctx context.Context) error {
	f.mu.Lock()
	values := f.values
	f.submitting = true
	f.mu.Unlock()

	res, err := f.api.SubmitGeneralContact(ctx, values)

	f.mu.Lock()
	f.submitting = false
	if err == nil {
		f.values = model.ContactRequest{}
	}
	f.mu.Unlock()

	bus := f.api.client.Bus()
	if err != nil {
		bus.Error(apiclient.Message(err, MsgContactFailed))
		return err
	}

	msg := res.Message
	if msg == "" {
		msg = MsgContactSent
	}
	bus.Success(msg)
	return nil
}
