// Package service maps user actions onto API endpoints. Every function is a
// single request; failures are returned to the caller unchanged so the UI
// can surface the server's message.
package service

import (
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"

	"github.com/johndosdos/eventhub/internal/apiclient"
)

// API is the typed surface over the HTTP client.
type API struct {
	client   *apiclient.Client
	validate *validator.Validate
}

func New(client *apiclient.Client) *API {
	return &API{
		client:   client,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Client returns the underlying HTTP client.
func (a *API) Client() *apiclient.Client { return a.client }

func (a *API) check(v any) error {
	if err := a.validate.Struct(v); err != nil {
		return fmt.Errorf("internal/service: invalid request: %w", err)
	}
	return nil
}

// pathf builds an API path, escaping every argument as one segment.
func pathf(format string, ids ...string) string {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = url.PathEscape(id)
	}
	return fmt.Sprintf(format, args...)
}
