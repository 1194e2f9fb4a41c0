package service

import (
	"context"
	"fmt"

	"github.com/johndosdos/eventhub/internal/model"
	"github.com/johndosdos/eventhub/internal/session"
)

// Login authenticates and stores the returned session.
func (a *API) Login(ctx context.Context, email, password string) (model.User, error) {
	req := model.LoginRequest{Email: email, Password: password}
	if err := a.check(req); err != nil {
		return model.User{}, err
	}

	var res model.LoginResponse
	if err := a.client.Post(ctx, "/auth/login", req, &res); err != nil {
		return model.User{}, err
	}
	if err := a.store(res); err != nil {
		return model.User{}, err
	}
	return res.User, nil
}

// Signup creates an account and signs it in.
func (a *API) Signup(ctx context.Context, req model.SignupRequest) (model.User, error) {
	if err := a.check(req); err != nil {
		return model.User{}, err
	}

	var res model.LoginResponse
	if err := a.client.Post(ctx, "/auth/signup", req, &res); err != nil {
		return model.User{}, err
	}
	if err := a.store(res); err != nil {
		return model.User{}, err
	}
	return res.User, nil
}

// Logout forgets the local session. The token is stateless, so the server
// is not contacted.
func (a *API) Logout() error {
	return a.client.Sessions().Clear()
}

// Me returns the signed-in user as the server sees it.
func (a *API) Me(ctx context.Context) (model.User, error) {
	var u model.User
	err := a.client.Get(ctx, "/auth/me", &u)
	return u, err
}

func (a *API) store(res model.LoginResponse) error {
	err := a.client.Sessions().Set(session.Session{
		Token:  res.Token,
		UserID: res.User.ID,
		Name:   res.User.Name,
		Email:  res.User.Email,
		Role:   res.User.Role,
	})
	if err != nil {
		return fmt.Errorf("internal/service: store session: %w", err)
	}
	return nil
}
