package client

import (
	"context"
	"net/http"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// SignUp creates an account and stores its session.
func (c *Client) SignUp(ctx context.Context, email, password, name string) (*Session, error) {
	return c.startSession(ctx, "/api/v1/auth/signup", credentials{Email: email, Password: password, Name: name})
}

// SignIn stores the session of an existing account.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return c.startSession(ctx, "/api/v1/auth/login", credentials{Email: email, Password: password})
}

func (c *Client) startSession(ctx context.Context, path string, cred credentials) (*Session, error) {
	var s Session
	if err := c.call(ctx, http.MethodPost, path, cred, &s); err != nil {
		return nil, err
	}
	if err := c.sessions.Save(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SignOut revokes the token server side and forgets it locally. The local
// session is cleared even when the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	var err error
	if c.token() != "" {
		err = c.call(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil)
	}
	if clearErr := c.sessions.Clear(); clearErr != nil {
		return clearErr
	}
	if IsCode(err, "unauthorized") {
		return nil
	}
	return err
}

// Session returns the stored session, or nil when signed out or expired.
func (c *Client) Session() (*Session, error) {
	s, err := c.sessions.Load()
	if err != nil || s == nil {
		return nil, err
	}
	if !s.ExpiresAt.After(c.now()) {
		return nil, nil
	}
	return s, nil
}

// CurrentUser fetches the signed-in user's account.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, http.MethodGet, "/api/v1/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
