package apiclient

import (
	"context"
	"fmt"
	"net/url"

	"github.com/trogers1052/ats/internal/models"
)

// Login posts the form credentials; the server sets the session cookie and the
// returned access token is kept as the bearer fallback
func (c *Client) Login(ctx context.Context, username, password string) (*models.Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var tok models.Token
	if err := c.doForm(ctx, "/token", form, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken != "" {
		c.SetToken(tok.AccessToken)
	}
	return &tok, nil
}

// Register creates a new account
func (c *Client) Register(ctx context.Context, reg models.Registration) (*models.RegisterResponse, error) {
	var resp models.RegisterResponse
	if err := c.post(ctx, "/register", reg, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the authenticated user
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.get(ctx, "/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout ends the server session; the local token is dropped even when the call fails
func (c *Client) Logout(ctx context.Context) error {
	defer c.SetToken("")
	if err := c.post(ctx, "/logout", nil, nil); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// Refresh renews the session; a returned access token replaces the stored one
func (c *Client) Refresh(ctx context.Context) error {
	var tok models.Token
	if err := c.get(ctx, "/refresh", nil, &tok); err != nil {
		return err
	}
	if tok.AccessToken != "" {
		c.SetToken(tok.AccessToken)
	}
	return nil
}
