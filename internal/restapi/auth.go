package restapi

import (
	"context"
	"net/http"

	"github.com/gochat-dev/chatclient/internal/types"
)

func (c *Client) Register(ctx context.Context, req types.RegisterRequest) (*types.AuthResponse, error) {
	var resp types.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *Client) Login(ctx context.Context, req types.LoginRequest) (*types.AuthResponse, error) {
	var resp types.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// Logout revokes the refresh token server-side.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	req := map[string]string{"refreshToken": refreshToken}
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, req, nil)
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*types.TokenResponse, error) {
	req := map[string]string{"refreshToken": refreshToken}

	var resp types.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// Me returns the authenticated user, used to resolve identity on boot.
func (c *Client) Me(ctx context.Context) (*types.UserDetail, error) {
	var resp types.UserDetail
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}
