package api

import (
	"context"
	"net/http"

	"github.com/sharanperla/Greenleaf-client/internal/core"
	"github.com/sharanperla/Greenleaf-client/internal/proto"
)

const (
	pathLogin    = "/api/auth/login/"
	pathRegister = "/api/auth/register/"
	pathRefresh  = "/api/auth/refresh/"
	pathMe       = "/api/auth/me/"
)

// AuthClient calls the credential endpoints, which need no stored token.
type AuthClient struct {
	t *transport
}

// NewAuthClient builds an AuthClient for baseURL.
func NewAuthClient(baseURL string, opts ...Option) (*AuthClient, error) {
	t, err := newTransport(baseURL, opts)
	if err != nil {
		return nil, err
	}
	return &AuthClient{t: t}, nil
}

// Login exchanges credentials for an access/refresh pair.
func (c *AuthClient) Login(ctx context.Context, username, password string) (core.TokenPair, error) {
	req, err := jsonRequest(http.MethodPost, pathLogin, proto.LoginRequest{Username: username, Password: password})
	if err != nil {
		return core.TokenPair{}, err
	}
	resp, err := c.t.roundTrip(ctx, req, "")
	if err != nil {
		return core.TokenPair{}, err
	}
	var out proto.TokenResponse
	if err := decode("login", resp, &out); err != nil {
		return core.TokenPair{}, err
	}
	if out.Access == "" {
		return core.TokenPair{}, core.ServerError(resp.status, "login: response carries no access token")
	}
	return core.TokenPair{Access: out.Access, Refresh: out.Refresh}, nil
}

// Register creates an account. The caller logs in separately.
func (c *AuthClient) Register(ctx context.Context, username, password, email string) error {
	req, err := jsonRequest(http.MethodPost, pathRegister, proto.RegisterRequest{
		Username: username,
		Password: password,
		Email:    email,
	})
	if err != nil {
		return err
	}
	resp, err := c.t.roundTrip(ctx, req, "")
	if err != nil {
		return err
	}
	return decode("register", resp, nil)
}

// Refresh exchanges a refresh token for a new access token.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (string, error) {
	req, err := jsonRequest(http.MethodPost, pathRefresh, proto.RefreshRequest{Refresh: refreshToken})
	if err != nil {
		return "", err
	}
	resp, err := c.t.roundTrip(ctx, req, "")
	if err != nil {
		return "", err
	}
	var out proto.TokenResponse
	if err := decode("refresh", resp, &out); err != nil {
		return "", err
	}
	if out.Access == "" {
		return "", core.ServerError(resp.status, "refresh: response carries no access token")
	}
	return out.Access, nil
}

// Me returns the account the access token belongs to.
func (c *AuthClient) Me(ctx context.Context, accessToken string) (core.User, error) {
	resp, err := c.t.roundTrip(ctx, request{method: http.MethodGet, path: pathMe}, accessToken)
	if err != nil {
		return core.User{}, err
	}
	var out proto.UserPayload
	if err := decode("me", resp, &out); err != nil {
		return core.User{}, err
	}
	return proto.UserFromPayload(out), nil
}
