package client

import (
	"context"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
)

type Client interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error)
	Logout(ctx context.Context, accessToken string) error
	Me(ctx context.Context, ts TokenSource) (*models.User, error)
	UpdateProfile(ctx context.Context, ts TokenSource, req models.UpdateProfileRequest) (*models.UserProfile, error)
	Do(ctx context.Context, ts TokenSource, method, path string, in, out any) error
}

// TokenSource supplies bearer tokens to authenticated calls.
type TokenSource interface {
	// AccessToken returns the token to present, or "" when there is no session.
	AccessToken() string
	// RenewAccessToken is called after stale was rejected. It returns the
	// token to retry with or an error when the session cannot be renewed.
	RenewAccessToken(ctx context.Context, stale string) (string, error)
}
