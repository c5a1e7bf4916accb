package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/oklog/ulid/v2"
)

const maxBodySize = 1 << 20

type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     logging.Logger
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

// WithTimeout bounds every single request, replays included.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

// NewHTTPClient returns a client for the identity service rooted at baseURL,
// e.g. "http://localhost:3000/api".
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     logging.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *HTTPClient) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.send(ctx, endpointLogin, http.MethodPost, "/auth/login", "", req, &resp); err != nil {
		return nil, err
	}
	return checkGrant(&resp)
}

func (c *HTTPClient) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.send(ctx, endpointRegister, http.MethodPost, "/auth/register", "", req, &resp); err != nil {
		return nil, err
	}
	return checkGrant(&resp)
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	req := models.RefreshRequest{RefreshToken: refreshToken}
	if err := c.send(ctx, endpointRefresh, http.MethodPost, "/auth/refresh", "", req, &resp); err != nil {
		return nil, err
	}
	return checkGrant(&resp)
}

// Logout asks the service to invalidate accessToken. It is never replayed.
func (c *HTTPClient) Logout(ctx context.Context, accessToken string) error {
	return c.send(ctx, endpointLogout, http.MethodPost, "/auth/logout", accessToken, nil, nil)
}

func (c *HTTPClient) Me(ctx context.Context, ts TokenSource) (*models.User, error) {
	var u models.User
	if err := c.Do(ctx, ts, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	if u.Email == "" {
		return nil, fmt.Errorf("%w: user without email", common.ErrBadResponse)
	}
	return &u, nil
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, ts TokenSource, req models.UpdateProfileRequest) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := c.Do(ctx, ts, http.MethodPut, "/users/profile", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Do performs an authenticated request. in, when non-nil, is sent as the
// JSON body; out, when non-nil, receives the decoded payload.
//
// A 401 leads to exactly one RenewAccessToken call and one replay.
func (c *HTTPClient) Do(ctx context.Context, ts TokenSource, method, path string, in, out any) error {
	token := ts.AccessToken()
	if token == "" {
		return common.ErrNotAuthenticated
	}

	err := c.send(ctx, endpointAuthenticated, method, path, token, in, out)
	if !isUnauthorized(err) {
		return err
	}

	c.log.Debug(ctx, "access token rejected, renewing", "path", path, "token", common.RedactToken(token))
	renewed, rerr := ts.RenewAccessToken(ctx, token)
	if rerr != nil {
		return rerr
	}

	return c.send(ctx, endpointAuthenticated, method, path, renewed, in, out)
}

func (c *HTTPClient) send(ctx context.Context, ep endpoint, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := ulid.Make().String()
	req.Header.Set(common.RequestIDHeaderName, requestID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug(ctx, "identity service unreachable", "path", path, "request_id", requestID, "error", err)
		return fmt.Errorf("%w: %s %s: %w", common.ErrNetworkUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", common.ErrNetworkUnavailable, path, err)
	}

	c.log.Debug(ctx, "identity service response", "method", method, "path", path,
		"status", resp.StatusCode, "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb models.ErrorBody
		_ = json.Unmarshal(raw, &eb)
		return mapStatus(ep, resp.StatusCode, eb)
	}

	if out == nil {
		return nil
	}
	return decodePayload(raw, out)
}

// decodePayload accepts both the {success,data,message} envelope and a bare
// payload.
func decodePayload(raw []byte, out any) error {
	var env struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", common.ErrBadResponse, err)
	}

	if env.Success != nil {
		if !*env.Success {
			return fmt.Errorf("%w: %s", common.ErrBadResponse, env.Error)
		}
		if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
			return fmt.Errorf("%w: empty data", common.ErrBadResponse)
		}
		raw = env.Data
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", common.ErrBadResponse, err)
	}
	return nil
}

func checkGrant(r *models.AuthResponse) (*models.AuthResponse, error) {
	var missing []string
	if r.Token == "" {
		missing = append(missing, "token")
	}
	if r.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}
	if r.User.Email == "" {
		missing = append(missing, "user")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: grant missing %s", common.ErrBadResponse, strings.Join(missing, ", "))
	}
	return r, nil
}

// IsTransient reports whether err is worth retrying later rather than a
// rejection by the service.
func IsTransient(err error) bool {
	return errors.Is(err, common.ErrNetworkUnavailable) || errors.Is(err, common.ErrServer)
}
