// Package services contains the application services of the session client.
// This file defines the session controller: the only component that
// changes the session state or the credential store.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/client"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/clock"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/metrics"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/session"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/storage"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/timer"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"golang.org/x/sync/singleflight"
)

// SessionService is the public API over the session lifecycle.
//
// Contract:
//   - Initialize: rebuild the session from storage once at start-up.
//   - Login, Register: obtain and commit a new session.
//   - Logout: always ends the local session; the remote call is best effort.
//   - Refresh: renew the current session; a rejected refresh token ends it.
//   - UpdateUser, UpdateProfile, CurrentUser: change or reload the user
//     record without touching tokens or expiry.
//   - ExpireSession: forced logout for a specific expiry.
//   - ExtendSession: restart the countdown and refresh.
//
// It also acts as the client.TokenSource for authenticated requests,
// coalescing concurrent renewals into one refresh call.
type SessionService interface {
	client.TokenSource

	Initialize(ctx context.Context) session.State
	Login(ctx context.Context, req models.LoginRequest) (session.State, error)
	Register(ctx context.Context, req models.RegisterRequest) (session.State, error)
	Logout(ctx context.Context) session.State
	Refresh(ctx context.Context) (session.State, error)
	UpdateUser(ctx context.Context, patch models.UserPatch) session.State
	UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (session.State, error)
	CurrentUser(ctx context.Context) (*models.User, error)
	Do(ctx context.Context, method, path string, in, out any) error
	ExpireSession(ctx context.Context, expiry time.Time) bool
	ExtendSession(ctx context.Context) (session.State, error)

	State() session.State
	Subscribe(fn func(session.State)) (unsubscribe func())
}

// SessionController implements SessionService.
type SessionController struct {
	api     client.Client
	store   *storage.Store
	machine *session.Machine
	clk     clock.Clock
	log     logging.Logger
	metrics *metrics.Metrics

	expiresInUnit  time.Duration
	requestTimeout time.Duration
	loginRequired  func()

	timerMu sync.Mutex
	timer   *timer.Timer

	flight singleflight.Group
	// commitMu orders storage writes with the dispatch they mirror.
	commitMu sync.Mutex
}

var _ SessionService = (*SessionController)(nil)

type Option func(*SessionController)

func WithClock(c clock.Clock) Option {
	return func(s *SessionController) { s.clk = c }
}

func WithLogger(l logging.Logger) Option {
	return func(s *SessionController) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *SessionController) { s.metrics = m }
}

// WithExpiresInUnit sets the unit of the server's expires_in field.
func WithExpiresInUnit(d time.Duration) Option {
	return func(s *SessionController) { s.expiresInUnit = d }
}

// WithRequestTimeout bounds refresh and logout calls that outlive the
// context of the request that started them.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *SessionController) { s.requestTimeout = d }
}

// WithLoginRequired registers fn to be called whenever the session ends
// for any reason other than an explicit Logout.
func WithLoginRequired(fn func()) Option {
	return func(s *SessionController) { s.loginRequired = fn }
}

func NewSessionController(api client.Client, store *storage.Store, opts ...Option) *SessionController {
	s := &SessionController{
		api:            api,
		store:          store,
		machine:        session.NewMachine(),
		clk:            clock.Real(),
		log:            logging.Discard(),
		expiresInUnit:  time.Second,
		requestTimeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	s.machine.Subscribe(func(st session.State) {
		s.metrics.Transition(st.Status.String())
	})
	return s
}

func (s *SessionController) State() session.State {
	return s.machine.State()
}

// Subscribe calls fn with every committed state, in commit order. fn must
// not call back into the controller's mutating methods.
func (s *SessionController) Subscribe(fn func(session.State)) func() {
	return s.machine.Subscribe(fn)
}

// AccessToken implements client.TokenSource.
func (s *SessionController) AccessToken() string {
	return s.machine.State().AccessToken
}

// Initialize moves the machine out of Uninitialized using whatever the store
// holds. A stored session whose access token is expired, or whose expiry
// cannot be decoded, is refreshed once.
func (s *SessionController) Initialize(ctx context.Context) session.State {
	s.machine.Dispatch(session.InitStarted{})

	var (
		access, refresh string
		user            models.User
	)
	okAccess := s.store.Get(ctx, storage.KeyAuthToken, &access)
	okRefresh := s.store.Get(ctx, storage.KeyRefreshToken, &refresh)
	okUser := s.store.Get(ctx, storage.KeyUserData, &user)

	if !okAccess && !okRefresh && !okUser {
		return s.machine.Dispatch(session.LoggedOut{})
	}
	if !okAccess || !okRefresh || !okUser || access == "" || refresh == "" {
		s.log.Info(ctx, "discarding incomplete stored session")
		return s.discardStored(ctx)
	}

	if exp, ok := session.TokenExpiry(access); ok && !clock.Expired(exp, s.clk.Now()) {
		s.log.Info(ctx, "session restored", "user_id", user.ID, "expires_at", exp)
		return s.machine.Dispatch(session.Granted{
			User: &user, AccessToken: access, RefreshToken: refresh, Expiry: exp,
		})
	}

	s.log.Info(ctx, "stored session expired or undecodable, refreshing", "user_id", user.ID)
	resp, err := s.api.Refresh(ctx, refresh)
	if err != nil {
		if isSessionFatal(err) {
			s.log.Warn(ctx, "stored session rejected", "user_id", user.ID, "error", err)
			return s.endSession(ctx)
		}
		s.log.Warn(ctx, "could not refresh stored session, keeping it for next start", "error", err)
		return s.machine.Dispatch(session.LoggedOut{})
	}

	st, err := s.commitGrant(ctx, resp, nil)
	if err != nil {
		s.log.Warn(ctx, "refreshed session unusable", "error", err)
		return s.endSession(ctx)
	}
	return st
}

func (s *SessionController) Login(ctx context.Context, req models.LoginRequest) (session.State, error) {
	s.machine.Dispatch(session.LoadingStarted{})

	resp, err := s.api.Login(ctx, req)
	if err != nil {
		s.log.Info(ctx, "login failed", "email", req.Email, "error", err)
		return s.machine.Dispatch(session.LoadingFinished{}), err
	}

	remember := req.RememberMe
	st, err := s.commitGrant(ctx, resp, &remember)
	if err != nil {
		s.log.Warn(ctx, "login grant unusable", "email", req.Email, "error", err)
		return s.endSession(ctx), err
	}
	s.log.Info(ctx, "logged in", "user_id", st.User.ID, "expires_at", st.SessionExpiry)
	return st, nil
}

func (s *SessionController) Register(ctx context.Context, req models.RegisterRequest) (session.State, error) {
	s.machine.Dispatch(session.LoadingStarted{})

	resp, err := s.api.Register(ctx, req)
	if err != nil {
		s.log.Info(ctx, "registration failed", "email", req.Email, "error", err)
		return s.machine.Dispatch(session.LoadingFinished{}), err
	}

	remember := false
	st, err := s.commitGrant(ctx, resp, &remember)
	if err != nil {
		s.log.Warn(ctx, "registration grant unusable", "email", req.Email, "error", err)
		return s.endSession(ctx), err
	}
	s.log.Info(ctx, "registered", "user_id", st.User.ID)
	return st, nil
}

// Logout clears the local session first and then asks the service to
// invalidate the old access token. A failing remote call is logged only.
func (s *SessionController) Logout(ctx context.Context) session.State {
	s.commitMu.Lock()
	access := s.machine.State().AccessToken
	st := s.clearLocked(ctx)
	s.commitMu.Unlock()

	if access == "" {
		return st
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.requestTimeout)
	defer cancel()
	if err := s.api.Logout(rctx, access); err != nil {
		s.log.Warn(ctx, "remote logout failed", "error", err)
	} else {
		s.log.Info(ctx, "logged out")
	}
	return st
}

// Refresh renews the current session now.
func (s *SessionController) Refresh(ctx context.Context) (session.State, error) {
	stale := s.AccessToken()
	if stale == "" {
		return s.machine.State(), common.ErrNotAuthenticated
	}
	if _, err := s.renew(ctx, stale); err != nil {
		return s.machine.State(), err
	}
	return s.machine.State(), nil
}

// RenewAccessToken implements client.TokenSource. Concurrent callers share
// one refresh call; a caller whose stale token was already replaced gets the
// current token without a network call.
func (s *SessionController) RenewAccessToken(ctx context.Context, stale string) (string, error) {
	token, err := s.renew(ctx, stale)
	if err != nil {
		return "", err
	}
	s.metrics.Replay()
	return token, nil
}

func (s *SessionController) renew(ctx context.Context, stale string) (string, error) {
	ch := s.flight.DoChan("refresh", func() (any, error) {
		st := s.machine.State()
		if !st.IsAuthenticated {
			return "", common.ErrNotAuthenticated
		}
		if st.AccessToken != stale {
			s.log.Debug(ctx, "access token already renewed", "stale", common.RedactToken(stale))
			s.metrics.Refresh(metrics.RefreshSkipped, 0)
			return st.AccessToken, nil
		}

		// The shared call must not fail because the first caller gave up.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.requestTimeout)
		defer cancel()
		return s.refreshSession(fctx, st)
	})

	select {
	case r := <-ch:
		if r.Shared {
			s.metrics.Coalesced()
		}
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *SessionController) refreshSession(ctx context.Context, st session.State) (string, error) {
	started := time.Now()
	resp, err := s.api.Refresh(ctx, st.RefreshToken)
	if err != nil {
		if isSessionFatal(err) {
			s.metrics.Refresh(metrics.RefreshInvalid, time.Since(started))
			s.log.Warn(ctx, "refresh rejected, ending session", "user_id", st.User.ID, "error", err)
			if s.endIfCurrent(ctx, st) {
				s.notifyLoginRequired()
			}
			return "", err
		}
		if client.IsTransient(err) {
			s.metrics.Refresh(metrics.RefreshTransient, time.Since(started))
			s.log.Warn(ctx, "refresh failed, session kept for retry", "user_id", st.User.ID, "error", err)
			return "", err
		}
		s.metrics.Refresh(metrics.RefreshFailed, time.Since(started))
		s.log.Error(ctx, "refresh failed", "user_id", st.User.ID, "error", err)
		return "", err
	}

	s.commitMu.Lock()
	cur := s.machine.State()
	if !cur.IsAuthenticated || cur.RefreshToken != st.RefreshToken {
		s.commitMu.Unlock()
		s.log.Info(ctx, "session changed during refresh, dropping result")
		return "", common.ErrNotAuthenticated
	}
	next, err := s.commitGrantLocked(ctx, resp, nil)
	s.commitMu.Unlock()

	if err != nil {
		s.metrics.Refresh(metrics.RefreshInvalid, time.Since(started))
		s.log.Warn(ctx, "refreshed grant unusable, ending session", "error", err)
		if s.endIfCurrent(ctx, cur) {
			s.notifyLoginRequired()
		}
		return "", err
	}

	s.metrics.Refresh(metrics.RefreshSuccess, time.Since(started))
	s.log.Info(ctx, "session refreshed", "user_id", next.User.ID, "expires_at", next.SessionExpiry)
	return next.AccessToken, nil
}

// UpdateUser applies patch to the current user and mirrors it to storage.
// It does nothing when no session is active.
func (s *SessionController) UpdateUser(ctx context.Context, patch models.UserPatch) session.State {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	st := s.machine.Dispatch(session.UserUpdated{Patch: patch})
	if st.IsAuthenticated && !patch.IsEmpty() {
		if err := s.store.Set(ctx, storage.KeyUserData, st.User); err != nil {
			s.log.Warn(ctx, "failed to persist user", "error", err)
		}
	}
	return st
}

func (s *SessionController) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (session.State, error) {
	p, err := s.api.UpdateProfile(ctx, s, req)
	if err != nil {
		return s.machine.State(), s.authFailure(ctx, err)
	}
	return s.UpdateUser(ctx, p.Patch()), nil
}

// CurrentUser reloads the user record from the service.
func (s *SessionController) CurrentUser(ctx context.Context) (*models.User, error) {
	u, err := s.api.Me(ctx, s)
	if err != nil {
		return nil, s.authFailure(ctx, err)
	}
	st := s.UpdateUser(ctx, u.Patch())
	return st.User, nil
}

// Do performs an arbitrary authenticated request against the service.
func (s *SessionController) Do(ctx context.Context, method, path string, in, out any) error {
	return s.authFailure(ctx, s.api.Do(ctx, s, method, path, in, out))
}

// ExpireSession ends the session if it is over by expiry, that is when
// expiry is not before the session's own expiry. It reports whether it did;
// an event for an earlier, already replaced session is ignored.
func (s *SessionController) ExpireSession(ctx context.Context, expiry time.Time) bool {
	s.commitMu.Lock()
	st := s.machine.State()
	if !st.IsAuthenticated || expiry.Before(st.SessionExpiry) {
		s.commitMu.Unlock()
		return false
	}
	s.clearLocked(ctx)
	s.commitMu.Unlock()

	s.log.Info(ctx, "session expired", "user_id", st.User.ID)
	s.notifyLoginRequired()
	return true
}

// authFailure ends the session when a request stayed unauthorized after
// its one renewal. err is returned unchanged.
func (s *SessionController) authFailure(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrUnauthorized) {
		s.log.Warn(ctx, "request rejected after renewal, ending session")
		if s.endIfCurrent(ctx, s.machine.State()) {
			s.notifyLoginRequired()
		}
	}
	return err
}

// commitGrant resolves the grant's expiry, persists it and commits it.
// remember, when non-nil, overwrites the stored remember-me flag.
func (s *SessionController) commitGrant(ctx context.Context, resp *models.AuthResponse, remember *bool) (session.State, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	return s.commitGrantLocked(ctx, resp, remember)
}

func (s *SessionController) commitGrantLocked(ctx context.Context, resp *models.AuthResponse, remember *bool) (session.State, error) {
	if resp.Token == "" || resp.RefreshToken == "" || resp.User.Email == "" {
		return session.State{}, fmt.Errorf("%w: incomplete grant", common.ErrSessionInvalid)
	}
	expiry, err := session.ResolveExpiry(resp.Token, resp.ExpiresIn, s.expiresInUnit, s.clk.Now())
	if err != nil {
		return session.State{}, err
	}

	user := resp.User
	writes := []struct {
		key   string
		value any
	}{
		{storage.KeyAuthToken, resp.Token},
		{storage.KeyRefreshToken, resp.RefreshToken},
		{storage.KeyUserData, &user},
	}
	if remember != nil {
		writes = append(writes, struct {
			key   string
			value any
		}{storage.KeyRememberMe, *remember})
	}
	for _, w := range writes {
		if err := s.store.Set(ctx, w.key, w.value); err != nil {
			s.log.Warn(ctx, "failed to persist session", "key", w.key, "error", err)
		}
	}

	st := s.machine.Dispatch(session.Granted{
		User:         &user,
		AccessToken:  resp.Token,
		RefreshToken: resp.RefreshToken,
		Expiry:       expiry,
	})
	if !st.IsAuthenticated {
		return st, fmt.Errorf("%w: incomplete grant", common.ErrSessionInvalid)
	}
	return st, nil
}

// discardStored wipes the whole store namespace, leftovers included, and
// settles on the logged-out state.
func (s *SessionController) discardStored(ctx context.Context) session.State {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if err := s.store.Clear(ctx); err != nil {
		s.log.Warn(ctx, "failed to discard stored session", "error", err)
	}
	return s.machine.Dispatch(session.LoggedOut{})
}

func (s *SessionController) endSession(ctx context.Context) session.State {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	return s.clearLocked(ctx)
}

// endIfCurrent ends the session only if it is still the one described by
// seen, so a late failure cannot end a newer session.
func (s *SessionController) endIfCurrent(ctx context.Context, seen session.State) bool {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	cur := s.machine.State()
	if !cur.IsAuthenticated || cur.RefreshToken != seen.RefreshToken {
		return false
	}
	s.clearLocked(ctx)
	return true
}

func (s *SessionController) clearLocked(ctx context.Context) session.State {
	if err := s.store.Remove(ctx, storage.SessionKeys...); err != nil {
		s.log.Warn(ctx, "failed to clear stored session", "error", err)
	}
	return s.machine.Dispatch(session.LoggedOut{})
}

func (s *SessionController) notifyLoginRequired() {
	if s.loginRequired != nil {
		s.loginRequired()
	}
}

func isSessionFatal(err error) bool {
	return errors.Is(err, common.ErrRefreshInvalid) || errors.Is(err, common.ErrSessionInvalid)
}
