package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/session"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/timer"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

// BindTimer makes tm follow the session expiry. A refresh-due edge triggers
// a background refresh, an expired edge ends the session, and a warning
// edge is passed to onWarning (which may be nil). The returned function
// detaches and stops the timer.
func (s *SessionController) BindTimer(ctx context.Context, tm *timer.Timer, onWarning func(timer.Event)) (unbind func()) {
	tm.SetCallbacks(timer.Callbacks{
		OnWarning: onWarning,
		OnRefreshDue: func(e timer.Event) {
			go s.proactiveRefresh(ctx, e.Expiry)
		},
		OnExpired: func(e timer.Event) {
			if !s.ExpireSession(ctx, e.Expiry) {
				// The edge was for a countdown the session no longer has;
				// follow the session's own expiry again.
				s.retrack(tm)
			}
		},
	})

	s.timerMu.Lock()
	s.timer = tm
	s.timerMu.Unlock()

	unsubscribe := s.Subscribe(func(st session.State) {
		tm.Track(st.SessionExpiry)
	})
	tm.Track(s.State().SessionExpiry)

	return func() {
		s.timerMu.Lock()
		if s.timer == tm {
			s.timer = nil
		}
		s.timerMu.Unlock()
		unsubscribe()
		tm.Stop()
	}
}

// retrack points tm back at the session's expiry, unless tm was unbound.
func (s *SessionController) retrack(tm *timer.Timer) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timer == tm {
		tm.Track(s.State().SessionExpiry)
	}
}

func (s *SessionController) proactiveRefresh(ctx context.Context, expiry time.Time) {
	st := s.State()
	if !st.IsAuthenticated || !st.SessionExpiry.Equal(expiry) {
		return
	}
	s.log.Debug(ctx, "refreshing ahead of expiry", "expires_at", expiry)
	if _, err := s.Refresh(ctx); err != nil {
		s.log.Warn(ctx, "proactive refresh failed", "error", err)
	}
}

// ExtendSession restarts the bound timer from the full session duration and
// refreshes the session so the new expiry comes from a real grant. Whatever
// the refresh outcome, the timer ends up tracking the session's expiry
// rather than the provisional one.
func (s *SessionController) ExtendSession(ctx context.Context) (session.State, error) {
	if !s.State().IsAuthenticated {
		return s.State(), common.ErrNotAuthenticated
	}

	s.timerMu.Lock()
	tm := s.timer
	s.timerMu.Unlock()
	if tm != nil {
		tm.Extend()
	}

	st, err := s.Refresh(ctx)
	if tm != nil {
		s.retrack(tm)
	}
	if err != nil {
		s.log.Warn(ctx, "session extension failed", "error", err)
	}
	return st, err
}
