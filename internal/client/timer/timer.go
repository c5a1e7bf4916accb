// Package timer raises edge-triggered events as a session approaches its
// expiry.
//
// A Timer tracks one expiry at a time. On a fixed cadence it recomputes the
// remaining time and fires, at most once per tracked expiry:
//
//	Warning     0 < remaining <= WarningThreshold
//	RefreshDue  0 < remaining <= RefreshThreshold (when RefreshThreshold > 0)
//	Expired     remaining == 0
//
// Tracking a different expiry, or none, cancels the running loop; a loop
// that has been superseded never fires again.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/clock"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/metrics"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
)

type Kind int

const (
	Warning Kind = iota
	RefreshDue
	Expired
)

func (k Kind) String() string {
	switch k {
	case Warning:
		return "warning"
	case RefreshDue:
		return "refresh_due"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Event describes one edge. At is the tick that detected it.
type Event struct {
	Kind      Kind
	Expiry    time.Time
	Remaining time.Duration
	At        time.Time
}

type Config struct {
	// SessionDuration is the provisional lifetime set by Extend.
	SessionDuration  time.Duration
	WarningThreshold time.Duration
	// RefreshThreshold of zero disables RefreshDue.
	RefreshThreshold time.Duration
	TickInterval     time.Duration
}

// Callbacks run on the timer goroutine, one at a time, in the order the
// edges were detected. Nil callbacks are skipped.
type Callbacks struct {
	OnWarning    func(Event)
	OnRefreshDue func(Event)
	OnExpired    func(Event)
}

type Timer struct {
	clk     clock.Clock
	cfg     Config
	log     logging.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	cb        Callbacks
	gen       uint64
	expiry    time.Time
	warned    bool
	refreshed bool
	expired   bool
	stop      chan struct{}
}

type Option func(*Timer)

func WithLogger(l logging.Logger) Option {
	return func(t *Timer) { t.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Timer) { t.metrics = m }
}

func WithCallbacks(cb Callbacks) Option {
	return func(t *Timer) { t.cb = cb }
}

func New(clk clock.Clock, cfg Config, opts ...Option) *Timer {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	t := &Timer{clk: clk, cfg: cfg, log: logging.Discard()}
	for _, o := range opts {
		o(t)
	}
	return t
}

// SetCallbacks replaces the callbacks. Edges already detected keep the
// callbacks they were detected with.
func (t *Timer) SetCallbacks(cb Callbacks) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cb = cb
}

// Track starts counting down to expiry. Tracking the expiry that is already
// tracked is a no-op, so edges are not re-armed by repeated notifications of
// the same session. A zero expiry stops the timer.
func (t *Timer) Track(expiry time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil && expiry.Equal(t.expiry) {
		return
	}
	t.restartLocked(expiry)
}

// Extend re-arms every edge and restarts the countdown from the full
// session duration. It returns the provisional expiry, or the zero time when
// nothing is tracked. The service is not contacted.
func (t *Timer) Extend() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.expiry.IsZero() {
		return time.Time{}
	}
	expiry := t.clk.Now().Add(t.cfg.SessionDuration)
	t.restartLocked(expiry)
	return expiry
}

// Stop cancels the countdown and clears every edge.
func (t *Timer) Stop() {
	t.Track(time.Time{})
}

// Expiry returns the tracked expiry, zero when stopped.
func (t *Timer) Expiry() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expiry
}

// Remaining is the time left on the tracked expiry.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	expiry := t.expiry
	t.mu.Unlock()
	return clock.Remaining(expiry, t.clk.Now())
}

func (t *Timer) restartLocked(expiry time.Time) {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.gen++
	t.expiry = expiry
	t.warned, t.refreshed, t.expired = false, false, false

	if expiry.IsZero() {
		return
	}

	stop := make(chan struct{})
	t.stop = stop
	ticker := t.clk.NewTicker(t.cfg.TickInterval)
	go t.run(t.gen, ticker, stop)
}

func (t *Timer) run(gen uint64, ticker clock.Ticker, stop <-chan struct{}) {
	defer ticker.Stop()

	if t.evaluate(gen, t.clk.Now()) {
		return
	}
	for {
		select {
		case <-stop:
			return
		case at := <-ticker.C():
			if t.evaluate(gen, at) {
				return
			}
		}
	}
}

// evaluate checks the edges at now and fires the new ones. It reports
// whether the loop is finished.
func (t *Timer) evaluate(gen uint64, now time.Time) (done bool) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return true
	}

	remaining := clock.Remaining(t.expiry, now)
	cb := t.cb
	var fired []Event
	ev := Event{Expiry: t.expiry, Remaining: remaining, At: now}

	if remaining > 0 {
		if !t.refreshed && t.cfg.RefreshThreshold > 0 && remaining <= t.cfg.RefreshThreshold {
			t.refreshed = true
			ev.Kind = RefreshDue
			fired = append(fired, ev)
		}
		if !t.warned && t.cfg.WarningThreshold > 0 && remaining <= t.cfg.WarningThreshold {
			t.warned = true
			ev.Kind = Warning
			fired = append(fired, ev)
		}
	} else if !t.expired {
		t.expired = true
		ev.Kind = Expired
		fired = append(fired, ev)
		done = true
	}
	t.mu.Unlock()

	for _, e := range fired {
		// A Track, Extend or Stop from an earlier callback, or from another
		// goroutine, retires this generation.
		if !t.current(gen) {
			return true
		}
		t.metrics.TimerEvent(e.Kind.String())
		t.log.Debug(context.Background(), "session timer edge", "kind", e.Kind.String(),
			"remaining", e.Remaining, "expires_at", e.Expiry)
		switch e.Kind {
		case Warning:
			if cb.OnWarning != nil {
				cb.OnWarning(e)
			}
		case RefreshDue:
			if cb.OnRefreshDue != nil {
				cb.OnRefreshDue(e)
			}
		case Expired:
			if cb.OnExpired != nil {
				cb.OnExpired(e)
			}
		}
	}
	return done
}

func (t *Timer) current(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return gen == t.gen
}
