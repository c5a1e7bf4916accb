// Package clock computes time-to-expiry and abstracts wall time and
// tickers so the session timer can be driven deterministically in tests.
package clock

import "time"

// Clock reports the current time and creates tickers.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks on C until Stop is called.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Remaining returns max(0, expiry-now). A zero expiry means "no session"
// and yields 0.
func Remaining(expiry, now time.Time) time.Duration {
	if expiry.IsZero() {
		return 0
	}
	d := expiry.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Expired reports whether expiry is unset or not after now.
func Expired(expiry, now time.Time) bool {
	return Remaining(expiry, now) == 0
}

type realClock struct{}

// Real returns the wall clock.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }
