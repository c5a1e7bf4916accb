package timer

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

type recorder struct {
	events chan Event
}

func newRecorder() *recorder {
	return &recorder{events: make(chan Event, 64)}
}

func (r *recorder) callbacks() Callbacks {
	push := func(e Event) { r.events <- e }
	return Callbacks{OnWarning: push, OnRefreshDue: push, OnExpired: push}
}

func (r *recorder) next(t *testing.T) Event {
	t.Helper()
	select {
	case e := <-r.events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for timer event")
		return Event{}
	}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case e := <-r.events:
		t.Fatalf("unexpected event %s at %s", e.Kind, e.At.Sub(start))
	default:
	}
}

func (r *recorder) untilExpired(t *testing.T) []Kind {
	t.Helper()
	var kinds []Kind
	for {
		e := r.next(t)
		kinds = append(kinds, e.Kind)
		if e.Kind == Expired {
			return kinds
		}
	}
}

func newTimer(clk clock.Clock, rec *recorder, refresh time.Duration) *Timer {
	return New(clk, Config{
		SessionDuration:  10 * time.Minute,
		WarningThreshold: time.Minute,
		RefreshThreshold: refresh,
		TickInterval:     time.Second,
	}, WithCallbacks(rec.callbacks()))
}

func waitStopped(t *testing.T, clk *clock.Fake) {
	t.Helper()
	require.Eventually(t, func() bool { return clk.Active() == 0 }, 2*time.Second, time.Millisecond)
}

func TestTimer_WarningThenExpiryExactlyOnce(t *testing.T) {
	clk := clock.NewFake(start)
	rec := newRecorder()
	tm := newTimer(clk, rec, 0)

	tm.Track(start.Add(650 * time.Second))
	clk.BlockUntil(1)

	clk.Advance(589 * time.Second)
	rec.none(t)

	clk.Advance(time.Second)
	w := rec.next(t)
	assert.Equal(t, Warning, w.Kind)
	assert.Equal(t, start.Add(590*time.Second), w.At)
	assert.Equal(t, time.Minute, w.Remaining)

	clk.Advance(59 * time.Second)
	rec.none(t)

	clk.Advance(time.Second)
	e := rec.next(t)
	assert.Equal(t, Expired, e.Kind)
	assert.Equal(t, start.Add(650*time.Second), e.At)
	assert.Zero(t, e.Remaining)
	assert.Equal(t, start.Add(650*time.Second), e.Expiry)

	waitStopped(t, clk)
	clk.Advance(time.Hour)
	rec.none(t)
}

func TestTimer_RefreshDueBeforeWarning(t *testing.T) {
	clk := clock.NewFake(start)
	rec := newRecorder()
	tm := newTimer(clk, rec, 2*time.Minute)

	tm.Track(start.Add(650 * time.Second))
	clk.BlockUntil(1)

	clk.Advance(530 * time.Second)
	r := rec.next(t)
	assert.Equal(t, RefreshDue, r.Kind)
	assert.Equal(t, start.Add(530*time.Second), r.At)

	clk.Advance(120 * time.Second)
	assert.Equal(t, []Kind{Warning, Expired}, rec.untilExpired(t))
}

func TestTimer_AlreadyExpiredFiresImmediately(t *testing.T) {
	clk := clock.NewFake(start)
	rec := newRecorder()
	tm := newTimer(clk, rec, 2*time.Minute)

	tm.Track(start.Add(-time.Second))

	e := rec.next(t)
	assert.Equal(t, Expired, e.Kind)
	assert.Equal(t, start, e.At)
	waitStopped(t, clk)
}

func TestTimer_RetrackingSameExpiryKeepsEdges(t *testing.T) {
	clk := clock.NewFake(start)
	rec := newRecorder()
	tm := newTimer(clk, rec, 0)
	expiry := start.Add(90 * time.Second)

	tm.Track(expiry)
	clk.BlockUntil(1)
	clk.Advance(30 * time.Second)
	assert.Equal(t, Warning, rec.next(t).Kind)

	tm.Track(expiry)
	clk.Advance(60 * time.Second)
	assert.Equal(t, []Kind{Expired}, rec.untilExpired(t))
}

func TestTimer_SupersededExpiryNeverFires(t *testing.T) {
	clk := clock.NewFake(start)
	rec := newRecorder()
	tm := newTimer(clk, rec, 0)

	tm.Track(start.Add(100 * time.Second))
	tm.Track(start.Add(300 * time.Second))
	require.Eventually(t, func() bool { return clk.Active() == 1 }, 2*time.Second, time.Millisecond)

	clk.Advance(150 * time.Second)
	rec.none(t)
	assert.Equal(t, start.Add(300*time.Second), tm.Expiry())

	clk.Advance(150 * time.Second)
	assert.Equal(t, []Kind{Warning, Expired}, rec.untilExpired(t))
}

func TestTimer_ExtendRearmsEdges(t *testing.T) {
	clk := clock.NewFake(start)
	rec := newRecorder()
	tm := newTimer(clk, rec, 0)

	tm.Track(start.Add(65 * time.Second))
	clk.BlockUntil(1)
	clk.Advance(5 * time.Second)
	assert.Equal(t, Warning, rec.next(t).Kind)

	extended := tm.Extend()
	assert.Equal(t, start.Add(5*time.Second+10*time.Minute), extended)
	assert.Equal(t, 10*time.Minute, tm.Remaining())
	require.Eventually(t, func() bool { return clk.Active() == 1 }, 2*time.Second, time.Millisecond)

	clk.Advance(540 * time.Second)
	w := rec.next(t)
	assert.Equal(t, Warning, w.Kind)
	assert.Equal(t, start.Add(545*time.Second), w.At)
	assert.Equal(t, extended, w.Expiry)
}

func TestTimer_ExtendWithoutSessionDoesNothing(t *testing.T) {
	clk := clock.NewFake(start)
	tm := newTimer(clk, newRecorder(), 0)

	assert.True(t, tm.Extend().IsZero())
	assert.Zero(t, clk.Active())
}

func TestTimer_StopClearsEverything(t *testing.T) {
	clk := clock.NewFake(start)
	rec := newRecorder()
	tm := newTimer(clk, rec, 0)

	tm.Track(start.Add(30 * time.Second))
	assert.Equal(t, Warning, rec.next(t).Kind)

	tm.Stop()
	waitStopped(t, clk)
	assert.True(t, tm.Expiry().IsZero())
	assert.Zero(t, tm.Remaining())

	clk.Advance(time.Hour)
	rec.none(t)
}

func TestTimer_StopFromCallbackSuppressesPendingEdges(t *testing.T) {
	clk := clock.NewFake(start)
	warnings := make(chan Event, 4)
	refreshed := make(chan struct{})

	var tm *Timer
	tm = New(clk, Config{
		SessionDuration:  10 * time.Minute,
		WarningThreshold: time.Minute,
		RefreshThreshold: 2 * time.Minute,
		TickInterval:     time.Second,
	}, WithCallbacks(Callbacks{
		OnRefreshDue: func(Event) {
			tm.Stop()
			close(refreshed)
		},
		OnWarning: func(e Event) { warnings <- e },
	}))

	// Both thresholds are crossed on the first evaluation.
	tm.Track(start.Add(30 * time.Second))

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh-due edge did not fire")
	}
	waitStopped(t, clk)
	assert.True(t, tm.Expiry().IsZero())
	assert.Empty(t, warnings)
}
