package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemaining(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry time.Time
		want   time.Duration
	}{
		{"no session", time.Time{}, 0},
		{"future", now.Add(650 * time.Second), 650 * time.Second},
		{"exactly now", now, 0},
		{"past", now.Add(-time.Minute), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Remaining(tt.expiry, now))
			assert.Equal(t, tt.want == 0, Expired(tt.expiry, now))
		})
	}
}

func TestFake_AdvanceDeliversEveryTickInOrder(t *testing.T) {
	start := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	f := NewFake(start)
	tk := f.NewTicker(time.Second)

	got := make(chan time.Time, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			got <- <-tk.C()
		}
	}()

	f.Advance(3 * time.Second)
	<-done

	require.Len(t, got, 3)
	for i := 1; i <= 3; i++ {
		assert.Equal(t, start.Add(time.Duration(i)*time.Second), <-got)
	}
	assert.Equal(t, start.Add(3*time.Second), f.Now())
}

func TestFake_StoppedTickerDoesNotBlockAdvance(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	tk := f.NewTicker(time.Second)
	require.Equal(t, 1, f.Active())

	tk.Stop()
	tk.Stop()
	f.Advance(5 * time.Second)

	assert.Equal(t, 0, f.Active())
	assert.Equal(t, time.Unix(5, 0), f.Now())
}

func TestFake_BlockUntil(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	ready := make(chan struct{})
	go func() {
		f.BlockUntil(1)
		close(ready)
	}()
	f.NewTicker(time.Second)

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("BlockUntil did not observe the new ticker")
	}
}
