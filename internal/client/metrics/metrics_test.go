package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Refresh(RefreshSuccess, 20*time.Millisecond)
	m.Refresh(RefreshSkipped, 0)
	m.Refresh(RefreshInvalid, 5*time.Millisecond)
	m.Coalesced()
	m.Coalesced()
	m.Replay()
	m.Transition("authenticated")
	m.TimerEvent("warning")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues(RefreshSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues(RefreshSkipped)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.coalesced))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.replays))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("authenticated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.timerEvents.WithLabelValues("warning")))

	expected := `
# HELP sessionkeeper_request_replays_total Authenticated requests replayed after a renewal.
# TYPE sessionkeeper_request_replays_total counter
sessionkeeper_request_replays_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "sessionkeeper_request_replays_total"))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Refresh(RefreshSuccess, time.Second)
	m.Coalesced()
	m.Replay()
	m.Transition("x")
	m.TimerEvent("x")
	assert.Equal(t, http.DefaultTransport, m.InstrumentTransport(nil))
}

func TestMetrics_InstrumentTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := New(reg)
	hc := &http.Client{Transport: m.InstrumentTransport(nil)}

	resp, err := hc.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, 1, testutil.CollectAndCount(m.requests))
}
