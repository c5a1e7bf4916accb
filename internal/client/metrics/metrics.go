// Package metrics instruments the session lifecycle with Prometheus.
//
// A nil *Metrics is valid and records nothing, so components take one
// unconditionally.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sessionkeeper"

// Refresh outcomes.
const (
	RefreshSuccess   = "success"
	RefreshInvalid   = "invalid"
	RefreshTransient = "transient"
	// RefreshFailed is an error that neither rejects the session nor looks
	// temporary, such as a malformed response.
	RefreshFailed = "failed"
	// RefreshSkipped is a renewal answered by a token another caller had
	// already obtained.
	RefreshSkipped = "skipped"
)

type Metrics struct {
	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	coalesced       prometheus.Counter
	replays         prometheus.Counter
	transitions     *prometheus.CounterVec
	timerEvents     *prometheus.CounterVec
	requests        *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Refresh token exchanges by outcome.",
		}, []string{"outcome"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "token_refresh_duration_seconds",
			Help:      "Latency of refresh token exchanges.",
			Buckets:   prometheus.DefBuckets,
		}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_coalesced_total",
			Help:      "Renewal requests that joined an in-flight refresh.",
		}),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_replays_total",
			Help:      "Authenticated requests replayed after a renewal.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Committed session state changes by resulting status.",
		}, []string{"status"}),
		timerEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_timer_events_total",
			Help:      "Session timer edges by kind.",
		}, []string{"kind"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "identity_request_duration_seconds",
			Help:      "Identity service request latencies.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method"}),
	}
	reg.MustRegister(m.refreshes, m.refreshDuration, m.coalesced, m.replays,
		m.transitions, m.timerEvents, m.requests)
	return m
}

func (m *Metrics) Refresh(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
	if outcome != RefreshSkipped {
		m.refreshDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) Coalesced() {
	if m == nil {
		return
	}
	m.coalesced.Inc()
}

func (m *Metrics) Replay() {
	if m == nil {
		return
	}
	m.replays.Inc()
}

func (m *Metrics) Transition(status string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(status).Inc()
}

func (m *Metrics) TimerEvent(kind string) {
	if m == nil {
		return
	}
	m.timerEvents.WithLabelValues(kind).Inc()
}

// InstrumentTransport wraps next so every identity service round trip is
// observed. next defaults to http.DefaultTransport.
func (m *Metrics) InstrumentTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if m == nil {
		return next
	}
	return promhttp.InstrumentRoundTripperDuration(m.requests, next)
}

// Serve exposes g on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, log logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info(ctx, "metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
