package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/client"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/clock"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/config"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/metrics"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/services"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/session"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/storage"
	"github.com/dmitrijs2005/sessionkeeper/internal/client/timer"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type App struct {
	config   *config.Config
	log      logging.Logger
	sessions services.SessionService
	reader   *bufio.Reader
	out      io.Writer

	db       *sql.DB
	registry *prometheus.Registry
	// bind attaches the session timer and returns its detach function.
	bind func(ctx context.Context) func()
}

// NewApp wires the credential database, the identity service client, the
// session controller and its timer from c.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.New(c.LogLevel, os.Stderr)

	db, err := storage.OpenDatabase(ctx, c.StoragePath)
	if err != nil {
		log.Error(ctx, "error opening credential database", "path", c.StoragePath, "error", err)
		return nil, err
	}

	repo := metadata.NewSQLiteRepository(db)
	var store *storage.Store
	if c.StoreSecret != "" {
		store, err = storage.NewSealed(ctx, repo, c.StorageNamespace, c.StoreSecret, storage.WithLogger(log))
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	} else {
		store = storage.New(repo, c.StorageNamespace, storage.WithLogger(log))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	api := client.NewHTTPClient(c.ServerBaseURL,
		client.WithHTTPClient(&http.Client{Transport: m.InstrumentTransport(http.DefaultTransport)}),
		client.WithTimeout(c.RequestTimeout),
		client.WithLogger(log.With("component", "http")),
	)

	a := &App{
		config:   c,
		log:      log,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		db:       db,
		registry: reg,
	}

	ctrl := services.NewSessionController(api, store,
		services.WithLogger(log.With("component", "session")),
		services.WithMetrics(m),
		services.WithExpiresInUnit(c.ExpiresInUnit),
		services.WithRequestTimeout(c.RequestTimeout),
		services.WithLoginRequired(a.onLoginRequired),
	)
	a.sessions = ctrl

	tm := timer.New(clock.Real(), timer.Config{
		SessionDuration:  c.SessionDuration,
		WarningThreshold: c.WarningThreshold,
		RefreshThreshold: c.RefreshThreshold,
		TickInterval:     c.TickInterval,
	}, timer.WithLogger(log.With("component", "timer")), timer.WithMetrics(m))

	a.bind = func(ctx context.Context) func() {
		return ctrl.BindTimer(ctx, tm, a.onWarning)
	}
	return a, nil
}

// Run restores any saved session, starts the timer and the optional metrics
// endpoint, then blocks in the REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.close()

	if a.bind != nil {
		unbind := a.bind(ctx)
		defer unbind()
	}

	if a.config != nil && a.config.MetricsAddr != "" && a.registry != nil {
		go func() {
			if err := metrics.Serve(ctx, a.config.MetricsAddr, a.registry, a.log); err != nil {
				a.log.Error(ctx, "metrics endpoint stopped", "error", err)
			}
		}()
	}

	st := a.sessions.Initialize(ctx)
	fmt.Fprintln(a.out, "Welcome to SessionKeeper CLI (type 'help' for commands)")
	if st.IsAuthenticated {
		fmt.Fprintf(a.out, "Welcome back, %s.\n", st.User.DisplayName())
	}

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn(context.Background(), "error closing credential database", "error", err)
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.sessions != nil && a.sessions.State().IsAuthenticated
}

// getStatus renders the prompt status: the user and the time left, or the
// machine status when no one is logged in.
func (a *App) getStatus() string {
	if a.sessions == nil {
		return ""
	}
	return statusLine(a.sessions.State(), time.Now())
}

func statusLine(st session.State, now time.Time) string {
	if !st.IsAuthenticated {
		return fmt.Sprintf("(%s)", st.Status)
	}
	left := clock.Remaining(st.SessionExpiry, now).Round(time.Second)
	return fmt.Sprintf("(%s %s)", st.User.DisplayName(), left)
}

func (a *App) onWarning(e timer.Event) {
	fmt.Fprintf(a.out, "\nYour session expires in %s. Type 'extend' to stay logged in.\n",
		e.Remaining.Round(time.Second))
}

func (a *App) onLoginRequired() {
	fmt.Fprintln(a.out, "\nYour session has ended. Please log in again.")
}
