package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds runtime settings for the session client.
//
// Fields:
//   - ServerBaseURL: identity service base URL; /auth/* paths are appended.
//   - RequestTimeout: per-call timeout for identity service requests.
//   - SessionDuration: countdown length used when a session is extended locally.
//   - WarningThreshold: remaining time at which the expiry warning fires.
//   - RefreshThreshold: remaining time at which a proactive refresh is made (0 disables).
//   - TickInterval: session timer cadence.
//   - ExpiresInUnit: unit of the server's expires_in field.
//   - StoragePath / StorageNamespace: SQLite file and key prefix for persisted credentials.
//   - StoreSecret: when set, persisted values are sealed with a key derived from it.
//   - LogLevel: debug|info|warn|error.
//   - MetricsAddr: host:port for the Prometheus endpoint, empty to disable.
type Config struct {
	ServerBaseURL    string
	RequestTimeout   time.Duration
	SessionDuration  time.Duration
	WarningThreshold time.Duration
	RefreshThreshold time.Duration
	TickInterval     time.Duration
	ExpiresInUnit    time.Duration
	StoragePath      string
	StorageNamespace string
	StoreSecret      string
	LogLevel         string
	MetricsAddr      string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://localhost:3000/api"
	c.RequestTimeout = 10 * time.Second
	c.SessionDuration = 10 * time.Minute
	c.WarningThreshold = 1 * time.Minute
	c.RefreshThreshold = 2 * time.Minute
	c.TickInterval = 1 * time.Second
	c.ExpiresInUnit = time.Second
	c.StoragePath = "session.db"
	c.StorageNamespace = "sessionkeeper"
	c.StoreSecret = ""
	c.LogLevel = "info"
	c.MetricsAddr = ""
}

// Validate reports the first inconsistency in c, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.ServerBaseURL == "":
		return fmt.Errorf("%w: server base url is empty", ErrInvalidConfig)
	case c.RequestTimeout <= 0:
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalidConfig)
	case c.SessionDuration <= 0:
		return fmt.Errorf("%w: session duration must be positive", ErrInvalidConfig)
	case c.WarningThreshold <= 0 || c.WarningThreshold >= c.SessionDuration:
		return fmt.Errorf("%w: warning threshold must be in (0, session duration)", ErrInvalidConfig)
	case c.RefreshThreshold < 0:
		return fmt.Errorf("%w: refresh threshold must not be negative", ErrInvalidConfig)
	case c.TickInterval <= 0:
		return fmt.Errorf("%w: tick interval must be positive", ErrInvalidConfig)
	case c.ExpiresInUnit <= 0:
		return fmt.Errorf("%w: expires_in unit must be positive", ErrInvalidConfig)
	case c.StorageNamespace == "":
		return fmt.Errorf("%w: storage namespace is empty", ErrInvalidConfig)
	case !logging.ValidLevel(c.LogLevel):
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.LogLevel)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags. Later sources take precedence.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, os.Args[1:]); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, os.Args[1:]); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
