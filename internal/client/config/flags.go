package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/flagx"
)

var knownFlags = []string{"-a", "-t", "-d", "-w", "-l", "-m"}

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   identity service base URL
//	-t int      request timeout (seconds)
//	-d string   credential database path
//	-w int      expiry warning threshold (seconds)
//	-l string   log level
//	-m string   metrics listen address
//
// Only the flags above are looked at; everything else in args is ignored.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerBaseURL, "a", cfg.ServerBaseURL, "identity service base URL")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.StoragePath, "d", cfg.StoragePath, "credential database path")
	warning := fs.Int("w", int(cfg.WarningThreshold.Seconds()), "expiry warning threshold (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics listen address")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return err
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	cfg.WarningThreshold = time.Duration(*warning) * time.Second
	return nil
}
