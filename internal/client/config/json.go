package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/flagx"
	"github.com/dmitrijs2005/sessionkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from "zero" so a partial file only overrides
// what it names.
type JsonConfig struct {
	ServerBaseURL    *string         `json:"server_base_url"`
	RequestTimeout   *timex.Duration `json:"request_timeout"`
	SessionDuration  *timex.Duration `json:"session_duration"`
	WarningThreshold *timex.Duration `json:"warning_threshold"`
	RefreshThreshold *timex.Duration `json:"refresh_threshold"`
	TickInterval     *timex.Duration `json:"tick_interval"`
	ExpiresInUnit    *timex.Duration `json:"expires_in_unit"`
	StoragePath      *string         `json:"storage_path"`
	StorageNamespace *string         `json:"storage_namespace"`
	StoreSecret      *string         `json:"store_secret"`
	LogLevel         *string         `json:"log_level"`
	MetricsAddr      *string         `json:"metrics_addr"`
}

// parseJson overlays cfg with values from the JSON file named by -c/-config
// (or flagx.ConfigFileEnv). No file means nothing to do.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	jc.apply(cfg)
	return nil
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.ServerBaseURL, jc.ServerBaseURL)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.SessionDuration, jc.SessionDuration)
	setDuration(&cfg.WarningThreshold, jc.WarningThreshold)
	setDuration(&cfg.RefreshThreshold, jc.RefreshThreshold)
	setDuration(&cfg.TickInterval, jc.TickInterval)
	setDuration(&cfg.ExpiresInUnit, jc.ExpiresInUnit)
	setString(&cfg.StoragePath, jc.StoragePath)
	setString(&cfg.StorageNamespace, jc.StorageNamespace)
	setString(&cfg.StoreSecret, jc.StoreSecret)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.MetricsAddr, jc.MetricsAddr)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
