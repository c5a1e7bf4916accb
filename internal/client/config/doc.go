// Package config loads runtime configuration for the session client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c/-config or SESSIONKEEPER_CONFIG.
//  3. Command-line flags, which override earlier values.
//
// # JSON schema
//
// Durations are either strings like "90s" or integer nanoseconds:
//
//	{
//	  "server_base_url": "http://localhost:3000/api",
//	  "request_timeout": "10s",
//	  "session_duration": "10m",
//	  "warning_threshold": "1m",
//	  "refresh_threshold": "2m",
//	  "tick_interval": "1s",
//	  "expires_in_unit": "1s",
//	  "storage_path": "session.db",
//	  "storage_namespace": "sessionkeeper",
//	  "store_secret": "",
//	  "log_level": "info",
//	  "metrics_addr": ""
//	}
package config
