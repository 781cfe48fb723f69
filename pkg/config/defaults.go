package config

import (
	"os"
	"strings"
	"time"

	"github.com/cubbit/nfsclient/internal/protocol/mount"
	"github.com/cubbit/nfsclient/internal/protocol/nfs"
	"github.com/cubbit/nfsclient/internal/protocol/portmap"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyTransportDefaults(&cfg.Transport)
	applyAuthDefaults(&cfg.Auth)
	applyRetryDefaults(&cfg.Retry)
	applyRateLimitDefaults(&cfg.RateLimit)
	applyWorkloadDefaults(&cfg.Workload)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets endpoint defaults.
//
// The well-known ports are used when the portmapper is not consulted.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.MountPort == 0 {
		cfg.MountPort = mount.Port
	}
	if cfg.NFSPort == 0 {
		cfg.NFSPort = nfs.Port
	}
	if cfg.PortmapPort == 0 {
		cfg.PortmapPort = portmap.Port
	}
	if cfg.Export == "" {
		cfg.Export = "/export"
	}
}

// applyTransportDefaults sets transport defaults.
//
// The local port range defaults to the privileged range most NFS servers
// require from clients.
func applyTransportDefaults(cfg *TransportConfig) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.LocalPortMin == 0 && cfg.LocalPortMax == 0 {
		cfg.LocalPortMin = 500
		cfg.LocalPortMax = 1023
	}
}

// applyAuthDefaults sets credential defaults.
func applyAuthDefaults(cfg *AuthConfig) {
	if cfg.Flavor == "" {
		cfg.Flavor = "unix"
	}
	if cfg.MachineName == "" {
		if hostname, err := os.Hostname(); err == nil {
			cfg.MachineName = hostname
		} else {
			cfg.MachineName = "localhost"
		}
	}
}

// applyRetryDefaults sets retry policy defaults.
func applyRetryDefaults(cfg *RetryConfig) {
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
}

// applyRateLimitDefaults sets rate limiting defaults.
func applyRateLimitDefaults(cfg *RateLimitConfig) {
	if cfg.RequestsPerSecond > 0 && cfg.Burst == 0 {
		cfg.Burst = cfg.RequestsPerSecond
	}
}

// applyWorkloadDefaults sets load driver defaults.
func applyWorkloadDefaults(cfg *WorkloadConfig) {
	if cfg.Directory == "" {
		cfg.Directory = "nfsclient-load"
	}
	if cfg.Files == 0 {
		cfg.Files = 10
	}
	if cfg.Content == "" {
		cfg.Content = "The quick brown fox jumps over the lazy dog"
	}
}
