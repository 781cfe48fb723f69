package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the complete NFS client configuration.
//
// This structure captures all configurable aspects of the client including:
//   - Logging configuration
//   - Server endpoints (mount, nfs, portmap)
//   - Transport behavior (timeouts, local port range)
//   - Authentication credentials
//   - Retry and rate limiting policy
//   - Workload definition for the load driver
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (NFSCLIENT_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server describes the NFS server endpoints
	Server ServerConfig `mapstructure:"server"`

	// Transport controls connection behavior
	Transport TransportConfig `mapstructure:"transport"`

	// Auth describes the RPC credential presented on every call
	Auth AuthConfig `mapstructure:"auth"`

	// Retry controls the session retry policy
	Retry RetryConfig `mapstructure:"retry"`

	// RateLimit throttles outbound calls
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Metrics enables Prometheus metrics collection
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Workload defines the load driver's work
	Workload WorkloadConfig `mapstructure:"workload"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig describes the NFS server endpoints.
type ServerConfig struct {
	// Host is the server address (IP or hostname)
	Host string `mapstructure:"host" validate:"required"`

	// MountPort is the mountd port. Ignored when UsePortmap is true.
	MountPort int `mapstructure:"mount_port" validate:"gte=0,lte=65535"`

	// NFSPort is the nfsd port. Ignored when UsePortmap is true.
	NFSPort int `mapstructure:"nfs_port" validate:"gte=0,lte=65535"`

	// PortmapPort is the portmapper port
	PortmapPort int `mapstructure:"portmap_port" validate:"gte=0,lte=65535"`

	// UsePortmap resolves mountd and nfsd ports via the portmapper
	// instead of using MountPort and NFSPort
	UsePortmap bool `mapstructure:"use_portmap"`

	// Export is the exported path to mount (e.g., "/export")
	Export string `mapstructure:"export" validate:"required,startswith=/"`
}

// TransportConfig controls connection behavior.
type TransportConfig struct {
	// Timeout bounds every connect, read and write on the wire
	Timeout time.Duration `mapstructure:"timeout" validate:"required,gt=0"`

	// LocalPortMin and LocalPortMax bound the local source port range.
	// Privileged servers require a source port below 1024.
	LocalPortMin int `mapstructure:"local_port_min" validate:"gte=0,lte=65535"`
	LocalPortMax int `mapstructure:"local_port_max" validate:"gte=0,lte=65535"`
}

// AuthConfig describes the RPC credential presented on every call.
type AuthConfig struct {
	// Flavor selects the credential flavor
	// Valid values: none, unix
	Flavor string `mapstructure:"flavor" validate:"required,oneof=none unix"`

	// MachineName is the client hostname sent in AUTH_UNIX credentials
	MachineName string `mapstructure:"machine_name"`

	// UID and GID identify the calling user for AUTH_UNIX
	UID uint32 `mapstructure:"uid"`
	GID uint32 `mapstructure:"gid"`

	// AuxGIDs lists auxiliary group IDs for AUTH_UNIX
	AuxGIDs []uint32 `mapstructure:"aux_gids" validate:"max=16"`
}

// RetryConfig controls the session retry policy.
type RetryConfig struct {
	// Attempts is the maximum number of tries per operation,
	// including the first
	Attempts uint `mapstructure:"attempts" validate:"required,gte=1"`

	// Backoff is the delay between tries
	Backoff time.Duration `mapstructure:"backoff" validate:"gte=0"`
}

// RateLimitConfig throttles outbound calls.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained call rate. 0 disables limiting.
	RequestsPerSecond uint `mapstructure:"requests_per_second"`

	// Burst is the token bucket capacity
	Burst uint `mapstructure:"burst"`
}

// MetricsConfig enables Prometheus metrics collection.
type MetricsConfig struct {
	// Enabled turns metrics collection on
	Enabled bool `mapstructure:"enabled"`
}

// WorkloadConfig defines the load driver's work.
type WorkloadConfig struct {
	// Directory is the directory created under the export root
	Directory string `mapstructure:"directory" validate:"required"`

	// Files is the number of files to create
	Files int `mapstructure:"files" validate:"required,gte=1"`

	// Content is written to every file and read back for verification
	Content string `mapstructure:"content" validate:"required"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (NFSCLIENT_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use NFSCLIENT_ prefix and underscores
	// Example: NFSCLIENT_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("NFSCLIENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Viper only maps environment variables for keys it knows about, so
	// register every key with a zero default. Real defaults are applied
	// later by ApplyDefaults.
	for _, key := range []string{
		"logging.level", "logging.output",
		"server.host", "server.mount_port", "server.nfs_port",
		"server.portmap_port", "server.use_portmap", "server.export",
		"transport.timeout", "transport.local_port_min", "transport.local_port_max",
		"auth.flavor", "auth.machine_name", "auth.uid", "auth.gid", "auth.aux_gids",
		"retry.attempts", "retry.backoff",
		"rate_limit.requests_per_second", "rate_limit.burst",
		"metrics.enabled",
		"workload.directory", "workload.files", "workload.content",
	} {
		v.SetDefault(key, nil)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to
// current directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "nfsclient")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "nfsclient")
}
