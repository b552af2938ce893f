// Package config loads and validates the Seaward server configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (SEAWARD_*)
//  2. Configuration file (YAML)
//  3. Default values
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/seaward-io/seaward/pkg/api"
)

// Config is the Seaward server configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// API configures the token API HTTP server.
	API api.Config `mapstructure:"api" yaml:"api"`

	// Metrics configures the Prometheus metrics listener.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// KV configures the backing key-value store.
	KV KVConfig `mapstructure:"kv" yaml:"kv"`

	// Registry configures token registry behavior.
	Registry RegistryConfig `mapstructure:"registry" yaml:"registry"`

	// Auth configures caller authentication and the admin list.
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`

	// Peers configures the refresh fan-out to sibling replicas.
	Peers PeersConfig `mapstructure:"peers" yaml:"peers"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR" yaml:"level"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig configures the optional Prometheus listener.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,gt=0,lte=65535" yaml:"port"`
}

// KVConfig selects and configures the KV backend.
type KVConfig struct {
	// Type is "badger" or "memory".
	Type string `mapstructure:"type" validate:"required,oneof=badger memory" yaml:"type"`

	// Path is the badger database directory.
	Path string `mapstructure:"path" yaml:"path"`

	// Cache enables the process-local read-through cache that the
	// peer-refresh protocol invalidates.
	Cache bool `mapstructure:"cache" yaml:"cache"`
}

// RegistryConfig configures token registry behavior.
type RegistryConfig struct {
	// QuotaPerOwner caps live tokens per owner; 0 disables the quota.
	QuotaPerOwner int `mapstructure:"quota_per_owner" validate:"gte=0" yaml:"quota_per_owner"`

	// HistoryDepth bounds each token's previous chain.
	HistoryDepth int `mapstructure:"history_depth" validate:"gte=0" yaml:"history_depth"`

	// Root is the root cluster stamped on newly created tokens.
	Root string `mapstructure:"root" yaml:"root"`

	// DefaultCluster is used for hosts missing from HostClusters.
	DefaultCluster string `mapstructure:"default_cluster" validate:"required" yaml:"default_cluster"`

	// HostClusters maps request hosts to cluster names.
	HostClusters map[string]string `mapstructure:"host_clusters" yaml:"host_clusters"`

	// ReservedHosts are hostnames the router answers for itself; they
	// can never be token names.
	ReservedHosts []string `mapstructure:"reserved_hosts" yaml:"reserved_hosts"`
}

// AuthConfig configures caller authentication.
type AuthConfig struct {
	// Mode is "jwt" or "header".
	Mode string `mapstructure:"mode" validate:"required,oneof=jwt header" yaml:"mode"`

	// JWTSecret signs and validates bearer tokens in jwt mode. Set it
	// via the SEAWARD_AUTH_JWT_SECRET environment variable in
	// production rather than the config file.
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`

	// Admins are administrator users for the static authorizer.
	Admins []string `mapstructure:"admins" yaml:"admins"`
}

// PeersConfig configures the refresh broadcast.
type PeersConfig struct {
	// URLs are sibling replica base URLs, e.g. "http://replica-2:9091".
	URLs []string `mapstructure:"urls" yaml:"urls"`

	// Timeout bounds each peer notification request.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Load reads configuration from the given file path (optional) and the
// environment, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SEAWARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration's struct tags and cross-field rules.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.KV.Type == "badger" && c.KV.Path == "" {
		return fmt.Errorf("invalid configuration: kv.path is required for the badger store")
	}
	if c.Auth.Mode == "jwt" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("invalid configuration: auth.jwt_secret must be at least 32 characters; set SEAWARD_AUTH_JWT_SECRET")
	}
	return nil
}
