package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("shutdown_timeout", 30*time.Second)

	v.SetDefault("api.port", 9091)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9092)

	v.SetDefault("kv.type", "badger")
	v.SetDefault("kv.path", "")
	v.SetDefault("kv.cache", true)

	v.SetDefault("registry.quota_per_owner", 0)
	v.SetDefault("registry.history_depth", 5)
	v.SetDefault("registry.root", "default")
	v.SetDefault("registry.default_cluster", "default")
	v.SetDefault("registry.reserved_hosts", []string{"localhost", "127.0.0.1"})

	v.SetDefault("auth.mode", "header")

	v.SetDefault("peers.timeout", 5*time.Second)
}

// sampleConfig is written by `seaward init`.
const sampleConfig = `# Seaward token registry configuration.
# Every value can be overridden with a SEAWARD_* environment variable,
# e.g. SEAWARD_LOGGING_LEVEL=DEBUG.

logging:
  level: INFO        # DEBUG, INFO, WARN, ERROR
  format: text       # text or json
  output: stdout     # stdout, stderr, or a file path

shutdown_timeout: 30s

api:
  port: 9091

metrics:
  enabled: false
  port: 9092

kv:
  type: badger       # badger or memory
  path: /var/lib/seaward/tokens
  cache: true        # process-local read-through cache (peer-refresh invalidated)

registry:
  quota_per_owner: 0 # 0 disables the per-owner token quota
  history_depth: 5   # bounded update history per token
  root: default
  default_cluster: default
  host_clusters: {}  # e.g. {"east.example.com": "east"}
  reserved_hosts:
    - localhost
    - 127.0.0.1

auth:
  mode: header       # header (trust X-Seaward-User) or jwt
  # jwt_secret: set SEAWARD_AUTH_JWT_SECRET instead
  admins: []

peers:
  urls: []           # sibling replica base URLs
  timeout: 5s
`

// WriteSample writes the commented sample configuration to path,
// refusing to overwrite an existing file unless force is set.
func WriteSample(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultPath returns the default config file location,
// $XDG_CONFIG_HOME/seaward/config.yaml.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "seaward", "config.yaml")
}
