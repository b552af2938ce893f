package api

import "time"

// Config configures the token API HTTP server.
type Config struct {
	// Port is the TCP port the server listens on.
	Port int `mapstructure:"port" validate:"required,gt=0,lte=65535" yaml:"port"`

	// ReadTimeout bounds reading a full request.
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout bounds writing a full response.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout bounds keep-alive connections between requests.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// RequestTimeout bounds handler execution via the router middleware.
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// applyDefaults fills unset timeouts.
func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 9091
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
}
