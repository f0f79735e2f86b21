package config

import (
	"fmt"
	"time"
)

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Addr string `json:"addr"`
	// Token, when set, must be sent as a bearer token on every API request.
	Token string `json:"token"`
	// RateLimit is the sustained number of requests per second; 0 disables limiting.
	RateLimit float64 `json:"rate_limit"`
	// Burst is the token bucket size.
	Burst        int           `json:"burst"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// SetDefaults applies sane defaults.
func (c *ServerConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.RateLimit > 0 && c.Burst <= 0 {
		c.Burst = int(c.RateLimit)
		if c.Burst < 1 {
			c.Burst = 1
		}
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 2 * time.Minute
	}
}

// Validate checks mandatory fields.
func (c ServerConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.RateLimit < 0 || c.Burst < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	return nil
}
