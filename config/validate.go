package config

import (
	"fmt"
	"strings"
)

var backends = map[string]struct{}{
	"leveldb": {},
	"bolt":    {},
	"memory":  {},
}

// Validate checks value ranges that the decoder cannot enforce.
func Validate(c *Config) error {
	if c == nil {
		return fmt.Errorf("config: nil")
	}
	if _, ok := backends[strings.ToLower(strings.TrimSpace(c.Backend))]; !ok {
		return fmt.Errorf("config: unknown Backend %q", c.Backend)
	}
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress required")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: values must not be negative")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst == 0 {
		return fmt.Errorf("rate_limit: Burst must be positive when limiting")
	}
	if c.Registry.ReserveDecimals > 36 {
		return fmt.Errorf("registry: ReserveDecimals above 36")
	}
	if c.Registry.StakeDecimals > 36 {
		return fmt.Errorf("registry: StakeDecimals above 36")
	}
	if _, err := c.Addresses(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := c.LaunchParams(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
