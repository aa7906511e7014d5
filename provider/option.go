package provider

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ipni/go-dynconf/expiration"
	"github.com/prometheus/client_golang/prometheus"
)

// defaultMaxIdle is the time an unused instance of a dynamic provider stays
// cached when no expiration policy is configured.
const defaultMaxIdle = 5 * time.Minute

type config struct {
	clock      clock.Clock
	policy     expiration.Policy
	registerer prometheus.Registerer
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		clock: clock.New(),
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithClock sets the clock used to record instance usage and to evaluate
// expiration.
func WithClock(clk clock.Clock) Option {
	return func(cfg *config) error {
		if clk == nil {
			return errors.New("nil clock")
		}
		cfg.clock = clk
		return nil
	}
}

// WithExpirationPolicy sets the policy that decides when an unused instance
// is evicted by SweepExpired.
//
// Default is a 5 minute maximum idle time for dynamic resolvers, and no
// expiration for static resolvers.
func WithExpirationPolicy(policy expiration.Policy) Option {
	return func(cfg *config) error {
		if policy == nil {
			return errors.New("nil expiration policy")
		}
		cfg.policy = policy
		return nil
	}
}

// WithMetrics registers the provider's metrics with reg. Metrics are labeled
// with the provider name. Without this option metrics are not exported.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(cfg *config) error {
		cfg.registerer = reg
		return nil
	}
}
