package sweep

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

const defaultInterval = 5 * time.Minute

type config struct {
	clock    clock.Clock
	interval time.Duration
	targets  []Target
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		clock:    clock.New(),
		interval: defaultInterval,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithClock sets the clock that drives the sweep interval.
func WithClock(clk clock.Clock) Option {
	return func(cfg *config) error {
		if clk == nil {
			return errors.New("nil clock")
		}
		cfg.clock = clk
		return nil
	}
}

// WithInterval sets the time between sweeps.
//
// Default is 5 minutes.
func WithInterval(interval time.Duration) Option {
	return func(cfg *config) error {
		if interval <= 0 {
			return fmt.Errorf("sweep interval must be positive: %s", interval)
		}
		cfg.interval = interval
		return nil
	}
}

// WithTarget adds providers to sweep. Targets are swept in the order added.
func WithTarget(targets ...Target) Option {
	return func(cfg *config) error {
		for _, t := range targets {
			if t == nil {
				return errors.New("nil sweep target")
			}
		}
		cfg.targets = append(cfg.targets, targets...)
		return nil
	}
}
