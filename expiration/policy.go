// Package expiration decides when an unused configuration instance is idle
// long enough to be evicted.
package expiration

import (
	"fmt"
	"time"
)

// Policy reports whether an instance last used at lastUsed is expired at
// time now. Implementations must be pure functions of their arguments.
type Policy interface {
	IsExpired(lastUsed, now time.Time) bool
}

// PolicyFunc adapts a function to a Policy.
type PolicyFunc func(lastUsed, now time.Time) bool

func (f PolicyFunc) IsExpired(lastUsed, now time.Time) bool {
	return f(lastUsed, now)
}

// MaxIdle expires instances that have not been used for longer than a fixed
// duration.
type MaxIdle struct {
	idle time.Duration
}

// NewMaxIdle creates a MaxIdle policy. The idle duration must be positive.
func NewMaxIdle(idle time.Duration) (MaxIdle, error) {
	if idle <= 0 {
		return MaxIdle{}, fmt.Errorf("max idle time must be positive: %s", idle)
	}
	return MaxIdle{idle: idle}, nil
}

// MustMaxIdle is like NewMaxIdle but panics on an invalid duration.
func MustMaxIdle(idle time.Duration) MaxIdle {
	p, err := NewMaxIdle(idle)
	if err != nil {
		panic(err)
	}
	return p
}

func (p MaxIdle) IsExpired(lastUsed, now time.Time) bool {
	return now.Sub(lastUsed) > p.idle
}

// Idle returns the configured maximum idle time.
func (p MaxIdle) Idle() time.Duration {
	return p.idle
}

func (p MaxIdle) String() string {
	return fmt.Sprintf("max idle %s", p.idle)
}

// Never is a Policy that never expires anything.
var Never Policy = PolicyFunc(func(time.Time, time.Time) bool { return false })
