package provider

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/ipni/go-dynconf/lifecycle"
	"github.com/ipni/go-dynconf/resolver"
	"github.com/ipni/go-dynconf/stats"
)

// Factory creates configuration values from resolved parameters.
type Factory[T any] interface {
	// Create builds the value for the named provider from res.
	Create(ctx context.Context, name string, res resolver.Result) (T, error)
}

// FactoryFunc adapts a function to a Factory.
type FactoryFunc[T any] func(context.Context, string, resolver.Result) (T, error)

func (f FactoryFunc[T]) Create(ctx context.Context, name string, res resolver.Result) (T, error) {
	return f(ctx, name, res)
}

// Instance is a configuration value bound to the key it was created for.
//
// An Instance returned by a provider is borrowed: it is shared with all other
// concurrent callers, and the caller must call Release exactly once when done
// using it.
type Instance[T any] struct {
	name    string
	result  resolver.Result
	value   T
	stats   *stats.Stats
	tracker *lifecycle.Tracker
}

func newInstance[T any](name string, res resolver.Result, value T, clk clock.Clock) *Instance[T] {
	return &Instance[T]{
		name:    name,
		result:  res,
		value:   value,
		stats:   stats.New(clk),
		tracker: lifecycle.NewTracker(value),
	}
}

// Value returns the configuration value.
func (i *Instance[T]) Value() T {
	return i.value
}

// Name returns the name of the provider that created the instance.
func (i *Instance[T]) Name() string {
	return i.name
}

func (i *Instance[T]) Key() resolver.Key {
	return i.result.Key()
}

func (i *Instance[T]) Params() resolver.Params {
	return i.result.Params()
}

// Statistics returns the usage statistics of the instance.
func (i *Instance[T]) Statistics() *stats.Stats {
	return i.stats
}

// Phase returns the lifecycle phase of the instance.
func (i *Instance[T]) Phase() lifecycle.Phase {
	return i.tracker.Phase()
}

// Release ends the caller's borrow of the instance.
func (i *Instance[T]) Release() {
	i.stats.EndUse()
}
