package provider

import (
	"context"
	"errors"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-multierror"
	logging "github.com/ipfs/go-log/v2"
	"github.com/ipni/go-dynconf/dyncache"
	"github.com/ipni/go-dynconf/expiration"
	"github.com/ipni/go-dynconf/lifecycle"
	"github.com/ipni/go-dynconf/resolver"
)

var log = logging.Logger("dynconf/provider")

// Dynamic provides configuration instances built from parameters that are
// resolved anew for every request. Requests that resolve to equal parameters
// share the same instance. Instances left unused are evicted by SweepExpired.
type Dynamic[T any] struct {
	name     string
	resolver resolver.Resolver
	factory  Factory[T]
	policy   expiration.Policy
	clock    clock.Clock

	cache     *dyncache.Cache[*Instance[T]]
	lifecycle lifecycle.Manager
	metrics   *metrics
	evicted   notifier
	closeOnce sync.Once
}

// New creates a new dynamic provider with the given name, using res to
// resolve request events and factory to create instances.
func New[T any](name string, res resolver.Resolver, factory Factory[T], options ...Option) (*Dynamic[T], error) {
	if name == "" {
		return nil, errors.New("provider name is empty")
	}
	if res == nil {
		return nil, errors.New("nil resolver")
	}
	if factory == nil {
		return nil, errors.New("nil factory")
	}

	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}
	if opts.policy == nil {
		if res.IsDynamic() {
			opts.policy = expiration.MustMaxIdle(defaultMaxIdle)
		} else {
			// Static parameters always resolve to the same instance, which
			// lives as long as the provider.
			opts.policy = expiration.Never
		}
	}

	m, err := newMetrics(name, opts.registerer)
	if err != nil {
		return nil, err
	}

	return &Dynamic[T]{
		name:     name,
		resolver: res,
		factory:  factory,
		policy:   opts.policy,
		clock:    opts.clock,
		cache:    dyncache.New[*Instance[T]](),
		metrics:  m,
	}, nil
}

// Name returns the provider name.
func (p *Dynamic[T]) Name() string {
	return p.name
}

// IsDynamic returns true if the provider's parameters depend on the event.
func (p *Dynamic[T]) IsDynamic() bool {
	return p.resolver.IsDynamic()
}

// Len returns the number of cached instances.
func (p *Dynamic[T]) Len() int {
	return p.cache.Len()
}

// Get resolves the parameters for event and returns the instance for them,
// creating it if it is not cached. The returned instance is borrowed and the
// caller must call its Release method when done with it.
//
// Errors are *ResolutionError, *ConstructionError, *LifecycleError, or
// ErrClosed.
func (p *Dynamic[T]) Get(ctx context.Context, event any) (*Instance[T], error) {
	if p.lifecycle.IsDisposed() {
		return nil, ErrClosed
	}
	res, err := p.resolver.Resolve(ctx, event)
	if err != nil {
		return nil, &ResolutionError{
			Provider: p.name,
			Err:      err,
		}
	}

	inst, created, err := p.cache.GetOrCreate(res.Key(), func(resolver.Key) (*Instance[T], error) {
		return p.create(ctx, res)
	})
	if err != nil {
		var cerr *ConstructionError
		var lerr *LifecycleError
		if errors.As(err, &cerr) || errors.As(err, &lerr) {
			p.metrics.createFailures.Inc()
		}
		return nil, err
	}
	if created {
		p.metrics.created.Inc()
		// Providers with the same name share the gauge, so only adjust it.
		p.metrics.cached.Inc()
	}
	return inst, nil
}

// Do calls fn with the value of the instance for event. The instance is
// released when fn returns or panics.
func (p *Dynamic[T]) Do(ctx context.Context, event any, fn func(T) error) error {
	inst, err := p.Get(ctx, event)
	if err != nil {
		return err
	}
	defer inst.Release()
	return fn(inst.Value())
}

// create builds and registers a new instance. It runs with the cache's
// exclusive lock held, so provider lifecycle transitions cannot interleave.
func (p *Dynamic[T]) create(ctx context.Context, res resolver.Result) (*Instance[T], error) {
	if p.lifecycle.IsDisposed() {
		return nil, ErrClosed
	}

	value, err := p.factory.Create(ctx, p.name, res)
	if err != nil {
		return nil, &ConstructionError{
			Provider: p.name,
			Key:      res.Key(),
			Err:      err,
		}
	}
	inst := newInstance(p.name, res, value, p.clock)

	if err = p.register(ctx, inst); err != nil {
		// Undo whatever part of the lifecycle already ran.
		if derr := inst.tracker.Deactivate(ctx); derr != nil {
			log.Warnw("Cannot deactivate instance after failed registration", "err", derr, "provider", p.name, "key", res.Key())
		}
		return nil, err
	}
	log.Infow("Created configuration instance", "provider", p.name, "key", res.Key(), "phase", inst.Phase())
	return inst, nil
}

// register brings a new instance up to the lifecycle phase of the provider.
func (p *Dynamic[T]) register(ctx context.Context, inst *Instance[T]) error {
	if p.lifecycle.IsInitialised() {
		if err := inst.tracker.Activate(ctx); err != nil {
			return p.lifecycleError(inst, lifecycle.Activated, err)
		}
	}
	if p.lifecycle.IsStarted() {
		if err := inst.tracker.Start(ctx); err != nil {
			return p.lifecycleError(inst, lifecycle.Started, err)
		}
	}
	return nil
}

func (p *Dynamic[T]) lifecycleError(inst *Instance[T], phase lifecycle.Phase, err error) *LifecycleError {
	return &LifecycleError{
		Provider: p.name,
		Key:      inst.Key(),
		Phase:    phase,
		Err:      err,
	}
}

// Initialise activates all cached instances. Instances created afterwards are
// activated when created.
func (p *Dynamic[T]) Initialise(ctx context.Context) error {
	var errs error
	p.cache.Locked(func(all []*Instance[T]) {
		if err := p.lifecycle.Initialise(); err != nil {
			errs = err
			return
		}
		for _, inst := range all {
			if err := inst.tracker.Activate(ctx); err != nil {
				errs = multierror.Append(errs, p.lifecycleError(inst, lifecycle.Activated, err))
			}
		}
	})
	if errs == nil {
		log.Debugw("Provider initialised", "provider", p.name)
	}
	return errs
}

// Start starts all cached instances. Instances created afterwards are started
// when created. A stopped provider can be started again.
func (p *Dynamic[T]) Start(ctx context.Context) error {
	var errs error
	p.cache.Locked(func(all []*Instance[T]) {
		if err := p.lifecycle.Start(); err != nil {
			errs = err
			return
		}
		for _, inst := range all {
			if err := inst.tracker.Start(ctx); err != nil {
				errs = multierror.Append(errs, p.lifecycleError(inst, lifecycle.Started, err))
			}
		}
	})
	if errs == nil {
		log.Debugw("Provider started", "provider", p.name)
	}
	return errs
}

// Stop stops all cached instances. Instances created while stopped are
// activated but not started.
func (p *Dynamic[T]) Stop(ctx context.Context) error {
	var errs error
	p.cache.Locked(func(all []*Instance[T]) {
		p.lifecycle.Stop()
		for _, inst := range all {
			if err := inst.tracker.Stop(ctx); err != nil {
				errs = multierror.Append(errs, p.lifecycleError(inst, lifecycle.Stopped, err))
			}
		}
	})
	log.Debugw("Provider stopped", "provider", p.name)
	return errs
}

// Close disposes of the provider. Every cached instance is deactivated and
// removed, whether in use or not, and all OnEvicted channels are closed.
// Subsequent calls to Get return ErrClosed.
func (p *Dynamic[T]) Close() error {
	var errs error
	p.closeOnce.Do(func() {
		all := p.cache.RemoveAll(p.lifecycle.Dispose)
		p.metrics.cached.Sub(float64(len(all)))
		errs = p.deactivate(context.Background(), all, false)
		p.evicted.close()
		log.Infow("Provider closed", "provider", p.name, "instances", len(all))
	})
	return errs
}

// SweepExpired evicts every cached instance that has no operations in flight
// and is expired according to the provider's expiration policy, and
// deactivates the evicted instances. It returns the number of instances
// evicted.
//
// Deactivation failures do not stop the sweep; they are returned together as
// a multierror of *DeactivationError. It is safe to call when nothing is
// eligible, but it must not be called concurrently with itself.
func (p *Dynamic[T]) SweepExpired(ctx context.Context) (int, error) {
	expired := p.Expired()
	if len(expired) == 0 {
		return 0, nil
	}
	errs := p.deactivate(ctx, expired, true)
	log.Infow("Swept expired configuration instances", "provider", p.name, "evicted", len(expired), "remaining", p.cache.Len())
	return len(expired), errs
}

// Expired removes and returns every cached instance that is idle and expired,
// without deactivating them. The caller takes ownership of the returned
// instances and must deactivate them.
func (p *Dynamic[T]) Expired() []*Instance[T] {
	expired := p.cache.EvictIdle(p.policy, p.clock.Now())
	if len(expired) != 0 {
		p.metrics.evicted.Add(float64(len(expired)))
		p.metrics.cached.Sub(float64(len(expired)))
	}
	return expired
}

// Deactivate deactivates an instance previously returned by Expired. It
// returns ErrInstanceCached, without deactivating, if inst is still cached.
func (p *Dynamic[T]) Deactivate(ctx context.Context, inst *Instance[T]) error {
	if cur, ok := p.cache.Get(inst.Key()); ok && cur == inst {
		return ErrInstanceCached
	}
	if err := inst.tracker.Deactivate(ctx); err != nil {
		p.metrics.deactivateErrors.Inc()
		return &DeactivationError{
			Provider: p.name,
			Key:      inst.Key(),
			Err:      err,
		}
	}
	return nil
}

func (p *Dynamic[T]) deactivate(ctx context.Context, insts []*Instance[T], notify bool) error {
	var errs error
	for _, inst := range insts {
		err := p.Deactivate(ctx, inst)
		if err != nil {
			log.Errorw("Cannot deactivate instance", "err", err, "provider", p.name, "key", inst.Key())
			errs = multierror.Append(errs, err)
		}
		if notify {
			p.evicted.publish(EvictedEvent{
				Provider: p.name,
				Key:      inst.Key(),
				Err:      err,
			})
		}
	}
	return errs
}

// OnEvicted creates a channel that receives an EvictedEvent for every
// instance removed by SweepExpired. The channel is unbounded, so a slow
// reader never blocks a sweep.
//
// Calling the returned cancel function stops notification and closes the
// channel. Closing the provider closes all channels.
func (p *Dynamic[T]) OnEvicted() (<-chan EvictedEvent, context.CancelFunc) {
	return p.evicted.subscribe()
}
