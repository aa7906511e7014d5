package provider

import (
	"errors"
	"fmt"

	"github.com/ipni/go-dynconf/lifecycle"
	"github.com/ipni/go-dynconf/resolver"
)

// ErrClosed is returned by a provider that has been closed.
var ErrClosed = errors.New("provider closed")

// ErrInstanceCached is returned when deactivating an instance that has not
// been removed from the cache.
var ErrInstanceCached = errors.New("instance is still cached")

// ResolutionError is returned when the resolver cannot produce a key from an
// event. The cache is not changed.
type ResolutionError struct {
	Provider string
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("provider %s: cannot resolve parameters: %s", e.Provider, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ConstructionError is returned when the factory fails to create an instance.
// Nothing is cached, and the next request for the same key tries again.
type ConstructionError struct {
	Provider string
	Key      resolver.Key
	Err      error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("provider %s: cannot create instance %s: %s", e.Provider, e.Key, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// LifecycleError is returned when a lifecycle transition of an instance
// fails. Phase is the phase that could not be reached.
type LifecycleError struct {
	Provider string
	Key      resolver.Key
	Phase    lifecycle.Phase
	Err      error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("provider %s: instance %s not %s: %s", e.Provider, e.Key, e.Phase, e.Err)
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// DeactivationError reports an instance that failed to deactivate after it
// was removed from the cache. It is not put back into the cache.
type DeactivationError struct {
	Provider string
	Key      resolver.Key
	Err      error
}

func (e *DeactivationError) Error() string {
	return fmt.Sprintf("provider %s: cannot deactivate instance %s: %s", e.Provider, e.Key, e.Err)
}

func (e *DeactivationError) Unwrap() error {
	return e.Err
}
