// Package provider implements a dynamic configuration provider.
//
// A Dynamic provider resolves the parameters of each request event with a
// resolver.Resolver, and returns the configuration instance built by its
// Factory for those parameters. Equivalent resolutions share one instance,
// which is created at most once even when many requests arrive for it at the
// same time.
//
// ## Borrowing
//
// Get returns a borrowed instance. The caller must call Release when done
// with it, including when returning early on error. Do wraps Get and Release
// for callers that use the instance within one function.
//
// ## Lifecycle
//
// A new instance catches up with its provider before it is returned: it is
// activated if the provider is initialised, and started if the provider is
// started. If that fails the instance is deactivated, is not cached, and the
// request fails with a *LifecycleError. Each instance tracks its own phase,
// so a provider can be stopped and started again and only the needed hooks
// run on each instance.
//
// ## Expiration
//
// The provider does not run any background goroutine. SweepExpired must be
// called by the application, or by a sweep.Sweeper, to evict and deactivate
// instances that are idle and expired by the provider's expiration policy.
// Instances with borrows outstanding are never evicted.
package provider
