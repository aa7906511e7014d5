// Package dyncache provides the deduplicating, self-expiring cache behind a
// dynamic configuration provider.
//
// The cache maps a resolver.Key to exactly one value. Lookups of cached keys
// only take a shared lock, so concurrent readers do not contend with each
// other. Creation of a missing value happens under an exclusive lock, after
// re-checking that no other caller created it first. This serializes
// construction for all keys of one cache, but never blocks lookups of keys
// that are already cached while no construction is running.
//
// ## Usage Accounting
//
// Every value returned by GetOrCreate has had BeginUse called on its
// statistics before the lock that found or created it was released. An
// eviction sweep, which holds the exclusive lock, therefore always sees a
// returned value as busy until the caller calls EndUse.
//
// ## Eviction
//
// EvictIdle removes every value that has no operations in flight and that the
// expiration policy considers expired. Removed values are returned to the
// caller to be deactivated outside of the lock. A removed value is never
// returned again; the next lookup of its key creates a new value.
package dyncache
