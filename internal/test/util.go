package test

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ipni/go-dynconf/resolver"
	"github.com/stretchr/testify/require"
)

var globalSeed atomic.Int64

// RandomParams returns n distinct random parameter sets.
func RandomParams(n int) []map[string]any {
	rng := rand.New(rand.NewSource(globalSeed.Add(1)))

	params := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		params[i] = map[string]any{
			"index": i,
			"host":  fmt.Sprintf("%d.%d.%d.%d", rng.Int()%255, rng.Int()%255, rng.Int()%255, rng.Int()%255),
			"port":  rng.Int() % 65535,
			"tls":   rng.Int()%2 == 0,
		}
	}
	return params
}

// RandomResults returns n resolver results with distinct keys.
func RandomResults(t testing.TB, n int) []resolver.Result {
	params := RandomParams(n)
	results := make([]resolver.Result, n)
	for i := range params {
		r, err := resolver.NewResult(params[i])
		require.NoError(t, err)
		results[i] = r
	}
	return results
}

// RandomKeys returns n distinct keys.
func RandomKeys(t testing.TB, n int) []resolver.Key {
	results := RandomResults(t, n)
	keys := make([]resolver.Key, n)
	for i := range results {
		keys[i] = results[i].Key()
	}
	return keys
}

// Resource is a configuration value that records calls to its lifecycle
// hooks. Hook errors can be injected by setting the *Err fields before the
// hooks run.
type Resource struct {
	Params resolver.Params

	ActivateErr   error
	StartErr      error
	StopErr       error
	DeactivateErr error

	Activations   atomic.Int32
	Starts        atomic.Int32
	Stops         atomic.Int32
	Deactivations atomic.Int32
}

func (r *Resource) Activate(context.Context) error {
	r.Activations.Add(1)
	return r.ActivateErr
}

func (r *Resource) Start(context.Context) error {
	r.Starts.Add(1)
	return r.StartErr
}

func (r *Resource) Stop(context.Context) error {
	r.Stops.Add(1)
	return r.StopErr
}

func (r *Resource) Deactivate(context.Context) error {
	r.Deactivations.Add(1)
	return r.DeactivateErr
}

// Factory creates Resources and keeps every one it created. Fail, if set, is
// called before each creation and can return an error to fail it, or modify
// the Resource to inject hook errors.
type Factory struct {
	Fail func(*Resource) error

	mu      sync.Mutex
	created []*Resource
}

func (f *Factory) Create(_ context.Context, _ string, res resolver.Result) (*Resource, error) {
	r := &Resource{
		Params: res.Params(),
	}
	if f.Fail != nil {
		if err := f.Fail(r); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	f.created = append(f.created, r)
	f.mu.Unlock()
	return r, nil
}

// Created returns all Resources created so far.
func (f *Factory) Created() []*Resource {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Resource, len(f.created))
	copy(out, f.created)
	return out
}

// ParamResolver resolves events that are parameter maps.
var ParamResolver = resolver.ResolverFunc(func(_ context.Context, event any) (resolver.Result, error) {
	params, ok := event.(map[string]any)
	if !ok {
		return resolver.Result{}, fmt.Errorf("unexpected event type %T", event)
	}
	return resolver.NewResult(params)
})
