package resolver

import (
	"context"
	"errors"
	"fmt"
)

// Result is the outcome of resolving a parameter set against an event. It
// carries the resolved parameters and the Key that identifies them.
type Result struct {
	params Params
	key    Key
}

// NewResult creates a Result from resolved parameter values.
func NewResult(values map[string]any) (Result, error) {
	params := NewParams(values)
	key, err := params.Key()
	if err != nil {
		return Result{}, err
	}
	return Result{
		params: params,
		key:    key,
	}, nil
}

func (r Result) Key() Key {
	return r.key
}

func (r Result) Params() Params {
	return r.params
}

// Resolver turns an invocation event into a resolved parameter set.
type Resolver interface {
	// Resolve evaluates the parameters against the event.
	Resolve(ctx context.Context, event any) (Result, error)
	// IsDynamic returns true if the result may differ between events.
	IsDynamic() bool
}

// ResolverFunc adapts a function to a dynamic Resolver.
type ResolverFunc func(context.Context, any) (Result, error)

func (f ResolverFunc) Resolve(ctx context.Context, event any) (Result, error) {
	return f(ctx, event)
}

func (f ResolverFunc) IsDynamic() bool {
	return true
}

// ValueResolver resolves the value of a single parameter.
type ValueResolver interface {
	Resolve(ctx context.Context, event any) (any, error)
	IsDynamic() bool
}

// ValueFunc adapts a function to a dynamic ValueResolver.
type ValueFunc func(context.Context, any) (any, error)

func (f ValueFunc) Resolve(ctx context.Context, event any) (any, error) {
	return f(ctx, event)
}

func (f ValueFunc) IsDynamic() bool {
	return true
}

type staticValue struct {
	v any
}

// Static returns a ValueResolver that always resolves to v.
func Static(v any) ValueResolver {
	return staticValue{v: v}
}

func (s staticValue) Resolve(context.Context, any) (any, error) {
	return s.v, nil
}

func (s staticValue) IsDynamic() bool {
	return false
}

// Set is a named collection of ValueResolvers that are evaluated together to
// produce a Result. A Set must not be modified once it is in use.
type Set struct {
	names     []string
	resolvers map[string]ValueResolver
}

// NewSet creates an empty resolver set.
func NewSet() *Set {
	return &Set{
		resolvers: make(map[string]ValueResolver),
	}
}

// Add adds a named value resolver to the set.
func (s *Set) Add(name string, vr ValueResolver) error {
	if name == "" {
		return errors.New("parameter name is empty")
	}
	if vr == nil {
		return fmt.Errorf("nil resolver for parameter %q", name)
	}
	if _, ok := s.resolvers[name]; ok {
		return fmt.Errorf("parameter %q already has a resolver", name)
	}
	s.names = append(s.names, name)
	s.resolvers[name] = vr
	return nil
}

// Resolve evaluates every resolver in the set against the event.
func (s *Set) Resolve(ctx context.Context, event any) (Result, error) {
	values := make(map[string]any, len(s.names))
	for _, name := range s.names {
		v, err := s.resolvers[name].Resolve(ctx, event)
		if err != nil {
			return Result{}, fmt.Errorf("cannot resolve parameter %q: %w", name, err)
		}
		values[name] = v
	}
	return NewResult(values)
}

// IsDynamic returns true if any resolver in the set is dynamic.
func (s *Set) IsDynamic() bool {
	for _, vr := range s.resolvers {
		if vr.IsDynamic() {
			return true
		}
	}
	return false
}
