// Package lifecycle sequences the activation, start, stop and deactivation of
// configuration instances and of the providers that own them.
//
// Instance values take part in the lifecycle by implementing any of the
// optional hook interfaces Activator, Starter, Stopper and Deactivator. A
// value that implements none of them still has its phase tracked.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// ErrDeactivated is returned when a transition is requested on something that
// has already been deactivated.
var ErrDeactivated = errors.New("already deactivated")

// Phase is the lifecycle phase of an instance.
type Phase int

const (
	Constructed Phase = iota
	Activated
	Started
	Stopped
	Deactivated
)

func (p Phase) String() string {
	switch p {
	case Constructed:
		return "constructed"
	case Activated:
		return "activated"
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	case Deactivated:
		return "deactivated"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Activator is implemented by values that need initialisation before use.
type Activator interface {
	Activate(context.Context) error
}

// Starter is implemented by values that run once the owning provider has
// started.
type Starter interface {
	Start(context.Context) error
}

// Stopper is implemented by values that must be stopped when the owning
// provider stops or before deactivation.
type Stopper interface {
	Stop(context.Context) error
}

// Deactivator is implemented by values that release resources when removed.
type Deactivator interface {
	Deactivate(context.Context) error
}

// Tracker runs the lifecycle hooks of one value and records its phase. It is
// safe for concurrent use. A hook that fails leaves the phase unchanged,
// except for deactivation, which happens exactly once whatever the outcome.
type Tracker struct {
	mu     sync.Mutex
	phase  Phase
	target any
}

// NewTracker creates a Tracker in the Constructed phase for target.
func NewTracker(target any) *Tracker {
	return &Tracker{
		target: target,
	}
}

// Phase returns the current phase.
func (t *Tracker) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Activate runs the Activator hook if the target has not been activated yet.
func (t *Tracker) Activate(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activate(ctx)
}

func (t *Tracker) activate(ctx context.Context) error {
	switch t.phase {
	case Deactivated:
		return ErrDeactivated
	case Constructed:
	default:
		return nil
	}
	if a, ok := t.target.(Activator); ok {
		if err := a.Activate(ctx); err != nil {
			return fmt.Errorf("cannot activate: %w", err)
		}
	}
	t.phase = Activated
	return nil
}

// Start runs the Starter hook, activating first if needed. Starting an
// already started target does nothing. A stopped target can be started again.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.phase {
	case Deactivated:
		return ErrDeactivated
	case Started:
		return nil
	case Constructed:
		if err := t.activate(ctx); err != nil {
			return err
		}
	}
	if s, ok := t.target.(Starter); ok {
		if err := s.Start(ctx); err != nil {
			return fmt.Errorf("cannot start: %w", err)
		}
	}
	t.phase = Started
	return nil
}

// Stop runs the Stopper hook if the target is started.
func (t *Tracker) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop(ctx)
}

func (t *Tracker) stop(ctx context.Context) error {
	if t.phase != Started {
		return nil
	}
	if s, ok := t.target.(Stopper); ok {
		if err := s.Stop(ctx); err != nil {
			return fmt.Errorf("cannot stop: %w", err)
		}
	}
	t.phase = Stopped
	return nil
}

// Deactivate stops the target if it is started and then runs the Deactivator
// hook. The hook runs at most once, even if the target was never activated.
// Later calls return nil.
func (t *Tracker) Deactivate(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase == Deactivated {
		return nil
	}

	var errs error
	if err := t.stop(ctx); err != nil {
		errs = multierror.Append(errs, err)
	}
	if d, ok := t.target.(Deactivator); ok {
		if err := d.Deactivate(ctx); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("cannot deactivate: %w", err))
		}
	}
	t.phase = Deactivated
	return errs
}
