package lifecycle

import (
	"errors"
	"sync"
)

// ErrNotInitialised is returned when starting a Manager that has not been
// initialised.
var ErrNotInitialised = errors.New("not initialised")

// Manager records which lifecycle phases of a provider have completed. New
// instances created by the provider consult it to catch up with the provider:
// an instance is activated if the provider is initialised, and started if the
// provider is started.
type Manager struct {
	mu          sync.RWMutex
	initialised bool
	started     bool
	disposed    bool
}

// Initialise marks the initialise phase complete.
func (m *Manager) Initialise() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return ErrDeactivated
	}
	m.initialised = true
	return nil
}

// Start marks the start phase complete. Start may be called again after Stop.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return ErrDeactivated
	}
	if !m.initialised {
		return ErrNotInitialised
	}
	m.started = true
	return nil
}

// Stop clears the start phase.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.started = false
	m.mu.Unlock()
}

// Dispose marks the manager disposed. No further phase can complete.
func (m *Manager) Dispose() {
	m.mu.Lock()
	m.started = false
	m.disposed = true
	m.mu.Unlock()
}

func (m *Manager) IsInitialised() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialised && !m.disposed
}

func (m *Manager) IsStarted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.started
}

func (m *Manager) IsDisposed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.disposed
}
