// Package state tracks the lifecycle of every service and task the
// scheduler manages, and lets callers wait for a unit to reach readiness
// without polling. It is intentionally small: a name-keyed map of the
// current state plus one completion channel per name, mirroring the
// struct-with-mutex shape of warren's pkg/events Broker but without any fan-out —
// a unit has exactly one current lifecycle, not a stream of subscribers.
package state

import (
	"context"
	"sync"

	"github.com/cuemby/harness/pkg/types"
)

// Lifecycle is a unit's current state, shared between services and tasks
// per spec §4.I (service and task states overlap almost entirely).
type Lifecycle string

const (
	Pending   Lifecycle = "pending"
	Starting  Lifecycle = "starting"
	Running   Lifecycle = "running"
	Stopping  Lifecycle = "stopping"
	Stopped   Lifecycle = "stopped"
	Completed Lifecycle = "completed"
	Failed    Lifecycle = "failed"
	Unhealthy Lifecycle = "unhealthy"
)

// terminal reports whether reaching state should release any Wait callers
// blocked on this unit settling — either because it succeeded (running,
// completed) or because it failed outright.
func terminal(l Lifecycle) bool {
	switch l {
	case Running, Completed, Failed, Stopped:
		return true
	default:
		return false
	}
}

// FromServiceState projects a registry ServiceState onto a Lifecycle.
func FromServiceState(s types.ServiceState) Lifecycle {
	switch s {
	case types.ServiceRegistered:
		return Pending
	case types.ServiceStarting:
		return Starting
	case types.ServiceRunning:
		return Running
	case types.ServiceStopping:
		return Stopping
	case types.ServiceStopped:
		return Stopped
	case types.ServiceUnhealthy:
		return Unhealthy
	case types.ServiceFailed:
		return Failed
	default:
		return Pending
	}
}

// FromTaskState projects a registry TaskState onto a Lifecycle.
func FromTaskState(s types.TaskState) Lifecycle {
	switch s {
	case types.TaskPending:
		return Pending
	case types.TaskRunning:
		return Starting
	case types.TaskCompleted:
		return Completed
	case types.TaskFailed:
		return Failed
	default:
		return Pending
	}
}

// entry pairs a unit's current lifecycle with the completion channel its
// waiters block on. The channel is closed the moment the unit reaches a
// terminal state, and replaced with a fresh one if the unit is later
// re-armed (restarted back into Pending/Starting).
type entry struct {
	state Lifecycle
	done  chan struct{}
}

// Manager is the name -> Lifecycle map plus per-name completion channels.
type Manager struct {
	mu    sync.Mutex
	units map[string]*entry
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{units: make(map[string]*entry)}
}

// Set records name's new lifecycle state, releasing any Wait callers if
// the new state is terminal. Setting a non-terminal state on a unit whose
// previous completion channel was already closed re-arms it with a fresh
// channel, so a restarted unit can be waited on again.
func (m *Manager) Set(name string, l Lifecycle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.units[name]
	if !ok {
		e = &entry{done: make(chan struct{})}
		m.units[name] = e
	}

	select {
	case <-e.done:
		// previous generation already settled; re-arm for the new one
		if !terminal(l) {
			e.done = make(chan struct{})
		}
	default:
	}

	e.state = l
	if terminal(l) {
		select {
		case <-e.done:
		default:
			close(e.done)
		}
	}
}

// Get returns name's current lifecycle, or false if it is not tracked.
func (m *Manager) Get(name string) (Lifecycle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.units[name]
	if !ok {
		return "", false
	}
	return e.state, true
}

// Wait blocks until name reaches a terminal lifecycle state or the context
// is cancelled. A name that is not tracked yet starts being tracked, and
// Wait blocks until a later Set gives it a terminal state. It returns the
// lifecycle observed at the moment it settled.
func (m *Manager) Wait(ctx context.Context, name string) (Lifecycle, error) {
	m.mu.Lock()
	e, ok := m.units[name]
	if !ok {
		e = &entry{done: make(chan struct{})}
		m.units[name] = e
	}
	done := e.done
	m.mu.Unlock()

	select {
	case <-done:
		m.mu.Lock()
		state := m.units[name].state
		m.mu.Unlock()
		return state, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// All returns a snapshot of every tracked unit's current lifecycle.
func (m *Manager) All() map[string]Lifecycle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Lifecycle, len(m.units))
	for name, e := range m.units {
		out[name] = e.state
	}
	return out
}

// Remove stops tracking name entirely (used when a service or task is
// deregistered from the system, not merely stopped).
func (m *Manager) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.units, name)
}
