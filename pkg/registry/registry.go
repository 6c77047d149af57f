// Package registry is the orchestrator's authoritative in-memory record of
// services and tasks (spec §4.D): an in-memory map backed by a pluggable
// persistence Backend, with an event bus that fans out registry occurrences
// to subscribers filtered by event kind. Grounded on warren's
// pkg/events/events.go Broker (buffered per-subscriber channel, non-blocking
// broadcast) extended with the per-subscriber kind filter this spec's
// Subscription model requires.
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/harness/pkg/herrors"
	"github.com/cuemby/harness/pkg/log"
	"github.com/cuemby/harness/pkg/types"
)

var registryLogger = log.WithComponent("registry")

// Registry holds the live service/task state and fans out events to
// subscribers. The zero value is not valid; construct with New.
type Registry struct {
	mu       sync.RWMutex
	services map[string]types.ServiceEntry
	tasks    map[string]types.TaskEntry

	backend Backend

	subMu sync.RWMutex
	subs  map[string]*subscription
}

type subscription struct {
	ch     chan types.Event
	kinds  map[types.EventKind]bool // nil/empty means "all kinds"
}

// New constructs a Registry backed by backend, loading any persisted state.
func New(backend Backend) (*Registry, error) {
	r := &Registry{
		services: make(map[string]types.ServiceEntry),
		tasks:    make(map[string]types.TaskEntry),
		backend:  backend,
		subs:     make(map[string]*subscription),
	}

	services, err := backend.LoadServices()
	if err != nil {
		return nil, herrors.Wrap(herrors.Registry, "load services", err)
	}
	for _, s := range services {
		r.services[s.Name] = s
	}

	tasks, err := backend.LoadTasks()
	if err != nil {
		return nil, herrors.Wrap(herrors.Registry, "load tasks", err)
	}
	for _, t := range tasks {
		r.tasks[t.Name] = t
	}

	r.emit(types.Event{
		Kind:      types.EventRegistryLoaded,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"services": len(services),
			"tasks":    len(tasks),
		},
	})

	return r, nil
}

// RegisterService adds a new service in ServiceRegistered state. It is an
// error to register a name that already exists.
func (r *Registry) RegisterService(entry types.ServiceEntry) error {
	r.mu.Lock()
	if _, exists := r.services[entry.Name]; exists {
		r.mu.Unlock()
		return herrors.New(herrors.Registry, "service already registered: "+entry.Name)
	}
	entry.State = types.ServiceRegistered
	entry.RegisteredAt = time.Now()
	entry.LastStateChangeAt = entry.RegisteredAt
	r.services[entry.Name] = entry
	r.mu.Unlock()

	if err := r.backend.SaveService(entry); err != nil {
		return herrors.Wrap(herrors.Registry, "persist service", err)
	}
	r.emit(types.Event{Kind: types.EventServiceRegistered, Name: entry.Name, Timestamp: time.Now()})
	return nil
}

// GetService returns the current entry for name.
func (r *Registry) GetService(name string) (types.ServiceEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.services[name]
	return entry, ok
}

// ListServices returns a snapshot of all registered services.
func (r *Registry) ListServices() []types.ServiceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ServiceEntry, 0, len(r.services))
	for _, s := range r.services {
		out = append(out, s)
	}
	return out
}

// SetServiceState transitions a service's state, recording the transition
// time and persisting + emitting the change. The registry does not reject
// any transition (see DESIGN.md Open Questions) — the scheduler and health
// monitor are responsible for only issuing legal ones.
func (r *Registry) SetServiceState(name string, state types.ServiceState) error {
	r.mu.Lock()
	entry, ok := r.services[name]
	if !ok {
		r.mu.Unlock()
		return herrors.New(herrors.Registry, "service not found: "+name)
	}
	entry.State = state
	entry.LastStateChangeAt = time.Now()
	r.services[name] = entry
	r.mu.Unlock()

	if err := r.backend.SaveService(entry); err != nil {
		return herrors.Wrap(herrors.Registry, "persist service", err)
	}
	r.emit(types.Event{
		Kind:      types.EventServiceStateChanged,
		Name:      name,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"state": string(state)},
	})
	return nil
}

// SetServiceEndpoints replaces a service's endpoint list and emits
// EndpointUpdated.
func (r *Registry) SetServiceEndpoints(name string, endpoints []types.Endpoint) error {
	r.mu.Lock()
	entry, ok := r.services[name]
	if !ok {
		r.mu.Unlock()
		return herrors.New(herrors.Registry, "service not found: "+name)
	}
	entry.Endpoints = endpoints
	r.services[name] = entry
	r.mu.Unlock()

	if err := r.backend.SaveService(entry); err != nil {
		return herrors.Wrap(herrors.Registry, "persist service", err)
	}
	r.emit(types.Event{Kind: types.EventEndpointUpdated, Name: name, Timestamp: time.Now()})
	return nil
}

// SetServiceHealth records a health probe result and emits HealthCheckResult.
func (r *Registry) SetServiceHealth(name string, result types.HealthResult) error {
	r.mu.Lock()
	entry, ok := r.services[name]
	if !ok {
		r.mu.Unlock()
		return herrors.New(herrors.Registry, "service not found: "+name)
	}
	entry.LastHealthResult = &result
	r.services[name] = entry
	r.mu.Unlock()

	if err := r.backend.SaveService(entry); err != nil {
		return herrors.Wrap(herrors.Registry, "persist service", err)
	}
	r.emit(types.Event{
		Kind:      types.EventHealthCheckResult,
		Name:      name,
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"healthy": result.Healthy, "message": result.Message},
	})
	return nil
}

// DeregisterService removes a service entirely.
func (r *Registry) DeregisterService(name string) error {
	r.mu.Lock()
	if _, ok := r.services[name]; !ok {
		r.mu.Unlock()
		return herrors.New(herrors.Registry, "service not found: "+name)
	}
	delete(r.services, name)
	r.mu.Unlock()

	if err := r.backend.DeleteService(name); err != nil {
		return herrors.Wrap(herrors.Registry, "delete service", err)
	}
	r.emit(types.Event{Kind: types.EventServiceDeregistered, Name: name, Timestamp: time.Now()})
	return nil
}

// RegisterTask adds a new task in TaskPending state.
func (r *Registry) RegisterTask(entry types.TaskEntry) error {
	r.mu.Lock()
	if _, exists := r.tasks[entry.Name]; exists {
		r.mu.Unlock()
		return herrors.New(herrors.Registry, "task already registered: "+entry.Name)
	}
	entry.State = types.TaskPending
	entry.RegisteredAt = time.Now()
	r.tasks[entry.Name] = entry
	r.mu.Unlock()

	if err := r.backend.SaveTask(entry); err != nil {
		return herrors.Wrap(herrors.Registry, "persist task", err)
	}
	return nil
}

// GetTask returns the current entry for name.
func (r *Registry) GetTask(name string) (types.TaskEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.tasks[name]
	return entry, ok
}

// ListTasks returns a snapshot of all registered tasks.
func (r *Registry) ListTasks() []types.TaskEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.TaskEntry, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	return out
}

// SetTaskState transitions a task's state. Completed and Failed are
// terminal; the scheduler never calls this again for a task once it has
// reached one of them.
func (r *Registry) SetTaskState(name string, state types.TaskState) error {
	r.mu.Lock()
	entry, ok := r.tasks[name]
	if !ok {
		r.mu.Unlock()
		return herrors.New(herrors.Registry, "task not found: "+name)
	}
	entry.State = state
	if state == types.TaskCompleted || state == types.TaskFailed {
		entry.FinishedAt = time.Now()
	}
	r.tasks[name] = entry
	r.mu.Unlock()

	if err := r.backend.SaveTask(entry); err != nil {
		return herrors.Wrap(herrors.Registry, "persist task", err)
	}
	return nil
}

// Subscribe registers a new subscriber whose channel receives only events
// whose Kind is in kinds (an empty kinds list means "all kinds").
// Unsubscribe with the returned id when done.
func (r *Registry) Subscribe(kinds ...types.EventKind) (string, <-chan types.Event) {
	filter := make(map[types.EventKind]bool, len(kinds))
	for _, k := range kinds {
		filter[k] = true
	}

	sub := &subscription{ch: make(chan types.Event, 64), kinds: filter}
	id := uuid.NewString()

	r.subMu.Lock()
	r.subs[id] = sub
	r.subMu.Unlock()

	return id, sub.ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (r *Registry) Unsubscribe(id string) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	if sub, ok := r.subs[id]; ok {
		delete(r.subs, id)
		close(sub.ch)
	}
}

// SubscriberCount returns the number of active subscribers.
func (r *Registry) SubscriberCount() int {
	r.subMu.RLock()
	defer r.subMu.RUnlock()
	return len(r.subs)
}

func (r *Registry) emit(event types.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	r.subMu.RLock()
	defer r.subMu.RUnlock()
	for _, sub := range r.subs {
		if len(sub.kinds) > 0 && !sub.kinds[event.Kind] {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			registryLogger.Warn().Str("kind", string(event.Kind)).Msg("subscriber buffer full, dropping event")
		}
	}
}

// ServiceStateCounts implements metrics.Source.
func (r *Registry) ServiceStateCounts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, s := range r.services {
		counts[string(s.State)]++
	}
	return counts
}

// TaskStateCounts implements metrics.Source.
func (r *Registry) TaskStateCounts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, t := range r.tasks {
		counts[string(t.State)]++
	}
	return counts
}

// Close closes the underlying backend.
func (r *Registry) Close() error {
	r.subMu.Lock()
	for id, sub := range r.subs {
		delete(r.subs, id)
		close(sub.ch)
	}
	r.subMu.Unlock()
	return r.backend.Close()
}
