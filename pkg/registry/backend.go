package registry

import (
	"github.com/cuemby/harness/pkg/types"
)

// Backend is the registry's pluggable persistence layer. It persists
// services and tasks; subscriptions live only in the Registry's memory and
// are not persisted. Grounded on warren's pkg/storage.Store shape, trimmed to
// the two buckets this domain needs.
type Backend interface {
	LoadServices() ([]types.ServiceEntry, error)
	SaveService(entry types.ServiceEntry) error
	DeleteService(name string) error

	LoadTasks() ([]types.TaskEntry, error)
	SaveTask(entry types.TaskEntry) error
	DeleteTask(name string) error

	Close() error
}

// MemoryBackend is a no-op Backend: state lives only in the Registry's own
// maps. Used for tests and for daemon runs with no --data-dir configured.
type MemoryBackend struct{}

// NewMemoryBackend returns a Backend that persists nothing.
func NewMemoryBackend() *MemoryBackend { return &MemoryBackend{} }

func (MemoryBackend) LoadServices() ([]types.ServiceEntry, error) { return nil, nil }
func (MemoryBackend) SaveService(types.ServiceEntry) error        { return nil }
func (MemoryBackend) DeleteService(string) error                  { return nil }
func (MemoryBackend) LoadTasks() ([]types.TaskEntry, error)       { return nil, nil }
func (MemoryBackend) SaveTask(types.TaskEntry) error              { return nil }
func (MemoryBackend) DeleteTask(string) error                     { return nil }
func (MemoryBackend) Close() error                                { return nil }
