// Package executors implements the ServiceExecutor strategy pattern (spec
// §4.F): implementations keyed by ExecutionDescriptor kind (ProcessExecutor
// and RemoteExecutor both handle managed-process), looked up by Registry.For
// as a first-match scan. Grounded on warren's pkg/worker/worker.go
// (a strategy struct per workload kind, chosen by the reconciler) and
// pkg/runtime/containerd.go (the real containerd client this package's
// Docker executor drives directly, rather than shelling to the `docker`
// CLI the way pkg/executor's ad hoc docker layers do).
package executors

import (
	"context"

	"github.com/cuemby/harness/pkg/command"
	"github.com/cuemby/harness/pkg/executor"
	"github.com/cuemby/harness/pkg/types"
)

// ServiceExecutor starts and attaches to one kind of service workload.
type ServiceExecutor interface {
	// Supports reports whether this executor can handle kind.
	Supports(kind types.DescriptorKind) bool

	// Start launches entry and returns the concrete descriptor recording
	// how it actually ended up running (PID, container ID, unit name).
	Start(ctx context.Context, entry types.ServiceEntry, cmd *command.Command) (types.ExecutionDescriptor, executor.EventStream, executor.Handle, error)

	// Attach reconnects to an already-running entry (used on daemon
	// restart to rediscover services it previously started).
	Attach(ctx context.Context, entry types.ServiceEntry) (executor.EventStream, executor.AttachedHandle, error)
}

// Registry picks the first ServiceExecutor whose Supports matches a
// descriptor kind, mirroring warren's reconciler workload dispatch.
type Registry struct {
	executors []ServiceExecutor
}

// NewRegistry builds a Registry that tries executors in order.
func NewRegistry(executors ...ServiceExecutor) *Registry {
	return &Registry{executors: executors}
}

// For returns the first registered executor supporting kind.
func (r *Registry) For(kind types.DescriptorKind) (ServiceExecutor, bool) {
	for _, e := range r.executors {
		if e.Supports(kind) {
			return e, true
		}
	}
	return nil, false
}
