package daemon

import (
	"context"
	"encoding/json"

	"github.com/cuemby/harness/pkg/types"
)

// Backend is the subset of the orchestrator (scheduler + registry + health
// monitor group) the daemon transport needs. It is declared locally, not
// imported from a concrete package, so pkg/daemon never depends on
// pkg/scheduler/pkg/registry directly — the same dependency-injection-
// avoidance pattern as metrics.Source and health.Sink. Whatever type wires
// the scheduler, registry, discovery, and config packages together (built
// in cmd/harnessd) implements this interface.
type Backend interface {
	StartService(ctx context.Context, name string, config json.RawMessage) (types.ServiceEntry, map[string]string, error)
	StopService(ctx context.Context, name string, force bool) error
	GetServiceStatus(ctx context.Context, name string) (types.ServiceEntry, error)
	ListServices(ctx context.Context) (map[string]types.ServiceEntry, error)
	RunHealthChecks(ctx context.Context, name string) (map[string]types.HealthResult, error)
	Shutdown(ctx context.Context) error
}

// EventSource is the registry subset the daemon needs to fan events out to
// subscribed connections.
type EventSource interface {
	Subscribe(kinds ...types.EventKind) (string, <-chan types.Event)
	Unsubscribe(id string)
}

func viewFromEntry(e types.ServiceEntry) ServiceStatusView {
	v := ServiceStatusView{
		Name:  e.Name,
		State: string(e.State),
	}
	if e.LastHealthResult != nil {
		v.Healthy = e.LastHealthResult.Healthy
		v.Message = e.LastHealthResult.Message
	}
	if !e.LastStateChangeAt.IsZero() {
		v.UpdatedAt = e.LastStateChangeAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return v
}
