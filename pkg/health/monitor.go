package health

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/harness/pkg/log"
	"github.com/cuemby/harness/pkg/types"
)

// Sink receives every probe result and the Monitor's public-status
// transitions. *registry.Registry
// satisfies this; declared here (not imported) to keep pkg/health a leaf
// dependency, the same avoidance pattern pkg/metrics.Source uses.
type Sink interface {
	SetServiceHealth(name string, result types.HealthResult) error
	SetServiceState(name string, state types.ServiceState) error
}

// Monitor drives one Checker's probe loop for one service (spec §4.E's
// retry state machine). It records every probe result in its Sink, and
// pushes a state change to the Sink only when the service's public health
// status actually changes — not on every probe.
type Monitor struct {
	service string
	checker Checker
	config  Config
	sink    Sink

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor constructs a Monitor for service, driven by checker on the
// cadence in config, reporting transitions to sink.
func NewMonitor(service string, checker Checker, config Config, sink Sink) *Monitor {
	return &Monitor{
		service: service,
		checker: checker,
		config:  config,
		sink:    sink,
	}
}

// Start begins the probe loop in a background goroutine.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.run(ctx)
}

// Stop cancels the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	status := NewStatus()
	logger := log.WithService(m.service)

	if m.config.StartPeriod > 0 {
		select {
		case <-time.After(m.config.StartPeriod):
		case <-ctx.Done():
			return
		}
	}

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	wasHealthy := true // matches Status's own optimistic default
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkCtx, cancel := context.WithTimeout(ctx, m.config.Timeout)
			result := m.checker.Check(checkCtx)
			cancel()

			status.Update(result, m.config)

			if err := m.sink.SetServiceHealth(m.service, types.HealthResult{
				Healthy:   result.Healthy,
				Message:   result.Message,
				CheckedAt: result.CheckedAt,
				Duration:  result.Duration,
			}); err != nil {
				logger.Error().Err(err).Msg("failed to record health result")
			}

			if status.Healthy != wasHealthy {
				wasHealthy = status.Healthy
				state := types.ServiceRunning
				if !status.Healthy {
					state = types.ServiceUnhealthy
				}
				if err := m.sink.SetServiceState(m.service, state); err != nil {
					logger.Error().Err(err).Msg("failed to record state transition")
				}
			}
		}
	}
}

// Group supervises one Monitor per service, letting callers add/remove
// checks as the scheduler starts and stops services.
type Group struct {
	mu       sync.Mutex
	monitors map[string]*Monitor
}

// NewGroup returns an empty monitor Group.
func NewGroup() *Group {
	return &Group{monitors: make(map[string]*Monitor)}
}

// Add starts monitoring service, replacing any existing monitor for it.
func (g *Group) Add(ctx context.Context, service string, checker Checker, config Config, sink Sink) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.monitors[service]; ok {
		existing.Stop()
	}
	m := NewMonitor(service, checker, config, sink)
	g.monitors[service] = m
	m.Start(ctx)
}

// Remove stops monitoring service, if it is being monitored.
func (g *Group) Remove(service string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m, ok := g.monitors[service]; ok {
		m.Stop()
		delete(g.monitors, service)
	}
}

// StopAll stops every monitor in the group.
func (g *Group) StopAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for name, m := range g.monitors {
		m.Stop()
		delete(g.monitors, name)
	}
}
