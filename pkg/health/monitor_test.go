package health

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/harness/pkg/types"
)

type fakeSink struct {
	mu     sync.Mutex
	states []types.ServiceState
}

func (f *fakeSink) SetServiceHealth(string, types.HealthResult) error { return nil }

func (f *fakeSink) SetServiceState(name string, state types.ServiceState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
	return nil
}

func (f *fakeSink) snapshot() []types.ServiceState {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.ServiceState, len(f.states))
	copy(out, f.states)
	return out
}

type alwaysFail struct{}

func (alwaysFail) Check(ctx context.Context) Result {
	return Result{Healthy: false, CheckedAt: time.Now()}
}
func (alwaysFail) Type() CheckType { return CheckTypeExec }

func TestMonitorReportsStateOnlyOnTransition(t *testing.T) {
	sink := &fakeSink{}
	cfg := Config{Retries: 2, Interval: 5 * time.Millisecond, Timeout: time.Second}
	m := NewMonitor("echo", alwaysFail{}, cfg, sink)

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)

	deadline := time.After(time.Second)
	for {
		if len(sink.snapshot()) >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("monitor never reported an unhealthy transition")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	m.Stop()

	states := sink.snapshot()
	if len(states) != 1 {
		t.Fatalf("expected exactly one state transition (healthy->unhealthy), got %v", states)
	}
	if states[0] != types.ServiceUnhealthy {
		t.Fatalf("expected Unhealthy, got %s", states[0])
	}
}
