package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunForwardStartsLeavesBeforeDependents exercises spec §8 scenario 2:
// a chain of services must start in dependency order. It checks that every
// node starts after its dependencies and that web starts last.
func TestRunForwardStartsLeavesBeforeDependents(t *testing.T) {
	graph, err := Build([]Node{
		{Name: "web", DependsOn: []string{"api"}},
		{Name: "api", DependsOn: []string{"db", "cache"}},
		{Name: "db"},
		{Name: "cache"},
	})
	require.NoError(t, err)

	var mu sync.Mutex
	var order []string
	started := map[string]bool{}

	start := func(ctx context.Context, name string) error {
		mu.Lock()
		for _, dep := range mustNode(t, graph, name).DependsOn {
			assert.True(t, started[dep], "%s started before its dependency %s", name, dep)
		}
		started[name] = true
		order = append(order, name)
		mu.Unlock()
		return nil
	}

	s := New()
	require.NoError(t, s.RunForward(context.Background(), graph, start))

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, order, 4)
	assert.Equal(t, "web", order[len(order)-1], "web depends on everything else, so it starts last")
}

// TestRunForwardAbortsOnLayerFailure exercises the dependency-failure
// propagation invariant: a failing node prevents its dependents' layer
// from ever running.
func TestRunForwardAbortsOnLayerFailure(t *testing.T) {
	graph, err := Build([]Node{
		{Name: "web", DependsOn: []string{"db"}},
		{Name: "db"},
	})
	require.NoError(t, err)

	var webStarted atomic.Bool
	start := func(ctx context.Context, name string) error {
		if name == "db" {
			return fmt.Errorf("connection refused")
		}
		webStarted.Store(true)
		return nil
	}

	s := New()
	err = s.RunForward(context.Background(), graph, start)
	assert.Error(t, err)
	assert.False(t, webStarted.Load(), "web must not start once its dependency failed")
}

// TestRunReverseStopsDependentsBeforeLeaves checks shutdown order is the
// mirror image of startup order.
func TestRunReverseStopsDependentsBeforeLeaves(t *testing.T) {
	graph, err := Build([]Node{
		{Name: "web", DependsOn: []string{"db"}},
		{Name: "db"},
	})
	require.NoError(t, err)

	var mu sync.Mutex
	var order []string
	stop := func(ctx context.Context, name string, force bool) error {
		mu.Lock()
		order = append(order, name)
		mu.Unlock()
		return nil
	}

	s := New()
	require.NoError(t, s.RunReverse(context.Background(), graph, stop, false))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 2)
	assert.Equal(t, "web", order[0], "dependents stop before the leaves they depend on")
	assert.Equal(t, "db", order[1])
}

// TestRunReverseIsBestEffort checks that one node failing to stop does not
// prevent the rest of the graph from being asked to stop too.
func TestRunReverseIsBestEffort(t *testing.T) {
	graph, err := Build([]Node{
		{Name: "web", DependsOn: []string{"db"}},
		{Name: "db"},
	})
	require.NoError(t, err)

	var dbStopped atomic.Bool
	stop := func(ctx context.Context, name string, force bool) error {
		if name == "web" {
			return fmt.Errorf("stuck process")
		}
		dbStopped.Store(true)
		return nil
	}

	s := New()
	err = s.RunReverse(context.Background(), graph, stop, false)
	assert.Error(t, err)
	assert.True(t, dbStopped.Load(), "db must still be stopped even though web failed to stop")
}

// TestRunForwardRespectsCancellation ensures a context cancelled mid-run
// stops the scheduler from starting further layers.
func TestRunForwardRespectsCancellation(t *testing.T) {
	graph, err := Build([]Node{
		{Name: "a"},
		{Name: "b", DependsOn: []string{"a"}},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var bStarted atomic.Bool
	start := func(ctx context.Context, name string) error {
		if name == "a" {
			cancel()
			time.Sleep(5 * time.Millisecond)
		}
		if name == "b" {
			bStarted.Store(true)
		}
		return nil
	}

	s := New()
	err = s.RunForward(ctx, graph, start)
	assert.Error(t, err)
	assert.False(t, bStarted.Load())
}

func mustNode(t *testing.T, g *Graph, name string) Node {
	t.Helper()
	n, ok := g.Node(name)
	require.True(t, ok)
	return n
}
