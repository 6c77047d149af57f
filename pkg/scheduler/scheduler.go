package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/cuemby/harness/pkg/herrors"
	"github.com/cuemby/harness/pkg/log"
	"github.com/cuemby/harness/pkg/metrics"
)

// StartFunc launches name and blocks until it is ready (running and healthy
// for a service, completed for a task) or returns an error. A StartFunc
// error is treated as a terminal failure for that node's whole subtree
// (spec §4.H's dependency-failure propagation).
type StartFunc func(ctx context.Context, name string) error

// StopFunc stops name. If force is true the implementation should not wait
// out a graceful shutdown window before escalating.
type StopFunc func(ctx context.Context, name string, force bool) error

// Scheduler drives forward and reverse passes over a Graph, running each
// layer's members concurrently and gating advancement to the next layer on
// every member of the current one succeeding.
type Scheduler struct{}

// New returns a Scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// RunForward executes graph's layers in dependency order: every node in a
// layer is started concurrently, and the scheduler only advances to the
// next layer once the whole layer has succeeded. A failure anywhere in a
// layer aborts all later layers, since anything in them may depend on the
// node that failed.
func (s *Scheduler) RunForward(ctx context.Context, graph *Graph, start StartFunc) error {
	logger := log.WithRun(uuid.NewString())
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i, layer := range graph.Layers() {
		if err := ctx.Err(); err != nil {
			metrics.SchedulerRunsTotal.WithLabelValues("forward", "cancelled").Inc()
			return herrors.Wrap(herrors.Cancelled, "forward run cancelled", err)
		}

		logger.Debug().Int("layer", i).Strs("nodes", layer).Msg("starting layer")
		timer := metrics.NewTimer()
		err := runLayerConcurrently(ctx, layer, start)
		timer.ObserveDurationVec(metrics.SchedulerLayerDuration, "forward")
		if err != nil {
			cancel()
			metrics.SchedulerRunsTotal.WithLabelValues("forward", "failed").Inc()
			return herrors.Wrap(herrors.Dependency, fmt.Sprintf("layer %d failed", i), err)
		}
	}

	metrics.SchedulerRunsTotal.WithLabelValues("forward", "succeeded").Inc()
	return nil
}

// RunReverse executes graph's layers in reverse dependency order — leaves
// first, then inward — stopping every node in a layer concurrently. Unlike
// RunForward, one node failing to stop does not block its siblings or
// abort later layers: shutdown always proceeds best-effort, and every
// per-node error is folded into the single returned error.
func (s *Scheduler) RunReverse(ctx context.Context, graph *Graph, stop StopFunc, force bool) error {
	var errsMu sync.Mutex
	var errs []error

	for _, layer := range graph.ReverseLayers() {
		timer := metrics.NewTimer()
		var wg sync.WaitGroup
		for _, name := range layer {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				if err := stop(ctx, name, force); err != nil {
					errsMu.Lock()
					errs = append(errs, fmt.Errorf("%s: %w", name, err))
					errsMu.Unlock()
				}
			}(name)
		}
		wg.Wait()
		timer.ObserveDurationVec(metrics.SchedulerLayerDuration, "reverse")
	}

	if len(errs) > 0 {
		metrics.SchedulerRunsTotal.WithLabelValues("reverse", "partial").Inc()
		return herrors.Wrap(herrors.Dependency, fmt.Sprintf("%d node(s) failed to stop cleanly", len(errs)), errors.Join(errs...))
	}
	metrics.SchedulerRunsTotal.WithLabelValues("reverse", "succeeded").Inc()
	return nil
}

// runLayerConcurrently runs fn over every name in a layer at once and
// returns the first error encountered, if any, after every goroutine in the
// layer has finished (siblings of a failing node still get to run so a
// partial layer failure doesn't leave the rest of the layer half-launched).
func runLayerConcurrently(ctx context.Context, names []string, fn StartFunc) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(names))

	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := fn(ctx, name); err != nil {
				errCh <- fmt.Errorf("%s: %w", name, err)
			}
		}(name)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		return err
	}
	return nil
}
