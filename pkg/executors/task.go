package executors

import (
	"context"

	"github.com/cuemby/harness/pkg/command"
	"github.com/cuemby/harness/pkg/executor"
	"github.com/cuemby/harness/pkg/herrors"
	"github.com/cuemby/harness/pkg/types"
)

// TaskFactory maps a task's declared task-type string to the
// ServiceExecutor that knows how to run it, and runs a task to completion
// rather than leaving it attached (spec §4.H validation rule 3: "every
// task's task-type is registered in the task factory"). Grounded on this
// package's own Registry, keyed by string instead of DescriptorKind since
// task-types are author-chosen names, not the coarse execution taxonomy
// services dispatch on.
type TaskFactory struct {
	byType map[string]ServiceExecutor
}

// NewTaskFactory returns an empty TaskFactory.
func NewTaskFactory() *TaskFactory {
	return &TaskFactory{byType: make(map[string]ServiceExecutor)}
}

// Register binds taskType to exec, overwriting any previous binding.
func (f *TaskFactory) Register(taskType string, exec ServiceExecutor) {
	f.byType[taskType] = exec
}

// Supports reports whether taskType has a registered executor.
func (f *TaskFactory) Supports(taskType string) bool {
	_, ok := f.byType[taskType]
	return ok
}

// Run starts entry via taskType's registered executor and blocks until it
// exits, returning its ExitStatus. A non-zero exit or signal termination is
// the caller's signal to mark the task Failed rather than Completed.
func (f *TaskFactory) Run(ctx context.Context, taskType string, entry types.ServiceEntry, cmd *command.Command) (executor.ExitStatus, error) {
	exec, ok := f.byType[taskType]
	if !ok {
		return executor.ExitStatus{}, herrors.New(herrors.Unsupported, "no task factory entry for task-type "+taskType)
	}

	_, events, handle, err := exec.Start(ctx, entry, cmd)
	if err != nil {
		return executor.ExitStatus{}, err
	}
	go drainTaskEvents(events)

	return handle.Wait(ctx)
}

func drainTaskEvents(events executor.EventStream) {
	for range events {
	}
}
