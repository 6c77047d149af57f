package executors

import (
	"context"

	"github.com/cuemby/harness/pkg/command"
	"github.com/cuemby/harness/pkg/executor"
	"github.com/cuemby/harness/pkg/herrors"
	"github.com/cuemby/harness/pkg/types"
)

// ProcessExecutor runs a service as a plain managed process on the local
// host via executor.LocalLauncher.
type ProcessExecutor struct {
	launcher *executor.LocalLauncher
}

// NewProcessExecutor returns a ServiceExecutor for managed-process services.
func NewProcessExecutor() *ProcessExecutor {
	return &ProcessExecutor{launcher: executor.NewLocalLauncher()}
}

func (p *ProcessExecutor) Supports(kind types.DescriptorKind) bool {
	return kind == types.DescriptorManagedProcess
}

func (p *ProcessExecutor) Start(ctx context.Context, entry types.ServiceEntry, cmd *command.Command) (types.ExecutionDescriptor, executor.EventStream, executor.Handle, error) {
	target := executor.Target{Kind: executor.TargetManagedProcess}
	events, handle, err := p.launcher.Launch(ctx, target, cmd)
	if err != nil {
		return types.ExecutionDescriptor{}, nil, nil, err
	}

	return types.ExecutionDescriptor{
		Kind:   types.DescriptorManagedProcess,
		PID:    handle.PID(),
		Binary: cmd.Program(),
		Args:   cmd.Args(),
	}, events, handle, nil
}

func (p *ProcessExecutor) Attach(ctx context.Context, entry types.ServiceEntry) (executor.EventStream, executor.AttachedHandle, error) {
	return nil, nil, herrors.New(herrors.Unsupported, "managed-process services cannot be re-attached across a daemon restart")
}
