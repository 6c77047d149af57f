package executors

import (
	"context"

	"github.com/cuemby/harness/pkg/command"
	"github.com/cuemby/harness/pkg/executor"
	"github.com/cuemby/harness/pkg/herrors"
	"github.com/cuemby/harness/pkg/types"
)

// RemoteExecutor runs a managed-process service on a remote host reached
// over SSH, wrapping its local launcher in pkg/executor's SSH layer (no
// sudo layer is applied), grounded on original_source's systemd_portable_ssh.rs composing SSH
// outside a systemd-portable layer.
type RemoteExecutor struct{}

// NewRemoteExecutor returns a ServiceExecutor for services whose Location
// is LocationRemote.
func NewRemoteExecutor() *RemoteExecutor {
	return &RemoteExecutor{}
}

func (r *RemoteExecutor) Supports(kind types.DescriptorKind) bool {
	return kind == types.DescriptorManagedProcess
}

// Start launches entry over SSH; entry.Location must be LocationRemote.
func (r *RemoteExecutor) Start(ctx context.Context, entry types.ServiceEntry, cmd *command.Command) (types.ExecutionDescriptor, executor.EventStream, executor.Handle, error) {
	if entry.Location.Kind != types.LocationRemote {
		return types.ExecutionDescriptor{}, nil, nil, herrors.New(herrors.Config, "RemoteExecutor requires a remote location")
	}

	layers := []executor.Layer{
		&executor.SSHLayer{Host: entry.Location.Host, User: entry.Location.User, Port: entry.Location.Port},
	}
	launcher := executor.NewLayeredLauncher(executor.NewLocalLauncher(), layers...)

	target := executor.Target{Kind: executor.TargetManagedProcess}
	events, handle, err := launcher.Launch(ctx, target, cmd)
	if err != nil {
		return types.ExecutionDescriptor{}, nil, nil, err
	}

	return types.ExecutionDescriptor{
		Kind:   types.DescriptorManagedProcess,
		Binary: cmd.Program(),
		Args:   cmd.Args(),
	}, events, handle, nil
}

func (r *RemoteExecutor) Attach(ctx context.Context, entry types.ServiceEntry) (executor.EventStream, executor.AttachedHandle, error) {
	return nil, nil, herrors.New(herrors.Unsupported, "remote managed-process services cannot be re-attached across a daemon restart")
}
