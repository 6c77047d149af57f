package executors

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/containerd/oci"

	"github.com/cuemby/harness/pkg/command"
	"github.com/cuemby/harness/pkg/executor"
	"github.com/cuemby/harness/pkg/herrors"
	"github.com/cuemby/harness/pkg/log"
	"github.com/cuemby/harness/pkg/types"
)

const (
	// Namespace is the containerd namespace services run under.
	Namespace = "harness"
	// DefaultSocket is the default containerd socket path.
	DefaultSocket = "/run/containerd/containerd.sock"
)

// DockerExecutor runs services as containerd-managed containers, grounded
// on warren's pkg/runtime.ContainerdRuntime (namespace scoping, pull +
// NewContainer + NewTask + Start, graceful-then-forced stop).
type DockerExecutor struct {
	client *containerd.Client
}

// NewDockerExecutor connects to containerd at socketPath (DefaultSocket if
// empty).
func NewDockerExecutor(socketPath string) (*DockerExecutor, error) {
	if socketPath == "" {
		socketPath = DefaultSocket
	}
	client, err := containerd.New(socketPath)
	if err != nil {
		return nil, herrors.Wrap(herrors.Spawn, "connect to containerd", err)
	}
	return &DockerExecutor{client: client}, nil
}

func (d *DockerExecutor) Close() error {
	return d.client.Close()
}

func (d *DockerExecutor) Supports(kind types.DescriptorKind) bool {
	return kind == types.DescriptorDockerContainer
}

func (d *DockerExecutor) Start(ctx context.Context, entry types.ServiceEntry, cmd *command.Command) (types.ExecutionDescriptor, executor.EventStream, executor.Handle, error) {
	desc := entry.Descriptor
	if desc.Image == "" {
		return types.ExecutionDescriptor{}, nil, nil, herrors.New(herrors.Config, "docker-container descriptor requires an Image")
	}

	ctx = namespaces.WithNamespace(ctx, Namespace)

	image, err := d.client.Pull(ctx, desc.Image, containerd.WithPullUnpack)
	if err != nil {
		return types.ExecutionDescriptor{}, nil, nil, herrors.Wrap(herrors.Spawn, "pull image "+desc.Image, err)
	}

	containerID := desc.ContainerName
	if containerID == "" {
		containerID = entry.Name
	}

	env := make([]string, 0, len(cmd.Env()))
	for k, v := range cmd.Env() {
		env = append(env, k+"="+v)
	}

	opts := []oci.SpecOpts{oci.WithImageConfig(image), oci.WithEnv(env)}
	if len(cmd.Args()) > 0 || cmd.Program() != "" {
		opts = append(opts, oci.WithProcessArgs(append([]string{cmd.Program()}, cmd.Args()...)...))
	}

	container, err := d.client.NewContainer(
		ctx,
		containerID,
		containerd.WithImage(image),
		containerd.WithNewSnapshot(containerID+"-snapshot", image),
		containerd.WithNewSpec(opts...),
	)
	if err != nil {
		return types.ExecutionDescriptor{}, nil, nil, herrors.Wrap(herrors.Spawn, "create container", err)
	}

	events := make(chan executor.Event, 16)
	task, err := container.NewTask(ctx, cio.NewCreator(cio.WithStdio))
	if err != nil {
		return types.ExecutionDescriptor{}, nil, nil, herrors.Wrap(herrors.Spawn, "create task", err)
	}

	exitCh, err := task.Wait(ctx)
	if err != nil {
		return types.ExecutionDescriptor{}, nil, nil, herrors.Wrap(herrors.Spawn, "wait on task", err)
	}

	if err := task.Start(ctx); err != nil {
		return types.ExecutionDescriptor{}, nil, nil, herrors.Wrap(herrors.Spawn, "start task", err)
	}

	handle := &dockerHandle{task: task, containerID: containerID}
	events <- executor.Event{Kind: executor.EventStarted, PID: int(task.Pid())}

	go func() {
		status := <-exitCh
		code := int(status.ExitCode())
		handle.recordExit(executor.ExitStatus{Code: &code})
		events <- executor.Event{Kind: executor.EventExited, Exit: executor.ExitStatus{Code: &code}}
		close(events)
		if _, err := task.Delete(ctx); err != nil {
			log.WithComponent("executors.docker").Debug().Err(err).Str("container", containerID).Msg("task delete after exit")
		}
	}()

	return types.ExecutionDescriptor{
		Kind:          types.DescriptorDockerContainer,
		ContainerID:   containerID,
		Image:         desc.Image,
		ContainerName: containerID,
	}, events, handle, nil
}

func (d *DockerExecutor) Attach(ctx context.Context, entry types.ServiceEntry) (executor.EventStream, executor.AttachedHandle, error) {
	ctx = namespaces.WithNamespace(ctx, Namespace)

	containerID := entry.Descriptor.ContainerID
	if containerID == "" {
		containerID = entry.Descriptor.ContainerName
	}
	container, err := d.client.LoadContainer(ctx, containerID)
	if err != nil {
		return nil, nil, herrors.Wrap(herrors.NotRunning, "load container "+containerID, err)
	}
	task, err := container.Task(ctx, nil)
	if err != nil {
		return nil, nil, herrors.Wrap(herrors.NotRunning, "load task for "+containerID, err)
	}

	events := make(chan executor.Event, 1)
	close(events)
	return events, &dockerAttached{client: d.client, containerID: containerID, task: task}, nil
}

type dockerHandle struct {
	task        containerd.Task
	containerID string
	exited      bool
	exit        executor.ExitStatus
}

func (h *dockerHandle) recordExit(status executor.ExitStatus) {
	h.exited = true
	h.exit = status
}

func (h *dockerHandle) PID() int { return int(h.task.Pid()) }

func (h *dockerHandle) Wait(ctx context.Context) (executor.ExitStatus, error) {
	exitCh, err := h.task.Wait(ctx)
	if err != nil {
		return executor.ExitStatus{}, err
	}
	status := <-exitCh
	code := int(status.ExitCode())
	return executor.ExitStatus{Code: &code}, nil
}

func (h *dockerHandle) Terminate() error { return h.task.Kill(context.Background(), syscall.SIGTERM) }
func (h *dockerHandle) Kill() error      { return h.task.Kill(context.Background(), syscall.SIGKILL) }
func (h *dockerHandle) Interrupt() error { return h.task.Kill(context.Background(), syscall.SIGINT) }
func (h *dockerHandle) Reload() error {
	return herrors.New(herrors.Unsupported, "containerd tasks have no reload signal equivalent")
}

func (h *dockerHandle) Close() error {
	if !h.exited {
		_ = h.task.Kill(context.Background(), syscall.SIGKILL)
	}
	_, err := h.task.Delete(context.Background())
	return err
}

type dockerAttached struct {
	client      *containerd.Client
	containerID string
	task        containerd.Task
}

func (a *dockerAttached) ID() string { return a.containerID }

func (a *dockerAttached) Status(ctx context.Context) (executor.ServiceStatus, error) {
	ctx = namespaces.WithNamespace(ctx, Namespace)
	status, err := a.task.Status(ctx)
	if err != nil {
		return executor.StatusUnknown, err
	}
	switch status.Status {
	case containerd.Running:
		return executor.StatusRunning, nil
	case containerd.Stopped:
		return executor.StatusStopped, nil
	default:
		return executor.StatusUnknown, nil
	}
}

func (a *dockerAttached) Disconnect() error { return nil }

func (a *dockerAttached) Start(ctx context.Context) error {
	return a.task.Start(namespaces.WithNamespace(ctx, Namespace))
}

func (a *dockerAttached) Stop(ctx context.Context) error {
	ctx = namespaces.WithNamespace(ctx, Namespace)
	stopCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := a.task.Kill(stopCtx, syscall.SIGTERM); err != nil {
		return err
	}
	exitCh, err := a.task.Wait(stopCtx)
	if err != nil {
		return err
	}
	select {
	case <-exitCh:
	case <-stopCtx.Done():
		return a.task.Kill(ctx, syscall.SIGKILL)
	}
	return nil
}

func (a *dockerAttached) Restart(ctx context.Context) error {
	if err := a.Stop(ctx); err != nil {
		return err
	}
	return a.Start(ctx)
}

func (a *dockerAttached) Reload(ctx context.Context) error {
	return fmt.Errorf("%w", herrors.New(herrors.Unsupported, "containerd tasks have no reload equivalent"))
}
