package executor

import (
	"context"
	"strings"

	"github.com/cuemby/harness/pkg/command"
	"github.com/cuemby/harness/pkg/herrors"
)

// CommandAttacher drives an already-running service entirely through the
// pre-configured commands in AttachConfig, delegating their execution to an
// inner Launcher (so a layered launcher — SSH, sudo — can attach to a
// remote unit exactly as it would launch one). Grounded on the Rust
// original's generic command-backed Attacher impl.
type CommandAttacher struct {
	inner  Launcher
	target Target
	id     string
}

// NewCommandAttacher returns an Attacher that runs its status/log/lifecycle
// commands through inner against target.
func NewCommandAttacher(inner Launcher, target Target, id string) *CommandAttacher {
	return &CommandAttacher{inner: inner, target: target, id: id}
}

func (a *CommandAttacher) Attach(ctx context.Context, target Target, cfg AttachConfig) (EventStream, AttachedHandle, error) {
	if cfg.LogCommand == nil {
		return nil, nil, herrors.New(herrors.Config, "attach requires a log command")
	}
	events, handle, err := a.inner.Launch(ctx, target, cfg.LogCommand)
	if err != nil {
		return nil, nil, herrors.Wrap(herrors.Spawn, "attach log stream", err)
	}

	return events, &commandHandle{
		id:     a.id,
		inner:  a.inner,
		target: target,
		cfg:    cfg,
		logs:   handle,
	}, nil
}

type commandHandle struct {
	id     string
	inner  Launcher
	target Target
	cfg    AttachConfig
	logs   Handle
}

func (h *commandHandle) ID() string { return h.id }

func (h *commandHandle) Status(ctx context.Context) (ServiceStatus, error) {
	if h.cfg.StatusCommand == nil {
		return StatusUnknown, nil
	}
	out, code, err := h.runToCompletion(ctx, h.cfg.StatusCommand.Clone())
	if err != nil {
		return StatusUnknown, herrors.Wrap(herrors.Transport, "status command", err)
	}
	if code == 0 {
		return StatusRunning, nil
	}
	if strings.Contains(strings.ToLower(out), "not found") {
		return StatusUnknown, nil
	}
	return StatusStopped, nil
}

func (h *commandHandle) Disconnect() error { return h.logs.Close() }

func (h *commandHandle) Start(ctx context.Context) error {
	return h.runLifecycle(ctx, h.cfg.StartCommand, "start")
}

func (h *commandHandle) Stop(ctx context.Context) error {
	return h.runLifecycle(ctx, h.cfg.StopCommand, "stop")
}

func (h *commandHandle) Restart(ctx context.Context) error {
	return h.runLifecycle(ctx, h.cfg.RestartCommand, "restart")
}

func (h *commandHandle) Reload(ctx context.Context) error {
	return h.runLifecycle(ctx, h.cfg.ReloadCommand, "reload")
}

func (h *commandHandle) runLifecycle(ctx context.Context, cmd *command.Command, verb string) error {
	if cmd == nil {
		return herrors.New(herrors.Unsupported, verb+" command not configured")
	}
	_, code, err := h.runToCompletion(ctx, cmd.Clone())
	if err != nil {
		return herrors.Wrap(herrors.Spawn, verb, err)
	}
	if code != 0 {
		return herrors.New(herrors.Spawn, verb+" exited with non-zero status")
	}
	return nil
}

func (h *commandHandle) runToCompletion(ctx context.Context, cmd *command.Command) (string, int, error) {
	events, handle, err := h.inner.Launch(ctx, h.target, cmd)
	if err != nil {
		return "", -1, err
	}
	defer handle.Close()

	var out strings.Builder
	for ev := range events {
		if ev.Kind == EventStdout || ev.Kind == EventStderr {
			out.WriteString(ev.Line)
			out.WriteByte('\n')
		}
	}
	status, err := handle.Wait(ctx)
	if err != nil {
		return out.String(), -1, err
	}
	if status.Code != nil {
		return out.String(), *status.Code, nil
	}
	return out.String(), -1, nil
}
