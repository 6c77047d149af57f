package executor

import (
	"context"
	"strconv"
	"strings"

	"github.com/cuemby/harness/pkg/command"
	"github.com/cuemby/harness/pkg/herrors"
)

// SystemdPortableLauncher attaches a systemd-portable image and starts the
// resulting unit, supplementing the distilled spec with the portable-service
// deployment path the original implementation supported (systemd_portable
// integration tests in original_source).
type SystemdPortableLauncher struct {
	inner *LocalLauncher
}

// NewSystemdPortableLauncher returns a launcher that drives portablectl/
// systemctl on the local host.
func NewSystemdPortableLauncher() *SystemdPortableLauncher {
	return &SystemdPortableLauncher{inner: NewLocalLauncher()}
}

func (s *SystemdPortableLauncher) Launch(ctx context.Context, target Target, cmd *command.Command) (EventStream, Handle, error) {
	if target.Kind != TargetSystemdPortable {
		return nil, nil, herrors.New(herrors.Unsupported, "SystemdPortableLauncher requires a systemd-portable target")
	}
	attach := command.NewBuilder("portablectl").
		Arg("attach").Arg("--now").Arg("--enable").Arg(target.ImageName).Build()
	if err := runToCompletion(ctx, s.inner, target, attach); err != nil {
		return nil, nil, herrors.Wrap(herrors.Spawn, "portablectl attach", err)
	}

	start := command.NewBuilder("systemctl").Arg("start").Arg(target.UnitName).Build()
	return s.inner.Launch(ctx, target, start)
}

// SystemdAttacher consumes units already managed by systemd (spec's
// managed-process variant for pre-existing services), via systemctl for
// lifecycle control and journalctl for logs.
type SystemdAttacher struct {
	inner *LocalLauncher
}

// NewSystemdAttacher returns an Attacher driven by systemctl/journalctl.
func NewSystemdAttacher() *SystemdAttacher {
	return &SystemdAttacher{inner: NewLocalLauncher()}
}

func (s *SystemdAttacher) Attach(ctx context.Context, target Target, cfg AttachConfig) (EventStream, AttachedHandle, error) {
	if target.UnitName == "" {
		return nil, nil, herrors.New(herrors.Config, "systemd attach requires UnitName")
	}

	args := []string{"-u", target.UnitName, "-n", "0"}
	if cfg.Follow {
		args = append(args, "-f")
	} else if cfg.HistoryLines > 0 {
		args[len(args)-1] = strconv.Itoa(cfg.HistoryLines)
	}
	logCmd := command.NewBuilder("journalctl").Args(args...).Build()

	events, procHandle, err := s.inner.Launch(ctx, target, logCmd)
	if err != nil {
		return nil, nil, herrors.Wrap(herrors.Spawn, "journalctl attach", err)
	}

	return events, &systemdHandle{unit: target.UnitName, logs: procHandle}, nil
}

type systemdHandle struct {
	unit string
	logs Handle
}

func (h *systemdHandle) ID() string { return h.unit }

func (h *systemdHandle) Status(ctx context.Context) (ServiceStatus, error) {
	out, err := runCapture(ctx, "systemctl", "is-active", h.unit)
	if err != nil && out == "" {
		return StatusUnknown, herrors.Wrap(herrors.Transport, "systemctl is-active", err)
	}
	switch strings.TrimSpace(out) {
	case "active":
		return StatusRunning, nil
	case "inactive", "failed", "deactivating":
		return StatusStopped, nil
	default:
		return StatusUnknown, nil
	}
}

func (h *systemdHandle) Disconnect() error { return h.logs.Close() }

func (h *systemdHandle) Start(ctx context.Context) error {
	_, err := runCapture(ctx, "systemctl", "start", h.unit)
	return herrors.Wrap(herrors.Spawn, "systemctl start", err)
}

func (h *systemdHandle) Stop(ctx context.Context) error {
	_, err := runCapture(ctx, "systemctl", "stop", h.unit)
	return herrors.Wrap(herrors.Signal, "systemctl stop", err)
}

func (h *systemdHandle) Restart(ctx context.Context) error {
	_, err := runCapture(ctx, "systemctl", "restart", h.unit)
	return herrors.Wrap(herrors.Spawn, "systemctl restart", err)
}

func (h *systemdHandle) Reload(ctx context.Context) error {
	_, err := runCapture(ctx, "systemctl", "reload", h.unit)
	return herrors.Wrap(herrors.Unsupported, "systemctl reload", err)
}

// runToCompletion launches cmd via l and blocks until it exits, surfacing a
// non-zero exit as an error. Used for one-shot setup commands (portablectl
// attach) that precede the long-running unit start.
func runToCompletion(ctx context.Context, l *LocalLauncher, target Target, cmd *command.Command) error {
	events, handle, err := l.Launch(ctx, target, cmd)
	if err != nil {
		return err
	}
	defer handle.Close()
	for range events {
	}
	status, err := handle.Wait(ctx)
	if err != nil {
		return err
	}
	if status.Code != nil && *status.Code != 0 {
		return herrors.New(herrors.Spawn, "exited with non-zero status")
	}
	return nil
}

func runCapture(ctx context.Context, program string, args ...string) (string, error) {
	cmd := command.NewBuilder(program).Args(args...).Build()
	prepared := cmd.Prepare(ctx)
	out, err := prepared.Output()
	return string(out), err
}

