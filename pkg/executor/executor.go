// Package executor implements the composable launcher/attacher model (spec
// §4.B, §4.C): Launcher spawns new processes and Attacher consumes services
// already running under an external supervisor, both yielding a uniform
// event stream and a process handle. LayeredLauncher wraps an inner
// Launcher with pure Command transformations (the sudo, SSH and docker-exec
// Layers) applied in the order given, and returns the inner Launcher's
// event stream and handle unchanged; systemd-portable units use a
// dedicated Launcher/Attacher pair (systemd.go), not a Layer — grounded on the Rust
// original's command-executor crate (backends/launcher.rs, backends/sudo.rs,
// backends/ssh.rs, target.rs).
package executor

import (
	"context"
	"time"

	"github.com/cuemby/harness/pkg/command"
)

// EventKind tags one event in a launch's event stream.
type EventKind string

const (
	EventStarted EventKind = "started"
	EventStdout  EventKind = "stdout"
	EventStderr  EventKind = "stderr"
	EventExited  EventKind = "exited"
)

// Event is one item in the stream a Launcher or Attacher produces. Exactly
// one Started event precedes all Stdout/Stderr events; exactly one Exited
// event terminates the stream.
type Event struct {
	Kind EventKind
	PID  int    // set on Started
	Line string // set on Stdout/Stderr
	Exit ExitStatus
}

// ExitStatus mirrors the process's termination: Code is set on normal exit,
// Signal is set if terminated by a signal. At most one is non-nil.
type ExitStatus struct {
	Code   *int
	Signal *int
}

// EventStream is a lazy, finite, non-restartable sequence of Events. It is
// closed by the producer once the final Exited event has been sent.
type EventStream <-chan Event

// Handle is the live handle to a spawned process.
type Handle interface {
	// PID returns the process ID, or 0 if unknown/already exited.
	PID() int
	// Wait blocks until the process exits and returns its ExitStatus.
	Wait(ctx context.Context) (ExitStatus, error)
	// Terminate sends the platform's graceful-stop signal (SIGTERM on Unix).
	Terminate() error
	// Kill sends the platform's unconditional-stop signal (SIGKILL on Unix).
	Kill() error
	// Interrupt sends the platform's interrupt signal (SIGINT on Unix).
	Interrupt() error
	// Reload sends the platform's reload signal (SIGHUP on Unix); returns
	// an Unsupported error where the platform has no equivalent.
	Reload() error
	// Close releases resources, killing the child if it is still alive and
	// was never otherwise waited on or detached. Idempotent.
	Close() error
}

// ServiceStatus is the coarse status an Attacher's status_command reports.
type ServiceStatus string

const (
	StatusRunning ServiceStatus = "running"
	StatusStopped ServiceStatus = "stopped"
	StatusUnknown ServiceStatus = "unknown"
)

// AttachedHandle is the handle to a service consumed via Attacher.
type AttachedHandle interface {
	ID() string
	Status(ctx context.Context) (ServiceStatus, error)
	// Disconnect stops streaming logs; it does not stop the service.
	Disconnect() error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	Reload(ctx context.Context) error
}

// AttachConfig wires an Attacher's pre-configured lifecycle/log commands.
type AttachConfig struct {
	StatusCommand  *command.Command
	LogCommand     *command.Command
	HistoryLines   int
	Follow         bool
	StartCommand   *command.Command
	StopCommand    *command.Command
	RestartCommand *command.Command
	ReloadCommand  *command.Command
	AttachTimeout  time.Duration
}

// TargetKind tags the variant of a Target.
type TargetKind string

const (
	TargetCommand         TargetKind = "command"
	TargetManagedProcess  TargetKind = "managed-process"
	TargetSystemdService  TargetKind = "systemd-service"
	TargetSystemdPortable TargetKind = "systemd-portable"
	TargetDockerContainer TargetKind = "docker-container"
	TargetComposeService  TargetKind = "compose-service"
)

// DockerContainerSpec describes a fresh one-shot container to run, or the
// identity of an existing one to exec into when Name is already running.
type DockerContainerSpec struct {
	Image        string
	Name         string
	Env          map[string]string
	Volumes      [][2]string // host:container pairs
	WorkingDir   string
	RemoveOnExit bool
}

// ComposeServiceSpec identifies one service within a compose project.
type ComposeServiceSpec struct {
	ComposeFile string
	ServiceName string
	ProjectName string
}

// Target is the tagged union of execution targets a Launcher/Attacher may
// address, mirroring the Rust original's ExecutionTarget enum.
type Target struct {
	Kind TargetKind

	ProcessGroup     string
	RestartOnFailure bool

	UnitName  string // SystemdService / SystemdPortable
	ImageName string // SystemdPortable

	Container DockerContainerSpec
	Compose   ComposeServiceSpec
}

// Launcher starts a new process (or the moral equivalent) for a Command
// against a Target.
type Launcher interface {
	Launch(ctx context.Context, target Target, cmd *command.Command) (EventStream, Handle, error)
}

// Attacher consumes a service already running under an external supervisor.
type Attacher interface {
	Attach(ctx context.Context, target Target, cfg AttachConfig) (EventStream, AttachedHandle, error)
}
