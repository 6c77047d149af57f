package executor

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"runtime"
	"sync"
	"syscall"

	"github.com/cuemby/harness/pkg/command"
	"github.com/cuemby/harness/pkg/herrors"
	"github.com/cuemby/harness/pkg/log"
)

// LocalLauncher spawns processes directly on the local host. It is the
// innermost launcher every layer eventually bottoms out on.
type LocalLauncher struct{}

// NewLocalLauncher returns a Launcher that spawns on the local host.
func NewLocalLauncher() *LocalLauncher {
	return &LocalLauncher{}
}

func (l *LocalLauncher) Launch(ctx context.Context, target Target, cmd *command.Command) (EventStream, Handle, error) {
	prepared := cmd.Prepare(ctx)

	stdout, err := prepared.StdoutPipe()
	if err != nil {
		return nil, nil, herrors.Wrap(herrors.Spawn, "stdout pipe", err)
	}
	stderr, err := prepared.StderrPipe()
	if err != nil {
		return nil, nil, herrors.Wrap(herrors.Spawn, "stderr pipe", err)
	}

	stdinCh := cmd.TakeStdinChannel()
	var stdinPipe io.WriteCloser
	if stdinCh != nil {
		stdinPipe, err = prepared.StdinPipe()
		if err != nil {
			return nil, nil, herrors.Wrap(herrors.Spawn, "stdin pipe", err)
		}
	}

	if err := prepared.Start(); err != nil {
		return nil, nil, herrors.Wrap(herrors.Spawn, "exec "+cmd.Program(), err)
	}

	logger := log.WithComponent("executor.local")
	events := make(chan Event, 16)
	handle := newProcessHandle(prepared)

	events <- Event{Kind: EventStarted, PID: prepared.Process.Pid}

	var wg sync.WaitGroup
	wg.Add(2)
	go streamLines(stdout, EventStdout, events, &wg)
	go streamLines(stderr, EventStderr, events, &wg)

	if stdinCh != nil {
		go forwardStdin(stdinCh, stdinPipe)
	}

	go func() {
		wg.Wait()
		err := prepared.Wait()
		exit := exitStatusFromError(prepared, err)
		handle.recordExit(exit)
		if err != nil {
			logger.Debug().Err(err).Str("program", cmd.Program()).Msg("process exited")
		}
		events <- Event{Kind: EventExited, Exit: exit}
		close(events)
	}()

	return events, handle, nil
}

func streamLines(r io.Reader, kind EventKind, out chan<- Event, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		out <- Event{Kind: kind, Line: scanner.Text()}
	}
}

func forwardStdin(in <-chan string, w io.WriteCloser) {
	defer w.Close()
	for line := range in {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return
		}
	}
}

func exitStatusFromError(cmd *exec.Cmd, err error) ExitStatus {
	if cmd.ProcessState == nil {
		code := -1
		return ExitStatus{Code: &code}
	}
	if status, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		sig := int(status.Signal())
		return ExitStatus{Signal: &sig}
	}
	code := cmd.ProcessState.ExitCode()
	return ExitStatus{Code: &code}
}

// processHandle is the Handle for a locally-spawned *exec.Cmd.
type processHandle struct {
	cmd      *exec.Cmd
	mu       sync.Mutex
	exited   bool
	exit     ExitStatus
	waitCh   chan struct{}
	closed   bool
}

func newProcessHandle(cmd *exec.Cmd) *processHandle {
	h := &processHandle{cmd: cmd, waitCh: make(chan struct{})}
	runtime.SetFinalizer(h, func(h *processHandle) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if !h.closed && !h.exited {
			log.WithComponent("executor.local").Warn().
				Int("pid", h.PID()).
				Msg("process handle garbage collected without Close or Wait")
		}
	})
	return h
}

func (h *processHandle) recordExit(status ExitStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exited {
		return
	}
	h.exited = true
	h.exit = status
	close(h.waitCh)
}

func (h *processHandle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (h *processHandle) Wait(ctx context.Context) (ExitStatus, error) {
	select {
	case <-h.waitCh:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.exit, nil
	case <-ctx.Done():
		return ExitStatus{}, ctx.Err()
	}
}

func (h *processHandle) signal(sig syscall.Signal) error {
	h.mu.Lock()
	exited := h.exited
	h.mu.Unlock()
	if exited {
		return herrors.New(herrors.NotRunning, "process already exited")
	}
	if h.cmd.Process == nil {
		return herrors.New(herrors.NotRunning, "process was never started")
	}
	if err := h.cmd.Process.Signal(sig); err != nil {
		return herrors.Wrap(herrors.Signal, "signal process", err)
	}
	return nil
}

func (h *processHandle) Terminate() error { return h.signal(syscall.SIGTERM) }
func (h *processHandle) Kill() error      { return h.signal(syscall.SIGKILL) }
func (h *processHandle) Interrupt() error { return h.signal(syscall.SIGINT) }
func (h *processHandle) Reload() error    { return h.signal(syscall.SIGHUP) }

func (h *processHandle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	exited := h.exited
	h.mu.Unlock()

	runtime.SetFinalizer(h, nil)
	if !exited && h.cmd.Process != nil {
		_ = h.cmd.Process.Kill()
	}
	return nil
}
