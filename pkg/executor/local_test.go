package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/harness/pkg/command"
)

func drain(t *testing.T, events EventStream, timeout time.Duration) []Event {
	t.Helper()
	var got []Event
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-deadline:
			t.Fatal("timed out draining event stream")
		}
	}
}

func TestLocalLauncherEchoService(t *testing.T) {
	launcher := NewLocalLauncher()
	cmd := command.NewBuilder("echo").Arg("hello").Build()

	events, handle, err := launcher.Launch(context.Background(), Target{Kind: TargetCommand}, cmd)
	require.NoError(t, err)
	defer handle.Close()

	got := drain(t, events, 5*time.Second)
	require.NotEmpty(t, got)
	assert.Equal(t, EventStarted, got[0].Kind)
	assert.Equal(t, EventExited, got[len(got)-1].Kind)

	var lines []string
	for _, ev := range got {
		if ev.Kind == EventStdout {
			lines = append(lines, ev.Line)
		}
	}
	assert.Equal(t, []string{"hello"}, lines)

	exit := got[len(got)-1].Exit
	require.NotNil(t, exit.Code)
	assert.Equal(t, 0, *exit.Code)
}

func TestLocalLauncherNonZeroExit(t *testing.T) {
	launcher := NewLocalLauncher()
	cmd := command.NewBuilder("sh").Args("-c", "exit 3").Build()

	events, handle, err := launcher.Launch(context.Background(), Target{Kind: TargetCommand}, cmd)
	require.NoError(t, err)
	defer handle.Close()

	got := drain(t, events, 5*time.Second)
	last := got[len(got)-1]
	require.Equal(t, EventExited, last.Kind)
	require.NotNil(t, last.Exit.Code)
	assert.Equal(t, 3, *last.Exit.Code)
}

func TestLocalLauncherTerminate(t *testing.T) {
	launcher := NewLocalLauncher()
	cmd := command.NewBuilder("sleep").Arg("30").Build()

	events, handle, err := launcher.Launch(context.Background(), Target{Kind: TargetCommand}, cmd)
	require.NoError(t, err)
	defer handle.Close()

	require.NoError(t, handle.Terminate())

	got := drain(t, events, 5*time.Second)
	last := got[len(got)-1]
	assert.Equal(t, EventExited, last.Kind)
	assert.NotNil(t, last.Exit.Signal)
}

func TestLocalLauncherStdinForwarding(t *testing.T) {
	launcher := NewLocalLauncher()
	stdin := make(chan string, 1)
	cmd := command.NewBuilder("cat").StdinChannel(stdin).Build()

	events, handle, err := launcher.Launch(context.Background(), Target{Kind: TargetCommand}, cmd)
	require.NoError(t, err)
	defer handle.Close()

	stdin <- "ping"
	close(stdin)

	got := drain(t, events, 5*time.Second)
	var lines []string
	for _, ev := range got {
		if ev.Kind == EventStdout {
			lines = append(lines, ev.Line)
		}
	}
	assert.Equal(t, []string{"ping"}, lines)
}
