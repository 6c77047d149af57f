package executors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/harness/pkg/command"
	"github.com/cuemby/harness/pkg/types"
)

func TestRegistryPicksFirstMatch(t *testing.T) {
	reg := NewRegistry(NewProcessExecutor(), NewRemoteExecutor())

	e, ok := reg.For(types.DescriptorManagedProcess)
	require.True(t, ok)
	assert.IsType(t, &ProcessExecutor{}, e)

	_, ok = reg.For(types.DescriptorDockerContainer)
	assert.False(t, ok)
}

func TestProcessExecutorStart(t *testing.T) {
	exec := NewProcessExecutor()
	cmd := command.NewBuilder("echo").Arg("hi").Build()

	desc, events, handle, err := exec.Start(context.Background(), types.ServiceEntry{Name: "echo"}, cmd)
	require.NoError(t, err)
	defer handle.Close()

	assert.Equal(t, types.DescriptorManagedProcess, desc.Kind)
	assert.NotZero(t, desc.PID)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out draining events")
		}
	}
}
