package executors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/harness/pkg/command"
	"github.com/cuemby/harness/pkg/types"
)

func TestTaskFactoryRunsRegisteredType(t *testing.T) {
	f := NewTaskFactory()
	f.Register("process", NewProcessExecutor())

	cmd := command.NewBuilder("true").Build()
	status, err := f.Run(context.Background(), "process", types.ServiceEntry{Name: "seed"}, cmd)
	require.NoError(t, err)
	require.NotNil(t, status.Code)
	assert.Equal(t, 0, *status.Code)
}

func TestTaskFactoryRejectsUnregisteredType(t *testing.T) {
	f := NewTaskFactory()
	_, err := f.Run(context.Background(), "docker", types.ServiceEntry{Name: "seed"}, command.NewBuilder("true").Build())
	assert.Error(t, err)
}

func TestTaskFactorySupports(t *testing.T) {
	f := NewTaskFactory()
	assert.False(t, f.Supports("process"))
	f.Register("process", NewProcessExecutor())
	assert.True(t, f.Supports("process"))
}
