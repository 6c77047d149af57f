package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/harness/pkg/types"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(NewMemoryBackend())
	require.NoError(t, err)
	return r
}

func TestRegisterAndGetService(t *testing.T) {
	r := newTestRegistry(t)

	err := r.RegisterService(types.ServiceEntry{Name: "echo"})
	require.NoError(t, err)

	entry, ok := r.GetService("echo")
	require.True(t, ok)
	assert.Equal(t, types.ServiceRegistered, entry.State)
}

func TestRegisterServiceDuplicateFails(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.RegisterService(types.ServiceEntry{Name: "echo"}))

	err := r.RegisterService(types.ServiceEntry{Name: "echo"})
	assert.Error(t, err)
}

func TestSetServiceStateEmitsEvent(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.RegisterService(types.ServiceEntry{Name: "echo"}))

	_, events := r.Subscribe(types.EventServiceStateChanged)
	require.NoError(t, r.SetServiceState("echo", types.ServiceRunning))

	select {
	case ev := <-events:
		assert.Equal(t, types.EventServiceStateChanged, ev.Kind)
		assert.Equal(t, "echo", ev.Name)
	case <-time.After(time.Second):
		t.Fatal("expected a ServiceStateChanged event")
	}
}

func TestSubscribeFiltersByKind(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.RegisterService(types.ServiceEntry{Name: "echo"}))

	_, events := r.Subscribe(types.EventEndpointUpdated)
	require.NoError(t, r.SetServiceState("echo", types.ServiceRunning))

	select {
	case ev := <-events:
		t.Fatalf("unexpected event delivered: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	r := newTestRegistry(t)
	id, events := r.Subscribe()
	r.Unsubscribe(id)

	_, ok := <-events
	assert.False(t, ok)
}

func TestServiceStateCounts(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.RegisterService(types.ServiceEntry{Name: "a"}))
	require.NoError(t, r.RegisterService(types.ServiceEntry{Name: "b"}))
	require.NoError(t, r.SetServiceState("a", types.ServiceRunning))

	counts := r.ServiceStateCounts()
	assert.Equal(t, 1, counts[string(types.ServiceRunning)])
	assert.Equal(t, 1, counts[string(types.ServiceRegistered)])
}

func TestDeregisterServiceRemovesEntry(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.RegisterService(types.ServiceEntry{Name: "echo"}))
	require.NoError(t, r.DeregisterService("echo"))

	_, ok := r.GetService("echo")
	assert.False(t, ok)
}

func TestTaskLifecycle(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.RegisterTask(types.TaskEntry{Name: "migrate"}))

	entry, ok := r.GetTask("migrate")
	require.True(t, ok)
	assert.Equal(t, types.TaskPending, entry.State)

	require.NoError(t, r.SetTaskState("migrate", types.TaskCompleted))
	entry, _ = r.GetTask("migrate")
	assert.Equal(t, types.TaskCompleted, entry.State)
	assert.False(t, entry.FinishedAt.IsZero())
}
