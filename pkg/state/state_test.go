package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitReleasesOnTerminalState(t *testing.T) {
	m := New()
	m.Set("web", Starting)

	released := make(chan Lifecycle, 1)
	go func() {
		l, err := m.Wait(context.Background(), "web")
		require.NoError(t, err)
		released <- l
	}()

	time.Sleep(10 * time.Millisecond)
	m.Set("web", Running)

	select {
	case l := <-released:
		assert.Equal(t, Running, l)
	case <-time.After(time.Second):
		t.Fatal("Wait did not release after reaching a terminal state")
	}
}

func TestWaitTimesOutWithContext(t *testing.T) {
	m := New()
	m.Set("web", Starting)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.Wait(ctx, "web")
	assert.Error(t, err)
}

func TestSetReArmsAfterRestart(t *testing.T) {
	m := New()
	m.Set("web", Running)

	l, err := m.Wait(context.Background(), "web")
	require.NoError(t, err)
	assert.Equal(t, Running, l)

	m.Set("web", Starting)
	released := make(chan Lifecycle, 1)
	go func() {
		l, err := m.Wait(context.Background(), "web")
		require.NoError(t, err)
		released <- l
	}()

	time.Sleep(10 * time.Millisecond)
	m.Set("web", Failed)

	select {
	case l := <-released:
		assert.Equal(t, Failed, l)
	case <-time.After(time.Second):
		t.Fatal("Wait did not release after the unit was re-armed and failed")
	}
}

func TestGetReturnsFalseForUnknownUnit(t *testing.T) {
	m := New()
	_, ok := m.Get("ghost")
	assert.False(t, ok)
}

func TestAllSnapshotsEveryUnit(t *testing.T) {
	m := New()
	m.Set("web", Running)
	m.Set("db", Starting)

	all := m.All()
	assert.Equal(t, Running, all["web"])
	assert.Equal(t, Starting, all["db"])
}

func TestRemoveDropsUnit(t *testing.T) {
	m := New()
	m.Set("web", Running)
	m.Remove("web")

	_, ok := m.Get("web")
	assert.False(t, ok)
}
