package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAllocatorSequence exercises spec §8 scenario 4 exactly: subnet
// 10.42.0.0/16, allocate a, b, c in order, release b, then allocate d, e.
// The gateway at .1 is never handed out, and the released address is
// reused before the cursor advances further.
func TestAllocatorSequence(t *testing.T) {
	alloc, err := NewIPAllocator("10.42.0.0/16")
	require.NoError(t, err)

	ipA, err := alloc.Allocate("a")
	require.NoError(t, err)
	ipB, err := alloc.Allocate("b")
	require.NoError(t, err)
	ipC, err := alloc.Allocate("c")
	require.NoError(t, err)

	assert.Equal(t, "10.42.0.2", ipA.String())
	assert.Equal(t, "10.42.0.3", ipB.String())
	assert.Equal(t, "10.42.0.4", ipC.String())

	alloc.Release("b")

	ipD, err := alloc.Allocate("d")
	require.NoError(t, err)
	ipE, err := alloc.Allocate("e")
	require.NoError(t, err)

	assert.Equal(t, "10.42.0.3", ipD.String(), "released address should be reused before advancing")
	assert.Equal(t, "10.42.0.5", ipE.String())
}

// TestAllocatorReservesGateway confirms the gateway address at .1 is never
// returned (spec §3, §8 invariant).
func TestAllocatorReservesGateway(t *testing.T) {
	alloc, err := NewIPAllocator("10.100.0.0/24")
	require.NoError(t, err)

	ip, err := alloc.Allocate("first")
	require.NoError(t, err)
	assert.Equal(t, "10.100.0.2", ip.String())
}

func TestAllocatorIsIdempotentPerName(t *testing.T) {
	alloc, err := NewIPAllocator("10.100.0.0/24")
	require.NoError(t, err)

	first, err := alloc.Allocate("svc")
	require.NoError(t, err)
	second, err := alloc.Allocate("svc")
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func TestAllocatorExhaustion(t *testing.T) {
	// A /30 has four addresses: .0 (network), .1 (gateway, reserved), .2
	// (the only usable host address), .3 (broadcast). Only one Allocate
	// can succeed before the pool is exhausted.
	alloc, err := NewIPAllocator("10.100.0.0/30")
	require.NoError(t, err)

	ip, err := alloc.Allocate("a")
	require.NoError(t, err)
	assert.Equal(t, "10.100.0.2", ip.String())

	_, err = alloc.Allocate("b")
	assert.Error(t, err)
}
