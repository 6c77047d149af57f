package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/harness/pkg/types"
)

func TestResolverLocalToLocalUsesHostIP(t *testing.T) {
	r := NewResolver([]types.ServiceNetwork{
		{ServiceName: "web", Location: types.TopologyLocal, HostIP: "host-a"},
		{ServiceName: "db", Location: types.TopologyLocal, HostIP: "host-a", LANIP: "10.0.0.5"},
	})

	addr, err := r.Resolve("web", "db")
	require.NoError(t, err)
	assert.Equal(t, "host-a", addr, "Local-to-Local resolves to.host_ip regardless of a LAN address also being set")
}

// TestResolverOverlayCallerAlwaysNeedsOverlayIP exercises the reviewer-flagged
// gap: an Overlay-located caller must resolve via to.overlay_ip even when
// toService is Local and happens to share the same host_ip as the caller —
// it must never silently fall back to a loopback shortcut.
func TestResolverOverlayCallerAlwaysNeedsOverlayIP(t *testing.T) {
	r := NewResolver([]types.ServiceNetwork{
		{ServiceName: "web", Location: types.TopologyOverlay, HostIP: "host-a"},
		{ServiceName: "db", Location: types.TopologyLocal, HostIP: "host-a"},
	})

	_, err := r.Resolve("web", "db")
	assert.Error(t, err, "db has no overlay_ip, so resolution must fail rather than returning a loopback shortcut")
}

func TestResolverLocalToLANUsesLANIP(t *testing.T) {
	r := NewResolver([]types.ServiceNetwork{
		{ServiceName: "web", Location: types.TopologyLocal, HostIP: "host-a"},
		{ServiceName: "db", Location: types.TopologyLAN, HostIP: "host-b", LANIP: "10.0.0.5"},
	})

	addr, err := r.Resolve("web", "db")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", addr)
}

func TestResolverOverlayToOverlayUsesOverlayIP(t *testing.T) {
	r := NewResolver([]types.ServiceNetwork{
		{ServiceName: "web", Location: types.TopologyOverlay, HostIP: "host-a"},
		{ServiceName: "db", Location: types.TopologyOverlay, HostIP: "host-b", OverlayIP: "10.200.0.2"},
	})

	addr, err := r.Resolve("web", "db")
	require.NoError(t, err)
	assert.Equal(t, "10.200.0.2", addr)
}

func TestResolverErrorsWhenUnknown(t *testing.T) {
	r := NewResolver(nil)
	_, err := r.Resolve("web", "db")
	assert.Error(t, err)
}

func TestEnvInjectorUsesDependencyPorts(t *testing.T) {
	r := NewResolver([]types.ServiceNetwork{
		{ServiceName: "web", Location: types.TopologyLAN, HostIP: "host-a"},
		{ServiceName: "db", Location: types.TopologyLAN, HostIP: "host-b", LANIP: "10.0.0.5"},
	})
	injector := NewEnvInjector(r, map[string]int{"db": 5432})

	env, err := injector.Inject("web", []string{"db"})
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", env["DB_HOST"])
	assert.Equal(t, "10.0.0.5:5432", env["DB_ADDR"])
	assert.Equal(t, "5432", env["DB_PORT"])
}

func TestEnvVarPrefixSanitizesName(t *testing.T) {
	assert.Equal(t, "MY_DB_1", envVarPrefix("my-db.1"))
}
