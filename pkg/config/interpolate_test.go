package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	addr string
	port int
	ok   bool
}

func (f fakeLookup) Lookup(service string) (string, int, bool) {
	return f.addr, f.port, f.ok
}

func TestInterpolateResolvesProcessEnv(t *testing.T) {
	require.NoError(t, os.Setenv("HARNESS_TEST_VAR", "hello"))
	defer os.Unsetenv("HARNESS_TEST_VAR")

	result, warnings, err := Interpolate("value=${HARNESS_TEST_VAR}", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "value=hello", result)
	assert.Empty(t, warnings)
}

func TestInterpolateResolvesServiceAddrAndPort(t *testing.T) {
	lookup := fakeLookup{addr: "10.0.0.5", port: 5432, ok: true}

	addr, _, err := Interpolate("${db.addr}", lookup, false)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", addr)

	port, _, err := Interpolate("${db.port}", lookup, false)
	require.NoError(t, err)
	assert.Equal(t, "5432", port)
}

func TestInterpolateNonStrictWarnsOnMissing(t *testing.T) {
	result, warnings, err := Interpolate("${GHOST_VAR}", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "${GHOST_VAR}", result, "non-strict leaves unresolved refs untouched")
	assert.Contains(t, warnings, "GHOST_VAR")
}

func TestInterpolateStrictErrorsOnMissing(t *testing.T) {
	_, _, err := Interpolate("${GHOST_VAR}", nil, true)
	assert.Error(t, err)
}

func TestInterpolateEnvAppliesToEveryValue(t *testing.T) {
	require.NoError(t, os.Setenv("HARNESS_TEST_VAR2", "world"))
	defer os.Unsetenv("HARNESS_TEST_VAR2")

	env := map[string]string{"GREETING": "hello-${HARNESS_TEST_VAR2}"}
	out, _, err := InterpolateEnv(env, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "hello-world", out["GREETING"])
}
