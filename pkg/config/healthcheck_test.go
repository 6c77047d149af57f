package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/harness/pkg/health"
)

func TestToHealthConfigAppliesDefaults(t *testing.T) {
	cfg := (&HealthCheckConfig{}).ToHealthConfig()
	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, time.Duration(0), cfg.StartPeriod)
}

func TestToHealthConfigHonorsOverrides(t *testing.T) {
	retries := 5
	interval := 15 * time.Second
	h := &HealthCheckConfig{Retries: &retries, Interval: &interval}
	cfg := h.ToHealthConfig()
	assert.Equal(t, 15*time.Second, cfg.Interval)
	assert.Equal(t, 5, cfg.Retries)
	assert.Equal(t, 10*time.Second, cfg.Timeout, "unset fields still default")
}

func TestBuildCheckerSelectsVariant(t *testing.T) {
	checker, err := (&HealthCheckConfig{Command: []string{"true"}}).BuildChecker("")
	require.NoError(t, err)
	assert.Equal(t, health.CheckTypeExec, checker.Type())

	checker, err = (&HealthCheckConfig{HTTP: "http://localhost/healthz"}).BuildChecker("")
	require.NoError(t, err)
	assert.Equal(t, health.CheckTypeHTTP, checker.Type())

	checker, err = (&HealthCheckConfig{TCP: &TCPCheckConfig{Port: 5432}}).BuildChecker("10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, health.CheckTypeTCP, checker.Type())
}

func TestBuildCheckerRejectsEmptyConfig(t *testing.T) {
	_, err := (&HealthCheckConfig{}).BuildChecker("")
	assert.Error(t, err)
}
