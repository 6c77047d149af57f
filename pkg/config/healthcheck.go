package config

import (
	"fmt"
	"time"

	"github.com/cuemby/harness/pkg/health"
	"github.com/cuemby/harness/pkg/herrors"
)

// defaults per the stack schema: interval=30s, retries=3, timeout=10s,
// start_period=0s. Mirrors health.DefaultConfig, repeated here so a
// HealthCheckConfig with every pointer nil round-trips to exactly the
// documented defaults without importing behavior the schema doesn't own.
const (
	defaultInterval    = 30 * time.Second
	defaultRetries     = 3
	defaultTimeout     = 10 * time.Second
	defaultStartPeriod = 0 * time.Second
)

// ToHealthConfig fills any unset (nil) field with the schema default and
// returns the resulting health.Config.
func (h *HealthCheckConfig) ToHealthConfig() health.Config {
	cfg := health.Config{
		Interval:    defaultInterval,
		Retries:     defaultRetries,
		Timeout:     defaultTimeout,
		StartPeriod: defaultStartPeriod,
	}
	if h == nil {
		return cfg
	}
	if h.Interval != nil {
		cfg.Interval = *h.Interval
	}
	if h.Retries != nil {
		cfg.Retries = *h.Retries
	}
	if h.Timeout != nil {
		cfg.Timeout = *h.Timeout
	}
	if h.StartPeriod != nil {
		cfg.StartPeriod = *h.StartPeriod
	}
	return cfg
}

// BuildChecker constructs the health.Checker this config describes,
// exactly one of Command, HTTP, or TCP must be set. host is substituted
// for the TCP check's address, since the schema only carries the port -
// the daemon resolves the service's own address and passes it in.
func (h *HealthCheckConfig) BuildChecker(host string) (health.Checker, error) {
	if h == nil {
		return nil, herrors.New(herrors.Config, "no health check configured")
	}
	switch {
	case len(h.Command) > 0:
		return health.NewExecChecker(append(append([]string{}, h.Command...), h.Args...)), nil
	case h.HTTP != "":
		return health.NewHTTPChecker(h.HTTP), nil
	case h.TCP != nil:
		return health.NewTCPChecker(fmt.Sprintf("%s:%d", host, h.TCP.Port)), nil
	default:
		return nil, herrors.New(herrors.Config, "health check has neither command, http, nor tcp set")
	}
}
