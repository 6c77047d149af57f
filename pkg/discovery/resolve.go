package discovery

import (
	"strconv"
	"strings"

	"github.com/cuemby/harness/pkg/herrors"
	"github.com/cuemby/harness/pkg/types"
)

// Resolver picks the reachable address between two services according to
// the network topology table in spec §4.G (see Resolve). Each from/to pair
// names one required address; apart from a LAN caller reaching a Local
// service (lan_ip, else host_ip), there is no fallback to another scope.
type Resolver struct {
	networks map[string]types.ServiceNetwork // by service name
}

// NewResolver builds a Resolver over the given per-service network
// topology entries.
func NewResolver(entries []types.ServiceNetwork) *Resolver {
	r := &Resolver{networks: make(map[string]types.ServiceNetwork, len(entries))}
	for _, e := range entries {
		r.networks[e.ServiceName] = e
	}
	return r
}

// Resolve returns the address at which fromService should reach toService,
// per the from/to location table in spec §4.G:
//
//	from \ to   Local                       LAN               Overlay
//	Local       to.host_ip (required)       to.lan_ip (req.)  to.overlay_ip (req.)
//	LAN         to.lan_ip, else to.host_ip  to.lan_ip         to.overlay_ip
//	Overlay     to.overlay_ip               to.overlay_ip     to.overlay_ip
//
// An Overlay caller always needs to.overlay_ip, regardless of toService's
// own location — the overlay can't address a bare host_ip/lan_ip.
func (r *Resolver) Resolve(fromService, toService string) (string, error) {
	from, ok := r.networks[fromService]
	if !ok {
		return "", herrors.New(herrors.Resolution, "no network entry for "+fromService)
	}
	to, ok := r.networks[toService]
	if !ok {
		return "", herrors.New(herrors.Resolution, "no network entry for "+toService)
	}

	var addr string
	switch from.Location {
	case types.TopologyOverlay:
		addr = to.OverlayIP
	case types.TopologyLAN:
		switch to.Location {
		case types.TopologyLocal:
			if to.LANIP != "" {
				addr = to.LANIP
			} else {
				addr = to.HostIP
			}
		case types.TopologyLAN:
			addr = to.LANIP
		case types.TopologyOverlay:
			addr = to.OverlayIP
		}
	default: // TopologyLocal
		switch to.Location {
		case types.TopologyLocal:
			addr = to.HostIP
		case types.TopologyLAN:
			addr = to.LANIP
		case types.TopologyOverlay:
			addr = to.OverlayIP
		}
	}

	if addr == "" {
		return "", herrors.New(herrors.Resolution, "resolution_failed: no reachable address from "+fromService+" to "+toService)
	}
	return addr, nil
}

// EnvInjector builds the <DEP>_ADDR / <DEP>_HOST / <DEP>_PORT environment
// variables a dependent service's command is launched with (spec §4.G).
// Variable names are derived by upper-casing the dependency name and
// replacing any character that is not a letter/digit/underscore with '_'.
type EnvInjector struct {
	resolver *Resolver
	ports    map[string]int // service name -> port
}

// NewEnvInjector builds an EnvInjector over resolver and each dependency's
// known port.
func NewEnvInjector(resolver *Resolver, ports map[string]int) *EnvInjector {
	return &EnvInjector{resolver: resolver, ports: ports}
}

// Inject computes the env vars service should see for each of its
// dependencies. User-supplied env always wins — cmd/harnessd's buildCommand
// applies this result with Builder.Envs before the service's own env, so a
// key the service sets itself replaces the injected value.
func (e *EnvInjector) Inject(service string, dependencies []string) (map[string]string, error) {
	env := make(map[string]string, len(dependencies)*3)
	for _, dep := range dependencies {
		addr, err := e.resolver.Resolve(service, dep)
		if err != nil {
			return nil, err
		}
		prefix := envVarPrefix(dep)
		port := e.ports[dep]

		env[prefix+"_HOST"] = addr
		env[prefix+"_ADDR"] = addr
		if port != 0 {
			env[prefix+"_ADDR"] = addr + ":" + strconv.Itoa(port)
			env[prefix+"_PORT"] = strconv.Itoa(port)
		}
	}
	return env, nil
}

func envVarPrefix(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

