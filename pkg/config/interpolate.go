package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/cuemby/harness/pkg/herrors"
)

// ServiceLookup resolves a dependency's address/port for ${svc.addr} and
// ${svc.port} interpolation. Declared locally so pkg/config never imports
// pkg/discovery or pkg/registry — the daemon wires a concrete lookup in,
// which answers with the first endpoint registered for the service.
type ServiceLookup interface {
	Lookup(service string) (addr string, port int, ok bool)
}

var interpolationPattern = regexp.MustCompile(`\$\{([a-zA-Z0-9_.]+)\}`)

// Interpolate resolves every ${VAR}, ${svc.addr}, and ${svc.port}
// reference in s. ${VAR} resolves from the invoking process environment;
// ${svc.addr}/${svc.port} resolve via lookup. In strict mode a reference
// that cannot be resolved is an error; otherwise it is left untouched and
// reported back in the warnings slice.
func Interpolate(s string, lookup ServiceLookup, strict bool) (string, []string, error) {
	var warnings []string
	var firstErr error

	result := interpolationPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		ref := match[2 : len(match)-1] // strip ${ and }

		if dot := strings.LastIndex(ref, "."); dot != -1 && lookup != nil {
			service, field := ref[:dot], ref[dot+1:]
			if field == "addr" || field == "port" {
				addr, port, ok := lookup.Lookup(service)
				if ok {
					if field == "addr" {
						return addr
					}
					return strconv.Itoa(port)
				}
				return unresolved(ref, match, strict, &warnings, &firstErr)
			}
		}

		if v, ok := os.LookupEnv(ref); ok {
			return v
		}
		return unresolved(ref, match, strict, &warnings, &firstErr)
	})

	if firstErr != nil {
		return "", warnings, firstErr
	}
	return result, warnings, nil
}

func unresolved(ref, match string, strict bool, warnings *[]string, firstErr *error) string {
	if strict {
		*firstErr = herrors.New(herrors.Config, "unresolved interpolation: "+ref)
		return match
	}
	*warnings = append(*warnings, ref)
	return match
}

// InterpolateEnv applies Interpolate to every value in env, returning the
// resolved map and the union of every key's warnings.
func InterpolateEnv(env map[string]string, lookup ServiceLookup, strict bool) (map[string]string, []string, error) {
	out := make(map[string]string, len(env))
	var warnings []string
	for k, v := range env {
		resolved, w, err := Interpolate(v, lookup, strict)
		if err != nil {
			return nil, warnings, err
		}
		out[k] = resolved
		warnings = append(warnings, w...)
	}
	return out, warnings, nil
}
