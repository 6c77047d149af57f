// Package config loads a stack configuration (services, tasks, and their
// network topology) from YAML and interpolates environment references
// into it (spec §6). Grounded on cuemby-warren's cmd/warren/apply.go,
// which reads a resource file with yaml.Unmarshal into a typed struct;
// this package generalizes that single-resource loader into a whole
// stack's schema while keeping the same "read file -> yaml.Unmarshal ->
// typed struct -> validate" shape.
package config

import (
	"bytes"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/harness/pkg/herrors"
)

// SchemaVersion is the only stack config schema version this package
// understands.
const SchemaVersion = "1.0"

// NetworkType enumerates the location classes a network entry may declare.
type NetworkType string

const (
	NetworkLocal   NetworkType = "local"
	NetworkLAN     NetworkType = "lan"
	NetworkOverlay NetworkType = "overlay"
)

// ServiceType enumerates the execution strategies a service may select,
// matching the DescriptorKind taxonomy pkg/executors dispatches on.
type ServiceType string

const (
	ServiceDocker  ServiceType = "docker"
	ServiceProcess ServiceType = "process"
	ServiceRemote  ServiceType = "remote"
	ServicePackage ServiceType = "package" // systemd-portable
)

// HealthCheckConfig is the wire shape of a service's health_check block:
// exactly one of Command, HTTP, or TCP is set.
type HealthCheckConfig struct {
	Command     []string        `yaml:"command,omitempty"`
	Args        []string        `yaml:"args,omitempty"`
	HTTP        string          `yaml:"http,omitempty"`
	TCP         *TCPCheckConfig `yaml:"tcp,omitempty"`
	Interval    *time.Duration  `yaml:"interval,omitempty"`
	Retries     *int            `yaml:"retries,omitempty"`
	Timeout     *time.Duration  `yaml:"timeout,omitempty"`
	StartPeriod *time.Duration  `yaml:"start_period,omitempty"`
}

// TCPCheckConfig is the {tcp: {port, timeout}} health check variant.
type TCPCheckConfig struct {
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// NetworkConfig is one entry of the top-level "networks" map.
type NetworkConfig struct {
	Type NetworkType `yaml:"type"`
}

// ServiceConfig is one entry of the top-level "services" map.
type ServiceConfig struct {
	Type            ServiceType        `yaml:"type"`
	Network         string             `yaml:"network,omitempty"`
	Env             map[string]string  `yaml:"env,omitempty"`
	Dependencies    []string           `yaml:"dependencies,omitempty"`
	HealthCheck     *HealthCheckConfig `yaml:"health_check,omitempty"`
	StartupTimeout  *time.Duration     `yaml:"startup_timeout,omitempty"`
	ShutdownTimeout *time.Duration     `yaml:"shutdown_timeout,omitempty"`

	// Execution-type-specific fields, populated according to Type.
	Image   string   `yaml:"image,omitempty"`   // docker
	Command []string `yaml:"command,omitempty"` // process
	Host    string   `yaml:"host,omitempty"`    // remote
	User    string   `yaml:"user,omitempty"`    // remote
	Port    int      `yaml:"port,omitempty"`    // remote (SSH port)
	Unit    string   `yaml:"unit,omitempty"`    // package (systemd unit/portable image)
}

// TaskConfig is one entry of the top-level "tasks" map: the one-shot
// counterpart of a ServiceConfig (spec §4.H). Type is a string key into the
// orchestrator's task factory — validated at orchestrator build time, not
// here, since this package has no knowledge of which task-types are
// registered.
type TaskConfig struct {
	Type         string                 `yaml:"type"`
	Dependencies []string               `yaml:"dependencies,omitempty"`
	Image        string                 `yaml:"image,omitempty"`   // docker
	Command      []string               `yaml:"command,omitempty"` // process
	Host         string                 `yaml:"host,omitempty"`    // remote
	User         string                 `yaml:"user,omitempty"`    // remote
	Port         int                    `yaml:"port,omitempty"`    // remote (SSH port)
	Env          map[string]string      `yaml:"env,omitempty"`
	Config       map[string]interface{} `yaml:"config,omitempty"` // opaque, passed through to the task runner
}

// Stack is the top-level stack configuration document.
type Stack struct {
	Version     string                   `yaml:"version"`
	Name        string                   `yaml:"name,omitempty"`
	Description string                   `yaml:"description,omitempty"`
	Networks    map[string]NetworkConfig `yaml:"networks,omitempty"`
	Services    map[string]ServiceConfig `yaml:"services,omitempty"`
	Tasks       map[string]TaskConfig    `yaml:"tasks,omitempty"`
}

// Load parses data as a Stack, rejecting unknown top-level keys, an
// unrecognized schema version, and any network/service whose type is not
// one of the accepted enums.
func Load(data []byte) (*Stack, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var stack Stack
	if err := dec.Decode(&stack); err != nil {
		return nil, herrors.Wrap(herrors.Config, "parse stack config", err)
	}

	if err := stack.validate(); err != nil {
		return nil, err
	}
	return &stack, nil
}

func (s *Stack) validate() error {
	if s.Version != SchemaVersion {
		return herrors.New(herrors.Config, "unsupported schema version: "+s.Version)
	}

	for name, net := range s.Networks {
		switch net.Type {
		case NetworkLocal, NetworkLAN, NetworkOverlay:
		default:
			return herrors.New(herrors.Config, "network "+name+" has unknown type: "+string(net.Type))
		}
	}

	for name, svc := range s.Services {
		switch svc.Type {
		case ServiceDocker, ServiceProcess, ServiceRemote, ServicePackage:
		default:
			return herrors.New(herrors.Config, "service "+name+" has unknown type: "+string(svc.Type))
		}
		if svc.Network != "" {
			if _, ok := s.Networks[svc.Network]; !ok {
				return herrors.New(herrors.Config, "service "+name+" references unknown network: "+svc.Network)
			}
		}
		for _, dep := range svc.Dependencies {
			if _, ok := s.Services[dep]; !ok {
				return herrors.New(herrors.Config, "service "+name+" depends on unknown service: "+dep)
			}
		}
	}

	for name, task := range s.Tasks {
		if task.Type == "" {
			return herrors.New(herrors.Config, "task "+name+" has no type")
		}
		for _, dep := range task.Dependencies {
			_, isService := s.Services[dep]
			_, isTask := s.Tasks[dep]
			if !isService && !isTask {
				return herrors.New(herrors.Config, "task "+name+" depends on unknown service or task: "+dep)
			}
		}
	}

	return nil
}
