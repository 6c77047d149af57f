// Package types defines the shared domain model for the orchestrator:
// service/task entries, execution descriptors, network topology, and the
// event kinds the registry emits. These are plain data structures; behavior
// lives in the packages that operate on them (pkg/scheduler, pkg/registry,
// pkg/discovery, pkg/executors).
package types

import "time"

// ServiceState is the lifecycle state of a registered service.
type ServiceState string

const (
	ServiceRegistered ServiceState = "registered"
	ServiceStarting   ServiceState = "starting"
	ServiceRunning    ServiceState = "running"
	ServiceStopping   ServiceState = "stopping"
	ServiceStopped    ServiceState = "stopped"
	ServiceFailed     ServiceState = "failed"
	ServiceUnhealthy  ServiceState = "unhealthy"
)

// TaskState is the lifecycle state of a one-shot task. Completed and Failed
// are terminal; tasks are never restarted.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
)

// DescriptorKind tags the variant of an ExecutionDescriptor.
type DescriptorKind string

const (
	DescriptorManagedProcess    DescriptorKind = "managed-process"
	DescriptorDockerContainer   DescriptorKind = "docker-container"
	DescriptorSystemdUnit       DescriptorKind = "systemd-unit"
	DescriptorSystemdPortable   DescriptorKind = "systemd-portable"
)

// ExecutionDescriptor is the tagged union describing how a unit is actually
// run. Only the fields relevant to Kind are populated.
type ExecutionDescriptor struct {
	Kind DescriptorKind

	// ManagedProcess / general process fields
	PID     int
	Binary  string
	Args    []string

	// DockerContainer fields
	ContainerID    string
	Image          string
	ContainerName  string
	Ports          []string
	Volumes        [][2]string // host:container pairs

	// SystemdUnit / SystemdPortable fields
	UnitName string
}

// Location tags where a service runs.
type LocationKind string

const (
	LocationLocal  LocationKind = "local"
	LocationRemote LocationKind = "remote"
)

// Location describes where a service's executor reaches it.
type Location struct {
	Kind LocationKind
	Host string
	User string
	Port int // 0 means default SSH port
}

// Endpoint is a named, addressable surface a service exposes.
type Endpoint struct {
	Name     string
	IP       string
	Port     int
	Protocol EndpointProtocol
	Metadata map[string]string
}

// EndpointProtocol enumerates the protocols an Endpoint may speak.
type EndpointProtocol string

const (
	ProtocolHTTP      EndpointProtocol = "http"
	ProtocolHTTPS     EndpointProtocol = "https"
	ProtocolGRPC      EndpointProtocol = "grpc"
	ProtocolTCP       EndpointProtocol = "tcp"
	ProtocolWebSocket EndpointProtocol = "websocket"
	ProtocolCustom    EndpointProtocol = "custom"
)

// HealthCheckSpec is the declarative health-check configuration attached to
// a service config (see pkg/config for the wire schema it is parsed from).
type HealthCheckSpec struct {
	Command     []string // process check: argv, exit 0 = healthy
	HTTPURL     string   // http check: mapped to `curl -f <url>`
	TCPAddr     string   // tcp check: mapped to `nc -z <host> <port>`
	Interval    time.Duration
	Timeout     time.Duration
	Retries     int
	StartPeriod time.Duration
}

// ServiceEntry is the registry's authoritative record for one service.
type ServiceEntry struct {
	Name              string
	Version           string
	Descriptor        ExecutionDescriptor
	Location          Location
	Endpoints         []Endpoint
	DependsOn         []string
	State             ServiceState
	LastHealthResult  *HealthResult
	RegisteredAt      time.Time
	LastStateChangeAt time.Time
}

// HealthResult is the outcome of one probe invocation, mirrored from
// pkg/health.Result so registry entries can be serialized without importing
// the health package.
type HealthResult struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// TaskEntry is the registry's authoritative record for one one-shot task.
type TaskEntry struct {
	Name         string
	TaskType     string
	Descriptor   ExecutionDescriptor
	DependsOn    []string
	Config       map[string]interface{}
	State        TaskState
	RegisteredAt time.Time
	FinishedAt   time.Time
}

// DependencyKind tags whether a dependency points at a service or a task.
type DependencyKind string

const (
	DependencyService DependencyKind = "service"
	DependencyTask    DependencyKind = "task"
)

// Dependency is one edge in a stack's dependency graph.
type Dependency struct {
	Kind DependencyKind
	Name string
}

// TopologyLocation tags the network location a ServiceNetwork entry binds.
type TopologyLocation string

const (
	TopologyLocal   TopologyLocation = "local"
	TopologyLAN     TopologyLocation = "lan"
	TopologyOverlay TopologyLocation = "overlay"
)

// ServiceNetwork is one topology entry: the set of addresses at which a
// service may be reached, by location class.
type ServiceNetwork struct {
	ServiceName   string
	Location      TopologyLocation
	HostIP        string
	LANIP         string
	OverlayIP     string
	OverlayPubKey string
	OverlayEndpoint string
	Interfaces    []string
}

// EventKind enumerates the registry's event taxonomy.
type EventKind string

const (
	EventServiceRegistered   EventKind = "ServiceRegistered"
	EventServiceUpdated      EventKind = "ServiceUpdated"
	EventServiceDeregistered EventKind = "ServiceDeregistered"
	EventServiceStateChanged EventKind = "ServiceStateChanged"
	EventEndpointUpdated     EventKind = "EndpointUpdated"
	EventDeploymentProgress  EventKind = "DeploymentProgress"
	EventHealthCheckResult   EventKind = "HealthCheckResult"
	EventRegistryLoaded      EventKind = "RegistryLoaded"
)

// Event is one registry-emitted occurrence, fanned out to subscribers whose
// filter contains its Kind.
type Event struct {
	ID        string
	Kind      EventKind
	Name      string // service or task name the event concerns, if any
	Timestamp time.Time
	Data      map[string]interface{}
}
