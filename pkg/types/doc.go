/*
Package types defines the core data structures used throughout harness.

It is intentionally inert: ServiceEntry, TaskEntry, ExecutionDescriptor,
ServiceNetwork, and Event carry no behavior of their own. The packages that
mutate and interpret them (pkg/registry, pkg/scheduler, pkg/discovery,
pkg/health) own the logic; this package exists so those packages, and the
wire-facing pkg/daemon and pkg/config, can agree on one shared vocabulary.
*/
package types
