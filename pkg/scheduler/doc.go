/*
Package scheduler builds a dependency DAG over the services and tasks of a
stack and drives startup and shutdown in dependency order.

# Architecture

Build validates a set of nodes — each naming the other nodes it depends on
— rejecting unknown references and dependency cycles, then groups the
nodes into topological layers: layer 0 depends on nothing, and layer N
depends only on nodes in layers < N.

	┌──────────────────────────────────────────────────────┐
	│ Build(nodes)                                          │
	│  1. reject duplicate names / unknown dependency refs  │
	│  2. grey/black DFS cycle detection                    │
	│  3. longest-path layering from the dependency edges    │
	└───────────────────┬────────────────────────────────────┘
	                    │
	                    ▼
	              Graph{layers}

RunForward walks the layers in order, starting every node in a layer
concurrently via a caller-supplied StartFunc and only advancing once the
whole layer has succeeded — a failed node aborts the run, since anything
layered after it may depend on it. RunReverse walks the layers backwards,
stopping a layer's nodes concurrently via a StopFunc; unlike the forward
pass, shutdown always proceeds best-effort across every layer regardless
of individual failures, and those failures are folded into one returned
error rather than aborting the remaining layers.

This mirrors the general shape of a dependency-ordered init system: no
resource bin-packing, no node placement — StartFunc and StopFunc close
over whatever actually launches and stops a node (an executor, an
attacher, or a health monitor's readiness gate), and the scheduler only
owns the ordering and concurrency.
*/
package scheduler
