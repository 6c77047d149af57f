// Package scheduler builds a dependency DAG over services and tasks and
// drives forward (startup) and reverse (shutdown) execution in
// dependency-ordered, parallel-within-layer passes (spec §4.H). Grounded in
// style on warren's pkg/scheduler/scheduler.go (component logger, mutex-
// guarded run loop, Start/Stop lifecycle) though the placement algorithm
// itself — cluster bin-packing there — is entirely new: this spec's
// scheduler orders dependency edges, not resource capacity.
package scheduler

import (
	"fmt"
	"sort"

	"github.com/cuemby/harness/pkg/herrors"
)

// Node is one entry in the dependency graph.
type Node struct {
	Name      string
	DependsOn []string
}

// Graph is a validated, acyclic dependency graph, precomputed into
// topological layers: layer 0 depends on nothing, layer N only depends on
// layers < N.
type Graph struct {
	nodes  map[string]Node
	layers [][]string
}

type visitState int

const (
	unvisited visitState = iota
	visiting
	visited
)

// Build validates nodes for unknown references and dependency cycles, then
// computes topological layers. Node order within a layer is sorted for
// deterministic test output; execution still runs all members of a layer
// concurrently.
func Build(nodes []Node) (*Graph, error) {
	byName := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		if _, dup := byName[n.Name]; dup {
			return nil, herrors.New(herrors.Config, "duplicate node name: "+n.Name)
		}
		byName[n.Name] = n
	}
	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			if _, ok := byName[dep]; !ok {
				return nil, herrors.New(herrors.Config, fmt.Sprintf("%s depends on unknown node %s", n.Name, dep))
			}
		}
	}

	state := make(map[string]visitState, len(nodes))
	var order []string
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			cycle := append(append([]string{}, path...), name)
			return herrors.New(herrors.Config, "dependency cycle: "+joinCycle(cycle))
		}
		state[name] = visiting
		path = append(path, name)
		for _, dep := range byName[name].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[name] = visited
		order = append(order, name)
		return nil
	}

	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, n.Name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	depth := make(map[string]int, len(order))
	maxDepth := 0
	for _, name := range order {
		d := 0
		for _, dep := range byName[name].DependsOn {
			if depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[name] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	layers := make([][]string, maxDepth+1)
	for _, name := range order {
		d := depth[name]
		layers[d] = append(layers[d], name)
	}
	for _, layer := range layers {
		sort.Strings(layer)
	}

	return &Graph{nodes: byName, layers: layers}, nil
}

// Layers returns the graph's topological layers, forward (startup) order.
func (g *Graph) Layers() [][]string {
	return g.layers
}

// ReverseLayers returns the layers in reverse (shutdown) order; each layer's
// own member order is unchanged, since shutdown within a layer still runs
// concurrently.
func (g *Graph) ReverseLayers() [][]string {
	reversed := make([][]string, len(g.layers))
	for i, layer := range g.layers {
		reversed[len(g.layers)-1-i] = layer
	}
	return reversed
}

// Node returns the node entry for name.
func (g *Graph) Node(name string) (Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

func joinCycle(cycle []string) string {
	out := ""
	for i, name := range cycle {
		if i > 0 {
			out += " -> "
		}
		out += name
	}
	return out
}
