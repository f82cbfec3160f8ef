package graph

import (
	"fmt"
	"strings"

	"github.com/devlink-labs/devlink/internal/diag"
)

// BuildOrder lists package names so that each package's local dependencies
// come before it.
type BuildOrder []string

// Index returns the position of name in the order, or -1.
func (o BuildOrder) Index(name string) int {
	for i, n := range o {
		if n == name {
			return i
		}
	}
	return -1
}

type visitState int

const (
	unvisited visitState = iota
	inProgress
	done
)

// Resolve computes a build order by depth-first post-order traversal in
// declaration order. Reaching a package that is still in progress is a cycle:
// it is reported once and the back-edge is dropped. Declared packages without
// a node are appended last, in declaration order.
func Resolve(g *Graph) (BuildOrder, []diag.Event) {
	r := &resolver{
		graph: g,
		state: make(map[string]visitState, len(g.Nodes)),
	}

	for _, name := range g.Names() {
		if node, ok := g.Nodes[name]; ok {
			r.visit(node, nil)
		}
	}

	if missing := g.Missing(); len(missing) > 0 {
		r.order = append(r.order, missing...)
		r.events = append(r.events, diag.Event{
			Kind:   diag.Unresolved,
			Detail: fmt.Sprintf("no readable manifest for %s, linking last in declaration order", strings.Join(missing, ", ")),
		})
	}

	return r.order, r.events
}

type resolver struct {
	graph  *Graph
	state  map[string]visitState
	order  BuildOrder
	events []diag.Event
}

// visit appends node after its dependencies. path is the chain of names
// currently in progress, used to describe a detected cycle.
func (r *resolver) visit(node *Node, path []string) {
	switch r.state[node.Name] {
	case done:
		return
	case inProgress:
		r.events = append(r.events, diag.Event{
			Kind:    diag.CycleWarning,
			Package: node.Name,
			Detail:  "dependency cycle " + describeCycle(path, node.Name) + ", breaking at " + node.Name,
		})
		return
	}

	r.state[node.Name] = inProgress
	path = append(path, node.Name)
	for _, dep := range r.graph.DepNames(node) {
		child, ok := r.graph.Nodes[dep]
		if !ok {
			continue
		}
		r.visit(child, path)
	}
	r.state[node.Name] = done
	r.order = append(r.order, node.Name)
}

// describeCycle renders the in-progress chain from the first occurrence of
// name back to name, e.g. "a -> b -> a".
func describeCycle(path []string, name string) string {
	start := 0
	for i, p := range path {
		if p == name {
			start = i
			break
		}
	}
	chain := append(append([]string{}, path[start:]...), name)
	return strings.Join(chain, " -> ")
}
