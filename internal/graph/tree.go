package graph

import (
	"fmt"
	"io"
)

// PrintTree prints each top-level package (one no other package depends on)
// with its local dependencies beneath it, using box-drawing characters. When
// every package has a dependent (a cycle covers the whole graph), every
// package is printed as a root. Declared packages without a manifest are
// listed at the end.
func PrintTree(w io.Writer, g *Graph) {
	roots := make([]string, 0, len(g.Nodes))
	for _, name := range g.Names() {
		if g.Has(name) && len(g.Dependents(name)) == 0 {
			roots = append(roots, name)
		}
	}
	if len(roots) == 0 {
		for _, name := range g.Names() {
			if g.Has(name) {
				roots = append(roots, name)
			}
		}
	}

	printed := make(map[string]bool)
	for _, name := range roots {
		fmt.Fprintf(w, "  %s\n", name)
		printChildren(w, g, g.Nodes[name], "", map[string]bool{name: true}, printed)
		printed[name] = true
	}

	for _, name := range g.Missing() {
		fmt.Fprintf(w, "  %s (no manifest)\n", name)
	}
}

func printChildren(w io.Writer, g *Graph, node *Node, prefix string, ancestors, printed map[string]bool) {
	deps := g.DepNames(node)
	for i, dep := range deps {
		isLast := i == len(deps)-1

		connector := "├── "
		childPrefix := prefix + "│   "
		if isLast {
			connector = "└── "
			childPrefix = prefix + "    "
		}

		label := dep
		child, ok := g.Nodes[dep]
		switch {
		case !ok:
			label += " (no manifest)"
		case ancestors[dep]:
			label += " (cycle)"
		case printed[dep]:
			label += " (deduped)"
		}
		fmt.Fprintf(w, "  %s%s%s\n", prefix, connector, label)

		if !ok || ancestors[dep] || printed[dep] {
			continue
		}

		ancestors[dep] = true
		printChildren(w, g, child, childPrefix, ancestors, printed)
		delete(ancestors, dep)
		printed[dep] = true
	}
}
