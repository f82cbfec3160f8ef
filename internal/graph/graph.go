package graph

import (
	"fmt"

	"github.com/devlink-labs/devlink/internal/diag"
	"github.com/devlink-labs/devlink/internal/linkfile"
	"github.com/devlink-labs/devlink/internal/manifest"
)

// ManifestLookup reads the manifest of the package rooted at dir.
type ManifestLookup interface {
	ReadDependencies(dir string) (*manifest.Package, error)
}

// Node is one successfully inspected declared package.
type Node struct {
	Name     string
	Path     string              // absolute package directory
	Deps     map[string]struct{} // declared local packages this one depends on
	Manifest *manifest.Package
}

// DependsOn reports whether n depends on the declared package name.
func (n *Node) DependsOn(name string) bool {
	_, ok := n.Deps[name]
	return ok
}

// Graph maps package names to nodes. Declared keeps every declaration in
// order, including those whose manifest could not be read and therefore have
// no node.
type Graph struct {
	Nodes    map[string]*Node
	Declared []linkfile.Declaration
	Base     string

	index map[string]int
}

// Build inspects each declaration's manifest and returns the resulting graph.
// Relative paths resolve against base, the consuming project's root.
func Build(decls []linkfile.Declaration, base string, lookup ManifestLookup) (*Graph, []diag.Event) {
	g := &Graph{
		Nodes:    make(map[string]*Node, len(decls)),
		Declared: decls,
		Base:     base,
		index:    make(map[string]int, len(decls)),
	}
	for i, d := range decls {
		if _, dup := g.index[d.Name]; !dup {
			g.index[d.Name] = i
		}
	}

	var events []diag.Event
	for _, d := range decls {
		dir := d.Resolve(base)
		pkg, err := lookup.ReadDependencies(dir)
		if err != nil {
			events = append(events, diag.Event{
				Kind:    diag.ManifestError,
				Package: d.Name,
				Detail:  fmt.Sprintf("skipping in dependency graph: %v", err),
			})
			continue
		}

		node := &Node{
			Name:     d.Name,
			Path:     dir,
			Deps:     make(map[string]struct{}),
			Manifest: pkg,
		}
		for _, dep := range pkg.DependencyNames() {
			if _, local := g.index[dep]; !local {
				continue
			}
			if dep == d.Name {
				events = append(events, diag.Event{
					Kind:    diag.CycleWarning,
					Package: d.Name,
					Detail:  "package depends on itself, ignoring the self-reference",
				})
				continue
			}
			node.Deps[dep] = struct{}{}
		}
		g.Nodes[d.Name] = node
	}

	return g, events
}

// Names returns every declared name in declaration order.
func (g *Graph) Names() []string {
	return linkfile.Names(g.Declared)
}

// Has reports whether name has a node in the graph.
func (g *Graph) Has(name string) bool {
	_, ok := g.Nodes[name]
	return ok
}

// Declaration returns the declaration for name.
func (g *Graph) Declaration(name string) (linkfile.Declaration, bool) {
	i, ok := g.index[name]
	if !ok {
		return linkfile.Declaration{}, false
	}
	return g.Declared[i], true
}

// Path returns the absolute directory of the declared package name.
func (g *Graph) Path(name string) string {
	if n, ok := g.Nodes[name]; ok {
		return n.Path
	}
	if d, ok := g.Declaration(name); ok {
		return d.Resolve(g.Base)
	}
	return ""
}

// DepNames returns n's dependencies in declaration order, so traversal does
// not depend on manifest key order.
func (g *Graph) DepNames(n *Node) []string {
	deps := make([]string, 0, len(n.Deps))
	for _, d := range g.Declared {
		if n.DependsOn(d.Name) {
			deps = append(deps, d.Name)
		}
	}
	return deps
}

// Missing returns declared names that have no node, in declaration order.
func (g *Graph) Missing() []string {
	var out []string
	for _, d := range g.Declared {
		if !g.Has(d.Name) {
			out = append(out, d.Name)
		}
	}
	return out
}

// Dependents returns the graph nodes that depend on name, in declaration order.
func (g *Graph) Dependents(name string) []string {
	var out []string
	for _, d := range g.Declared {
		if n, ok := g.Nodes[d.Name]; ok && n.DependsOn(name) {
			out = append(out, d.Name)
		}
	}
	return out
}
