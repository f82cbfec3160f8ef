package graph

import (
	"bytes"
	"fmt"
	"math/rand"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/devlink-labs/devlink/internal/diag"
	"github.com/devlink-labs/devlink/internal/linkfile"
	"github.com/devlink-labs/devlink/internal/manifest"
)

const testBase = "/work/app"

// fakeLookup serves manifests from memory keyed by absolute package path.
type fakeLookup map[string]*manifest.Package

func (f fakeLookup) ReadDependencies(dir string) (*manifest.Package, error) {
	p, ok := f[dir]
	if !ok {
		return nil, fmt.Errorf("package path %s: %w", dir, manifest.ErrNotFound)
	}
	return p, nil
}

// fixture declares packages at /pkgs/<name> with the given runtime deps.
// Names mapped to nil have no manifest.
type fixture struct {
	decls  []linkfile.Declaration
	lookup fakeLookup
}

func newFixture() *fixture {
	return &fixture{lookup: fakeLookup{}}
}

func (f *fixture) add(name string, deps ...string) *fixture {
	path := filepath.Join("/pkgs", name)
	f.decls = append(f.decls, linkfile.Declaration{Name: name, Path: path})
	m := map[string]string{}
	for _, d := range deps {
		m[d] = "*"
	}
	f.lookup[path] = &manifest.Package{Name: name, Dependencies: m}
	return f
}

func (f *fixture) addMissing(name string) *fixture {
	f.decls = append(f.decls, linkfile.Declaration{Name: name, Path: filepath.Join("/pkgs", name)})
	return f
}

func (f *fixture) resolve(t *testing.T) (*Graph, BuildOrder, []diag.Event) {
	t.Helper()
	g, buildEvents := Build(f.decls, testBase, f.lookup)
	order, orderEvents := Resolve(g)
	return g, order, append(buildEvents, orderEvents...)
}

func TestScenarioDependencyFirst(t *testing.T) {
	_, order, events := newFixture().add("A", "B").add("B").resolve(t)

	if want := (BuildOrder{"B", "A"}); !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
	if len(events) != 0 {
		t.Errorf("unexpected events: %v", events)
	}
}

func TestScenarioTwoCycle(t *testing.T) {
	_, order, events := newFixture().add("A", "B").add("B", "A").resolve(t)

	if len(order) != 2 || order.Index("A") < 0 || order.Index("B") < 0 {
		t.Fatalf("order = %v, want both A and B once", order)
	}
	cycles := diag.Filter(events, diag.CycleWarning)
	if len(cycles) != 1 {
		t.Fatalf("got %d cycle warnings, want 1: %v", len(cycles), events)
	}
	if cycles[0].Package != "A" {
		t.Errorf("cycle warning names %q, want A", cycles[0].Package)
	}
	if !strings.Contains(cycles[0].Detail, "A -> B -> A") {
		t.Errorf("cycle detail = %q, want chain A -> B -> A", cycles[0].Detail)
	}
}

func TestScenarioMissingManifest(t *testing.T) {
	g, order, events := newFixture().add("A").addMissing("B").resolve(t)

	if len(g.Nodes) != 1 || !g.Has("A") {
		t.Errorf("graph nodes = %v, want only A", g.Nodes)
	}
	if want := (BuildOrder{"A", "B"}); !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}

	if len(diag.Filter(events, diag.ManifestError)) != 1 {
		t.Errorf("expected one manifest error, got %v", events)
	}
	unresolved := diag.Filter(events, diag.Unresolved)
	if len(unresolved) != 1 || !strings.Contains(unresolved[0].Detail, "B") {
		t.Errorf("expected one unresolved warning citing B, got %v", unresolved)
	}
}

func TestScenarioChain(t *testing.T) {
	_, order, _ := newFixture().add("A", "B").add("B", "C").add("C").resolve(t)

	if want := (BuildOrder{"C", "B", "A"}); !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestDependencyOnMissingPackageIsSkipped(t *testing.T) {
	g, order, _ := newFixture().add("A", "B").addMissing("B").resolve(t)

	if !g.Nodes["A"].DependsOn("B") {
		t.Error("A should keep its dependency on declared package B")
	}
	if want := (BuildOrder{"A", "B"}); !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestNonLocalDependenciesDiscarded(t *testing.T) {
	f := newFixture().add("A", "B", "react", "lodash").add("B")
	f.lookup["/pkgs/A"].DevDependencies = map[string]string{"typescript": "^5"}
	f.lookup["/pkgs/A"].PeerDependencies = map[string]string{"B": "^1"}

	g, _, _ := f.resolve(t)
	if got := len(g.Nodes["A"].Deps); got != 1 {
		t.Errorf("A has %d deps, want 1 (only the local B)", got)
	}
}

func TestDevAndPeerDependenciesOrder(t *testing.T) {
	f := newFixture().add("A").add("B").add("C")
	f.lookup["/pkgs/A"].DevDependencies = map[string]string{"B": "*"}
	f.lookup["/pkgs/B"].PeerDependencies = map[string]string{"C": "*"}

	_, order, _ := f.resolve(t)
	if want := (BuildOrder{"C", "B", "A"}); !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestSelfDependencyIsCycleWarning(t *testing.T) {
	g, order, events := newFixture().add("A", "A").resolve(t)

	if g.Nodes["A"].DependsOn("A") {
		t.Error("node must not list itself as a dependency")
	}
	if want := (BuildOrder{"A"}); !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
	if len(diag.Filter(events, diag.CycleWarning)) != 1 {
		t.Errorf("expected a cycle warning for the self-reference, got %v", events)
	}
}

func TestRelativePathsResolveAgainstBase(t *testing.T) {
	decls := []linkfile.Declaration{{Name: "A", Path: "../libs/a"}}
	lookup := fakeLookup{"/work/libs/a": {Name: "A"}}

	g, events := Build(decls, testBase, lookup)
	if len(events) != 0 {
		t.Fatalf("unexpected events: %v", events)
	}
	if got := g.Nodes["A"].Path; got != "/work/libs/a" {
		t.Errorf("Path = %q, want /work/libs/a", got)
	}
	if got := g.Path("A"); got != "/work/libs/a" {
		t.Errorf("g.Path = %q, want /work/libs/a", got)
	}
}

func TestLongerCycleWithTail(t *testing.T) {
	// D -> A -> B -> C -> A, plus E independent.
	_, order, events := newFixture().
		add("D", "A").add("A", "B").add("B", "C").add("C", "A").add("E").
		resolve(t)

	assertComplete(t, order, []string{"D", "A", "B", "C", "E"})
	if len(diag.Filter(events, diag.CycleWarning)) != 1 {
		t.Errorf("expected one cycle warning, got %v", events)
	}
	// Edges outside the cycle still hold.
	if order.Index("A") > order.Index("D") {
		t.Errorf("A must precede D in %v", order)
	}
}

func TestTwoDistinctCycles(t *testing.T) {
	_, order, events := newFixture().
		add("A", "B").add("B", "A").add("C", "D").add("D", "C").
		resolve(t)

	assertComplete(t, order, []string{"A", "B", "C", "D"})
	if got := len(diag.Filter(events, diag.CycleWarning)); got != 2 {
		t.Errorf("got %d cycle warnings, want 2", got)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	f := newFixture().add("A", "C", "B").add("B", "D").add("C", "D").add("D").addMissing("E")

	_, first, _ := f.resolve(t)
	for i := 0; i < 10; i++ {
		_, again, _ := f.resolve(t)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d order = %v, want %v", i, again, first)
		}
	}
	// Dependencies are visited in declaration order (B before C), not manifest order.
	if want := (BuildOrder{"D", "B", "C", "A", "E"}); !reflect.DeepEqual(first, want) {
		t.Errorf("order = %v, want %v", first, want)
	}
}

func TestAcyclicGraphsAreTopological(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		n := 2 + rng.Intn(12)
		names := make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("p%02d", i)
		}

		// Edges only go from higher to lower index, so the graph is acyclic.
		f := newFixture()
		perm := rng.Perm(n)
		for _, i := range perm {
			var deps []string
			for j := 0; j < i; j++ {
				if rng.Intn(3) == 0 {
					deps = append(deps, names[j])
				}
			}
			f.add(names[i], deps...)
		}

		g, order, events := f.resolve(t)
		if len(events) != 0 {
			t.Fatalf("trial %d: unexpected events %v", trial, events)
		}
		assertComplete(t, order, names)
		for _, node := range g.Nodes {
			for dep := range node.Deps {
				if order.Index(dep) >= order.Index(node.Name) {
					t.Fatalf("trial %d: %s must precede %s in %v", trial, dep, node.Name, order)
				}
			}
		}
	}
}

func TestPrintTree(t *testing.T) {
	g, _, _ := newFixture().
		add("app", "ui", "core").add("ui", "core").add("core").addMissing("ghost").
		resolve(t)

	var buf bytes.Buffer
	PrintTree(&buf, g)
	out := buf.String()

	for _, want := range []string{"  app\n", "├── ui", "│   └── core", "└── core (deduped)", "ghost (no manifest)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintTreeCycle(t *testing.T) {
	g, _, _ := newFixture().add("A", "B").add("B", "A").resolve(t)

	var buf bytes.Buffer
	PrintTree(&buf, g)
	if !strings.Contains(buf.String(), "(cycle)") {
		t.Errorf("expected cycle marker:\n%s", buf.String())
	}
}

func assertComplete(t *testing.T, order BuildOrder, names []string) {
	t.Helper()
	if len(order) != len(names) {
		t.Fatalf("order %v has %d entries, want %d", order, len(order), len(names))
	}
	seen := make(map[string]bool)
	for _, n := range order {
		if seen[n] {
			t.Fatalf("duplicate %s in %v", n, order)
		}
		seen[n] = true
	}
	for _, n := range names {
		if !seen[n] {
			t.Fatalf("%s missing from %v", n, order)
		}
	}
}
