package expand

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlink-labs/devlink/internal/diag"
	"github.com/devlink-labs/devlink/internal/linkfile"
	"github.com/devlink-labs/devlink/internal/pkgmgr"
)

// fakeConfig serves nested declarations keyed by package directory.
type fakeConfig struct {
	nested map[string][]linkfile.Declaration
	reads  map[string]int
	fail   map[string]bool
}

func newFakeConfig() *fakeConfig {
	return &fakeConfig{
		nested: map[string][]linkfile.Declaration{},
		reads:  map[string]int{},
		fail:   map[string]bool{},
	}
}

func (f *fakeConfig) declare(dir string, decls ...linkfile.Declaration) {
	f.nested[dir] = decls
}

func (f *fakeConfig) HasNested(dir string) bool {
	_, ok := f.nested[dir]
	return ok || f.fail[dir]
}

func (f *fakeConfig) ReadNested(dir string) ([]linkfile.Declaration, error) {
	f.reads[dir]++
	if f.fail[dir] {
		return nil, errors.New("permission denied")
	}
	return f.nested[dir], nil
}

type fakeExec struct {
	ops       []string
	failBuild map[string]bool
	failLink  map[string]bool
}

func newFakeExec() *fakeExec {
	return &fakeExec{failBuild: map[string]bool{}, failLink: map[string]bool{}}
}

func (f *fakeExec) Build(_ context.Context, pkg pkgmgr.Package) error {
	f.ops = append(f.ops, "build "+pkg.Name)
	if f.failBuild[pkg.Name] {
		return fmt.Errorf("building %s: exit 1", pkg.Name)
	}
	return nil
}

func (f *fakeExec) GlobalLink(_ context.Context, pkg pkgmgr.Package) error {
	f.ops = append(f.ops, "global "+pkg.Name)
	return nil
}

func (f *fakeExec) LinkInto(_ context.Context, projectDir string, pkg pkgmgr.Package) error {
	f.ops = append(f.ops, "into "+pkg.Name+" "+projectDir)
	if f.failLink[pkg.Name] {
		return fmt.Errorf("linking %s: exit 1", pkg.Name)
	}
	return nil
}

func decl(name, path string) linkfile.Declaration {
	return linkfile.Declaration{Name: name, Path: path}
}

func newExpander(cfg *fakeConfig, ex *fakeExec, sink diag.Sink) *Expander {
	return &Expander{Exec: ex, Config: cfg, Sink: sink}
}

func TestNoNestedConfig(t *testing.T) {
	cfg := newFakeConfig()
	ex := newFakeExec()

	res := newExpander(cfg, ex, nil).Expand(context.Background(), []linkfile.Declaration{decl("A", "/pkgs/a")}, "/app")

	assert.Empty(t, res.Expanded)
	assert.Empty(t, ex.ops)
	assert.True(t, res.OK())
}

func TestNestedPathsResolveAgainstParent(t *testing.T) {
	cfg := newFakeConfig()
	cfg.declare("/pkgs/a", decl("D", "../d"))
	ex := newFakeExec()

	res := newExpander(cfg, ex, nil).Expand(context.Background(), []linkfile.Declaration{decl("A", "../pkgs/a")}, "/app")

	require.Equal(t, []Key{{Name: "A", Path: "/pkgs/a"}}, res.Expanded)
	assert.Equal(t, []string{"build D", "global D", "into D /pkgs/a"}, ex.ops)
	assert.Equal(t, 1, res.Linked)
}

func TestReverseNestedReferenceIsAbsorbed(t *testing.T) {
	// A declares D; D redundantly declares A back.
	cfg := newFakeConfig()
	cfg.declare("/pkgs/a", decl("D", "../d"))
	cfg.declare("/pkgs/d", decl("A", "../a"))
	ex := newFakeExec()
	var sink diag.Collector

	res := newExpander(cfg, ex, &sink).Expand(context.Background(), []linkfile.Declaration{decl("A", "/pkgs/a")}, "/app")

	assert.Equal(t, []Key{{"A", "/pkgs/a"}, {"D", "/pkgs/d"}}, res.Expanded)
	assert.Equal(t, []string{
		"build D", "global D", "into D /pkgs/a",
		"build A", "global A", "into A /pkgs/d",
	}, ex.ops)
	assert.Equal(t, 1, cfg.reads["/pkgs/a"], "A's nested file must be read once")
	assert.Equal(t, 1, cfg.reads["/pkgs/d"], "D's nested file must be read once")

	guards := sink.OfKind(diag.RecursionGuard)
	require.Len(t, guards, 1)
	assert.Equal(t, "A", guards[0].Package)
}

func TestDiamondExpandsSharedPackageOnce(t *testing.T) {
	cfg := newFakeConfig()
	cfg.declare("/pkgs/a", decl("B", "/pkgs/b"), decl("C", "/pkgs/c"))
	cfg.declare("/pkgs/b", decl("D", "/pkgs/d"))
	cfg.declare("/pkgs/c", decl("D", "/pkgs/d"))
	cfg.declare("/pkgs/d", decl("E", "/pkgs/e"))
	ex := newFakeExec()

	res := newExpander(cfg, ex, nil).Expand(context.Background(), []linkfile.Declaration{decl("A", "/pkgs/a")}, "/app")

	seen := map[Key]int{}
	for _, k := range res.Expanded {
		seen[k]++
	}
	for k, n := range seen {
		assert.Equal(t, 1, n, "%v expanded %d times", k, n)
	}
	assert.Len(t, res.Expanded, 4)
	assert.Equal(t, 1, cfg.reads["/pkgs/d"])

	// Depth-first: B's subtree completes before C starts.
	assert.Equal(t, []string{
		"build B", "global B", "into B /pkgs/a",
		"build D", "global D", "into D /pkgs/b",
		"build E", "global E", "into E /pkgs/d",
		"build C", "global C", "into C /pkgs/a",
		"build D", "global D", "into D /pkgs/c",
	}, ex.ops)
}

func TestSameNameDifferentPathIsDistinct(t *testing.T) {
	cfg := newFakeConfig()
	cfg.declare("/pkgs/a", decl("util", "/v1/util"), decl("util", "/v2/util"))
	cfg.declare("/v1/util", decl("x", "/pkgs/x"))
	cfg.declare("/v2/util", decl("x", "/pkgs/x"))
	ex := newFakeExec()

	res := newExpander(cfg, ex, nil).Expand(context.Background(), []linkfile.Declaration{decl("A", "/pkgs/a")}, "/app")

	assert.Contains(t, res.Expanded, Key{"util", "/v1/util"})
	assert.Contains(t, res.Expanded, Key{"util", "/v2/util"})
}

func TestDeepSelfReferentialChainTerminates(t *testing.T) {
	cfg := newFakeConfig()
	const depth = 200
	for i := 0; i < depth; i++ {
		next := fmt.Sprintf("/pkgs/p%d", i+1)
		cfg.declare(fmt.Sprintf("/pkgs/p%d", i), decl(fmt.Sprintf("p%d", i+1), next), decl("p0", "/pkgs/p0"))
	}
	cfg.declare(fmt.Sprintf("/pkgs/p%d", depth), decl("p0", "/pkgs/p0"))
	ex := newFakeExec()

	res := newExpander(cfg, ex, nil).Expand(context.Background(), []linkfile.Declaration{decl("p0", "/pkgs/p0")}, "/app")

	assert.Len(t, res.Expanded, depth+1)
	for dir, n := range cfg.reads {
		assert.Equal(t, 1, n, "%s read %d times", dir, n)
	}
}

func TestFailuresDoNotAbortSiblings(t *testing.T) {
	cfg := newFakeConfig()
	cfg.declare("/pkgs/a", decl("B", "/pkgs/b"), decl("C", "/pkgs/c"), decl("D", "/pkgs/d"))
	cfg.declare("/pkgs/b", decl("E", "/pkgs/e"))
	ex := newFakeExec()
	ex.failBuild["B"] = true
	ex.failLink["C"] = true
	var sink diag.Collector

	res := newExpander(cfg, ex, &sink).Expand(context.Background(), []linkfile.Declaration{decl("A", "/pkgs/a")}, "/app")

	assert.Equal(t, []string{"B", "C"}, res.Failures)
	assert.False(t, res.OK())
	assert.Equal(t, 2, res.Linked, "D and E still link")
	assert.NotContains(t, ex.ops, "global B", "failed build skips linking")
	assert.Contains(t, ex.ops, "into E /pkgs/b", "children of a failed build are still expanded")
	assert.Len(t, sink.OfKind(diag.BuildFailed), 1)
	assert.Len(t, sink.OfKind(diag.LinkFailed), 1)
}

func TestNestedReadErrorReported(t *testing.T) {
	cfg := newFakeConfig()
	cfg.fail["/pkgs/a"] = true
	ex := newFakeExec()
	var sink diag.Collector

	res := newExpander(cfg, ex, &sink).Expand(context.Background(), []linkfile.Declaration{decl("A", "/pkgs/a")}, "/app")

	assert.True(t, res.OK())
	assert.Len(t, sink.OfKind(diag.ConfigError), 1)
}

func TestProcessedSetPersistsAcrossCalls(t *testing.T) {
	cfg := newFakeConfig()
	cfg.declare("/pkgs/a", decl("D", "/pkgs/d"))
	ex := newFakeExec()
	e := newExpander(cfg, ex, nil)
	roots := []linkfile.Declaration{decl("A", "/pkgs/a")}

	e.Expand(context.Background(), roots, "/app")
	second := e.Expand(context.Background(), roots, "/app")

	assert.Empty(t, second.Expanded)
	assert.True(t, e.Processed(Key{"A", "/pkgs/a"}))
	assert.Equal(t, 1, cfg.reads["/pkgs/a"])
}

func TestCancelledContextStops(t *testing.T) {
	cfg := newFakeConfig()
	cfg.declare("/pkgs/a", decl("D", "/pkgs/d"))
	ex := newFakeExec()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := newExpander(cfg, ex, nil).Expand(ctx, []linkfile.Declaration{decl("A", "/pkgs/a")}, "/app")

	assert.Empty(t, res.Expanded)
	assert.Empty(t, ex.ops)
}

func TestProgressIndentation(t *testing.T) {
	cfg := newFakeConfig()
	cfg.declare("/pkgs/a", decl("B", "/pkgs/b"))
	cfg.declare("/pkgs/b", decl("C", "/pkgs/c"))
	ex := newFakeExec()
	var out bytes.Buffer
	e := newExpander(cfg, ex, nil)
	e.Out = &out

	e.Expand(context.Background(), []linkfile.Declaration{decl("A", "/pkgs/a")}, "/app")

	assert.Equal(t, "  ↳ B (into A)\n    ↳ C (into B)\n", out.String())
}
