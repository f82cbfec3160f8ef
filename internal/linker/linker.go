package linker

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devlink-labs/devlink/internal/diag"
	"github.com/devlink-labs/devlink/internal/expand"
	"github.com/devlink-labs/devlink/internal/graph"
	"github.com/devlink-labs/devlink/internal/linkfile"
	"github.com/devlink-labs/devlink/internal/manifest"
	"github.com/devlink-labs/devlink/internal/pkgmgr"
	"github.com/devlink-labs/devlink/internal/platform"
)

// Plan is the resolved work for a project, before anything runs.
type Plan struct {
	Declarations []linkfile.Declaration
	Graph        *graph.Graph
	Order        graph.BuildOrder
	Events       []diag.Event
}

// Report is the outcome of a link run.
type Report struct {
	Results []PackageResult
	Nested  expand.Result
}

// OK reports whether every declared package and every nested package built
// and linked.
func (r *Report) OK() bool {
	for _, res := range r.Results {
		if !res.OK() {
			return false
		}
	}
	return r.Nested.OK()
}

// Failed returns the names of packages that did not build and link.
func (r *Report) Failed() []string {
	var out []string
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res.Name)
		}
	}
	return append(out, r.Nested.Failures...)
}

// Session links the declared packages of one project.
type Session struct {
	ProjectDir string
	Recursive  bool // expand nested declaration files

	Exec      pkgmgr.Executor
	Manifests graph.ManifestLookup
	Config    expand.ConfigReader
	Sink      diag.Sink
	Out       io.Writer
	Logger    *zap.Logger

	plan     *Plan
	pipeline *Pipeline
	expander *expand.Expander
}

// Plan loads the project's declarations and resolves the build order. The
// result is cached for the lifetime of the session.
func (s *Session) Plan() (*Plan, error) {
	if s.plan != nil {
		return s.plan, nil
	}

	if s.Manifests == nil {
		if cached, err := manifest.NewCachedReader(0); err == nil {
			s.Manifests = cached
		} else {
			s.Manifests = manifest.Reader{}
		}
	}
	if s.Config == nil && s.Recursive {
		s.Config = linkfile.Reader{Sink: s.Sink}
	}

	decls, events, err := linkfile.Load(s.ProjectDir)
	if err != nil {
		return nil, err
	}

	g, graphEvents := graph.Build(decls, s.ProjectDir, s.Manifests)
	order, orderEvents := graph.Resolve(g)

	events = append(events, graphEvents...)
	events = append(events, orderEvents...)
	diag.EmitAll(s.sink(), events)

	s.plan = &Plan{
		Declarations: decls,
		Graph:        g,
		Order:        order,
		Events:       events,
	}
	s.pipeline = &Pipeline{
		Exec:       s.Exec,
		Graph:      g,
		ProjectDir: s.ProjectDir,
		Sink:       s.sink(),
		Out:        s.Out,
		Logger:     s.Logger,
	}
	s.expander = &expand.Expander{
		Exec:      s.Exec,
		Config:    s.Config,
		Manifests: s.Manifests,
		Sink:      s.sink(),
		Out:       s.Out,
	}
	return s.plan, nil
}

// Run builds and links every declared package in build order, expands
// nested declarations, and records the results in the project's state file.
func (s *Session) Run(ctx context.Context) (*Report, error) {
	plan, err := s.Plan()
	if err != nil {
		return nil, err
	}

	report := &Report{Results: s.pipeline.Run(ctx, plan.Order)}
	if s.Recursive && s.Config != nil {
		report.Nested = s.expander.Expand(ctx, plan.Declarations, s.ProjectDir)
	}

	if err := s.record(report.Results); err != nil {
		return report, err
	}
	return report, nil
}

// RunOne builds and links a single declared package without recomputing the
// order. The watcher calls this for each debounced change.
func (s *Session) RunOne(ctx context.Context, name string) (PackageResult, error) {
	plan, err := s.Plan()
	if err != nil {
		return PackageResult{}, err
	}
	if _, ok := plan.Graph.Declaration(name); !ok {
		return PackageResult{}, fmt.Errorf("package %q is not declared in %s", name, linkfile.FilePath(s.ProjectDir))
	}

	s.refreshManifest(plan.Graph, name)
	res := s.pipeline.RunOne(ctx, name)
	if err := s.record([]PackageResult{res}); err != nil {
		return res, err
	}
	return res, nil
}

// refreshManifest rereads a package's manifest so a rebuild sees script
// changes. The dependency edges computed by Plan are kept.
func (s *Session) refreshManifest(g *graph.Graph, name string) {
	node, ok := g.Nodes[name]
	if !ok {
		return
	}
	if cached, ok := s.Manifests.(*manifest.CachedReader); ok {
		cached.Invalidate(node.Path)
	}
	if m, err := s.Manifests.ReadDependencies(node.Path); err == nil {
		node.Manifest = m
	}
}

func (s *Session) record(results []PackageResult) error {
	if len(results) == 0 {
		return nil
	}
	state, err := LoadState(s.ProjectDir)
	if err != nil {
		state = &State{}
	}
	if s.Exec != nil {
		state.Manager = s.Exec.Name()
	}
	state.Record(results, time.Now().UTC())
	return SaveState(s.ProjectDir, state)
}

func (s *Session) sink() diag.Sink {
	if s.Sink == nil {
		return diag.Discard
	}
	return s.Sink
}

// PrintPlan prints the build order with per-package annotations.
func PrintPlan(w io.Writer, plan *Plan) {
	if len(plan.Order) == 0 {
		fmt.Fprintln(w, "  (no packages declared)")
		return
	}
	for i, name := range plan.Order {
		var notes []string
		node, ok := plan.Graph.Nodes[name]
		if !ok {
			notes = append(notes, "no manifest")
		} else if deps := plan.Graph.DepNames(node); len(deps) > 0 {
			notes = append(notes, "after "+strings.Join(deps, ", "))
		}
		if d, ok := plan.Graph.Declaration(name); ok && d.BuildCommand != "" {
			notes = append(notes, "build: "+d.BuildCommand)
		}

		line := fmt.Sprintf("  %2d. %s", i+1, name)
		if len(notes) > 0 {
			line += "  (" + strings.Join(notes, "; ") + ")"
		}
		fmt.Fprintln(w, line)
	}
}

// LinkStatus is the live check of one recorded package.
type LinkStatus struct {
	LinkedPackage
	Present bool // node_modules/<name> resolves to the package path
}

// Status loads the project's state and checks each recorded link.
func Status(projectDir string) (*State, []LinkStatus, error) {
	state, err := LoadState(projectDir)
	if err != nil {
		return nil, nil, err
	}

	statuses := make([]LinkStatus, 0, len(state.Packages))
	for _, p := range state.Packages {
		statuses = append(statuses, LinkStatus{
			LinkedPackage: p,
			Present:       platform.PointsTo(pkgmgr.ModulePath(projectDir, p.Name), p.Path),
		})
	}
	return state, statuses, nil
}

// Unlink removes every recorded package from the project and deletes the
// state file when all removals succeed. It returns the names that failed.
func Unlink(ctx context.Context, projectDir string, exec pkgmgr.Executor, sink diag.Sink) ([]string, error) {
	state, err := LoadState(projectDir)
	if err != nil {
		return nil, err
	}

	var failed []string
	for _, p := range state.Packages {
		pkg := pkgmgr.Package{Name: p.Name, Dir: p.Path}
		if err := exec.Unlink(ctx, projectDir, pkg); err != nil {
			failed = append(failed, p.Name)
			if sink != nil {
				sink.Emit(diag.Event{Kind: diag.LinkFailed, Package: p.Name, Detail: err.Error()})
			}
		}
	}

	if len(failed) > 0 {
		return failed, nil
	}
	return nil, RemoveState(projectDir)
}
