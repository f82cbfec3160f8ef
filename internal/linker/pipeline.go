package linker

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/devlink-labs/devlink/internal/diag"
	"github.com/devlink-labs/devlink/internal/graph"
	"github.com/devlink-labs/devlink/internal/pkgmgr"
)

// Executor builds and links packages.
type Executor interface {
	Build(ctx context.Context, pkg pkgmgr.Package) error
	GlobalLink(ctx context.Context, pkg pkgmgr.Package) error
	LinkInto(ctx context.Context, projectDir string, pkg pkgmgr.Package) error
}

// PackageResult is the outcome of building and linking one package.
type PackageResult struct {
	Name     string
	Dir      string
	Built    bool
	Linked   bool
	Err      error
	Duration time.Duration
}

// OK reports whether the package built and linked.
func (r PackageResult) OK() bool { return r.Built && r.Linked }

// Pipeline builds then links packages in a given order, one at a time. A
// failed build skips that package's link steps; later packages still run.
type Pipeline struct {
	Exec       Executor
	Graph      *graph.Graph
	ProjectDir string
	Sink       diag.Sink
	Out        io.Writer // optional progress lines
	Logger     *zap.Logger
}

// Run processes every name in order and returns the per-package results.
func (p *Pipeline) Run(ctx context.Context, order graph.BuildOrder) []PackageResult {
	results := make([]PackageResult, 0, len(order))
	for i, name := range order {
		p.progress("[%d/%d] %s\n", i+1, len(order), name)
		results = append(results, p.RunOne(ctx, name))
	}
	return results
}

// RunOne builds the named package, creates its global link, and links it
// into the project.
func (p *Pipeline) RunOne(ctx context.Context, name string) PackageResult {
	start := time.Now()
	pkg := p.Package(name)
	res := PackageResult{Name: name, Dir: pkg.Dir}
	defer func() {
		res.Duration = time.Since(start)
		p.logger().Debug("package processed",
			zap.String("package", name),
			zap.Bool("built", res.Built),
			zap.Bool("linked", res.Linked),
			zap.Duration("duration", res.Duration))
	}()

	if err := p.Exec.Build(ctx, pkg); err != nil {
		res.Err = err
		p.emit(diag.Event{Kind: diag.BuildFailed, Package: name, Detail: err.Error()})
		p.progress("  build failed, skipping link\n")
		return res
	}
	res.Built = true

	if err := p.Exec.GlobalLink(ctx, pkg); err != nil {
		res.Err = err
		p.emit(diag.Event{Kind: diag.LinkFailed, Package: name, Detail: err.Error()})
		return res
	}
	if err := p.Exec.LinkInto(ctx, p.ProjectDir, pkg); err != nil {
		res.Err = err
		p.emit(diag.Event{Kind: diag.LinkFailed, Package: name, Detail: err.Error()})
		return res
	}
	res.Linked = true
	return res
}

// Package returns the executor view of a declared package.
func (p *Pipeline) Package(name string) pkgmgr.Package {
	pkg := pkgmgr.Package{Name: name, Dir: p.Graph.Path(name)}
	if d, ok := p.Graph.Declaration(name); ok {
		pkg.BuildCommand = d.BuildCommand
	}
	if n, ok := p.Graph.Nodes[name]; ok {
		pkg.Manifest = n.Manifest
	}
	return pkg
}

func (p *Pipeline) progress(format string, args ...any) {
	if p.Out != nil {
		fmt.Fprintf(p.Out, format, args...)
	}
}

func (p *Pipeline) emit(e diag.Event) {
	if p.Sink != nil {
		p.Sink.Emit(e)
	}
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
