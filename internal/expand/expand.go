package expand

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/devlink-labs/devlink/internal/diag"
	"github.com/devlink-labs/devlink/internal/graph"
	"github.com/devlink-labs/devlink/internal/linkfile"
	"github.com/devlink-labs/devlink/internal/pkgmgr"
)

// Executor builds and links nested packages.
type Executor interface {
	Build(ctx context.Context, pkg pkgmgr.Package) error
	GlobalLink(ctx context.Context, pkg pkgmgr.Package) error
	LinkInto(ctx context.Context, projectDir string, pkg pkgmgr.Package) error
}

// ConfigReader finds and reads nested declaration files. Relative paths in a
// nested file are resolved by the Expander against the directory passed here.
type ConfigReader interface {
	HasNested(dir string) bool
	ReadNested(dir string) ([]linkfile.Declaration, error)
}

// Key identifies an expanded package.
type Key struct {
	Name string
	Path string
}

// Result summarizes one Expand call.
type Result struct {
	Expanded []Key    // packages whose nested file was read, in order
	Linked   int      // nested packages built and linked successfully
	Failures []string // nested packages whose build or link failed
}

// OK reports whether every nested package built and linked.
func (r Result) OK() bool { return len(r.Failures) == 0 }

// Expander expands nested declarations. The processed set persists across
// Expand calls, so a package expanded by the initial run is not expanded
// again by a later call.
type Expander struct {
	Exec      Executor
	Config    ConfigReader
	Manifests graph.ManifestLookup // optional; supplies build scripts
	Sink      diag.Sink
	Out       io.Writer // optional progress lines, indented by depth

	mu        sync.Mutex
	processed map[Key]bool
}

// item is a pending unit of work. Root items are the top-level declarations,
// which the main pipeline already built and linked.
type item struct {
	decl       linkfile.Declaration
	dir        string
	parentDir  string
	parentName string
	depth      int
	root       bool
}

// Expand processes roots depth-first, in declaration order, using an explicit
// stack. For a nested item the order is: build, global link, link into the
// parent's directory, then expand its own nested file. Failures are reported
// and never stop the walk.
func (e *Expander) Expand(ctx context.Context, roots []linkfile.Declaration, base string) Result {
	var res Result

	stack := make([]item, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, item{decl: roots[i], dir: roots[i].Resolve(base), root: true})
	}

	for len(stack) > 0 {
		if ctx.Err() != nil {
			return res
		}
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !it.root {
			if e.linkNested(ctx, it) {
				res.Linked++
			} else {
				res.Failures = append(res.Failures, it.decl.Name)
			}
		}

		children, key, ok := e.children(it)
		if !ok {
			continue
		}
		res.Expanded = append(res.Expanded, key)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return res
}

// Processed reports whether key has already been expanded.
func (e *Expander) Processed(key Key) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processed[key]
}

// claim marks key processed and reports whether it was new.
func (e *Expander) claim(key Key) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.processed == nil {
		e.processed = make(map[Key]bool)
	}
	if e.processed[key] {
		return false
	}
	e.processed[key] = true
	return true
}

// children returns the nested declarations of it as work items, or ok=false
// when it has no nested file or was already expanded.
func (e *Expander) children(it item) ([]item, Key, bool) {
	key := Key{Name: it.decl.Name, Path: it.dir}
	if !e.Config.HasNested(it.dir) {
		return nil, key, false
	}
	if !e.claim(key) {
		e.emit(diag.Event{
			Kind:    diag.RecursionGuard,
			Package: it.decl.Name,
			Detail:  fmt.Sprintf("nested declarations in %s already expanded", it.dir),
		})
		return nil, key, false
	}

	decls, err := e.Config.ReadNested(it.dir)
	if err != nil {
		e.emit(diag.Event{
			Kind:    diag.ConfigError,
			Package: it.decl.Name,
			Detail:  fmt.Sprintf("reading nested declarations: %v", err),
		})
		return nil, key, true
	}

	items := make([]item, len(decls))
	for i, d := range decls {
		items[i] = item{
			decl:       d,
			dir:        d.Resolve(it.dir),
			parentDir:  it.dir,
			parentName: it.decl.Name,
			depth:      it.depth + 1,
		}
	}
	return items, key, true
}

// linkNested builds it and links it into its parent. A failed build skips the
// link steps.
func (e *Expander) linkNested(ctx context.Context, it item) bool {
	pkg := pkgmgr.Package{
		Name:         it.decl.Name,
		Dir:          it.dir,
		BuildCommand: it.decl.BuildCommand,
	}
	if e.Manifests != nil {
		if m, err := e.Manifests.ReadDependencies(it.dir); err == nil {
			pkg.Manifest = m
		}
	}

	if e.Out != nil {
		fmt.Fprintf(e.Out, "%s↳ %s (into %s)\n", strings.Repeat("  ", it.depth), it.decl.Name, it.parentName)
	}

	if err := e.Exec.Build(ctx, pkg); err != nil {
		e.emit(diag.Event{Kind: diag.BuildFailed, Package: pkg.Name, Detail: err.Error()})
		return false
	}
	if err := e.Exec.GlobalLink(ctx, pkg); err != nil {
		e.emit(diag.Event{Kind: diag.LinkFailed, Package: pkg.Name, Detail: err.Error()})
		return false
	}
	if err := e.Exec.LinkInto(ctx, it.parentDir, pkg); err != nil {
		e.emit(diag.Event{Kind: diag.LinkFailed, Package: pkg.Name, Detail: err.Error()})
		return false
	}
	return true
}

func (e *Expander) emit(ev diag.Event) {
	if e.Sink != nil {
		e.Sink.Emit(ev)
	}
}
