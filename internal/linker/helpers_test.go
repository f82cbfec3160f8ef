package linker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devlink-labs/devlink/internal/branding"
	"github.com/devlink-labs/devlink/internal/pkgmgr"
)

// fakeExec records every step and fails the ones it is told to.
type fakeExec struct {
	mu         sync.Mutex
	ops        []string
	failBuild  map[string]bool
	failLink   map[string]bool
	failUnlink map[string]bool
}

func newFakeExec() *fakeExec {
	return &fakeExec{
		failBuild:  map[string]bool{},
		failLink:   map[string]bool{},
		failUnlink: map[string]bool{},
	}
}

func (f *fakeExec) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
}

func (f *fakeExec) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func (f *fakeExec) Name() string { return "fake" }

func (f *fakeExec) Build(_ context.Context, pkg pkgmgr.Package) error {
	f.record("build " + pkg.Name)
	if f.failBuild[pkg.Name] {
		return fmt.Errorf("building %s: exit status 1", pkg.Name)
	}
	return nil
}

func (f *fakeExec) GlobalLink(_ context.Context, pkg pkgmgr.Package) error {
	f.record("global " + pkg.Name)
	return nil
}

func (f *fakeExec) LinkInto(_ context.Context, projectDir string, pkg pkgmgr.Package) error {
	f.record("into " + pkg.Name + " " + filepath.Base(projectDir))
	if f.failLink[pkg.Name] {
		return fmt.Errorf("linking %s: exit status 1", pkg.Name)
	}
	return nil
}

func (f *fakeExec) Unlink(_ context.Context, _ string, pkg pkgmgr.Package) error {
	f.record("unlink " + pkg.Name)
	if f.failUnlink[pkg.Name] {
		return fmt.Errorf("unlinking %s: exit status 1", pkg.Name)
	}
	return nil
}

// workspace lays out a project directory next to its local packages.
type workspace struct {
	t    *testing.T
	root string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	return &workspace{t: t, root: t.TempDir()}
}

func (w *workspace) dir(name string) string {
	return filepath.Join(w.root, name)
}

// pkg writes name/package.json declaring deps as dependencies.
func (w *workspace) pkg(name string, deps ...string) string {
	w.t.Helper()
	dir := w.dir(name)
	require.NoError(w.t, os.MkdirAll(dir, 0755))

	quoted := make([]string, len(deps))
	for i, d := range deps {
		quoted[i] = fmt.Sprintf("%q: \"^1.0.0\"", d)
	}
	manifest := fmt.Sprintf("{\"name\": %q, \"version\": \"1.0.0\", \"dependencies\": {%s}}", name, strings.Join(quoted, ", "))
	require.NoError(w.t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifest), 0644))
	return dir
}

// linkfile writes the declaration file in dir.
func (w *workspace) linkfile(dir string, lines ...string) {
	w.t.Helper()
	require.NoError(w.t, os.MkdirAll(dir, 0755))
	content := strings.Join(lines, "\n") + "\n"
	require.NoError(w.t, os.WriteFile(filepath.Join(dir, branding.LinkFile()), []byte(content), 0644))
}
