package pkgmgr

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/devlink-labs/devlink/internal/platform"
)

// SymlinkLinker links packages by writing node_modules/<name> symlinks
// directly. There is no global registry, so GlobalLink is a no-op.
type SymlinkLinker struct {
	// ScriptBin runs manifest build scripts ("<bin> run build").
	ScriptBin string
	runner    Runner
}

// Name returns "symlink".
func (s *SymlinkLinker) Name() string { return Symlink }

// Build runs the package's build step, as Manager.Build does.
func (s *SymlinkLinker) Build(ctx context.Context, pkg Package) error {
	return runBuild(ctx, s.runner, s.ScriptBin, pkg)
}

// GlobalLink does nothing in symlink mode.
func (s *SymlinkLinker) GlobalLink(context.Context, Package) error { return nil }

// LinkInto points <projectDir>/node_modules/<name> at the package directory.
// Scoped names (@scope/name) get their scope directory created.
func (s *SymlinkLinker) LinkInto(_ context.Context, projectDir string, pkg Package) error {
	link := ModulePath(projectDir, pkg.Name)
	if err := platform.CreateSymlink(pkg.Dir, link); err != nil {
		return fmt.Errorf("linking %s into %s: %w", pkg.Name, projectDir, err)
	}
	return nil
}

// Unlink removes the node_modules symlink for the package.
func (s *SymlinkLinker) Unlink(_ context.Context, projectDir string, pkg Package) error {
	if err := platform.RemoveSymlink(ModulePath(projectDir, pkg.Name)); err != nil {
		return fmt.Errorf("unlinking %s from %s: %w", pkg.Name, projectDir, err)
	}
	return nil
}

// ModulePath returns where a package named name is installed in projectDir.
func ModulePath(projectDir, name string) string {
	return filepath.Join(projectDir, "node_modules", filepath.FromSlash(name))
}
