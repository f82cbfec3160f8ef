package pkgmgr

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/devlink-labs/devlink/internal/branding"
	"github.com/devlink-labs/devlink/internal/manifest"
)

// ErrUnknownManager is returned by New for an unsupported manager name.
var ErrUnknownManager = errors.New("unknown package manager")

// Supported manager identifiers.
const (
	NPM     = "npm"
	Yarn    = "yarn"
	PNPM    = "pnpm"
	Symlink = "symlink"
)

// Package is a declared package ready for building and linking.
type Package struct {
	Name         string
	Dir          string // absolute package directory
	BuildCommand string
	Manifest     *manifest.Package // nil when the manifest could not be read
}

// Executor performs the build and link steps for one package.
type Executor interface {
	// Build runs the package's build step in its directory.
	Build(ctx context.Context, pkg Package) error
	// GlobalLink registers the package so any project can link it by name.
	GlobalLink(ctx context.Context, pkg Package) error
	// LinkInto links the package into the project rooted at projectDir.
	LinkInto(ctx context.Context, projectDir string, pkg Package) error
	// Unlink removes the package's link from the project rooted at projectDir.
	Unlink(ctx context.Context, projectDir string, pkg Package) error
	// Name returns the manager identifier.
	Name() string
}

// New returns the Executor for the named manager.
func New(name string, runner Runner) (Executor, error) {
	switch name {
	case NPM, "":
		return &Manager{Bin: NPM, runner: runner, commands: npmCommands}, nil
	case Yarn:
		return &Manager{Bin: Yarn, runner: runner, commands: yarnCommands}, nil
	case PNPM:
		return &Manager{Bin: PNPM, runner: runner, commands: pnpmCommands}, nil
	case Symlink:
		return &SymlinkLinker{ScriptBin: NPM, runner: runner}, nil
	default:
		return nil, fmt.Errorf("%w %q: supported managers are %s, %s, %s and %s", ErrUnknownManager, name, NPM, Yarn, PNPM, Symlink)
	}
}

// commandSet holds the argument lists a manager uses for each step.
type commandSet struct {
	globalLink func() []string
	linkInto   func(name string) []string
	unlink     func(name string) []string
}

var npmCommands = commandSet{
	globalLink: func() []string { return []string{"link"} },
	linkInto:   func(name string) []string { return []string{"link", name} },
	unlink:     func(name string) []string { return []string{"unlink", "--no-save", name} },
}

var yarnCommands = commandSet{
	globalLink: func() []string { return []string{"link"} },
	linkInto:   func(name string) []string { return []string{"link", name} },
	unlink:     func(name string) []string { return []string{"unlink", name} },
}

var pnpmCommands = commandSet{
	globalLink: func() []string { return []string{"link", "--global"} },
	linkInto:   func(name string) []string { return []string{"link", "--global", name} },
	unlink:     func(name string) []string { return []string{"unlink", name} },
}

// Manager drives npm, yarn, or pnpm.
type Manager struct {
	Bin      string
	runner   Runner
	commands commandSet
}

// Name returns the manager binary name.
func (m *Manager) Name() string { return m.Bin }

// Build runs the package's build step. See runBuild.
func (m *Manager) Build(ctx context.Context, pkg Package) error {
	return runBuild(ctx, m.runner, m.Bin, pkg)
}

// GlobalLink runs "<pm> link" in the package directory.
func (m *Manager) GlobalLink(ctx context.Context, pkg Package) error {
	if err := m.runner.Run(ctx, pkg.Dir, packageEnv(pkg), m.Bin, m.commands.globalLink()...); err != nil {
		return fmt.Errorf("creating global link for %s: %w", pkg.Name, err)
	}
	return nil
}

// LinkInto runs "<pm> link <name>" in the project directory.
func (m *Manager) LinkInto(ctx context.Context, projectDir string, pkg Package) error {
	if err := m.runner.Run(ctx, projectDir, packageEnv(pkg), m.Bin, m.commands.linkInto(pkg.Name)...); err != nil {
		return fmt.Errorf("linking %s into %s: %w", pkg.Name, projectDir, err)
	}
	return nil
}

// Unlink runs "<pm> unlink <name>" in the project directory.
func (m *Manager) Unlink(ctx context.Context, projectDir string, pkg Package) error {
	if err := m.runner.Run(ctx, projectDir, packageEnv(pkg), m.Bin, m.commands.unlink(pkg.Name)...); err != nil {
		return fmt.Errorf("unlinking %s from %s: %w", pkg.Name, projectDir, err)
	}
	return nil
}

// runBuild runs an explicit build command through the shell, or "<bin> run
// build" when the manifest defines a build script. With neither, the build
// step succeeds without running anything.
func runBuild(ctx context.Context, runner Runner, bin string, pkg Package) error {
	var err error
	switch {
	case pkg.BuildCommand != "":
		shell, flag := shellCommand()
		err = runner.Run(ctx, pkg.Dir, packageEnv(pkg), shell, flag, pkg.BuildCommand)
	case pkg.Manifest != nil && pkg.Manifest.HasScript("build"):
		err = runner.Run(ctx, pkg.Dir, packageEnv(pkg), bin, "run", "build")
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("building %s: %w", pkg.Name, err)
	}
	return nil
}

// HasBuildStep reports whether Build would run a command for pkg.
func HasBuildStep(pkg Package) bool {
	return pkg.BuildCommand != "" || (pkg.Manifest != nil && pkg.Manifest.HasScript("build"))
}

func shellCommand() (string, string) {
	if runtime.GOOS == "windows" {
		return "cmd", "/C"
	}
	return "sh", "-c"
}

// packageEnv exposes the package being processed to build commands.
func packageEnv(pkg Package) []string {
	return []string{
		branding.EnvVar("PACKAGE") + "=" + pkg.Name,
		branding.EnvVar("PACKAGE_DIR") + "=" + pkg.Dir,
	}
}
