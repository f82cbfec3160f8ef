package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/devlink-labs/devlink/internal/config"
	"github.com/devlink-labs/devlink/internal/diag"
	"github.com/devlink-labs/devlink/internal/graph"
	"github.com/devlink-labs/devlink/internal/linkfile"
	"github.com/devlink-labs/devlink/internal/manifest"
	"github.com/devlink-labs/devlink/internal/pkgmgr"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the project's declarations before linking",
	Long: `Run diagnostic checks on the project: the package manager is installed,
every declared path exists and has a valid package.json, the project's
version ranges accept the local versions, and the graph has no cycles.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := projectDir()
		if err != nil {
			return err
		}

		d := &doctor{
			out:      cmd.OutOrStdout(),
			dir:      dir,
			manager:  config.Current().PackageManager,
			lookPath: exec.LookPath,
		}
		if d.run() > 0 {
			return fmt.Errorf("doctor found %d problem(s)", d.failures)
		}
		return nil
	},
}

// doctor runs the checks and counts the outcome.
type doctor struct {
	out      io.Writer
	dir      string
	manager  string
	lookPath func(string) (string, error)

	failures int
	warnings int
}

// run performs every check and returns the number of failures.
func (d *doctor) run() int {
	d.checkManager()

	decls, events, err := linkfile.Load(d.dir)
	if err != nil {
		d.fail("%v", err)
		return d.summary()
	}
	fmt.Fprintf(d.out, "Declarations (%s):\n", linkfile.FilePath(d.dir))
	for _, e := range events {
		if len(decls) == 0 {
			d.info("%s", e.Detail)
		} else {
			d.warn("%s", e)
		}
	}

	locals := d.checkPackages(decls)
	d.checkRanges(decls, locals)
	d.checkCycles(decls)
	return d.summary()
}

func (d *doctor) checkManager() {
	fmt.Fprintln(d.out, "Package manager:")
	bin := d.manager
	switch bin {
	case pkgmgr.Symlink:
		d.ok("symlink mode, no package manager needed for linking")
		bin = pkgmgr.NPM
	case "":
		bin = pkgmgr.NPM
	case pkgmgr.NPM, pkgmgr.Yarn, pkgmgr.PNPM:
	default:
		d.fail("unknown package manager %q", bin)
		return
	}

	path, err := d.lookPath(bin)
	if err != nil {
		if d.manager == pkgmgr.Symlink {
			d.warn("%s not found, build scripts cannot run", bin)
			return
		}
		d.fail("%s not found on PATH", bin)
		return
	}
	d.ok("%s found at %s", bin, path)
}

// checkPackages validates each declared package.json and returns the
// manifests that parsed.
func (d *doctor) checkPackages(decls []linkfile.Declaration) map[string]*manifest.Package {
	fmt.Fprintln(d.out, "Packages:")
	locals := make(map[string]*manifest.Package, len(decls))
	for _, decl := range decls {
		dir := decl.Resolve(d.dir)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			d.fail("%s: path %s does not exist", decl.Name, dir)
			continue
		}

		result, err := manifest.ValidateFile(filepath.Join(dir, manifest.FileName))
		if err != nil {
			if errors.Is(err, manifest.ErrNotFound) {
				d.fail("%s: no %s in %s", decl.Name, manifest.FileName, dir)
			} else {
				d.fail("%s: %v", decl.Name, err)
			}
			continue
		}
		if !result.Valid {
			d.fail("%s: %d schema issue(s)", decl.Name, len(result.Issues))
			for _, issue := range result.Issues {
				fmt.Fprintf(d.out, "    - %s\n", issue)
			}
			continue
		}

		pkg, err := manifest.ReadDir(dir)
		if err != nil {
			d.fail("%s: %v", decl.Name, err)
			continue
		}
		locals[decl.Name] = pkg
		if pkg.Name != decl.Name {
			d.warn("%s: package.json names it %q", decl.Name, pkg.Name)
			continue
		}
		d.ok("%s %s", decl.Name, pkg.Version)
	}
	return locals
}

// checkRanges compares the project's declared ranges with local versions.
// Mismatches are warnings: linking still works, the range just lies.
func (d *doctor) checkRanges(decls []linkfile.Declaration, locals map[string]*manifest.Package) {
	consumer, err := manifest.ReadDir(d.dir)
	if err != nil {
		return
	}
	fmt.Fprintln(d.out, "Version ranges:")
	for _, decl := range decls {
		name, pkg := decl.Name, locals[decl.Name]
		if pkg == nil {
			continue
		}
		rng, declared := consumer.DeclaredRange(name)
		if !declared {
			d.info("%s is not listed in the project's package.json", name)
			continue
		}
		satisfied, ok, err := manifest.Satisfies(pkg.Version, rng)
		switch {
		case err != nil:
			d.warn("%s: %v", name, err)
		case !ok:
			d.info("%s: range %q is not a semver range", name, rng)
		case !satisfied:
			d.warn("%s: local version %s does not satisfy %q", name, pkg.Version, rng)
		default:
			d.ok("%s: %s satisfies %q", name, pkg.Version, rng)
		}
	}
}

func (d *doctor) checkCycles(decls []linkfile.Declaration) {
	if len(decls) == 0 {
		return
	}
	fmt.Fprintln(d.out, "Dependency graph:")
	g, events := graph.Build(decls, d.dir, manifest.Reader{})
	_, orderEvents := graph.Resolve(g)
	events = append(events, orderEvents...)

	cycles := diag.Filter(events, diag.CycleWarning)
	if len(cycles) == 0 {
		d.ok("no cycles")
		return
	}
	for _, e := range cycles {
		d.warn("%s", e)
	}
}

func (d *doctor) summary() int {
	p := message.NewPrinter(language.English)
	fmt.Fprintln(d.out)
	if d.failures == 0 && d.warnings == 0 {
		p.Fprintln(d.out, "All checks passed.")
		return 0
	}
	p.Fprintf(d.out, "%d problem(s), %d warning(s).\n", d.failures, d.warnings)
	return d.failures
}

func (d *doctor) ok(format string, args ...any) {
	fmt.Fprintf(d.out, "  [ OK ] "+format+"\n", args...)
}

func (d *doctor) info(format string, args ...any) {
	fmt.Fprintf(d.out, "  [INFO] "+format+"\n", args...)
}

func (d *doctor) warn(format string, args ...any) {
	d.warnings++
	fmt.Fprintf(d.out, "  [WARN] "+format+"\n", args...)
}

func (d *doctor) fail(format string, args ...any) {
	d.failures++
	fmt.Fprintf(d.out, "  [FAIL] "+format+"\n", args...)
}
