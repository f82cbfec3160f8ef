package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devlink-labs/devlink/internal/config"
	"github.com/devlink-labs/devlink/internal/linker"
	"github.com/devlink-labs/devlink/internal/watch"
)

var (
	linkWatch       bool
	linkNoRecursive bool
	linkOnly        string
)

func init() {
	linkCmd.Flags().BoolVarP(&linkWatch, "watch", "w", false, "Keep running and rebuild packages when their files change")
	linkCmd.Flags().BoolVar(&linkNoRecursive, "no-recursive", false, "Do not expand nested declaration files")
	linkCmd.Flags().StringVar(&linkOnly, "only", "", "Build and link a single declared package")
	rootCmd.AddCommand(linkCmd)
}

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Build and link local packages into this project",
	Long: `Read the project's declaration file, build every declared package in
dependency order, and link each one into the project's node_modules.

Packages that carry their own declaration file have those packages built
and linked into them too, unless --no-recursive is given.

Example:
  devlink link
  devlink link --watch
  devlink link --only @acme/ui --manager pnpm`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := projectDir()
		if err != nil {
			return err
		}
		settings := config.Current()
		exec, err := newExecutor(cmd, settings.PackageManager)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		session := &linker.Session{
			ProjectDir: dir,
			Recursive:  settings.Recursive && !linkNoRecursive,
			Exec:       exec,
			Sink:       newSink(),
			Out:        out,
			Logger:     logger,
		}

		ok, err := runLink(ctx, cmd, session)
		if err != nil {
			return err
		}

		if linkWatch {
			return runWatch(ctx, cmd, session, settings)
		}
		if !ok {
			return fmt.Errorf("some packages failed to build or link")
		}
		return nil
	},
}

func runLink(ctx context.Context, cmd *cobra.Command, session *linker.Session) (bool, error) {
	out := cmd.OutOrStdout()
	if linkOnly != "" {
		res, err := session.RunOne(ctx, linkOnly)
		if err != nil {
			return false, err
		}
		if !res.OK() {
			fmt.Fprintf(out, "%s failed: %v\n", res.Name, res.Err)
			return false, nil
		}
		fmt.Fprintf(out, "Linked %s.\n", res.Name)
		return true, nil
	}

	report, err := session.Run(ctx)
	if err != nil {
		return false, err
	}
	printSummary(cmd, report)
	return report.OK(), nil
}

func printSummary(cmd *cobra.Command, report *linker.Report) {
	out := cmd.OutOrStdout()
	linked := report.Nested.Linked
	for _, r := range report.Results {
		if r.OK() {
			linked++
		}
	}

	failed := report.Failed()
	if len(failed) == 0 {
		fmt.Fprintf(out, "Linked %d package(s).\n", linked)
		return
	}
	fmt.Fprintf(out, "Linked %d package(s), %d failed:\n", linked, len(failed))
	for _, name := range failed {
		fmt.Fprintf(out, "  - %s\n", name)
	}
}

func runWatch(ctx context.Context, cmd *cobra.Command, session *linker.Session, settings config.Settings) error {
	plan, err := session.Plan()
	if err != nil {
		return err
	}

	targets := make([]watch.Target, 0, len(plan.Declarations))
	for _, d := range plan.Declarations {
		if linkOnly != "" && d.Name != linkOnly {
			continue
		}
		targets = append(targets, watch.Target{
			Name:     d.Name,
			Dir:      plan.Graph.Path(d.Name),
			Patterns: d.WatchPatterns,
		})
	}
	if len(targets) == 0 {
		return fmt.Errorf("no packages to watch")
	}

	rebuild := func(ctx context.Context, name string) error {
		res, err := session.RunOne(ctx, name)
		if err != nil {
			return err
		}
		return res.Err
	}

	w := watch.New(targets, rebuild, watch.Options{
		Debounce:        settings.Debounce,
		DefaultPatterns: settings.DefaultPatterns,
		Logger:          logger,
		Out:             cmd.OutOrStdout(),
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %d package(s). Press Ctrl+C to stop.\n", len(targets))
	return w.Run(ctx)
}
