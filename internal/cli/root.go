package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/devlink-labs/devlink/internal/branding"
	"github.com/devlink-labs/devlink/internal/config"
	"github.com/devlink-labs/devlink/internal/diag"
	"github.com/devlink-labs/devlink/internal/logging"
	"github.com/devlink-labs/devlink/internal/pkgmgr"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	projectFlag string
	verbose     bool
	logger      = zap.NewNop()
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&projectFlag, "project", "C", "", "Project directory (default: current directory)")
	flags.String("manager", "", "Package manager: npm, yarn, pnpm or symlink")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Show debug output")
	_ = viper.BindPFlag(config.KeyPackageManager, flags.Lookup("manager"))
}

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` builds local packages in dependency order and links them into a
project, so changes to a library show up in its consumers without publishing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.New(verbose, cmd.ErrOrStderr())
		if err := config.Load(); err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return rootCmd.Execute()
}

// projectDir returns the absolute project directory from --project or the
// working directory.
func projectDir() (string, error) {
	dir := projectFlag
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = cwd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving project directory %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project directory %s is not a directory", abs)
	}
	return abs, nil
}

// newExecutor returns the executor for the configured package manager.
// Command output streams to the command's writers.
func newExecutor(cmd *cobra.Command, manager string) (pkgmgr.Executor, error) {
	runner := &pkgmgr.ExecRunner{
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		Logger: logger,
	}
	return pkgmgr.New(manager, runner)
}

func newSink() diag.Sink {
	return diag.NewLogSink(logger)
}
