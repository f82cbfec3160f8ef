package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devlink-labs/devlink/internal/config"
	"github.com/devlink-labs/devlink/internal/linker"
)

func init() {
	rootCmd.AddCommand(unlinkCmd)
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink",
	Short: "Remove linked packages from this project",
	Long: `Remove every package recorded by the last link run from the project and
delete the link state. Uses the package manager the links were created with.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := projectDir()
		if err != nil {
			return err
		}

		state, err := linker.LoadState(dir)
		if errors.Is(err, linker.ErrNoState) {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to unlink.")
			return nil
		}
		if err != nil {
			return err
		}

		manager := state.Manager
		if manager == "" {
			manager = config.Current().PackageManager
		}
		exec, err := newExecutor(cmd, manager)
		if err != nil {
			return err
		}

		failed, err := linker.Unlink(cmd.Context(), dir, exec, newSink())
		if err != nil {
			return err
		}
		if len(failed) > 0 {
			return fmt.Errorf("could not unlink %s", strings.Join(failed, ", "))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Unlinked %d package(s).\n", len(state.Packages))
		return nil
	},
}
