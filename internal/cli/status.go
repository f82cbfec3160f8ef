package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devlink-labs/devlink/internal/branding"
	"github.com/devlink-labs/devlink/internal/linker"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the packages linked into this project",
	Long: `Show the result of the last link run for each package and check that
node_modules still points at the local package.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := projectDir()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		state, statuses, err := linker.Status(dir)
		if errors.Is(err, linker.ErrNoState) {
			fmt.Fprintf(out, "Nothing linked yet. Run '%s link'.\n", branding.CLIName())
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Manager: %s (updated %s)\n", state.Manager, state.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
		for _, s := range statuses {
			fmt.Fprintf(out, "  [%s] %-24s %s\n", statusIcon(s), s.Name, s.Path)
			if s.Error != "" {
				fmt.Fprintf(out, "       last error: %s\n", s.Error)
			}
		}
		return nil
	},
}

func statusIcon(s linker.LinkStatus) string {
	switch {
	case s.Error != "" || !s.Built:
		return "!!"
	case s.Present:
		return "OK"
	default:
		return "--"
	}
}
