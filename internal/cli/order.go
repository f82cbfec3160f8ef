package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devlink-labs/devlink/internal/graph"
	"github.com/devlink-labs/devlink/internal/linker"
)

var orderTree bool

func init() {
	orderCmd.Flags().BoolVar(&orderTree, "tree", true, "Also print the dependency tree")
	rootCmd.AddCommand(orderCmd)
}

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Print the build order without building anything",
	Long: `Resolve the declared packages into the order link would build them in
and print it, followed by the dependency tree. Cycles and packages without
a readable package.json are marked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := projectDir()
		if err != nil {
			return err
		}

		session := &linker.Session{ProjectDir: dir, Sink: newSink()}
		plan, err := session.Plan()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Build order:")
		linker.PrintPlan(out, plan)

		if orderTree && len(plan.Order) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Dependency tree:")
			graph.PrintTree(out, plan.Graph)
		}
		return nil
	},
}
