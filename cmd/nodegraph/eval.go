package main

import (
	"github.com/aretw0/nodegraph/internal/cli"
	"github.com/spf13/cobra"
)

var evalCmd = &cobra.Command{
	Use:   "eval [graph]",
	Short: "Evaluate the graph and report calculated and stuck nodes",
	Long: `Propagates values through the whole graph, or downstream of one node with --from.
Inputs can be set before evaluating with --set node.port=value (repeatable).
The command fails when nodes are left stuck.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		engine, err := cli.NewEngine(cmd.Context(), cfg, cli.EngineOptions{})
		if err != nil {
			return err
		}

		opts := cli.EvalOptions{}
		opts.From, _ = cmd.Flags().GetString("from")
		opts.Set, _ = cmd.Flags().GetStringArray("set")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Plain, _ = cmd.Flags().GetBool("plain")
		return cli.Eval(cmd.Context(), engine, opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().String("from", "", "Recalculate downstream of this node only")
	evalCmd.Flags().StringArray("set", nil, "Set an input before evaluating (node.port=value)")
	evalCmd.Flags().Bool("json", false, "Print the report and node values as JSON")
	evalCmd.Flags().Bool("plain", false, "Disable colors")
}
