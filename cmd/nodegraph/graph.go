package main

import (
	"fmt"

	"github.com/aretw0/nodegraph/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [graph]",
	Short: "Export the graph as a Mermaid diagram",
	Long: `Loads the graph and prints a Mermaid diagram (graph TD) of its nodes and connections.
With --eval the graph is evaluated first so calculated and stuck nodes are highlighted.`,
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

		if eval, _ := cmd.Flags().GetBool("eval"); eval {
			if _, err := engine.Evaluate(cmd.Context()); err != nil {
				return err
			}
		}

		output, err := engine.Mermaid()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("eval", false, "Evaluate before exporting to highlight calculated and stuck nodes")
}
