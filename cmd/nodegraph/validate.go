package main

import (
	"fmt"

	"github.com/aretw0/nodegraph"
	"github.com/aretw0/nodegraph/internal/cli"
	"github.com/aretw0/nodegraph/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [graph]",
	Short: "Check the graph for consistency",
	Long: `Reports unknown node types, broken connections, type mismatches, duplicate dialog ids
and dialog nodes that no start node reaches. Warnings do not fail the command.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		loader, err := cli.OpenLoader(cfg.Graph, cfg.Lenient)
		if err != nil {
			return err
		}
		doc, err := loader.Load(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		res := validator.ValidateDocument(doc, nodegraph.DefaultRegistry(), nil)
		for _, w := range res.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
		if err := res.Err(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintln(out, "Graph is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
