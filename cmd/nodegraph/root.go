package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/nodegraph/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nodegraph",
	Short: "nodegraph evaluates dataflow graphs and plays dialog trees",
	Long: `nodegraph loads a node graph from a YAML, JSON or HCL file (or a directory of
markdown nodes), propagates values through it and runs the dialog conversations
it contains. It can also serve the graph over HTTP or MCP.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default nodegraph.yaml when present)")
	rootCmd.PersistentFlags().StringP("graph", "g", "", "Graph file or directory")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("store", "", "Session store: memory, file or redis")
	rootCmd.PersistentFlags().Bool("lenient", false, "Repair malformed JSON graphs while loading")
}

// loadConfig reads the config file and environment, then applies the flags
// the user set explicitly. A positional argument names the graph when --graph is absent.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("graph") {
		cfg.Graph, _ = flags.GetString("graph")
	} else if len(args) > 0 {
		cfg.Graph = args[0]
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("store") {
		cfg.Store.Kind, _ = flags.GetString("store")
	}
	if flags.Changed("lenient") {
		cfg.Lenient, _ = flags.GetBool("lenient")
	}
	return cfg, cfg.Validate()
}
