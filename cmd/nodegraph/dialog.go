package main

import (
	"fmt"
	"strconv"

	"github.com/aretw0/nodegraph/internal/cli"
	"github.com/spf13/cobra"
)

var dialogCmd = &cobra.Command{
	Use:   "dialog",
	Short: "List and play the dialog trees of a graph",
}

var dialogListCmd = &cobra.Command{
	Use:   "ls [graph]",
	Short: "List dialog ids",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		engine, err := cli.NewEngine(cmd.Context(), cfg, cli.EngineOptions{})
		if err != nil {
			return err
		}
		ids, err := engine.Dialogs()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No dialogs found.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		return nil
	},
}

var dialogPlayCmd = &cobra.Command{
	Use:   "play <dialog-id> [graph]",
	Short: "Play a dialog interactively",
	Long: `Starts the conversation and reads one choice per line: an option number, "next"
(or an empty line), "back", or "exit". With --session the conversation is stored
and resumed from the configured session store.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dialogID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid dialog id %q: %w", args[0], err)
		}
		cfg, err := loadConfig(cmd, args[1:])
		if err != nil {
			return err
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		logger := cli.NewLogger(cfg)
		engine, err := cli.NewEngine(sigCtx, cfg, cli.EngineOptions{Logger: logger})
		if err != nil {
			return err
		}

		opts := cli.PlayOptions{DialogID: dialogID}
		opts.Reset, _ = cmd.Flags().GetBool("reset")
		opts.Headless, _ = cmd.Flags().GetBool("headless")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Input = cmd.InOrStdin()
		opts.Output = cmd.OutOrStdout()
		opts.SessionID, _ = cmd.Flags().GetString("session")
		if opts.SessionID != "" {
			p, err := cli.NewPersistence(sigCtx, cfg, logger, engine.DialogOptions()...)
			if err != nil {
				return err
			}
			defer p.Close()
			opts.Manager = p.Manager
		}
		return cli.Play(sigCtx, engine, opts)
	},
}

func init() {
	rootCmd.AddCommand(dialogCmd)
	dialogCmd.AddCommand(dialogListCmd, dialogPlayCmd)
	dialogPlayCmd.Flags().String("session", "", "Store the conversation under this session id")
	dialogPlayCmd.Flags().Bool("reset", false, "Restart the conversation from its start node")
	dialogPlayCmd.Flags().Bool("headless", false, "Plain output without banner, prompt or markdown")
	dialogPlayCmd.Flags().Bool("json", false, "Exchange views and choices as JSON lines")
}
