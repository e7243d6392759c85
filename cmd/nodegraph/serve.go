package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/nodegraph/internal/cli"
	httpAdapter "github.com/aretw0/nodegraph/pkg/adapters/http"
	"github.com/aretw0/nodegraph/pkg/observability"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [graph]",
	Short: "Start the HTTP server",
	Long: `Serves the graph over a JSON API: evaluation, input updates, dialogs, stored
sessions and a server-sent event stream of graph changes. The API is described by
/openapi.yaml and requests are validated against it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.HTTPAddr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("metrics") {
			cfg.Metrics, _ = cmd.Flags().GetBool("metrics")
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		logger := cli.NewLogger(cfg)
		engineOpts := cli.EngineOptions{Logger: logger, Shared: true}
		if cfg.Metrics {
			engineOpts.Metrics = observability.NewMetrics()
		}
		engine, err := cli.NewEngine(ctx, cfg, engineOpts)
		if err != nil {
			return err
		}

		persistence, err := cli.NewPersistence(ctx, cfg, logger, engine.DialogOptions()...)
		if err != nil {
			return err
		}
		defer persistence.Close()

		handlerOpts := []httpAdapter.Option{
			httpAdapter.WithLogger(logger),
			httpAdapter.WithSessions(persistence.Manager),
		}
		if engineOpts.Metrics != nil {
			handlerOpts = append(handlerOpts, httpAdapter.WithMetrics(engineOpts.Metrics.Handler()))
		}
		handler, err := httpAdapter.NewHandler(engine, handlerOpts...)
		if err != nil {
			return err
		}

		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			go func() {
				if err := cli.WatchAndReload(ctx, engine, logger, nil); err != nil {
					logger.Warn("Watch disabled", "err", err)
				}
			}()
		}

		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting nodegraph server on %s\n", srv.Addr)
			fmt.Printf("Serving graph from: %s\n", cfg.Graph)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)
			cancel()

			// Give outstanding requests a deadline for completion.
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("nodegraph server stopped gracefully")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().Bool("metrics", false, "Expose prometheus metrics at /metrics")
	serveCmd.Flags().Bool("watch", false, "Reload the graph when its files change")
}
