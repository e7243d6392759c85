package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/nodegraph"
	"github.com/aretw0/nodegraph/internal/config"
	"github.com/aretw0/nodegraph/pkg/adapters/file"
	"github.com/aretw0/nodegraph/pkg/adapters/hcl"
	"github.com/aretw0/nodegraph/pkg/adapters/loam"
	"github.com/aretw0/nodegraph/pkg/domain"
	"github.com/aretw0/nodegraph/pkg/observability"
	"github.com/aretw0/nodegraph/pkg/ports"
)

// ErrNoGraph is returned when neither the config nor the command line names a graph.
var ErrNoGraph = errors.New("no graph given (use --graph or set graph in nodegraph.yaml)")

// OpenLoader picks a loader by looking at path: a directory is a loam repository,
// .hcl files go through the HCL loader and anything else is a YAML or JSON document.
func OpenLoader(path string, lenient bool) (ports.GraphLoader, error) {
	if path == "" {
		return nil, ErrNoGraph
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph: %w", err)
	}
	if info.IsDir() {
		l, err := loam.Open(path)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return hcl.NewLoader(path), nil
	case ".yaml", ".yml", ".json":
		return file.NewLoader(path, lenient), nil
	}
	return nil, fmt.Errorf("unsupported graph file %s (want .yaml, .yml, .json, .hcl or a directory)", path)
}

// EngineOptions tunes NewEngine beyond what the config file holds.
type EngineOptions struct {
	Logger  *slog.Logger
	Metrics *observability.Metrics

	// Shared marks engines used by server handlers; they never enable strict ownership.
	Shared bool
}

// NewEngine builds an engine for the configured graph.
func NewEngine(ctx context.Context, cfg *config.Config, opts EngineOptions) (*nodegraph.Engine, error) {
	loader, err := OpenLoader(cfg.Graph, cfg.Lenient)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(cfg)
	}

	hooks := debugHooks(logger)
	if opts.Metrics != nil {
		hooks = hooks.Merge(opts.Metrics.Hooks())
	}

	engineOpts := []nodegraph.Option{
		nodegraph.WithLoader(loader),
		nodegraph.WithLogger(logger),
		nodegraph.WithLifecycleHooks(hooks),
	}
	if cfg.StrictOwnership && !opts.Shared {
		engineOpts = append(engineOpts, nodegraph.WithStrictOwnership())
	}

	engine, err := nodegraph.New(ctx, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCalculate: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Calculate", "node", e.Name, "type", e.NodeType, "ok", e.Success)
		},
		OnStuck: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Stuck", "node", e.Name, "reason", e.Reason)
		},
		OnEvaluation: func(ctx context.Context, e *domain.EvaluationEvent) {
			logger.Debug("Evaluation", "scope", e.Scope, "origin", e.Origin, "calculated", e.Calculated, "stuck", e.Stuck, "passes", e.Passes, "duration", e.Duration)
		},
		OnDialogAdvance: func(ctx context.Context, e *domain.DialogEvent) {
			logger.Debug("Dialog", "dialog_id", e.DialogID, "from", e.From, "to", e.To, "finished", e.Finished)
		},
	}
}
