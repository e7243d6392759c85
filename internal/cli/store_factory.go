package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/nodegraph/internal/config"
	"github.com/aretw0/nodegraph/pkg/adapters/file"
	"github.com/aretw0/nodegraph/pkg/adapters/memory"
	"github.com/aretw0/nodegraph/pkg/adapters/redis"
	"github.com/aretw0/nodegraph/pkg/dialog"
	"github.com/aretw0/nodegraph/pkg/persistence/middleware"
	"github.com/aretw0/nodegraph/pkg/ports"
	"github.com/aretw0/nodegraph/pkg/session"
)

// Persistence bundles the session store built from config with the manager on top of it.
type Persistence struct {
	Store   ports.SessionStore
	Manager *session.Manager

	close func() error
}

// Close releases backend connections.
func (p *Persistence) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

// NewStore builds the configured session store with its middleware chain.
// PII masking runs first so encryption seals the masked state.
func NewStore(ctx context.Context, cfg *config.Config) (ports.SessionStore, ports.DistributedLocker, func() error, error) {
	var (
		base   ports.SessionStore
		locker ports.DistributedLocker
		closer func() error
	)

	switch cfg.Store.Kind {
	case config.StoreMemory, "":
		base = memory.NewStore()
	case config.StoreFile:
		base = file.NewStore(cfg.Store.Dir)
	case config.StoreRedis:
		prefix := cfg.Redis.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redis.WithPrefix(prefix), redis.WithTTL(cfg.Redis.TTL))
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		base = rs
		locker = redis.NewLocker(rs.Client(), prefix)
		closer = rs.Close
	default:
		return nil, nil, nil, fmt.Errorf("unknown session store %q", cfg.Store.Kind)
	}

	var mws []middleware.Middleware
	if len(cfg.Security.PIIKeys) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.Security.PIIKeys))
	}
	key, err := cfg.Key()
	if err != nil {
		if closer != nil {
			closer()
		}
		return nil, nil, nil, err
	}
	if key != nil {
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	return middleware.Chain(base, mws...), locker, closer, nil
}

// NewPersistence builds the store and a session manager whose sessions use dialogOpts.
func NewPersistence(ctx context.Context, cfg *config.Config, logger *slog.Logger, dialogOpts ...dialog.Option) (*Persistence, error) {
	store, locker, closer, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts := []session.Option{
		session.WithLogger(logger),
		session.WithDialogOptions(dialogOpts...),
	}
	if locker != nil {
		opts = append(opts, session.WithLocker(locker))
	}
	return &Persistence{
		Store:   store,
		Manager: session.NewManager(store, opts...),
		close:   closer,
	}, nil
}
