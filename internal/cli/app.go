// Package cli implements the storeflow commands: it opens the configured
// stores, loads flow sources and wires the engine to a transport.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/storeflow"
	"github.com/aretw0/storeflow/internal/config"
	"github.com/aretw0/storeflow/internal/logging"
	"github.com/aretw0/storeflow/pkg/adapters/flowfile"
	loamAdapter "github.com/aretw0/storeflow/pkg/adapters/loam"
	"github.com/aretw0/storeflow/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/storeflow/pkg/adapters/redis"
	"github.com/aretw0/storeflow/pkg/adapters/sqlstore"
	"github.com/aretw0/storeflow/pkg/persistence/middleware"
	"github.com/aretw0/storeflow/pkg/ports"
)

// redisPrefix namespaces every key written by the Redis store and locker.
const redisPrefix = "storeflow:"

// ConfigStore is a configuration store the loaders can write to.
type ConfigStore interface {
	ports.ConfigurationStore
	ports.ConfigurationAdmin
}

// App holds the stores and flow sources selected by a Config.
type App struct {
	Config    ConfigStore
	Store     ports.PersistenceStore
	Locker    ports.DistributedLocker
	StartNode string

	importer *loamAdapter.Importer
	closers  []func() error
	logger   *slog.Logger
}

// NewLogger builds the process logger for a level name. Unknown names fall
// back to info with a warning.
func NewLogger(level string) *slog.Logger {
	lvl, err := logging.ParseLevel(level)
	logger := logging.New(lvl)
	if err != nil {
		logger.Warn("Invalid log level, using info", "err", err)
	}
	return logger
}

// Open selects the stores and loads the flow sources described by cfg.
//
// STOREFLOW_DB_DSN picks SQLite or Postgres for both configuration and user
// data, otherwise everything is kept in memory. STOREFLOW_REDIS_ADDR moves
// user data to Redis. The flow file and the flows directory, when set, are
// imported into the configuration store in that order.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	a := &App{StartNode: cfg.StartNode, logger: logger}

	if cfg.DBDSN != "" {
		db, err := sqlstore.Open(ctx, cfg.DBDSN, sqlstore.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		a.Config, a.Store = db, db
		a.closers = append(a.closers, db.Close)
		logger.Info("Using SQL store", "dialect", sqlstore.DialectFor(cfg.DBDSN))
	} else {
		a.Config, a.Store = memory.NewConfigStore(), memory.NewStore()
		logger.Info("Using in-memory store")
	}

	if cfg.RedisAddr != "" {
		var opts []redisAdapter.Option
		if cfg.PendingTTL > 0 {
			opts = append(opts, redisAdapter.WithPendingTTL(cfg.PendingTTL))
		}
		opts = append(opts, redisAdapter.WithPrefix(redisPrefix))
		rs := redisAdapter.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		a.Store = rs
		a.Locker = redisAdapter.NewLocker(rs.Client(), redisPrefix)
		a.closers = append(a.closers, rs.Close)
		logger.Info("Using Redis for user data", "addr", cfg.RedisAddr)
	}

	mws, err := storeMiddleware(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Store = middleware.Chain(a.Store, mws...)

	if err := a.load(ctx, cfg); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// storeMiddleware builds the user data middlewares. PII masking runs first so
// masked values are encrypted like any other.
func storeMiddleware(cfg config.Config) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.PIIKeys) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.PIIKeys))
	}
	if cfg.EncryptionKey == "" {
		return mws, nil
	}
	active, err := middleware.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("STOREFLOW_ENCRYPTION_KEY: %w", err)
	}
	enc := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range cfg.EncryptionFallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("STOREFLOW_ENCRYPTION_FALLBACK_KEYS[%d]: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	return append(mws, middleware.NewEncryptionMiddleware(enc)), nil
}

func (a *App) load(ctx context.Context, cfg config.Config) error {
	if cfg.FlowFile != "" {
		bundle, err := flowfile.Load(cfg.FlowFile)
		if err != nil {
			return err
		}
		if err := bundle.Apply(ctx, a.Config); err != nil {
			return fmt.Errorf("failed to apply %s: %w", cfg.FlowFile, err)
		}
		if bundle.Start != "" && cfg.StartNode == config.Defaults().StartNode {
			a.StartNode = bundle.Start
		}
		a.logger.Info("Flow file loaded", "path", cfg.FlowFile,
			"nodes", len(bundle.Nodes), "rules", len(bundle.Rules), "presets", len(bundle.Presets))
	}

	if cfg.FlowsDir != "" {
		imp, err := loamAdapter.Open(cfg.FlowsDir, a.Config, loamAdapter.WithLogger(a.logger))
		if err != nil {
			return err
		}
		n, err := imp.Import(ctx)
		if err != nil {
			return fmt.Errorf("failed to import %s: %w", cfg.FlowsDir, err)
		}
		a.importer = imp
		a.logger.Info("Flow documents imported", "dir", cfg.FlowsDir, "nodes", n)
	}
	return nil
}

// Watch re-imports the flows directory on change until ctx is done.
// It returns immediately when no directory is configured.
func (a *App) Watch(ctx context.Context) error {
	if a.importer == nil {
		return nil
	}
	return a.importer.Watch(ctx)
}

// Engine wires a storeflow engine over the app stores.
func (a *App) Engine(transport ports.Transport, opts ...storeflow.Option) *storeflow.Engine {
	base := []storeflow.Option{
		storeflow.WithLogger(a.logger),
		storeflow.WithStartNode(a.StartNode),
	}
	if a.Locker != nil {
		base = append(base, storeflow.WithLocker(a.Locker, 0))
	}
	return storeflow.New(a.Config, a.Store, transport, append(base, opts...)...)
}

// Close releases every store the app opened.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
