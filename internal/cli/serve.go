package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/fourbar/fourbar/internal/server"
	"github.com/fourbar/fourbar/pkg/buildinfo"
	"github.com/fourbar/fourbar/pkg/cache"
	"github.com/fourbar/fourbar/pkg/config"
	"github.com/fourbar/fourbar/pkg/pipeline"
	"github.com/fourbar/fourbar/pkg/realtime"
	"github.com/fourbar/fourbar/pkg/session"
	"github.com/fourbar/fourbar/pkg/store"
	"github.com/fourbar/fourbar/pkg/store/mongostore"
	"github.com/fourbar/fourbar/pkg/store/sqlstore"
	"github.com/fourbar/fourbar/pkg/widget"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var configPath, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and live-update hub",
		Long: `Serve layouts, widget records and edit sessions over HTTP.

Settings come from the TOML file given with --config and FOURBAR_* environment
variables, in that order. Without a config the server keeps everything in
memory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a fourbar.toml config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg config.Config) error {
	logger := c.Logger
	if logger.GetLevel() != log.DebugLevel {
		if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
			logger.SetLevel(level)
		}
	}

	printInfo("Starting %s", appName)
	printKeyValue("Address", cfg.Server.Addr)
	printKeyValue("Store", cfg.Store.Driver)
	printKeyValue("Cache", cfg.Cache.Driver)
	logger.Info("starting", "version", buildinfo.Version, "commit", buildinfo.Commit)
	logger.Debug("configuration", "config", "\n"+cfg.String())

	cc, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	keyer := cache.NewDefaultKeyer()
	if cfg.Cache.Prefix != "" {
		keyer = cache.NewScopedKeyer(keyer, cfg.Cache.Prefix)
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		cc.Close()
		return err
	}
	if cfg.Cache.Driver != config.CacheNone {
		st = store.NewCached(st, cc, keyer)
	}

	runner := pipeline.NewRunner(widget.Builtin(), cc, keyer, logger)
	runner.Store = st
	defer runner.Close()

	srv := server.New(server.Options{
		Runner:     runner,
		Hub:        realtime.NewHub(realtime.Options{AllowedOrigins: cfg.Server.AllowedOrigins, Logger: logger}),
		Sessions:   session.NewMemoryStore(),
		SessionTTL: cfg.Editor.SessionTTL.Duration,
		Logger:     logger,
	})

	return srv.Run(ctx, cfg.Server.Addr, server.Timeouts{
		Read:     cfg.Server.ReadTimeout.Duration,
		Write:    cfg.Server.WriteTimeout.Duration,
		Shutdown: cfg.Server.ShutdownTimeout.Duration,
	}, cfg.Editor.CleanupInterval.Duration)
}

// openStore connects the configured layout store.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.StoreMemory:
		return store.NewMemory(), nil
	case config.StoreSQLite:
		return sqlstore.Open(ctx, sqlstore.DriverSQLite, cfg.DSN)
	case config.StorePostgres:
		return sqlstore.Open(ctx, sqlstore.DriverPostgres, cfg.DSN)
	case config.StoreMongo:
		return mongostore.Open(ctx, cfg.DSN, cfg.Database)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// openCache connects the configured cache.
func openCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Driver {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheFile:
		dir := cfg.Dir
		if dir == "" {
			d, err := cacheDir()
			if err != nil {
				return nil, fmt.Errorf("get cache dir: %w", err)
			}
			dir = d
		}
		return cache.NewFileCache(dir)
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
}
