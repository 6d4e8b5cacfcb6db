// Package cmd implements the bookstore command line.
package cmd

import (
	"bookstore/cache"
	"bookstore/catalog"
	"bookstore/config"
	"bookstore/db"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bookstore",
		Short: "Query the books collection",
		Long: `bookstore runs the catalog of queries over the books collection:
lookups, sorting and pagination, price updates, deletes, aggregation
reports, index management and explain, against MongoDB, Elasticsearch
or an in-memory store.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			var err error
			cfg, err = config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			config.SetupLogger(cfg.Log, cmd.ErrOrStderr())
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default bookstore.yaml)")
	flags.String("backend", config.BackendMongo, "store backend: mongo, elastic or memory")
	flags.String("output", "table", "output format: table or json")
	flags.String("log-level", "INFO", "log level: DEBUG, INFO, WARN or ERROR")
	flags.Bool("seed", false, "insert the fixture books first (memory backend)")

	rootCmd.AddCommand(
		newServeCmd(),
		newSeedCmd(),
		newBooksCmd(),
		newUpdatePriceCmd(),
		newDeleteCmd(),
		newStatsCmd(),
		newIndexCmd(),
		newExplainCmd(),
	)
	return rootCmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// openCatalog connects the configured store and result cache. The returned
// function releases both.
func openCatalog(ctx context.Context) (*catalog.Catalog, func(), error) {
	library, err := db.Setup(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var resultCache cache.ResultCache
	closeCache := func() {}
	if cfg.Redis.Enabled {
		client, err := config.SetupRedis(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, reports will not be cached", "addr", cfg.Redis.Addr, "error", err)
		} else {
			resultCache = cache.NewRedisCache(client, cfg.Redis.TTL)
			closeCache = func() { client.Close() }
		}
	}

	c := catalog.New(library, resultCache, slog.Default())
	if cfg.Seed {
		ids, err := c.Seed(ctx)
		if err != nil {
			closeCache()
			_ = library.Close(ctx)
			return nil, nil, err
		}
		slog.Info("seeded books", "count", len(ids))
	}

	release := func() {
		closeCache()
		if err := library.Close(context.Background()); err != nil {
			slog.Warn("closing store", "error", err)
		}
	}
	return c, release, nil
}

// withCatalog runs fn against an open catalog.
func withCatalog(cmd *cobra.Command, fn func(ctx context.Context, c *catalog.Catalog) error) error {
	ctx := cmd.Context()
	c, release, err := openCatalog(ctx)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer release()
	return fn(ctx, c)
}
