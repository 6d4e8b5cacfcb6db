package db

import (
	"bookstore/config"
	"context"
	"fmt"
	"log/slog"
)

// Setup connects the configured backend.
func Setup(ctx context.Context, cfg *config.Config) (LibraryManager, error) {
	switch cfg.Backend {
	case config.BackendMongo:
		client, err := config.SetupMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("connect to mongo at %s: %w", cfg.Mongo.URI, err)
		}
		slog.Info("connected to mongo", "database", cfg.Mongo.Database, "collection", cfg.Mongo.Collection)
		return NewMongoLibrary(client, cfg.Mongo.Database, cfg.Mongo.Collection), nil

	case config.BackendElastic:
		client, err := config.SetupElasticSearch(cfg.Elastic)
		if err != nil {
			return nil, fmt.Errorf("connect to elasticsearch at %s: %w", cfg.Elastic.URL, err)
		}
		library := NewElasticLibrary(client, cfg.Elastic.Index)
		if err := library.EnsureIndex(ctx); err != nil {
			client.Stop()
			return nil, fmt.Errorf("prepare index %s: %w", cfg.Elastic.Index, err)
		}
		slog.Info("connected to elasticsearch", "index", cfg.Elastic.Index)
		return library, nil

	case config.BackendMemory:
		slog.Info("using in-memory library")
		return NewMemoryLibrary(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
