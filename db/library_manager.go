package db

import (
	"bookstore/models"
	"context"
)

// LibraryManager executes catalog requests against a document store.
//
// UpdateOne and DeleteOne affect at most one record. When nothing matches they
// report zero counts rather than an error; when several records match, the
// store decides which one is affected.
type LibraryManager interface {
	InsertMany(ctx context.Context, books []models.Book) ([]string, error)
	Find(ctx context.Context, query models.Query) ([]models.Document, error)
	UpdateOne(ctx context.Context, filter models.Filter, update models.Update) (models.UpdateResult, error)
	DeleteOne(ctx context.Context, filter models.Filter) (models.DeleteResult, error)
	Aggregate(ctx context.Context, pipeline models.Pipeline) ([]models.Document, error)
	// CreateIndex is idempotent: declaring an existing index returns its name.
	CreateIndex(ctx context.Context, model models.IndexModel) (string, error)
	ListIndexes(ctx context.Context) ([]models.IndexInfo, error)
	// Explain reports the execution strategy of query without changing data.
	Explain(ctx context.Context, query models.Query) (models.ExplainReport, error)
	Close(ctx context.Context) error
}
