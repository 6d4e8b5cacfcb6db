// Package catalog holds the query forms run against the books collection:
// lookups, a paginated listing, price updates and deletes by title,
// aggregation reports and index management.
package catalog

import (
	"bookstore/cache"
	"bookstore/db"
	"bookstore/models"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"
)

const DEFAULT_TOP_AUTHORS = 1

// Catalog runs the named queries through a LibraryManager. Aggregation
// reports go through Cache when one is set.
type Catalog struct {
	Library db.LibraryManager
	Cache   cache.ResultCache
	Logger  *slog.Logger
}

func New(library db.LibraryManager, resultCache cache.ResultCache, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{Library: library, Cache: resultCache, Logger: logger}
}

func (catalog *Catalog) books(ctx context.Context, query models.Query) ([]models.Book, error) {
	docs, err := catalog.Library.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	return models.DecodeAll[models.Book](docs)
}

func (catalog *Catalog) BooksInGenre(ctx context.Context, genre string) ([]models.Book, error) {
	return catalog.books(ctx, GenreQuery(genre))
}

func (catalog *Catalog) BooksPublishedAfter(ctx context.Context, year int) ([]models.Book, error) {
	return catalog.books(ctx, PublishedAfterQuery(year))
}

func (catalog *Catalog) BooksByAuthor(ctx context.Context, author string) ([]models.Book, error) {
	return catalog.books(ctx, AuthorQuery(author))
}

func (catalog *Catalog) BookByTitle(ctx context.Context, title string) ([]models.Book, error) {
	return catalog.books(ctx, TitleQuery(title))
}

func (catalog *Catalog) InStockPublishedAfter(ctx context.Context, year int) ([]models.Book, error) {
	return catalog.books(ctx, InStockPublishedAfterQuery(year))
}

// Listing returns title, author and price of every book, without _id.
func (catalog *Catalog) Listing(ctx context.Context) ([]models.Document, error) {
	return catalog.Library.Find(ctx, ListingQuery())
}

func (catalog *Catalog) SortedByPrice(ctx context.Context, direction models.Direction) ([]models.Book, error) {
	return catalog.books(ctx, PriceSortedQuery(direction))
}

func (catalog *Catalog) ListingPage(ctx context.Context, page, pageSize int64) ([]models.Document, error) {
	query, err := ListingPageQuery(page, pageSize)
	if err != nil {
		return nil, err
	}
	return catalog.Library.Find(ctx, query)
}

// Search runs an arbitrary find, e.g. one assembled from request parameters.
func (catalog *Catalog) Search(ctx context.Context, query models.Query) ([]models.Document, error) {
	return catalog.Library.Find(ctx, query)
}

func (catalog *Catalog) UpdatePrice(ctx context.Context, title string, price float64) (models.UpdateResult, error) {
	result, err := catalog.Library.UpdateOne(ctx, TitleFilter(title), models.Set(models.FieldPrice, price))
	if err != nil {
		return result, fmt.Errorf("update price of %q: %w", title, err)
	}
	if result.Modified > 0 {
		catalog.invalidate()
	}
	return result, nil
}

func (catalog *Catalog) DeleteByTitle(ctx context.Context, title string) (models.DeleteResult, error) {
	result, err := catalog.Library.DeleteOne(ctx, TitleFilter(title))
	if err != nil {
		return result, fmt.Errorf("delete %q: %w", title, err)
	}
	if result.Deleted > 0 {
		catalog.invalidate()
	}
	return result, nil
}

// Seed inserts the standard fixture books.
func (catalog *Catalog) Seed(ctx context.Context) ([]string, error) {
	ids, err := catalog.Library.InsertMany(ctx, models.SeedBooks())
	if len(ids) > 0 {
		catalog.invalidate()
	}
	if err != nil {
		return ids, fmt.Errorf("seed books: %w", err)
	}
	return ids, nil
}

func (catalog *Catalog) AveragePriceByGenre(ctx context.Context) ([]GenrePrice, error) {
	var out []GenrePrice
	err := catalog.report(ctx, cache.Key("genres"), AveragePriceByGenrePipeline(), &out)
	return out, err
}

// TopAuthors returns the limit authors with the most books.
func (catalog *Catalog) TopAuthors(ctx context.Context, limit int64) ([]AuthorCount, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit %d must be at least 1", models.ErrInvalidQuery, limit)
	}
	var out []AuthorCount
	err := catalog.report(ctx, cache.Key("authors", strconv.FormatInt(limit, 10)), TopAuthorsPipeline(limit), &out)
	return out, err
}

func (catalog *Catalog) CountByDecade(ctx context.Context) ([]DecadeCount, error) {
	var out []DecadeCount
	err := catalog.report(ctx, cache.Key("decades"), DecadePipeline(), &out)
	return out, err
}

// Summary runs the three reports concurrently.
func (catalog *Catalog) Summary(ctx context.Context) (Summary, error) {
	var summary Summary
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		summary.Genres, err = catalog.AveragePriceByGenre(ctx)
		return err
	})
	group.Go(func() error {
		var err error
		summary.Authors, err = catalog.TopAuthors(ctx, DEFAULT_TOP_AUTHORS)
		return err
	})
	group.Go(func() error {
		var err error
		summary.Decades, err = catalog.CountByDecade(ctx)
		return err
	})
	if err := group.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// report runs pipeline and decodes its rows into out. Cache failures are
// logged and fall through to the store. The result is cached under the
// generation observed before the aggregation ran, so an invalidation that
// lands while it runs discards it.
func (catalog *Catalog) report(ctx context.Context, key string, pipeline models.Pipeline, out interface{}) error {
	cacheable := false
	var generation int64
	if catalog.Cache != nil {
		cached, gen, found, err := catalog.Cache.Get(key)
		if err != nil {
			catalog.Logger.Warn("report cache read failed", "key", key, "error", err)
		} else {
			cacheable = true
			generation = gen
			if found {
				if err := json.Unmarshal(cached, out); err == nil {
					catalog.Logger.Debug("report served from cache", "key", key)
					return nil
				}
			}
		}
	}

	rows, err := catalog.Library.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("report %s: %w", key, err)
	}
	if err := models.DecodeRows(rows, out); err != nil {
		return fmt.Errorf("report %s: %w", key, err)
	}

	if cacheable {
		encoded, err := json.Marshal(out)
		if err == nil {
			err = catalog.Cache.Set(key, generation, encoded)
		}
		if err != nil {
			catalog.Logger.Warn("report cache write failed", "key", key, "error", err)
		}
	}
	return nil
}

func (catalog *Catalog) invalidate() {
	if catalog.Cache == nil {
		return
	}
	if err := catalog.Cache.Invalidate(); err != nil {
		catalog.Logger.Warn("report cache invalidation failed", "error", err)
	}
}

func (catalog *Catalog) CreateTitleIndex(ctx context.Context) (string, error) {
	return catalog.Library.CreateIndex(ctx, TitleIndex())
}

func (catalog *Catalog) CreateAuthorYearIndex(ctx context.Context) (string, error) {
	return catalog.Library.CreateIndex(ctx, AuthorYearIndex())
}

func (catalog *Catalog) CreateIndex(ctx context.Context, model models.IndexModel) (string, error) {
	return catalog.Library.CreateIndex(ctx, model)
}

func (catalog *Catalog) Indexes(ctx context.Context) ([]models.IndexInfo, error) {
	return catalog.Library.ListIndexes(ctx)
}

func (catalog *Catalog) ExplainTitleLookup(ctx context.Context, title string) (models.ExplainReport, error) {
	return catalog.Library.Explain(ctx, TitleQuery(title))
}
