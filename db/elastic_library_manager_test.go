package db

import (
	"bookstore/models"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/olivere/elastic/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// mappingServer answers the get/put mapping calls CreateIndex makes. Reads
// are slow so overlapping declarations would see the same snapshot.
type mappingServer struct {
	mu      sync.Mutex
	indexes []models.IndexInfo
}

func (server *mappingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/_mapping") {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		server.mu.Lock()
		snapshot := append([]models.IndexInfo(nil), server.indexes...)
		server.mu.Unlock()
		time.Sleep(20 * time.Millisecond)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"books": map[string]interface{}{
				"mappings": map[string]interface{}{
					"_meta": map[string]interface{}{"indexes": snapshot},
				},
			},
		})
	case http.MethodPut:
		var body struct {
			Meta struct {
				Indexes []models.IndexInfo `json:"indexes"`
			} `json:"_meta"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		server.mu.Lock()
		server.indexes = body.Meta.Indexes
		server.mu.Unlock()
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	default:
		http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
	}
}

func newTestElasticLibrary(t *testing.T, handler http.Handler) *ElasticLibraryManager {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := elastic.NewClient(
		elastic.SetURL(server.URL),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	)
	require.NoError(t, err)
	t.Cleanup(client.Stop)
	return NewElasticLibrary(client, models.COLLECTION_NAME)
}

func TestElasticCreateIndexConcurrentDeclarations(t *testing.T) {
	ctx := context.Background()
	library := newTestElasticLibrary(t, &mappingServer{})

	fields := []string{models.FieldTitle, models.FieldAuthor, models.FieldGenre, models.FieldPrice}
	group, gctx := errgroup.WithContext(ctx)
	for _, field := range fields {
		field := field
		group.Go(func() error {
			_, err := library.CreateIndex(gctx, models.NewIndex(models.IndexKey{Field: field, Direction: models.Ascending}))
			return err
		})
	}
	require.NoError(t, group.Wait())

	indexes, err := library.ListIndexes(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(indexes))
	for _, index := range indexes {
		names = append(names, index.Name)
	}
	assert.ElementsMatch(t, []string{models.ID_INDEX_NAME, "title_1", "author_1", "genre_1", "price_1"}, names)

	name, err := library.CreateIndex(ctx, models.NewIndex(models.IndexKey{Field: models.FieldTitle, Direction: models.Ascending}))
	require.NoError(t, err)
	assert.Equal(t, "title_1", name)
	indexes, err = library.ListIndexes(ctx)
	require.NoError(t, err)
	assert.Len(t, indexes, 5)
}

func TestElasticRejectsPagesPastResultWindow(t *testing.T) {
	ctx := context.Background()
	library := NewElasticLibrary(nil, models.COLLECTION_NAME)
	query := models.Query{Skip: MAX_RESULT_WINDOW, Limit: 5}

	_, err := library.Find(ctx, query)
	assert.ErrorIs(t, err, models.ErrUnsupported)

	_, err = library.Explain(ctx, query)
	assert.ErrorIs(t, err, models.ErrUnsupported)

	_, err = library.Explain(ctx, models.Query{Skip: -1})
	assert.ErrorIs(t, err, models.ErrInvalidQuery)
}
