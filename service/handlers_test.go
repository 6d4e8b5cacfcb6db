package service

import (
	"bookstore/cache"
	"bookstore/catalog"
	"bookstore/db"
	"bookstore/models"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	library := db.NewMemoryLibrary(models.SeedBooks()...)
	return SetupRoutes(NewHandlers(catalog.New(library, cache.NewMemoryCache(), logger), logger))
}

func perform(router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	w := perform(setupRouter(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(REQUEST_ID_HEADER))
}

func TestFindBooks(t *testing.T) {
	router := setupRouter(t)

	w := perform(router, http.MethodGet, "/books?genre=Fiction", "")
	require.Equal(t, http.StatusOK, w.Code)
	fiction := decode[[]models.Book](t, w)
	assert.Len(t, fiction, 4)
	for _, book := range fiction {
		assert.Equal(t, "Fiction", book.Genre)
	}

	w = perform(router, http.MethodGet, "/books?in_stock=true&published_after=1950", "")
	require.Equal(t, http.StatusOK, w.Code)
	for _, book := range decode[[]models.Book](t, w) {
		assert.True(t, book.InStock)
		assert.Greater(t, book.PublishedYear, 1950)
	}

	w = perform(router, http.MethodGet, "/books?genre=Poetry", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestFindBooksListingPage(t *testing.T) {
	w := perform(setupRouter(t), http.MethodGet, "/books?view=listing&sort=price&order=desc&page=1&page_size=3", "")
	require.Equal(t, http.StatusOK, w.Code)

	rows := decode[[]map[string]interface{}](t, w)
	require.Len(t, rows, 3)
	assert.Equal(t, "The Lord of the Rings", rows[0]["title"])
	for _, row := range rows {
		assert.NotContains(t, row, "_id")
		assert.Len(t, row, 3)
	}
}

func TestFindBooksRejectsBadParameters(t *testing.T) {
	router := setupRouter(t)
	for _, target := range []string{
		"/books?published_after=soon",
		"/books?in_stock=maybe",
		"/books?view=full",
		"/books?sort=price&order=up",
		"/books?page=0",
		"/books?page_size=abc",
	} {
		w := perform(router, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
		assert.Contains(t, w.Body.String(), `"message"`, target)
	}
}

func TestUpdatePrice(t *testing.T) {
	router := setupRouter(t)
	alchemist := "/books/" + url.PathEscape("The Alchemist") + "/price"

	w := perform(router, http.MethodPatch, alchemist, `{"price": 18.99}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"updated","matched":1,"modified":1}`, w.Body.String())

	w = perform(router, http.MethodGet, "/books?title="+url.QueryEscape("The Alchemist"), "")
	books := decode[[]models.Book](t, w)
	require.Len(t, books, 1)
	assert.Equal(t, 18.99, books[0].Price)

	w = perform(router, http.MethodPatch, "/books/Missing/price", `{"price": 1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"book with title: 'Missing' not found"}`, w.Body.String())

	w = perform(router, http.MethodPatch, alchemist, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodPatch, alchemist, `{"price": -1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteBook(t *testing.T) {
	router := setupRouter(t)
	target := "/books/" + url.PathEscape("The Alchemist")

	w := perform(router, http.MethodDelete, target, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"deleted","deleted":1}`, w.Body.String())

	w = perform(router, http.MethodDelete, target, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStats(t *testing.T) {
	router := setupRouter(t)

	w := perform(router, http.MethodGet, "/stats/authors?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"_id":"George Orwell","bookCount":2}]`, w.Body.String())

	w = perform(router, http.MethodGet, "/stats/authors?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(router, http.MethodGet, "/stats/genres", "")
	require.Equal(t, http.StatusOK, w.Code)
	genres := decode[[]catalog.GenrePrice](t, w)
	require.NotEmpty(t, genres)
	assert.Equal(t, "Fantasy", genres[0].Genre)

	w = perform(router, http.MethodGet, "/stats/decades", "")
	require.Equal(t, http.StatusOK, w.Code)
	decades := decode[[]catalog.DecadeCount](t, w)
	require.NotEmpty(t, decades)
	assert.Equal(t, catalog.DecadeCount{Decade: "1810s", Count: 1}, decades[0])

	w = perform(router, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[catalog.Summary](t, w)
	assert.Equal(t, genres, summary.Genres)
	assert.Equal(t, decades, summary.Decades)
	assert.Len(t, summary.Authors, 1)
}

func TestIndexesAndExplain(t *testing.T) {
	router := setupRouter(t)

	w := perform(router, http.MethodGet, "/explain?title=1984", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.STRATEGY_COLLSCAN, decode[models.ExplainReport](t, w).Strategy)

	w = perform(router, http.MethodPost, "/indexes", `{"preset":"title"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"created","name":"title_1"}`, w.Body.String())

	body := `{"keys":[{"field":"author","direction":1},{"field":"published_year","direction":-1}]}`
	for i := 0; i < 2; i++ {
		w = perform(router, http.MethodPost, "/indexes", body)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"created","name":"author_1_published_year_-1"}`, w.Body.String())
	}

	w = perform(router, http.MethodGet, "/indexes", "")
	require.Equal(t, http.StatusOK, w.Code)
	indexes := decode[[]models.IndexInfo](t, w)
	assert.Len(t, indexes, 3)

	w = perform(router, http.MethodGet, "/explain?title=1984", "")
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[models.ExplainReport](t, w)
	assert.Equal(t, models.STRATEGY_IXSCAN, report.Strategy)
	assert.Equal(t, "title_1", report.IndexName)

	w = perform(router, http.MethodPost, "/indexes", `{"preset":"isbn"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = perform(router, http.MethodPost, "/indexes", `{"keys":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = perform(router, http.MethodGet, "/explain", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
