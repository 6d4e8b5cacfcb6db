package service

import (
	"bookstore/catalog"
	"bookstore/models"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	REQUEST_ID_HEADER = "X-Request-Id"
	DEFAULT_PAGE_SIZE = 5
)

type Handlers struct {
	Catalog *catalog.Catalog
	Logger  *slog.Logger
}

func NewHandlers(c *catalog.Catalog, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{Catalog: c, Logger: logger}
}

// abort maps catalog errors onto status codes.
func abort(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case models.IsInvalid(err):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrUnsupported):
		status = http.StatusNotImplemented
	}
	c.AbortWithStatusJSON(status, gin.H{"message": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// LogRequest tags the request with an id and logs it once it completes.
func (handlers *Handlers) LogRequest(c *gin.Context) {
	requestID := c.GetHeader(REQUEST_ID_HEADER)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header(REQUEST_ID_HEADER, requestID)

	start := time.Now()
	c.Next()

	handlers.Logger.Info("request",
		"id", requestID,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}

// searchQuery builds a find request from query parameters. Filters combine
// with AND; view=listing selects the title/author/price view.
func searchQuery(c *gin.Context) (models.Query, error) {
	var query models.Query

	if genre := c.Query("genre"); genre != "" {
		query.Filter = append(query.Filter, models.Eq(models.FieldGenre, genre))
	}
	if author := c.Query("author"); author != "" {
		query.Filter = append(query.Filter, models.Eq(models.FieldAuthor, author))
	}
	if title := c.Query("title"); title != "" {
		query.Filter = append(query.Filter, models.Eq(models.FieldTitle, title))
	}
	if after, ok := c.GetQuery("published_after"); ok {
		year, err := strconv.Atoi(after)
		if err != nil {
			return query, fmt.Errorf("%w: published_after: %v", models.ErrInvalidQuery, err)
		}
		query.Filter = append(query.Filter, models.Gt(models.FieldPublishedYear, year))
	}
	if inStock, ok := c.GetQuery("in_stock"); ok {
		flag, err := strconv.ParseBool(inStock)
		if err != nil {
			return query, fmt.Errorf("%w: in_stock: %v", models.ErrInvalidQuery, err)
		}
		query.Filter = append(query.Filter, models.Eq(models.FieldInStock, flag))
	}

	if view := c.Query("view"); view == "listing" {
		query.Projection = models.Include(catalog.LISTING_FIELDS...)
	} else if view != "" {
		return query, fmt.Errorf("%w: unknown view %q", models.ErrInvalidQuery, view)
	}

	if field := c.Query("sort"); field != "" {
		direction := models.Ascending
		switch c.DefaultQuery("order", "asc") {
		case "asc":
		case "desc":
			direction = models.Descending
		default:
			return query, fmt.Errorf("%w: order must be asc or desc", models.ErrInvalidQuery)
		}
		query.Sort = []models.SortField{{Field: field, Direction: direction}}
	}

	_, hasPage := c.GetQuery("page")
	_, hasSize := c.GetQuery("page_size")
	if hasPage || hasSize {
		page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
		if err != nil {
			return query, fmt.Errorf("%w: page: %v", models.ErrInvalidPage, err)
		}
		pageSize, err := strconv.ParseInt(c.DefaultQuery("page_size", strconv.Itoa(DEFAULT_PAGE_SIZE)), 10, 64)
		if err != nil {
			return query, fmt.Errorf("%w: page_size: %v", models.ErrInvalidPage, err)
		}
		return query.Paginate(page, pageSize)
	}
	return query, nil
}

func (handlers *Handlers) FindBooks(c *gin.Context) {
	query, err := searchQuery(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	docs, err := handlers.Catalog.Search(c, query)
	if err != nil {
		abort(c, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	c.JSON(http.StatusOK, docs)
}

type priceUpdate struct {
	Price *float64 `json:"price" binding:"required"`
}

func (handlers *Handlers) UpdatePrice(c *gin.Context) {
	title := c.Param("title")

	var body priceUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if *body.Price < 0 {
		badRequest(c, fmt.Errorf("price must not be negative"))
		return
	}

	result, err := handlers.Catalog.UpdatePrice(c, title, *body.Price)
	if err != nil {
		abort(c, err)
		return
	}
	if result.Matched == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("book with title: '%v' not found", title)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated", "matched": result.Matched, "modified": result.Modified})
}

func (handlers *Handlers) DeleteBook(c *gin.Context) {
	title := c.Param("title")

	result, err := handlers.Catalog.DeleteByTitle(c, title)
	if err != nil {
		abort(c, err)
		return
	}
	if result.Deleted == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("book with title: '%v' not found", title)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted", "deleted": result.Deleted})
}

func (handlers *Handlers) AveragePriceByGenre(c *gin.Context) {
	genres, err := handlers.Catalog.AveragePriceByGenre(c)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, genres)
}

func (handlers *Handlers) TopAuthors(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", strconv.Itoa(catalog.DEFAULT_TOP_AUTHORS)), 10, 64)
	if err != nil {
		badRequest(c, err)
		return
	}

	authors, err := handlers.Catalog.TopAuthors(c, limit)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, authors)
}

func (handlers *Handlers) CountByDecade(c *gin.Context) {
	decades, err := handlers.Catalog.CountByDecade(c)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, decades)
}

func (handlers *Handlers) Summary(c *gin.Context) {
	summary, err := handlers.Catalog.Summary(c)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// INDEX_PRESETS are the indexes the catalog declares by name.
var INDEX_PRESETS = map[string]func() models.IndexModel{
	"title":       catalog.TitleIndex,
	"author_year": catalog.AuthorYearIndex,
}

type indexRequest struct {
	Preset string            `json:"preset"`
	Keys   []models.IndexKey `json:"keys"`
	Name   string            `json:"name"`
}

func (handlers *Handlers) CreateIndex(c *gin.Context) {
	var body indexRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	model := models.IndexModel{Keys: body.Keys, Name: body.Name}
	if body.Preset != "" {
		preset, ok := INDEX_PRESETS[body.Preset]
		if !ok {
			badRequest(c, fmt.Errorf("unknown index preset %q", body.Preset))
			return
		}
		model = preset()
	}

	name, err := handlers.Catalog.CreateIndex(c, model)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "created", "name": name})
}

func (handlers *Handlers) ListIndexes(c *gin.Context) {
	indexes, err := handlers.Catalog.Indexes(c)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, indexes)
}

func (handlers *Handlers) Explain(c *gin.Context) {
	title, ok := c.GetQuery("title")
	if !ok {
		badRequest(c, fmt.Errorf("title query parameter is required"))
		return
	}

	report, err := handlers.Catalog.ExplainTitleLookup(c, title)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
