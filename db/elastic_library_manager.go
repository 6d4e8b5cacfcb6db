package db

import (
	"bookstore/models"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/olivere/elastic/v7"
)

const ELASTIC_BACKEND = "elastic"

const GROUPS_AGGREGATION = "groups"

type ElasticLibraryManager struct {
	IndexName     string
	ElasticClient *elastic.Client

	// declareMu serializes the read-modify-write of _meta.indexes.
	declareMu sync.Mutex
}

func NewElasticLibrary(elasticClient *elastic.Client, indexName string) *ElasticLibraryManager {
	return &ElasticLibraryManager{IndexName: indexName, ElasticClient: elasticClient}
}

// EnsureIndex creates the index with the keyword mapping when it is missing.
func (library *ElasticLibraryManager) EnsureIndex(ctx context.Context) error {
	exists, err := library.ElasticClient.IndexExists(library.IndexName).Do(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = library.ElasticClient.CreateIndex(library.IndexName).BodyJson(INDEX_MAPPING).Do(ctx)
	return err
}

func (library *ElasticLibraryManager) InsertMany(ctx context.Context, books []models.Book) ([]string, error) {
	if len(books) == 0 {
		return nil, nil
	}

	bulk := library.ElasticClient.Bulk().Index(library.IndexName).Refresh("true")
	for i := range books {
		doc := books[i].Document()
		delete(doc, models.FieldID)
		request := elastic.NewBulkIndexRequest().Doc(doc)
		if books[i].ID != "" {
			request = request.Id(books[i].ID)
		}
		bulk = bulk.Add(request)
	}

	response, err := bulk.Do(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(books))
	for _, item := range response.Indexed() {
		if item.Error != nil {
			return ids, fmt.Errorf("index book: %s", item.Error.Reason)
		}
		ids = append(ids, item.Id)
	}
	return ids, nil
}

// checkWindow validates query and rejects pages past the result window,
// which Elasticsearch cannot serve with from/size.
func checkWindow(query models.Query) error {
	if err := query.Validate(); err != nil {
		return err
	}
	if query.Skip >= MAX_RESULT_WINDOW {
		return fmt.Errorf("%w: skip beyond %d", models.ErrUnsupported, MAX_RESULT_WINDOW)
	}
	return nil
}

func (library *ElasticLibraryManager) search(query models.Query) *elastic.SearchService {
	size := int(query.Limit)
	if size == 0 || int(query.Skip)+size > MAX_RESULT_WINDOW {
		size = MAX_RESULT_WINDOW - int(query.Skip)
	}

	search := library.ElasticClient.Search().
		Index(library.IndexName).
		Pretty(false).
		Query(elasticQuery(query.Filter)).
		From(int(query.Skip)).
		Size(size)

	if source := elasticSource(query.Projection); source != nil {
		search = search.FetchSourceContext(source)
	}
	for _, s := range query.Sort {
		search = search.Sort(s.Field, s.Direction == models.Ascending)
	}
	return search
}

func (library *ElasticLibraryManager) Find(ctx context.Context, query models.Query) ([]models.Document, error) {
	if err := checkWindow(query); err != nil {
		return nil, err
	}

	result, err := library.search(query).Do(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]models.Document, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		doc, err := fromHit(hit, query.Projection)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// findOneID returns the id of one matching record, or "" when none match.
func (library *ElasticLibraryManager) findOneID(ctx context.Context, filter models.Filter) (string, error) {
	result, err := library.ElasticClient.Search().
		Index(library.IndexName).
		Query(elasticQuery(filter)).
		FetchSource(false).
		Size(1).
		Do(ctx)
	if err != nil {
		return "", err
	}
	if len(result.Hits.Hits) == 0 {
		return "", nil
	}
	return result.Hits.Hits[0].Id, nil
}

func (library *ElasticLibraryManager) UpdateOne(ctx context.Context, filter models.Filter, update models.Update) (models.UpdateResult, error) {
	if err := filter.Validate(); err != nil {
		return models.UpdateResult{}, err
	}
	if err := update.Validate(); err != nil {
		return models.UpdateResult{}, err
	}

	id, err := library.findOneID(ctx, filter)
	if err != nil || id == "" {
		return models.UpdateResult{}, err
	}

	response, err := library.ElasticClient.
		Update().
		Index(library.IndexName).
		Id(id).
		Doc(update.Set).
		DetectNoop(true).
		Refresh("true").
		Do(ctx)
	if err != nil {
		return models.UpdateResult{}, err
	}

	result := models.UpdateResult{Matched: 1}
	if response.Result == "updated" {
		result.Modified = 1
	}
	return result, nil
}

func (library *ElasticLibraryManager) DeleteOne(ctx context.Context, filter models.Filter) (models.DeleteResult, error) {
	if err := filter.Validate(); err != nil {
		return models.DeleteResult{}, err
	}

	id, err := library.findOneID(ctx, filter)
	if err != nil || id == "" {
		return models.DeleteResult{}, err
	}

	response, err := library.ElasticClient.
		Delete().
		Index(library.IndexName).
		Id(id).
		Refresh("true").
		Do(ctx)
	if elastic.IsNotFound(err) {
		return models.DeleteResult{}, nil
	}
	if err != nil {
		return models.DeleteResult{}, err
	}

	if response.Result != "deleted" {
		return models.DeleteResult{}, nil
	}
	return models.DeleteResult{Deleted: 1}, nil
}

// Aggregate runs the group stage as a terms aggregation, or as a histogram
// with interval ten for decade labels. Sort and limit are applied to the
// returned buckets.
func (library *ElasticLibraryManager) Aggregate(ctx context.Context, pipeline models.Pipeline) ([]models.Document, error) {
	if err := pipeline.Validate(); err != nil {
		return nil, err
	}
	plan, err := planAggregation(pipeline)
	if err != nil {
		return nil, err
	}

	results, err := library.ElasticClient.Search().
		Index(library.IndexName).
		Aggregation(GROUPS_AGGREGATION, plan.aggregation()).
		Size(0).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	var buckets []bucket
	if plan.decade {
		histogram, found := results.Aggregations.Histogram(GROUPS_AGGREGATION)
		if found {
			for _, item := range histogram.Buckets {
				buckets = append(buckets, bucket{item.Key, item.DocCount, item.Aggregations})
			}
		}
	} else {
		terms, found := results.Aggregations.Terms(GROUPS_AGGREGATION)
		if found {
			for _, item := range terms.Buckets {
				buckets = append(buckets, bucket{item.Key, item.DocCount, item.Aggregations})
			}
		}
	}
	return plan.rows(buckets), nil
}

// CreateIndex records the declaration in the mapping's _meta. Keyword and
// numeric fields already carry doc values, so nothing else has to be built.
// Declarations from one process are serialized; between processes the last
// mapping update wins.
func (library *ElasticLibraryManager) CreateIndex(ctx context.Context, model models.IndexModel) (string, error) {
	if err := model.Validate(); err != nil {
		return "", err
	}
	name := model.IndexName()

	library.declareMu.Lock()
	defer library.declareMu.Unlock()

	declared, err := library.declared(ctx)
	if err != nil {
		return "", err
	}
	for _, existing := range append([]models.IndexInfo{models.IDIndex()}, declared...) {
		sameName := existing.Name == name
		sameKeys := models.SameKeys(existing.Keys, model.Keys)
		switch {
		case sameName && sameKeys:
			return name, nil
		case sameName:
			return "", fmt.Errorf("%w: index %s already exists with different keys", models.ErrInvalidIndex, name)
		case sameKeys:
			return "", fmt.Errorf("%w: index already exists with a different name: %s", models.ErrInvalidIndex, existing.Name)
		}
	}

	declared = append(declared, models.IndexInfo{Name: name, Keys: model.Keys})
	_, err = library.ElasticClient.PutMapping().
		Index(library.IndexName).
		BodyJson(map[string]interface{}{
			"_meta": map[string]interface{}{"indexes": declared},
		}).
		Do(ctx)
	if err != nil {
		return "", err
	}
	return name, nil
}

func (library *ElasticLibraryManager) declared(ctx context.Context) ([]models.IndexInfo, error) {
	mapping, err := library.ElasticClient.GetMapping().Index(library.IndexName).Do(ctx)
	if err != nil {
		return nil, err
	}
	return declaredIndexes(mapping)
}

func (library *ElasticLibraryManager) ListIndexes(ctx context.Context) ([]models.IndexInfo, error) {
	declared, err := library.declared(ctx)
	if err != nil {
		return nil, err
	}
	return append([]models.IndexInfo{models.IDIndex()}, declared...), nil
}

// Explain runs the search with profiling enabled. The strategy is the
// top-level Lucene query type of the first shard.
func (library *ElasticLibraryManager) Explain(ctx context.Context, query models.Query) (models.ExplainReport, error) {
	if err := checkWindow(query); err != nil {
		return models.ExplainReport{}, err
	}

	result, err := library.search(query).Profile(true).TrackTotalHits(true).Do(ctx)
	if err != nil {
		return models.ExplainReport{}, err
	}

	report := models.ExplainReport{
		Backend:       ELASTIC_BACKEND,
		Returned:      int64(len(result.Hits.Hits)),
		ExecutionTime: time.Duration(result.TookInMillis) * time.Millisecond,
	}
	if result.Hits.TotalHits != nil {
		report.DocsExamined = result.Hits.TotalHits.Value
	}
	if result.Profile != nil {
		strategy, raw, err := parseProfile(result.Profile)
		if err != nil {
			return models.ExplainReport{}, err
		}
		report.Strategy = strategy
		report.Raw = raw
	}
	return report, nil
}

func (library *ElasticLibraryManager) Close(context.Context) error {
	library.ElasticClient.Stop()
	return nil
}
