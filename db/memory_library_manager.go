package db

import (
	"bookstore/models"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const MEMORY_BACKEND = "memory"

// MemoryLibraryManager keeps books in process. Records are held in insertion
// order, which is also the order ties are resolved in.
type MemoryLibraryManager struct {
	mu      sync.RWMutex
	docs    []models.Document
	indexes []models.IndexInfo
}

func NewMemoryLibrary(seed ...models.Book) *MemoryLibraryManager {
	library := &MemoryLibraryManager{}
	for i := range seed {
		doc := seed[i].Document()
		if _, ok := doc[models.FieldID]; !ok {
			doc[models.FieldID] = uuid.NewString()
		}
		library.docs = append(library.docs, doc)
	}
	return library
}

func (library *MemoryLibraryManager) InsertMany(_ context.Context, books []models.Book) ([]string, error) {
	library.mu.Lock()
	defer library.mu.Unlock()

	ids := make([]string, 0, len(books))
	for i := range books {
		doc := books[i].Document()
		id, ok := doc[models.FieldID].(string)
		if !ok {
			id = uuid.NewString()
			doc[models.FieldID] = id
		}
		if library.indexOfID(id) >= 0 {
			return ids, fmt.Errorf("insert %q: duplicate %s %s", books[i].Title, models.FieldID, id)
		}
		library.docs = append(library.docs, doc)
		ids = append(ids, id)
	}
	return ids, nil
}

func (library *MemoryLibraryManager) indexOfID(id string) int {
	for i, doc := range library.docs {
		if doc[models.FieldID] == id {
			return i
		}
	}
	return -1
}

func (library *MemoryLibraryManager) Find(_ context.Context, query models.Query) ([]models.Document, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	library.mu.RLock()
	defer library.mu.RUnlock()

	matched := library.match(query.Filter)
	return shape(matched, query), nil
}

// match returns copies of the matching documents in storage order.
func (library *MemoryLibraryManager) match(filter models.Filter) []models.Document {
	var docs []models.Document
	for _, doc := range library.docs {
		if filter.Matches(doc) {
			docs = append(docs, doc.Clone())
		}
	}
	return docs
}

// shape applies sort, skip, limit and projection, in that order.
func shape(docs []models.Document, query models.Query) []models.Document {
	models.SortDocuments(docs, query.Sort)

	if query.Skip >= int64(len(docs)) {
		docs = nil
	} else {
		docs = docs[query.Skip:]
	}
	if query.Limit > 0 && query.Limit < int64(len(docs)) {
		docs = docs[:query.Limit]
	}

	views := make([]models.Document, len(docs))
	for i, doc := range docs {
		views[i] = query.Projection.Apply(doc)
	}
	return views
}

func (library *MemoryLibraryManager) UpdateOne(_ context.Context, filter models.Filter, update models.Update) (models.UpdateResult, error) {
	if err := filter.Validate(); err != nil {
		return models.UpdateResult{}, err
	}
	if err := update.Validate(); err != nil {
		return models.UpdateResult{}, err
	}

	library.mu.Lock()
	defer library.mu.Unlock()

	for _, doc := range library.docs {
		if !filter.Matches(doc) {
			continue
		}
		result := models.UpdateResult{Matched: 1}
		for field, value := range update.Set {
			current, present := doc[field]
			if !present || !models.EqualValues(current, value) {
				doc[field] = value
				result.Modified = 1
			}
		}
		return result, nil
	}
	return models.UpdateResult{}, nil
}

func (library *MemoryLibraryManager) DeleteOne(_ context.Context, filter models.Filter) (models.DeleteResult, error) {
	if err := filter.Validate(); err != nil {
		return models.DeleteResult{}, err
	}

	library.mu.Lock()
	defer library.mu.Unlock()

	for i, doc := range library.docs {
		if filter.Matches(doc) {
			library.docs = append(library.docs[:i], library.docs[i+1:]...)
			return models.DeleteResult{Deleted: 1}, nil
		}
	}
	return models.DeleteResult{}, nil
}

func (library *MemoryLibraryManager) Aggregate(_ context.Context, pipeline models.Pipeline) ([]models.Document, error) {
	if err := pipeline.Validate(); err != nil {
		return nil, err
	}

	library.mu.RLock()
	docs := make([]models.Document, len(library.docs))
	for i, doc := range library.docs {
		docs[i] = doc.Clone()
	}
	library.mu.RUnlock()

	return runPipeline(docs, pipeline), nil
}

func (library *MemoryLibraryManager) CreateIndex(_ context.Context, model models.IndexModel) (string, error) {
	if err := model.Validate(); err != nil {
		return "", err
	}
	name := model.IndexName()

	library.mu.Lock()
	defer library.mu.Unlock()

	for _, existing := range library.allIndexes() {
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

	keys := make([]models.IndexKey, len(model.Keys))
	copy(keys, model.Keys)
	library.indexes = append(library.indexes, models.IndexInfo{Name: name, Keys: keys})
	return name, nil
}

func (library *MemoryLibraryManager) allIndexes() []models.IndexInfo {
	return append([]models.IndexInfo{models.IDIndex()}, library.indexes...)
}

func (library *MemoryLibraryManager) ListIndexes(_ context.Context) ([]models.IndexInfo, error) {
	library.mu.RLock()
	defer library.mu.RUnlock()

	indexes := library.allIndexes()
	out := make([]models.IndexInfo, len(indexes))
	for i, info := range indexes {
		keys := make([]models.IndexKey, len(info.Keys))
		copy(keys, info.Keys)
		out[i] = models.IndexInfo{Name: info.Name, Keys: keys}
	}
	return out, nil
}

// Explain picks the first index whose leading field is constrained by the
// filter. With an index, only the records matching that field are examined.
func (library *MemoryLibraryManager) Explain(_ context.Context, query models.Query) (models.ExplainReport, error) {
	if err := query.Validate(); err != nil {
		return models.ExplainReport{}, err
	}
	start := time.Now()

	library.mu.RLock()
	defer library.mu.RUnlock()

	report := models.ExplainReport{
		Backend:  MEMORY_BACKEND,
		Strategy: models.STRATEGY_COLLSCAN,
	}

	if index, predicates, ok := library.usableIndex(query.Filter); ok {
		report.Strategy = models.STRATEGY_IXSCAN
		report.IndexName = index.Name
		keys := int64(0)
		for _, doc := range library.docs {
			if predicates.Matches(doc) {
				keys++
			}
		}
		report.KeysExamined = keys
		report.DocsExamined = keys
	} else {
		report.DocsExamined = int64(len(library.docs))
	}

	matched := library.match(query.Filter)
	report.Returned = int64(len(shape(matched, query)))
	report.ExecutionTime = time.Since(start)
	report.Raw = map[string]interface{}{
		"stage":      report.Strategy,
		"collection": int64(len(library.docs)),
	}
	return report, nil
}

func (library *MemoryLibraryManager) usableIndex(filter models.Filter) (models.IndexInfo, models.Filter, bool) {
	for _, index := range library.indexes {
		leading := index.Keys[0].Field
		var bounds models.Filter
		for _, p := range filter {
			if p.Field == leading && p.Op != models.OpNe {
				bounds = append(bounds, p)
			}
		}
		if len(bounds) > 0 {
			return index, bounds, true
		}
	}
	return models.IndexInfo{}, nil, false
}

func (library *MemoryLibraryManager) Close(context.Context) error {
	return nil
}
