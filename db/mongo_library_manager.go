package db

import (
	"bookstore/models"
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const MONGO_BACKEND = "mongo"

type MongoLibraryManager struct {
	Client     *mongo.Client
	Collection *mongo.Collection
}

func NewMongoLibrary(client *mongo.Client, database, collection string) *MongoLibraryManager {
	return &MongoLibraryManager{
		Client:     client,
		Collection: client.Database(database).Collection(collection),
	}
}

func (library *MongoLibraryManager) InsertMany(ctx context.Context, books []models.Book) ([]string, error) {
	if len(books) == 0 {
		return nil, nil
	}
	docs := make([]interface{}, len(books))
	for i := range books {
		doc := bson.M(books[i].Document())
		if id, ok := doc[models.FieldID]; ok {
			doc[models.FieldID] = mongoValue(models.FieldID, id)
		}
		docs[i] = doc
	}

	result, err := library.Collection.InsertMany(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("insert books: %w", err)
	}

	ids := make([]string, len(result.InsertedIDs))
	for i, id := range result.InsertedIDs {
		if oid, ok := id.(primitive.ObjectID); ok {
			ids[i] = oid.Hex()
		} else {
			ids[i] = fmt.Sprint(id)
		}
	}
	return ids, nil
}

func (library *MongoLibraryManager) findOptions(query models.Query) *options.FindOptions {
	opts := options.Find()
	if projection := mongoProjection(query.Projection); projection != nil {
		opts.SetProjection(projection)
	}
	if len(query.Sort) > 0 {
		opts.SetSort(mongoSort(query.Sort))
	}
	if query.Skip > 0 {
		opts.SetSkip(query.Skip)
	}
	if query.Limit > 0 {
		opts.SetLimit(query.Limit)
	}
	return opts
}

func (library *MongoLibraryManager) Find(ctx context.Context, query models.Query) ([]models.Document, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	cursor, err := library.Collection.Find(ctx, mongoFilter(query.Filter), library.findOptions(query))
	if err != nil {
		return nil, fmt.Errorf("find books: %w", err)
	}
	return decodeCursor(ctx, cursor)
}

func decodeCursor(ctx context.Context, cursor *mongo.Cursor) ([]models.Document, error) {
	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	docs := make([]models.Document, len(raw))
	for i, r := range raw {
		docs[i] = fromMongo(r)
	}
	return docs, nil
}

func (library *MongoLibraryManager) UpdateOne(ctx context.Context, filter models.Filter, update models.Update) (models.UpdateResult, error) {
	if err := filter.Validate(); err != nil {
		return models.UpdateResult{}, err
	}
	if err := update.Validate(); err != nil {
		return models.UpdateResult{}, err
	}

	result, err := library.Collection.UpdateOne(ctx, mongoFilter(filter), mongoUpdate(update))
	if err != nil {
		return models.UpdateResult{}, fmt.Errorf("update book: %w", err)
	}
	return models.UpdateResult{Matched: result.MatchedCount, Modified: result.ModifiedCount}, nil
}

func (library *MongoLibraryManager) DeleteOne(ctx context.Context, filter models.Filter) (models.DeleteResult, error) {
	if err := filter.Validate(); err != nil {
		return models.DeleteResult{}, err
	}

	result, err := library.Collection.DeleteOne(ctx, mongoFilter(filter))
	if err != nil {
		return models.DeleteResult{}, fmt.Errorf("delete book: %w", err)
	}
	return models.DeleteResult{Deleted: result.DeletedCount}, nil
}

func (library *MongoLibraryManager) Aggregate(ctx context.Context, pipeline models.Pipeline) ([]models.Document, error) {
	if err := pipeline.Validate(); err != nil {
		return nil, err
	}
	stages, err := mongoPipeline(pipeline)
	if err != nil {
		return nil, err
	}

	cursor, err := library.Collection.Aggregate(ctx, stages)
	if err != nil {
		return nil, fmt.Errorf("aggregate books: %w", err)
	}
	return decodeCursor(ctx, cursor)
}

func (library *MongoLibraryManager) CreateIndex(ctx context.Context, model models.IndexModel) (string, error) {
	if err := model.Validate(); err != nil {
		return "", err
	}

	name, err := library.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    mongoIndexKeys(model.Keys),
		Options: options.Index().SetName(model.IndexName()),
	})
	if err != nil {
		return "", fmt.Errorf("create index %s: %w", model.IndexName(), err)
	}
	return name, nil
}

func (library *MongoLibraryManager) ListIndexes(ctx context.Context) ([]models.IndexInfo, error) {
	cursor, err := library.Collection.Indexes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	var specs []mongoIndexSpec
	if err := cursor.All(ctx, &specs); err != nil {
		return nil, fmt.Errorf("decode indexes: %w", err)
	}

	infos := make([]models.IndexInfo, len(specs))
	for i, spec := range specs {
		infos[i] = spec.info()
	}
	return infos, nil
}

// Explain runs the explain command for the find with executionStats verbosity.
func (library *MongoLibraryManager) Explain(ctx context.Context, query models.Query) (models.ExplainReport, error) {
	if err := query.Validate(); err != nil {
		return models.ExplainReport{}, err
	}

	find := bson.D{
		{Key: "find", Value: library.Collection.Name()},
		{Key: "filter", Value: mongoFilter(query.Filter)},
	}
	if projection := mongoProjection(query.Projection); projection != nil {
		find = append(find, bson.E{Key: "projection", Value: projection})
	}
	if len(query.Sort) > 0 {
		find = append(find, bson.E{Key: "sort", Value: mongoSort(query.Sort)})
	}
	if query.Skip > 0 {
		find = append(find, bson.E{Key: "skip", Value: query.Skip})
	}
	if query.Limit > 0 {
		find = append(find, bson.E{Key: "limit", Value: query.Limit})
	}

	var raw bson.M
	err := library.Collection.Database().RunCommand(ctx, bson.D{
		{Key: "explain", Value: find},
		{Key: "verbosity", Value: "executionStats"},
	}).Decode(&raw)
	if err != nil {
		return models.ExplainReport{}, fmt.Errorf("explain: %w", err)
	}
	return parseMongoExplain(raw), nil
}

func (library *MongoLibraryManager) Close(ctx context.Context) error {
	return library.Client.Disconnect(ctx)
}
