package db

import (
	"bookstore/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestMongoFilter(t *testing.T) {
	filter := models.Where(
		models.Eq(models.FieldInStock, true),
		models.Gt(models.FieldPublishedYear, 2010),
		models.Lte(models.FieldPublishedYear, 2020),
	)
	want := bson.D{
		{Key: models.FieldInStock, Value: true},
		{Key: models.FieldPublishedYear, Value: bson.D{
			{Key: "$gt", Value: 2010},
			{Key: "$lte", Value: 2020},
		}},
	}
	assert.Equal(t, want, mongoFilter(filter))
	assert.Equal(t, bson.D{}, mongoFilter(nil))
}

func TestMongoFilterConvertsObjectIDs(t *testing.T) {
	oid := primitive.NewObjectID()
	got := mongoFilter(models.Where(models.Eq(models.FieldID, oid.Hex())))
	assert.Equal(t, bson.D{{Key: models.FieldID, Value: oid}}, got)

	got = mongoFilter(models.Where(models.Eq(models.FieldID, "not-hex")))
	assert.Equal(t, bson.D{{Key: models.FieldID, Value: "not-hex"}}, got)
}

func TestMongoProjectionSortUpdate(t *testing.T) {
	projection := mongoProjection(models.Include(models.FieldTitle, models.FieldAuthor, models.FieldPrice))
	assert.Equal(t, bson.D{
		{Key: models.FieldID, Value: 0},
		{Key: models.FieldAuthor, Value: 1},
		{Key: models.FieldPrice, Value: 1},
		{Key: models.FieldTitle, Value: 1},
	}, projection)
	assert.Nil(t, mongoProjection(nil))

	assert.Equal(t, bson.D{{Key: models.FieldPrice, Value: -1}}, mongoSort([]models.SortField{models.Desc(models.FieldPrice)}))

	assert.Equal(t,
		bson.D{{Key: "$set", Value: bson.D{{Key: models.FieldPrice, Value: 18.99}}}},
		mongoUpdate(models.Set(models.FieldPrice, 18.99)))
}

func TestMongoPipeline(t *testing.T) {
	pipeline := models.Pipeline{
		models.ProjectStage{Fields: []models.ProjectedField{{Name: "decade", Expr: models.DecadeLabel{Field: models.FieldPublishedYear}}}},
		models.GroupStage{Key: models.Field("decade"), Accumulators: []models.Accumulator{models.Count("count")}},
		models.SortStage{Fields: []models.SortField{models.Asc(models.FieldID)}},
		models.LimitStage{N: 3},
	}

	got, err := mongoPipeline(pipeline)
	require.NoError(t, err)

	decade := bson.D{{Key: "$concat", Value: bson.A{
		bson.D{{Key: "$toString", Value: bson.D{{Key: "$toLong", Value: bson.D{{Key: "$multiply", Value: bson.A{
			bson.D{{Key: "$floor", Value: bson.D{{Key: "$divide", Value: bson.A{"$published_year", 10}}}}},
			10,
		}}}}}}},
		"s",
	}}}
	want := mongo.Pipeline{
		{{Key: "$project", Value: bson.D{{Key: "decade", Value: decade}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$decade"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: int64(3)}},
	}
	assert.Equal(t, want, got)
}

func TestMongoPipelineAverage(t *testing.T) {
	got, err := mongoPipeline(models.Pipeline{
		models.GroupStage{Key: models.Field(models.FieldGenre), Accumulators: []models.Accumulator{models.Avg("averagePrice", models.FieldPrice)}},
	})
	require.NoError(t, err)
	assert.Equal(t, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$genre"},
			{Key: "averagePrice", Value: bson.D{{Key: "$avg", Value: "$price"}}},
		}}},
	}, got)
}

func TestFromMongo(t *testing.T) {
	oid := primitive.NewObjectID()
	doc := fromMongo(bson.M{"_id": oid, models.FieldTitle: "1984"})
	assert.Equal(t, models.Document{"_id": oid.Hex(), models.FieldTitle: "1984"}, doc)
}

func TestParseMongoExplain(t *testing.T) {
	raw := bson.M{
		"queryPlanner": bson.M{
			"winningPlan": bson.M{
				"stage": "FETCH",
				"inputStage": bson.M{
					"stage":     "IXSCAN",
					"indexName": "title_1",
				},
			},
		},
		"executionStats": bson.M{
			"nReturned":           int32(1),
			"executionTimeMillis": int32(3),
			"totalKeysExamined":   int32(1),
			"totalDocsExamined":   int32(1),
		},
	}

	report := parseMongoExplain(raw)
	assert.Equal(t, MONGO_BACKEND, report.Backend)
	assert.Equal(t, models.STRATEGY_IXSCAN, report.Strategy)
	assert.Equal(t, "title_1", report.IndexName)
	assert.Equal(t, int64(1), report.KeysExamined)
	assert.Equal(t, int64(1), report.DocsExamined)
	assert.Equal(t, int64(1), report.Returned)
	assert.Equal(t, 3*time.Millisecond, report.ExecutionTime)
}

func TestParseMongoExplainCollectionScan(t *testing.T) {
	raw := bson.M{
		"queryPlanner": bson.D{
			{Key: "winningPlan", Value: bson.D{
				{Key: "queryPlan", Value: bson.D{{Key: "stage", Value: "COLLSCAN"}}},
			}},
		},
		"executionStats": bson.D{
			{Key: "nReturned", Value: int32(1)},
			{Key: "totalDocsExamined", Value: int64(12)},
		},
	}

	report := parseMongoExplain(raw)
	assert.Equal(t, models.STRATEGY_COLLSCAN, report.Strategy)
	assert.False(t, report.UsesIndex())
	assert.Equal(t, int64(12), report.DocsExamined)
}

func TestMongoIndexSpec(t *testing.T) {
	spec := mongoIndexSpec{
		Name: "author_1_published_year_-1",
		Key:  bson.D{{Key: models.FieldAuthor, Value: int32(1)}, {Key: models.FieldPublishedYear, Value: int32(-1)}},
	}
	assert.Equal(t, models.IndexInfo{
		Name: "author_1_published_year_-1",
		Keys: []models.IndexKey{
			{Field: models.FieldAuthor, Direction: models.Ascending},
			{Field: models.FieldPublishedYear, Direction: models.Descending},
		},
	}, spec.info())

	keys := mongoIndexKeys(spec.info().Keys)
	assert.Equal(t, bson.D{{Key: models.FieldAuthor, Value: 1}, {Key: models.FieldPublishedYear, Value: -1}}, keys)
}
