package db

import (
	"bookstore/models"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// mongoFilter renders predicates as a filter document. Predicates on the same
// field are merged into one operator document; a lone equality is written
// as a plain value.
func mongoFilter(filter models.Filter) bson.D {
	byField := map[string]bson.D{}
	var fields []string
	for _, p := range filter {
		if _, seen := byField[p.Field]; !seen {
			fields = append(fields, p.Field)
		}
		byField[p.Field] = append(byField[p.Field], bson.E{Key: string(p.Op), Value: mongoValue(p.Field, p.Value)})
	}

	out := bson.D{}
	for _, field := range fields {
		ops := byField[field]
		if len(ops) == 1 && ops[0].Key == string(models.OpEq) {
			out = append(out, bson.E{Key: field, Value: ops[0].Value})
			continue
		}
		out = append(out, bson.E{Key: field, Value: ops})
	}
	return out
}

// mongoValue turns hex identifiers back into ObjectIDs.
func mongoValue(field string, value interface{}) interface{} {
	if field != models.FieldID {
		return value
	}
	if s, ok := value.(string); ok {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return oid
		}
	}
	return value
}

func mongoProjection(projection models.Projection) bson.D {
	if len(projection) == 0 {
		return nil
	}
	fields := make([]string, 0, len(projection))
	for field := range projection {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := bson.D{}
	for _, field := range fields {
		flag := 0
		if projection[field] {
			flag = 1
		}
		out = append(out, bson.E{Key: field, Value: flag})
	}
	return out
}

func mongoSort(fields []models.SortField) bson.D {
	out := bson.D{}
	for _, s := range fields {
		out = append(out, bson.E{Key: s.Field, Value: int(s.Direction)})
	}
	return out
}

func mongoUpdate(update models.Update) bson.D {
	fields := make([]string, 0, len(update.Set))
	for field := range update.Set {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	set := bson.D{}
	for _, field := range fields {
		set = append(set, bson.E{Key: field, Value: update.Set[field]})
	}
	return bson.D{{Key: "$set", Value: set}}
}

func mongoIndexKeys(keys []models.IndexKey) bson.D {
	out := bson.D{}
	for _, key := range keys {
		out = append(out, bson.E{Key: key.Field, Value: int(key.Direction)})
	}
	return out
}

// mongoExpr renders an aggregation expression. Literals are wrapped in
// $literal so they are never read as field paths or inclusion flags.
func mongoExpr(expr models.Expr) (interface{}, error) {
	switch e := expr.(type) {
	case models.FieldRef:
		return "$" + string(e), nil
	case models.Literal:
		return bson.D{{Key: "$literal", Value: e.Value}}, nil
	case models.DecadeLabel:
		decade := bson.D{{Key: "$multiply", Value: bson.A{
			bson.D{{Key: "$floor", Value: bson.D{{Key: "$divide", Value: bson.A{"$" + e.Field, 10}}}}},
			10,
		}}}
		return bson.D{{Key: "$concat", Value: bson.A{
			bson.D{{Key: "$toString", Value: bson.D{{Key: "$toLong", Value: decade}}}},
			"s",
		}}}, nil
	}
	return nil, fmt.Errorf("%w: expression %T", models.ErrUnsupported, expr)
}

func mongoAccumulator(acc models.Accumulator) (interface{}, error) {
	if lit, ok := acc.Expr.(models.Literal); ok {
		if _, numeric := models.ToFloat(lit.Value); numeric {
			return bson.D{{Key: string(acc.Op), Value: lit.Value}}, nil
		}
	}
	value, err := mongoExpr(acc.Expr)
	if err != nil {
		return nil, err
	}
	return bson.D{{Key: string(acc.Op), Value: value}}, nil
}

func mongoPipeline(pipeline models.Pipeline) (mongo.Pipeline, error) {
	out := mongo.Pipeline{}
	for _, stage := range pipeline {
		var body interface{}
		switch st := stage.(type) {
		case models.ProjectStage:
			fields := bson.D{}
			for _, f := range st.Fields {
				value, err := mongoExpr(f.Expr)
				if err != nil {
					return nil, err
				}
				fields = append(fields, bson.E{Key: f.Name, Value: value})
			}
			body = fields
		case models.GroupStage:
			key, err := mongoExpr(st.Key)
			if err != nil {
				return nil, err
			}
			fields := bson.D{{Key: models.FieldID, Value: key}}
			for _, acc := range st.Accumulators {
				value, err := mongoAccumulator(acc)
				if err != nil {
					return nil, err
				}
				fields = append(fields, bson.E{Key: acc.Name, Value: value})
			}
			body = fields
		case models.SortStage:
			body = mongoSort(st.Fields)
		case models.LimitStage:
			body = st.N
		default:
			return nil, fmt.Errorf("%w: stage %T", models.ErrUnsupported, stage)
		}
		out = append(out, bson.D{{Key: models.StageName(stage), Value: body}})
	}
	return out, nil
}

// fromMongo converts a decoded record, rendering ObjectIDs as hex strings.
func fromMongo(raw bson.M) models.Document {
	doc := make(models.Document, len(raw))
	for k, v := range raw {
		if oid, ok := v.(primitive.ObjectID); ok {
			v = oid.Hex()
		}
		doc[k] = v
	}
	return doc
}

// lookup walks nested documents regardless of how the driver decoded them.
func lookup(v interface{}, path ...string) interface{} {
	for _, key := range path {
		switch doc := v.(type) {
		case bson.M:
			v = doc[key]
		case map[string]interface{}:
			v = doc[key]
		case bson.D:
			v = nil
			for _, e := range doc {
				if e.Key == key {
					v = e.Value
					break
				}
			}
		default:
			return nil
		}
	}
	return v
}

func lookupInt(v interface{}, path ...string) int64 {
	n, _ := models.ToFloat(lookup(v, path...))
	return int64(n)
}

// parseMongoExplain reads the winning plan and execution statistics of an
// explain("executionStats") reply.
func parseMongoExplain(raw bson.M) models.ExplainReport {
	report := models.ExplainReport{
		Backend:       MONGO_BACKEND,
		KeysExamined:  lookupInt(raw, "executionStats", "totalKeysExamined"),
		DocsExamined:  lookupInt(raw, "executionStats", "totalDocsExamined"),
		Returned:      lookupInt(raw, "executionStats", "nReturned"),
		ExecutionTime: time.Duration(lookupInt(raw, "executionStats", "executionTimeMillis")) * time.Millisecond,
		Raw:           map[string]interface{}(raw),
	}

	plan := lookup(raw, "queryPlanner", "winningPlan")
	if nested := lookup(plan, "queryPlan"); nested != nil {
		plan = nested
	}
	for plan != nil {
		if stage, ok := lookup(plan, "stage").(string); ok {
			report.Strategy = stage
		}
		if name, ok := lookup(plan, "indexName").(string); ok && report.IndexName == "" {
			report.IndexName = name
		}
		plan = lookup(plan, "inputStage")
	}
	return report
}

type mongoIndexSpec struct {
	Name string `bson:"name"`
	Key  bson.D `bson:"key"`
}

func (spec mongoIndexSpec) info() models.IndexInfo {
	info := models.IndexInfo{Name: spec.Name}
	for _, e := range spec.Key {
		direction := models.Ascending
		if n, ok := models.ToFloat(e.Value); ok && n < 0 {
			direction = models.Descending
		}
		info.Keys = append(info.Keys, models.IndexKey{Field: e.Key, Direction: direction})
	}
	return info
}
