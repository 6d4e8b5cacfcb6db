package db

import (
	"bookstore/models"
	"encoding/json"
	"fmt"

	"github.com/olivere/elastic/v7"
)

// MAX_RESULT_WINDOW is the default index.max_result_window of Elasticsearch.
const MAX_RESULT_WINDOW = 10000

const DECADE_INTERVAL = 10

// INDEX_MAPPING keeps text fields as keywords so they filter, sort and
// aggregate on exact values.
var INDEX_MAPPING = map[string]interface{}{
	"mappings": map[string]interface{}{
		"properties": map[string]interface{}{
			models.FieldTitle:         map[string]interface{}{"type": "keyword"},
			models.FieldAuthor:        map[string]interface{}{"type": "keyword"},
			models.FieldGenre:         map[string]interface{}{"type": "keyword"},
			models.FieldPublishedYear: map[string]interface{}{"type": "integer"},
			models.FieldPrice:         map[string]interface{}{"type": "double"},
			models.FieldInStock:       map[string]interface{}{"type": "boolean"},
			models.FieldPages:         map[string]interface{}{"type": "integer"},
			models.FieldPublisher:     map[string]interface{}{"type": "keyword"},
		},
	},
}

func elasticQuery(filter models.Filter) elastic.Query {
	if len(filter) == 0 {
		return elastic.NewMatchAllQuery()
	}

	boolQuery := elastic.NewBoolQuery()
	for _, p := range filter {
		if p.Value == nil {
			exists := elastic.NewExistsQuery(p.Field)
			if p.Op == models.OpNe {
				boolQuery.Filter(exists)
			} else {
				boolQuery.MustNot(exists)
			}
			continue
		}

		switch p.Op {
		case models.OpEq:
			boolQuery.Filter(elasticTerm(p.Field, p.Value))
		case models.OpNe:
			boolQuery.MustNot(elasticTerm(p.Field, p.Value))
		case models.OpGt:
			boolQuery.Filter(elastic.NewRangeQuery(p.Field).Gt(p.Value))
		case models.OpGte:
			boolQuery.Filter(elastic.NewRangeQuery(p.Field).Gte(p.Value))
		case models.OpLt:
			boolQuery.Filter(elastic.NewRangeQuery(p.Field).Lt(p.Value))
		case models.OpLte:
			boolQuery.Filter(elastic.NewRangeQuery(p.Field).Lte(p.Value))
		}
	}
	return boolQuery
}

func elasticTerm(field string, value interface{}) elastic.Query {
	if field == models.FieldID {
		return elastic.NewIdsQuery().Ids(fmt.Sprint(value))
	}
	return elastic.NewTermQuery(field, value)
}

// elasticSource translates a projection into source filtering. _id is hit
// metadata rather than source, so it is handled by the caller.
func elasticSource(projection models.Projection) *elastic.FetchSourceContext {
	if len(projection) == 0 {
		return nil
	}
	source := elastic.NewFetchSourceContext(true)
	if projection.IsInclusion() {
		source.Include(withoutID(projection.Fields(true))...)
	} else {
		source.Exclude(withoutID(projection.Fields(false))...)
	}
	return source
}

func withoutID(fields []string) []string {
	out := fields[:0:0]
	for _, field := range fields {
		if field != models.FieldID {
			out = append(out, field)
		}
	}
	return out
}

func keepsID(projection models.Projection) bool {
	keep, listed := projection[models.FieldID]
	return !listed || keep
}

// fromHit builds a document from a search hit.
func fromHit(hit *elastic.SearchHit, projection models.Projection) (models.Document, error) {
	doc := models.Document{}
	if len(hit.Source) > 0 {
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			return nil, err
		}
	}
	if keepsID(projection) {
		doc[models.FieldID] = hit.Id
	}
	return doc, nil
}

// bucketing is how a group stage maps onto an Elasticsearch aggregation.
type bucketing struct {
	field        string
	decade       bool
	accumulators []models.Accumulator
	post         []models.Stage
}

// planAggregation accepts pipelines of the form [project] group [sort|limit]*,
// where the group key is a field or a decade label over a field.
func planAggregation(pipeline models.Pipeline) (bucketing, error) {
	var plan bucketing
	derived := map[string]models.Expr{}

	i := 0
	if len(pipeline) > 0 {
		if project, ok := pipeline[0].(models.ProjectStage); ok {
			for _, f := range project.Fields {
				derived[f.Name] = f.Expr
			}
			i++
		}
	}
	if i >= len(pipeline) {
		return plan, fmt.Errorf("%w: pipeline without group stage", models.ErrUnsupported)
	}
	group, ok := pipeline[i].(models.GroupStage)
	if !ok {
		return plan, fmt.Errorf("%w: %s before group", models.ErrUnsupported, models.StageName(pipeline[i]))
	}

	key := group.Key
	if ref, ok := key.(models.FieldRef); ok {
		if expr, ok := derived[string(ref)]; ok {
			key = expr
		}
	}
	switch k := key.(type) {
	case models.FieldRef:
		plan.field = string(k)
	case models.DecadeLabel:
		plan.field = k.Field
		plan.decade = true
	default:
		return plan, fmt.Errorf("%w: group key %T", models.ErrUnsupported, key)
	}

	for _, acc := range group.Accumulators {
		expr := acc.Expr
		if ref, ok := expr.(models.FieldRef); ok {
			if _, isDerived := derived[string(ref)]; isDerived {
				return plan, fmt.Errorf("%w: accumulator over derived field %s", models.ErrUnsupported, ref)
			}
		}
		switch e := expr.(type) {
		case models.FieldRef:
		case models.Literal:
			if _, numeric := models.ToFloat(e.Value); !numeric || acc.Op != models.AccSum {
				return plan, fmt.Errorf("%w: accumulator %s", models.ErrUnsupported, acc.Name)
			}
		default:
			return plan, fmt.Errorf("%w: accumulator %s over %T", models.ErrUnsupported, acc.Name, expr)
		}
	}
	plan.accumulators = group.Accumulators

	for _, stage := range pipeline[i+1:] {
		switch stage.(type) {
		case models.SortStage, models.LimitStage:
			plan.post = append(plan.post, stage)
		default:
			return plan, fmt.Errorf("%w: %s after group", models.ErrUnsupported, models.StageName(stage))
		}
	}
	return plan, nil
}

func (plan bucketing) aggregation() elastic.Aggregation {
	var agg elastic.Aggregation
	if plan.decade {
		histogram := elastic.NewHistogramAggregation().Field(plan.field).Interval(DECADE_INTERVAL).MinDocCount(1)
		for _, acc := range plan.accumulators {
			if sub := subAggregation(acc); sub != nil {
				histogram = histogram.SubAggregation(acc.Name, sub)
			}
		}
		agg = histogram
	} else {
		terms := elastic.NewTermsAggregation().Field(plan.field).Size(MAX_RESULT_WINDOW)
		for _, acc := range plan.accumulators {
			if sub := subAggregation(acc); sub != nil {
				terms = terms.SubAggregation(acc.Name, sub)
			}
		}
		agg = terms
	}
	return agg
}

func subAggregation(acc models.Accumulator) elastic.Aggregation {
	ref, ok := acc.Expr.(models.FieldRef)
	if !ok {
		return nil
	}
	if acc.Op == models.AccAvg {
		return elastic.NewAvgAggregation().Field(string(ref))
	}
	return elastic.NewSumAggregation().Field(string(ref))
}

// bucket is the part of a terms or histogram bucket the plan reads.
type bucket struct {
	key      interface{}
	docCount int64
	metrics  elastic.Aggregations
}

func (plan bucketing) rows(buckets []bucket) []models.Document {
	rows := make([]models.Document, 0, len(buckets))
	for _, b := range buckets {
		key := b.key
		if plan.decade {
			if n, ok := models.ToFloat(key); ok {
				key = models.FormatDecade(int64(n))
			}
		}
		row := models.Document{models.FieldID: key}
		for _, acc := range plan.accumulators {
			row[acc.Name] = plan.metric(acc, b)
		}
		rows = append(rows, row)
	}

	models.SortDocuments(rows, []models.SortField{models.Asc(models.FieldID)})
	for _, stage := range plan.post {
		switch st := stage.(type) {
		case models.SortStage:
			models.SortDocuments(rows, st.Fields)
		case models.LimitStage:
			if st.N < int64(len(rows)) {
				rows = rows[:st.N]
			}
		}
	}
	return rows
}

func (plan bucketing) metric(acc models.Accumulator, b bucket) interface{} {
	if lit, ok := acc.Expr.(models.Literal); ok {
		n, _ := models.ToFloat(lit.Value)
		if n == float64(int64(n)) {
			return b.docCount * int64(n)
		}
		return float64(b.docCount) * n
	}
	if b.metrics == nil {
		return nil
	}
	var value *elastic.AggregationValueMetric
	var found bool
	if acc.Op == models.AccAvg {
		value, found = b.metrics.Avg(acc.Name)
	} else {
		value, found = b.metrics.Sum(acc.Name)
	}
	if !found || value == nil || value.Value == nil {
		return nil
	}
	return *value.Value
}

// declaredIndexes reads the index declarations stored under _meta.indexes
// of a get-mapping response.
func declaredIndexes(mapping map[string]interface{}) ([]models.IndexInfo, error) {
	for _, index := range mapping {
		raw, err := json.Marshal(index)
		if err != nil {
			return nil, err
		}
		var parsed struct {
			Mappings struct {
				Meta struct {
					Indexes []models.IndexInfo `json:"indexes"`
				} `json:"_meta"`
			} `json:"mappings"`
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, err
		}
		return parsed.Mappings.Meta.Indexes, nil
	}
	return nil, nil
}

type profileOutput struct {
	Shards []struct {
		Searches []struct {
			Query []struct {
				Type        string `json:"type"`
				Description string `json:"description"`
				TimeInNanos int64  `json:"time_in_nanos"`
			} `json:"query"`
		} `json:"searches"`
	} `json:"shards"`
}

// parseProfile returns the top-level query type of the first profiled shard
// and the raw profile as a generic map.
func parseProfile(profile interface{}) (string, map[string]interface{}, error) {
	raw, err := json.Marshal(profile)
	if err != nil {
		return "", nil, err
	}
	var out profileOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", nil, err
	}
	generic := map[string]interface{}{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", nil, err
	}
	for _, shard := range out.Shards {
		for _, search := range shard.Searches {
			if len(search.Query) > 0 {
				return search.Query[0].Type, generic, nil
			}
		}
	}
	return "", generic, nil
}
