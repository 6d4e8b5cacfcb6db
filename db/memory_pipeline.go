package db

import (
	"bookstore/models"
	"fmt"
)

func runPipeline(docs []models.Document, pipeline models.Pipeline) []models.Document {
	for _, stage := range pipeline {
		switch st := stage.(type) {
		case models.ProjectStage:
			docs = projectStage(docs, st)
		case models.GroupStage:
			docs = groupStage(docs, st)
		case models.SortStage:
			models.SortDocuments(docs, st.Fields)
		case models.LimitStage:
			if st.N < int64(len(docs)) {
				docs = docs[:st.N]
			}
		}
	}
	return docs
}

func projectStage(docs []models.Document, stage models.ProjectStage) []models.Document {
	out := make([]models.Document, len(docs))
	for i, doc := range docs {
		row := models.Document{}
		if id, ok := doc[models.FieldID]; ok {
			row[models.FieldID] = id
		}
		for _, f := range stage.Fields {
			row[f.Name] = f.Expr.Eval(doc)
		}
		out[i] = row
	}
	return out
}

type accumulatorState struct {
	sum      float64
	count    int64
	fraction bool
}

func (state *accumulatorState) add(value interface{}) {
	n, ok := models.ToFloat(value)
	if !ok {
		return
	}
	switch value.(type) {
	case float32, float64:
		state.fraction = true
	}
	state.sum += n
	state.count++
}

func (state *accumulatorState) result(op models.AccumulatorOp) interface{} {
	switch op {
	case models.AccAvg:
		if state.count == 0 {
			return nil
		}
		return state.sum / float64(state.count)
	default:
		if state.fraction {
			return state.sum
		}
		return int64(state.sum)
	}
}

type group struct {
	key    interface{}
	states []*accumulatorState
}

// groupStage emits one row per distinct key, ordered by key ascending.
func groupStage(docs []models.Document, stage models.GroupStage) []models.Document {
	groups := map[string]*group{}
	var order []*group
	for _, doc := range docs {
		key := stage.Key.Eval(doc)
		id := groupID(key)
		g, ok := groups[id]
		if !ok {
			g = &group{key: key, states: make([]*accumulatorState, len(stage.Accumulators))}
			for i := range g.states {
				g.states[i] = &accumulatorState{}
			}
			groups[id] = g
			order = append(order, g)
		}
		for i, acc := range stage.Accumulators {
			g.states[i].add(acc.Expr.Eval(doc))
		}
	}

	out := make([]models.Document, 0, len(order))
	for _, g := range order {
		row := models.Document{models.FieldID: g.key}
		for i, acc := range stage.Accumulators {
			row[acc.Name] = g.states[i].result(acc.Op)
		}
		out = append(out, row)
	}
	models.SortDocuments(out, []models.SortField{models.Asc(models.FieldID)})
	return out
}

// groupID makes numerically equal keys of different Go types share a group.
func groupID(key interface{}) string {
	if n, ok := models.ToFloat(key); ok {
		return fmt.Sprintf("n:%v", n)
	}
	return fmt.Sprintf("%T:%v", key, key)
}
