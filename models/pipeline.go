package models

import (
	"fmt"
	"math"
	"strconv"
)

// Expr computes a value from a document inside a pipeline stage.
type Expr interface {
	Eval(doc Document) interface{}
}

// FieldRef reads a field of the current document.
type FieldRef string

func Field(name string) FieldRef { return FieldRef(name) }

func (ref FieldRef) Eval(doc Document) interface{} {
	return doc[string(ref)]
}

type Literal struct {
	Value interface{}
}

func (lit Literal) Eval(Document) interface{} {
	return lit.Value
}

// DecadeLabel derives "1980s" style labels from a year field.
type DecadeLabel struct {
	Field string
}

func (label DecadeLabel) Eval(doc Document) interface{} {
	return Decade(doc[label.Field])
}

// Decade floors year to its decade and renders it as a base-10 integer
// followed by "s". Missing or non-numeric years yield nil.
func Decade(year interface{}) interface{} {
	y, ok := ToFloat(year)
	if !ok || math.IsNaN(y) || math.IsInf(y, 0) {
		return nil
	}
	return FormatDecade(int64(math.Floor(y/10) * 10))
}

func FormatDecade(decade int64) string {
	return strconv.FormatInt(decade, 10) + "s"
}

// Stage is one step of an aggregation pipeline.
type Stage interface {
	stage() string
}

type ProjectedField struct {
	Name string
	Expr Expr
}

// ProjectStage replaces each document with _id plus the derived fields.
type ProjectStage struct {
	Fields []ProjectedField
}

type AccumulatorOp string

const (
	AccSum AccumulatorOp = "$sum"
	AccAvg AccumulatorOp = "$avg"
)

type Accumulator struct {
	Name string
	Op   AccumulatorOp
	Expr Expr
}

func Count(name string) Accumulator {
	return Accumulator{Name: name, Op: AccSum, Expr: Literal{1}}
}

func Sum(name, field string) Accumulator {
	return Accumulator{Name: name, Op: AccSum, Expr: Field(field)}
}

func Avg(name, field string) Accumulator {
	return Accumulator{Name: name, Op: AccAvg, Expr: Field(field)}
}

// GroupStage partitions documents by Key. Each output row carries the key
// under _id and one field per accumulator.
type GroupStage struct {
	Key          Expr
	Accumulators []Accumulator
}

type SortStage struct {
	Fields []SortField
}

type LimitStage struct {
	N int64
}

func (ProjectStage) stage() string { return "$project" }
func (GroupStage) stage() string   { return "$group" }
func (SortStage) stage() string    { return "$sort" }
func (LimitStage) stage() string   { return "$limit" }

// StageName returns the store operator name of the stage.
func StageName(s Stage) string {
	return s.stage()
}

type Pipeline []Stage

func (pipeline Pipeline) Validate() error {
	for i, s := range pipeline {
		switch st := s.(type) {
		case ProjectStage:
			if len(st.Fields) == 0 {
				return fmt.Errorf("%w: stage %d: empty projection", ErrInvalidPipeline, i)
			}
			for _, f := range st.Fields {
				if f.Name == "" || f.Name == FieldID || f.Expr == nil {
					return fmt.Errorf("%w: stage %d: bad projected field %q", ErrInvalidPipeline, i, f.Name)
				}
			}
		case GroupStage:
			if st.Key == nil {
				return fmt.Errorf("%w: stage %d: group without key", ErrInvalidPipeline, i)
			}
			for _, acc := range st.Accumulators {
				if acc.Name == "" || acc.Name == FieldID || acc.Expr == nil {
					return fmt.Errorf("%w: stage %d: bad accumulator %q", ErrInvalidPipeline, i, acc.Name)
				}
				if acc.Op != AccSum && acc.Op != AccAvg {
					return fmt.Errorf("%w: stage %d: unknown accumulator %q", ErrInvalidPipeline, i, acc.Op)
				}
			}
		case SortStage:
			if len(st.Fields) == 0 {
				return fmt.Errorf("%w: stage %d: empty sort", ErrInvalidPipeline, i)
			}
			if err := validateSort(st.Fields); err != nil {
				return fmt.Errorf("%w: stage %d: %v", ErrInvalidPipeline, i, err)
			}
		case LimitStage:
			if st.N < 1 {
				return fmt.Errorf("%w: stage %d: limit must be positive", ErrInvalidPipeline, i)
			}
		case nil:
			return fmt.Errorf("%w: stage %d is nil", ErrInvalidPipeline, i)
		default:
			return fmt.Errorf("%w: stage %d: unknown stage %T", ErrInvalidPipeline, i, s)
		}
	}
	return nil
}
