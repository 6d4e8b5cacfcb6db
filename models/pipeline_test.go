package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecade(t *testing.T) {
	tests := []struct {
		year interface{}
		want interface{}
	}{
		{1987, "1980s"},
		{1990, "1990s"},
		{int32(1999), "1990s"},
		{2005.0, "2000s"},
		{1813, "1810s"},
		{-5, "-10s"},
		{0, "0s"},
		{nil, nil},
		{"1987", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Decade(tt.year), "year %v", tt.year)
	}
}

func TestDecadeLabelEval(t *testing.T) {
	label := DecadeLabel{Field: FieldPublishedYear}
	assert.Equal(t, "1940s", label.Eval(Document{FieldPublishedYear: 1949}))
	assert.Nil(t, label.Eval(Document{}))
}

func TestPipelineValidate(t *testing.T) {
	valid := Pipeline{
		ProjectStage{Fields: []ProjectedField{{Name: "decade", Expr: DecadeLabel{Field: FieldPublishedYear}}}},
		GroupStage{Key: Field("decade"), Accumulators: []Accumulator{Count("count")}},
		SortStage{Fields: []SortField{Asc(FieldID)}},
		LimitStage{N: 3},
	}
	assert.NoError(t, valid.Validate())

	invalid := []Pipeline{
		{GroupStage{}},
		{GroupStage{Key: Field(FieldGenre), Accumulators: []Accumulator{{Name: "x", Op: "$max", Expr: Field(FieldPrice)}}}},
		{GroupStage{Key: Field(FieldGenre), Accumulators: []Accumulator{{Name: FieldID, Op: AccSum, Expr: Literal{1}}}}},
		{SortStage{}},
		{LimitStage{N: 0}},
		{ProjectStage{}},
		{nil},
	}
	for i, p := range invalid {
		assert.ErrorIs(t, p.Validate(), ErrInvalidPipeline, "pipeline %d", i)
	}
}

func TestIndexModel(t *testing.T) {
	compound := NewIndex(IndexKey{FieldAuthor, Ascending}, IndexKey{FieldPublishedYear, Descending})
	assert.NoError(t, compound.Validate())
	assert.Equal(t, "author_1_published_year_-1", compound.IndexName())
	assert.Equal(t, "title_1", NewIndex(IndexKey{FieldTitle, Ascending}).IndexName())
	assert.Equal(t, "by_title", IndexModel{Keys: compound.Keys, Name: "by_title"}.IndexName())

	assert.ErrorIs(t, NewIndex().Validate(), ErrInvalidIndex)
	assert.ErrorIs(t, NewIndex(IndexKey{FieldTitle, 0}).Validate(), ErrInvalidIndex)
	assert.ErrorIs(t, NewIndex(IndexKey{FieldTitle, Ascending}, IndexKey{FieldTitle, Descending}).Validate(), ErrInvalidIndex)

	assert.True(t, SameKeys(compound.Keys, authorYearKeys()))
	assert.False(t, SameKeys(compound.Keys, compound.Keys[:1]))
}

func authorYearKeys() []IndexKey {
	return []IndexKey{{FieldAuthor, Ascending}, {FieldPublishedYear, Descending}}
}
