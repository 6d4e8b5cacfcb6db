package models

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterMatches(t *testing.T) {
	doc := Document{
		FieldGenre:         "Fiction",
		FieldPublishedYear: int32(2011),
		FieldInStock:       true,
		FieldPrice:         10.99,
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty filter", Where(), true},
		{"equal string", Where(Eq(FieldGenre, "Fiction")), true},
		{"different string", Where(Eq(FieldGenre, "Non-fiction")), false},
		{"numbers across types", Where(Eq(FieldPublishedYear, 2011)), true},
		{"greater than", Where(Gt(FieldPublishedYear, 2010)), true},
		{"greater than is strict", Where(Gt(FieldPublishedYear, 2011)), false},
		{"greater or equal", Where(Gte(FieldPublishedYear, 2011)), true},
		{"less than", Where(Lt(FieldPrice, 11)), true},
		{"less or equal", Where(Lte(FieldPrice, 10.98)), false},
		{"boolean", Where(Eq(FieldInStock, true)), true},
		{"not equal", Where(Ne(FieldGenre, "Fiction")), false},
		{"conjunction", Where(Eq(FieldInStock, true), Gt(FieldPublishedYear, 2010)), true},
		{"conjunction with one failing", Where(Eq(FieldInStock, false), Gt(FieldPublishedYear, 2010)), false},
		{"missing field equals nil", Where(Eq(FieldPublisher, nil)), true},
		{"missing field is not greater", Where(Gt(FieldPages, 0)), false},
		{"no ordering across types", Where(Gt(FieldGenre, 5)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(doc))
		})
	}
}

func TestFilterValidate(t *testing.T) {
	assert.NoError(t, Where(Eq(FieldTitle, "x")).Validate())
	assert.ErrorIs(t, Where(Predicate{Field: "", Op: OpEq}).Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, Where(Predicate{Field: FieldTitle, Op: "$regex"}).Validate(), ErrInvalidQuery)
}

func TestProjection(t *testing.T) {
	doc := Document{
		FieldID:     "42",
		FieldTitle:  "The Alchemist",
		FieldAuthor: "Paulo Coelho",
		FieldPrice:  10.99,
		FieldGenre:  "Fiction",
	}

	t.Run("include drops the identifier", func(t *testing.T) {
		view := Include(FieldTitle, FieldAuthor, FieldPrice).Apply(doc)
		want := Document{FieldTitle: "The Alchemist", FieldAuthor: "Paulo Coelho", FieldPrice: 10.99}
		if diff := cmp.Diff(want, view); diff != "" {
			t.Errorf("view mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("inclusion keeps the identifier unless excluded", func(t *testing.T) {
		view := Projection{FieldTitle: true}.Apply(doc)
		assert.Equal(t, Document{FieldID: "42", FieldTitle: "The Alchemist"}, view)
	})

	t.Run("exclusion", func(t *testing.T) {
		view := Exclude(FieldGenre, FieldID).Apply(doc)
		assert.Equal(t, Document{FieldTitle: "The Alchemist", FieldAuthor: "Paulo Coelho", FieldPrice: 10.99}, view)
	})

	t.Run("empty projection copies", func(t *testing.T) {
		view := Projection(nil).Apply(doc)
		assert.Equal(t, doc, view)
		view[FieldTitle] = "changed"
		assert.Equal(t, "The Alchemist", doc[FieldTitle])
	})

	t.Run("mixed modes are rejected", func(t *testing.T) {
		assert.NoError(t, Include(FieldTitle).Validate())
		assert.ErrorIs(t, Projection{FieldTitle: true, FieldGenre: false}.Validate(), ErrInvalidProjection)
	})
}

func TestPage(t *testing.T) {
	skip, limit, err := Page(2, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), skip)
	assert.Equal(t, int64(5), limit)

	skip, limit, err = Page(1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), skip)
	assert.Equal(t, int64(10), limit)

	_, _, err = Page(0, 5)
	assert.ErrorIs(t, err, ErrInvalidPage)
	_, _, err = Page(1, 0)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestQueryValidate(t *testing.T) {
	assert.NoError(t, Query{Sort: []SortField{Desc(FieldPrice)}, Limit: 5}.Validate())
	assert.ErrorIs(t, Query{Skip: -1}.Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, Query{Sort: []SortField{{Field: FieldPrice, Direction: 2}}}.Validate(), ErrInvalidQuery)
}

func TestSortDocuments(t *testing.T) {
	docs := []Document{
		{FieldTitle: "b", FieldPrice: 12.5},
		{FieldTitle: "a", FieldPrice: 7},
		{FieldTitle: "c"},
		{FieldTitle: "d", FieldPrice: 12.5},
	}

	SortDocuments(docs, []SortField{Asc(FieldPrice)})
	titles := func() []string {
		out := make([]string, len(docs))
		for i, d := range docs {
			out[i] = d[FieldTitle].(string)
		}
		return out
	}
	// Missing values sort first; ties keep their order.
	assert.Equal(t, []string{"c", "a", "b", "d"}, titles())

	SortDocuments(docs, []SortField{Desc(FieldPrice)})
	assert.Equal(t, []string{"b", "d", "a", "c"}, titles())
}

func TestUpdateValidate(t *testing.T) {
	assert.NoError(t, Set(FieldPrice, 18.99).Validate())
	assert.ErrorIs(t, Update{}.Validate(), ErrInvalidUpdate)
	assert.ErrorIs(t, Set(FieldID, "x").Validate(), ErrInvalidUpdate)
}

func TestCompareValues(t *testing.T) {
	assert.Equal(t, 0, CompareValues(int32(5), 5.0))
	assert.Equal(t, -1, CompareValues(nil, 0))
	assert.Equal(t, -1, CompareValues(99, "a"))
	assert.Equal(t, -1, CompareValues("z", false))
	assert.Equal(t, 1, CompareValues(true, false))
	assert.True(t, EqualValues(int64(1990), 1990.0))
	assert.False(t, EqualValues("1990", 1990))
}
