package models

import (
	"fmt"
	"sort"
)

// Operator is a comparison operator of a filter predicate.
type Operator string

const (
	OpEq  Operator = "$eq"
	OpNe  Operator = "$ne"
	OpGt  Operator = "$gt"
	OpGte Operator = "$gte"
	OpLt  Operator = "$lt"
	OpLte Operator = "$lte"
)

func (op Operator) valid() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
		return true
	}
	return false
}

// Predicate is a condition on a single field.
type Predicate struct {
	Field string
	Op    Operator
	Value interface{}
}

func Eq(field string, value interface{}) Predicate  { return Predicate{field, OpEq, value} }
func Ne(field string, value interface{}) Predicate  { return Predicate{field, OpNe, value} }
func Gt(field string, value interface{}) Predicate  { return Predicate{field, OpGt, value} }
func Gte(field string, value interface{}) Predicate { return Predicate{field, OpGte, value} }
func Lt(field string, value interface{}) Predicate  { return Predicate{field, OpLt, value} }
func Lte(field string, value interface{}) Predicate { return Predicate{field, OpLte, value} }

// Filter is a conjunction of predicates. An empty filter selects every record.
type Filter []Predicate

func Where(predicates ...Predicate) Filter {
	return Filter(predicates)
}

func (filter Filter) Validate() error {
	for _, p := range filter {
		if p.Field == "" {
			return fmt.Errorf("%w: predicate without field", ErrInvalidQuery)
		}
		if !p.Op.valid() {
			return fmt.Errorf("%w: unknown operator %q on %s", ErrInvalidQuery, p.Op, p.Field)
		}
	}
	return nil
}

// Matches reports whether doc satisfies every predicate. A missing field
// compares as null, and ordering operators never match across value types.
func (filter Filter) Matches(doc Document) bool {
	for _, p := range filter {
		actual := doc[p.Field]
		if !p.Op.holds(actual, p.Value) {
			return false
		}
	}
	return true
}

func (op Operator) holds(actual, expected interface{}) bool {
	switch op {
	case OpEq:
		return EqualValues(actual, expected)
	case OpNe:
		return !EqualValues(actual, expected)
	}
	if typeRank(actual) != typeRank(expected) {
		return false
	}
	c := CompareValues(actual, expected)
	switch op {
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	}
	return false
}

// Projection maps field names to an include flag. A projection is either an
// inclusion or an exclusion; only _id may disagree with the others.
type Projection map[string]bool

// Include builds a client-facing view of the given fields, never exposing _id.
func Include(fields ...string) Projection {
	projection := Projection{FieldID: false}
	for _, field := range fields {
		projection[field] = true
	}
	return projection
}

func Exclude(fields ...string) Projection {
	projection := Projection{}
	for _, field := range fields {
		projection[field] = false
	}
	return projection
}

// IsInclusion reports whether the projection lists the fields to keep.
func (projection Projection) IsInclusion() bool {
	for field, include := range projection {
		if field != FieldID && include {
			return true
		}
	}
	return false
}

func (projection Projection) Validate() error {
	inclusion := projection.IsInclusion()
	for field, include := range projection {
		if field == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalidProjection)
		}
		if field != FieldID && include != inclusion {
			return fmt.Errorf("%w: cannot mix inclusion and exclusion (%s)", ErrInvalidProjection, field)
		}
	}
	return nil
}

// Fields returns the fields the projection names with the given flag, sorted.
func (projection Projection) Fields(include bool) []string {
	fields := make([]string, 0, len(projection))
	for field, flag := range projection {
		if flag == include {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	return fields
}

// Apply shapes doc according to the projection.
func (projection Projection) Apply(doc Document) Document {
	if len(projection) == 0 {
		return doc.Clone()
	}
	if !projection.IsInclusion() {
		view := doc.Clone()
		for field, include := range projection {
			if !include {
				delete(view, field)
			}
		}
		return view
	}
	view := Document{}
	if keepID, listed := projection[FieldID]; !listed || keepID {
		if id, ok := doc[FieldID]; ok {
			view[FieldID] = id
		}
	}
	for field, include := range projection {
		if !include || field == FieldID {
			continue
		}
		if value, ok := doc[field]; ok {
			view[field] = value
		}
	}
	return view
}

type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

type SortField struct {
	Field     string
	Direction Direction
}

func Asc(field string) SortField  { return SortField{field, Ascending} }
func Desc(field string) SortField { return SortField{field, Descending} }

func validateSort(fields []SortField) error {
	for _, s := range fields {
		if s.Field == "" {
			return fmt.Errorf("%w: sort without field", ErrInvalidQuery)
		}
		if s.Direction != Ascending && s.Direction != Descending {
			return fmt.Errorf("%w: sort direction %d on %s", ErrInvalidQuery, s.Direction, s.Field)
		}
	}
	return nil
}

// SortDocuments orders docs in place by the sort keys. Equal documents keep
// their relative order.
func SortDocuments(docs []Document, fields []SortField) {
	if len(fields) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, s := range fields {
			c := CompareValues(docs[i][s.Field], docs[j][s.Field])
			if c != 0 {
				return c*int(s.Direction) < 0
			}
		}
		return false
	})
}

// Query describes a find request.
type Query struct {
	Filter     Filter
	Projection Projection
	Sort       []SortField
	Skip       int64
	Limit      int64
}

func (query Query) Validate() error {
	if err := query.Filter.Validate(); err != nil {
		return err
	}
	if err := query.Projection.Validate(); err != nil {
		return err
	}
	if err := validateSort(query.Sort); err != nil {
		return err
	}
	if query.Skip < 0 || query.Limit < 0 {
		return fmt.Errorf("%w: negative skip or limit", ErrInvalidQuery)
	}
	return nil
}

// Page converts a 1-based page number and a page size into skip and limit.
func Page(page, pageSize int64) (skip, limit int64, err error) {
	if page < 1 {
		return 0, 0, fmt.Errorf("%w: page %d must be at least 1", ErrInvalidPage, page)
	}
	if pageSize < 1 {
		return 0, 0, fmt.Errorf("%w: page size %d must be at least 1", ErrInvalidPage, pageSize)
	}
	return (page - 1) * pageSize, pageSize, nil
}

// Paginate returns a copy of the query restricted to the requested page.
func (query Query) Paginate(page, pageSize int64) (Query, error) {
	skip, limit, err := Page(page, pageSize)
	if err != nil {
		return Query{}, err
	}
	query.Skip = skip
	query.Limit = limit
	return query, nil
}

// Update sets fields of a single record.
type Update struct {
	Set map[string]interface{}
}

func Set(field string, value interface{}) Update {
	return Update{Set: map[string]interface{}{field: value}}
}

func (update Update) Validate() error {
	if len(update.Set) == 0 {
		return fmt.Errorf("%w: nothing to set", ErrInvalidUpdate)
	}
	for field := range update.Set {
		if field == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalidUpdate)
		}
		if field == FieldID {
			return fmt.Errorf("%w: %s is immutable", ErrInvalidUpdate, FieldID)
		}
	}
	return nil
}

type UpdateResult struct {
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
}

type DeleteResult struct {
	Deleted int64 `json:"deleted"`
}
