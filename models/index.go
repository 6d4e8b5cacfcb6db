package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ID_INDEX_NAME is the name of the index every collection has on _id.
const ID_INDEX_NAME = "_id_"

type IndexKey struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// IndexModel declares an ordered index over one or more fields.
type IndexModel struct {
	Keys []IndexKey `json:"keys"`
	Name string     `json:"name,omitempty"`
}

func NewIndex(keys ...IndexKey) IndexModel {
	return IndexModel{Keys: keys}
}

func (model IndexModel) Validate() error {
	if len(model.Keys) == 0 {
		return fmt.Errorf("%w: no keys", ErrInvalidIndex)
	}
	seen := make(map[string]bool, len(model.Keys))
	for _, key := range model.Keys {
		if key.Field == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalidIndex)
		}
		if key.Direction != Ascending && key.Direction != Descending {
			return fmt.Errorf("%w: direction %d on %s", ErrInvalidIndex, key.Direction, key.Field)
		}
		if seen[key.Field] {
			return fmt.Errorf("%w: %s listed twice", ErrInvalidIndex, key.Field)
		}
		seen[key.Field] = true
	}
	return nil
}

// IndexName returns the explicit name or the one derived from the keys,
// e.g. author_1_published_year_-1.
func (model IndexModel) IndexName() string {
	if model.Name != "" {
		return model.Name
	}
	parts := make([]string, 0, 2*len(model.Keys))
	for _, key := range model.Keys {
		parts = append(parts, key.Field, strconv.Itoa(int(key.Direction)))
	}
	return strings.Join(parts, "_")
}

type IndexInfo struct {
	Name string     `json:"name"`
	Keys []IndexKey `json:"keys"`
}

func IDIndex() IndexInfo {
	return IndexInfo{Name: ID_INDEX_NAME, Keys: []IndexKey{{FieldID, Ascending}}}
}

// SameKeys reports whether both key lists name the same fields in the same
// order and direction.
func SameKeys(a, b []IndexKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
