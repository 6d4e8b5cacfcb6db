package models

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Document is a single record or aggregation row as returned by a store.
type Document map[string]interface{}

// Get returns the value stored under field and whether it was present.
func (doc Document) Get(field string) (interface{}, bool) {
	value, ok := doc[field]
	return value, ok
}

// Clone returns a shallow copy of the document.
func (doc Document) Clone() Document {
	clone := make(Document, len(doc))
	for k, v := range doc {
		clone[k] = v
	}
	return clone
}

// Decode converts the document into out using the json tags of out's type.
func (doc Document) Decode(out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(map[string]interface{}(doc))
}

// DecodeAll decodes every document into a value of type T.
func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, len(docs))
	for i, doc := range docs {
		if err := doc.Decode(&out[i]); err != nil {
			return nil, fmt.Errorf("decode document %d: %w", i, err)
		}
	}
	return out, nil
}

// DecodeRows decodes docs into out, which must point to a slice.
func DecodeRows(docs []Document, out interface{}) error {
	rows := make([]map[string]interface{}, len(docs))
	for i, doc := range docs {
		rows[i] = doc
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(rows)
}
