package cmd

import (
	"bookstore/models"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
)

// BOOK_COLUMNS is the column order used when rendering books.
var BOOK_COLUMNS = []string{
	models.FieldID,
	models.FieldTitle,
	models.FieldAuthor,
	models.FieldGenre,
	models.FieldPublishedYear,
	models.FieldPrice,
	models.FieldInStock,
}

func render(w io.Writer, value interface{}, rows []models.Document) error {
	if cfg != nil && cfg.Output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	}
	return renderTable(w, rows)
}

// columns lists the known book columns present in rows, then any others in
// name order.
func columns(rows []models.Document) []string {
	present := map[string]bool{}
	for _, row := range rows {
		for field := range row {
			present[field] = true
		}
	}

	var cols []string
	for _, col := range BOOK_COLUMNS {
		if present[col] {
			cols = append(cols, col)
			delete(present, col)
		}
	}
	var rest []string
	for field := range present {
		rest = append(rest, field)
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

func renderTable(w io.Writer, rows []models.Document) error {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	cols := columns(rows)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, result := range rows {
		row := make(table.Row, len(cols))
		for i, col := range cols {
			row[i] = formatValue(result[col])
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func formatValue(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return fmt.Sprintf("%.2f", value)
	case float32:
		return fmt.Sprintf("%.2f", value)
	}
	return fmt.Sprint(v)
}

// toRows converts typed values into documents through their json form.
func toRows(value interface{}) ([]models.Document, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var rows []models.Document
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func renderValues(w io.Writer, value interface{}) error {
	rows, err := toRows(value)
	if err != nil {
		return err
	}
	return render(w, value, rows)
}
