package export

import "strings"

// Column maps a source field path (dot notation allowed) to the label it is
// exported under.
type Column struct {
	Source string `json:"source"`
	Label  string `json:"label"`
}

// Formatter turns the raw value of a column into its display value.
// It also receives the whole record so it can combine fields.
type Formatter func(raw any, record map[string]any) any

// Format projects records through columns.
//
// Every output row holds exactly the declared columns, in declaration order,
// keyed by label. The raw value comes from NestedValue when the source holds a
// dot and from a direct lookup otherwise; missing values are nil. When
// formatters has an entry for the source it is applied to the raw value.
// Output rows keep input record order.
func Format(records []map[string]any, columns []Column, formatters map[string]Formatter) []Row {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		row := make(Row, 0, len(columns))
		for _, col := range columns {
			var raw any
			if strings.Contains(col.Source, ".") {
				raw, _ = NestedValue(rec, col.Source)
			} else {
				raw = rec[col.Source]
			}
			if f, ok := formatters[col.Source]; ok && f != nil {
				raw = f(raw, rec)
			}
			row.set(col.Label, raw)
		}
		rows = append(rows, row)
	}
	return rows
}

// FlattenAll flattens every record with no prefix.
func FlattenAll(records []map[string]any) []Row {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, Flatten(rec, ""))
	}
	return rows
}
