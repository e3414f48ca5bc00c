// Package export turns nested API records into flat, display-ready rows.
//
// NestedValue reads a dotted path out of a record, Flatten collapses a whole
// record into dotted keys, and Format projects records through a declared
// column mapping. WriteCSV renders the resulting rows.
package export

import (
	"bytes"
	"encoding/json"
)

// Cell is one key/value pair of a Row.
type Cell struct {
	Key   string
	Value any
}

// Row is an ordered set of cells. Keys are unique within a row.
// It marshals to a JSON object whose members keep the row order.
type Row []Cell

// Get returns the value stored under key.
func (r Row) Get(key string) (any, bool) {
	for _, c := range r {
		if c.Key == key {
			return c.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in row order.
func (r Row) Keys() []string {
	keys := make([]string, len(r))
	for i, c := range r {
		keys[i] = c.Key
	}
	return keys
}

// Map returns the row as an unordered map.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, c := range r {
		m[c.Key] = c.Value
	}
	return m
}

// set overwrites key in place if present, otherwise appends it.
func (r *Row) set(key string, v any) {
	for i := range *r {
		if (*r)[i].Key == key {
			(*r)[i].Value = v
			return
		}
	}
	*r = append(*r, Cell{Key: key, Value: v})
}

// MarshalJSON implements json.Marshaler.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Columns returns the union of keys across rows in first-seen order.
func Columns(rows []Row) []string {
	seen := map[string]bool{}
	var cols []string
	for _, r := range rows {
		for _, c := range r {
			if !seen[c.Key] {
				seen[c.Key] = true
				cols = append(cols, c.Key)
			}
		}
	}
	return cols
}
