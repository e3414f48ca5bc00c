package export

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// NestedValue resolves a dotted path such as "customerInfo.name" or
// "items.0.name" against record. It descends through objects by key and
// through arrays by a non-negative in-range index; a missing key, a bad index
// or a scalar intermediate stops the walk and reports false. A key that is
// present with a JSON null value reports (nil, true).
func NestedValue(record any, path string) (any, bool) {
	cur := record
	for _, seg := range strings.Split(path, ".") {
		if obj, ok := asObject(cur); ok {
			v, ok := obj[seg]
			if !ok {
				return nil, false
			}
			cur = v
			continue
		}
		if isList(cur) {
			rv := reflect.ValueOf(cur)
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= rv.Len() {
				return nil, false
			}
			cur = rv.Index(i).Interface()
			continue
		}
		return nil, false
	}
	return cur, true
}

// asObject returns v as a generic JSON object. Maps with string keys and
// structs are converted through their JSON encoding; a value whose encoding
// is not an object (times, decimals, nil pointers) is not an object.
func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return t, t != nil
	case time.Time:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch {
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		if rv.IsNil() {
			return nil, false
		}
	case rv.Kind() == reflect.Struct:
	default:
		return nil, false
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// Flatten collapses record into a single-level row keyed by dotted paths.
//
// Nested objects are walked recursively (an empty object contributes no
// keys); typed maps and structs are walked through their JSON encoding. Arrays become one string: elements joined by ", ", where object,
// array and null elements are JSON-encoded and everything else is
// stringified. Scalars, times and nil are copied as-is. Keys at each level
// are visited in lexical order. The input must be acyclic.
func Flatten(record map[string]any, prefix string) Row {
	var out Row
	flattenInto(&out, record, prefix)
	return out
}

func flattenInto(out *Row, record map[string]any, prefix string) {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := record[key]
		newKey := key
		if prefix != "" {
			newKey = prefix + "." + key
		}

		if obj, ok := asObject(value); ok {
			flattenInto(out, obj, newKey)
			continue
		}
		if isList(value) {
			out.set(newKey, joinList(value))
			continue
		}
		out.set(newKey, value)
	}
}

func isList(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func joinList(v any) string {
	rv := reflect.ValueOf(v)
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = listElement(rv.Index(i).Interface())
	}
	return strings.Join(parts, ", ")
}

func listElement(v any) string {
	if v == nil || isList(v) || isObject(v) {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
	return Stringify(v)
}

func isObject(v any) bool {
	if _, ok := v.(time.Time); ok {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Map || k == reflect.Struct
}

// Stringify renders a scalar the way it appears in a CSV cell: nil is empty,
// numbers use their shortest form, times are RFC 3339, and anything
// composite is JSON-encoded.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case time.Time:
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	}
	if isList(v) {
		return joinList(v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
