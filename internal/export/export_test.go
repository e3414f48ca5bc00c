package export_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/export"
)

// decode parses a JSON object the same way records arrive from the backend.
func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

// ---- NestedValue -----------------------------------------------------------

func TestNestedValue(t *testing.T) {
	rec := decode(t, `{"customerInfo":{"name":"Lan","address":{"city":"Hanoi"}},"note":null,"total":5}`)

	v, ok := export.NestedValue(rec, "customerInfo.name")
	assert.True(t, ok)
	assert.Equal(t, "Lan", v)

	v, ok = export.NestedValue(rec, "customerInfo.address.city")
	assert.True(t, ok)
	assert.Equal(t, "Hanoi", v)

	v, ok = export.NestedValue(rec, "note")
	assert.True(t, ok, "present null is found")
	assert.Nil(t, v)
}

func TestNestedValue_MissingPathsNeverPanic(t *testing.T) {
	rec := decode(t, `{"customerInfo":{"name":"Lan"},"total":5,"note":null}`)

	for _, path := range []string{
		"customerInfo.phone",
		"customerInfo.name.first",
		"total.amount",
		"note.text",
		"absent.deeper.still",
		"",
	} {
		v, ok := export.NestedValue(rec, path)
		assert.False(t, ok, path)
		assert.Nil(t, v, path)
	}

	_, ok := export.NestedValue(nil, "a")
	assert.False(t, ok)
}

func TestNestedValue_ArrayIndex(t *testing.T) {
	rec := decode(t, `{"items":[{"name":"Tee","qty":2},{"name":"Cap"}],"codes":[[7,8]]}`)

	v, ok := export.NestedValue(rec, "items.0.name")
	assert.True(t, ok)
	assert.Equal(t, "Tee", v)

	v, ok = export.NestedValue(rec, "items.1.name")
	assert.True(t, ok)
	assert.Equal(t, "Cap", v)

	v, ok = export.NestedValue(rec, "codes.0.1")
	assert.True(t, ok)
	assert.Equal(t, 8.0, v)

	for _, path := range []string{"items.2.name", "items.-1.name", "items.first.name", "items.1.qty"} {
		_, ok := export.NestedValue(rec, path)
		assert.False(t, ok, path)
	}
}

func TestNestedValue_TypedValues(t *testing.T) {
	type address struct {
		City string `json:"city"`
	}
	rec := map[string]any{
		"labels":  map[string]string{"color": "red"},
		"address": &address{City: "Hue"},
	}

	v, ok := export.NestedValue(rec, "labels.color")
	assert.True(t, ok)
	assert.Equal(t, "red", v)

	v, ok = export.NestedValue(rec, "address.city")
	assert.True(t, ok)
	assert.Equal(t, "Hue", v)
}

// ---- Flatten ---------------------------------------------------------------

func TestFlatten_TypedMapsAndStructs(t *testing.T) {
	type dims struct {
		W int `json:"w"`
		H int `json:"h"`
	}
	rec := map[string]any{
		"a":    map[string]string{"b": "x"},
		"size": dims{W: 2, H: 3},
		"none": (*dims)(nil),
	}

	row := export.Flatten(rec, "")

	assert.Equal(t, []string{"a.b", "none", "size.h", "size.w"}, row.Keys())
	assert.Equal(t, "x", row.Map()["a.b"])
	assert.Equal(t, 3.0, row.Map()["size.h"])
}

func TestFlatten_NestedScalars(t *testing.T) {
	row := export.Flatten(decode(t, `{"a":{"b":1,"c":"x"}}`), "")

	assert.Equal(t, []string{"a.b", "a.c"}, row.Keys())
	assert.Equal(t, map[string]any{"a.b": 1.0, "a.c": "x"}, row.Map())
}

func TestFlatten_ArrayOfScalars(t *testing.T) {
	row := export.Flatten(decode(t, `{"tags":[1,2,3]}`), "")

	assert.Equal(t, map[string]any{"tags": "1, 2, 3"}, row.Map())
}

func TestFlatten_ArrayOfObjects(t *testing.T) {
	row := export.Flatten(decode(t, `{"items":[{"sku":"A"},"plain",null,[1,2],true]}`), "")

	v, ok := row.Get("items")
	require.True(t, ok)
	assert.Equal(t, `{"sku":"A"}, plain, null, [1,2], true`, v)
}

func TestFlatten_PrefixNullAndEmptyObject(t *testing.T) {
	rec := map[string]any{
		"deleted": nil,
		"meta":    map[string]any{},
		"created": time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}

	row := export.Flatten(rec, "order")

	assert.Equal(t, []string{"order.created", "order.deleted"}, row.Keys(), "empty object contributes nothing")
	v, _ := row.Get("order.created")
	assert.IsType(t, time.Time{}, v, "times are not walked")
}

func TestFlatten_LiteralDottedKeyCollision(t *testing.T) {
	row := export.Flatten(decode(t, `{"a":{"b":1},"a.b":2}`), "")

	assert.Len(t, row, 1)
	v, _ := row.Get("a.b")
	assert.Equal(t, 2.0, v, "later key in visit order wins")
}

// ---- Format ----------------------------------------------------------------

func TestFormat_RestrictsToMappedColumnsInOrder(t *testing.T) {
	recs := []map[string]any{decode(t, `{"a":1,"b":2,"c":3}`)}

	rows := export.Format(recs, []export.Column{
		{Source: "c", Label: "Column C"},
		{Source: "a", Label: "Column A"},
	}, nil)

	require.Len(t, rows, 1)
	assert.Equal(t, []string{"Column C", "Column A"}, rows[0].Keys())

	b, err := json.Marshal(rows[0])
	require.NoError(t, err)
	assert.Equal(t, `{"Column C":3,"Column A":1}`, string(b))
}

func TestFormat_NestedSourcesAndFormatters(t *testing.T) {
	recs := []map[string]any{
		decode(t, `{"_id":"o1","customerInfo":{"name":"Lan"},"totalPrice":80000,"status":"pending"}`),
		decode(t, `{"_id":"o2","totalPrice":15.5}`),
	}
	columns := []export.Column{
		{Source: "_id", Label: "Order"},
		{Source: "customerInfo.name", Label: "Customer"},
		{Source: "totalPrice", Label: "Total"},
		{Source: "status", Label: "Status"},
	}
	formatters := map[string]export.Formatter{
		"totalPrice": func(raw any, rec map[string]any) any {
			return rec["_id"].(string) + ":" + export.Stringify(raw)
		},
		"status": func(raw any, _ map[string]any) any {
			if raw == nil {
				return "unknown"
			}
			return strings.ToUpper(raw.(string))
		},
	}

	rows := export.Format(recs, columns, formatters)

	require.Len(t, rows, 2)
	assert.Equal(t, map[string]any{"Order": "o1", "Customer": "Lan", "Total": "o1:80000", "Status": "PENDING"}, rows[0].Map())
	assert.Equal(t, map[string]any{"Order": "o2", "Customer": nil, "Total": "o2:15.5", "Status": "unknown"}, rows[1].Map())
}

func TestFormat_NoRecords(t *testing.T) {
	rows := export.Format(nil, []export.Column{{Source: "a", Label: "A"}}, nil)

	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

// ---- CSV -------------------------------------------------------------------

func TestWriteCSV(t *testing.T) {
	rows := export.FlattenAll([]map[string]any{
		decode(t, `{"name":"Shirt, linen","price":19.99,"tags":["summer","sale"]}`),
		decode(t, `{"name":"Cap","stock":3}`),
	})

	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, rows))

	want := "name,price,tags,stock\n" +
		"\"Shirt, linen\",19.99,\"summer, sale\",\n" +
		"Cap,,,3\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_NoRows(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, export.WriteCSV(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", export.Stringify(nil))
	assert.Equal(t, "240000", export.Stringify(240000.0))
	assert.Equal(t, "0.1", export.Stringify(0.1))
	assert.Equal(t, "true", export.Stringify(true))
	assert.Equal(t, "2025-03-01T08:00:00Z", export.Stringify(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, `{"a":1}`, export.Stringify(map[string]any{"a": 1}))
	assert.Equal(t, "a, b", export.Stringify([]string{"a", "b"}))
}
