package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/domain"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/export"
)

// passthroughExports delegates formatting to the export package so the
// handler tests see real rows.
func passthroughExports() *mockExportServicer {
	return &mockExportServicer{
		format: func(records []map[string]any, columns []export.Column) []export.Row {
			return export.Format(records, columns, nil)
		},
		flatten: export.FlattenAll,
	}
}

// ---- GET /export -----------------------------------------------------------

func TestListExports_200(t *testing.T) {
	rec := httptest.NewRecorder()

	newHTTPHandler(nil, passthroughExports(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"resources":["orders","products"]}`, rec.Body.String())
}

// ---- POST /export ----------------------------------------------------------

func TestPostExport_ColumnsKeepDeclaredOrder(t *testing.T) {
	body := `{
		"records":[{"code":"A1","customerInfo":{"name":"Lan"},"totalPrice":250000}],
		"columns":[
			{"source":"totalPrice","label":"Total"},
			{"source":"code","label":"Order"},
			{"source":"customerInfo.name","label":"Customer"}
		]
	}`
	rec := httptest.NewRecorder()

	newHTTPHandler(nil, passthroughExports(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `[{"Total":250000,"Order":"A1","Customer":"Lan"}]`, strings.TrimSpace(rec.Body.String()))
}

func TestPostExport_NoColumnsFlattens(t *testing.T) {
	body := `{"records":[{"b":1,"a":{"y":"2","x":[1,2]}}]}`
	rec := httptest.NewRecorder()

	newHTTPHandler(nil, passthroughExports(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `[{"a.x":"1, 2","a.y":"2","b":1}]`, strings.TrimSpace(rec.Body.String()))
}

func TestPostExport_CSV(t *testing.T) {
	body := `{"records":[{"code":"A1","n":2},{"code":"B2"}],"columns":[{"source":"code","label":"Order"},{"source":"n","label":"Items"}]}`
	rec := httptest.NewRecorder()

	newHTTPHandler(nil, passthroughExports(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/export?format=csv", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="export.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Order,Items\nA1,2\nB2,\n", rec.Body.String())
}

func TestPostExport_EmptyRecords(t *testing.T) {
	rec := httptest.NewRecorder()

	newHTTPHandler(nil, passthroughExports(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(`{"records":[]}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestPostExport_422(t *testing.T) {
	for name, tc := range map[string]struct {
		url, body, message string
	}{
		"bad format":      {"/export?format=xml", `{"records":[]}`, "format must be csv or json"},
		"missing records": {"/export", `{}`, "records is required"},
		"column no label": {"/export", `{"records":[],"columns":[{"source":"a"}]}`, "columns[0]: source and label are required"},
		"malformed json":  {"/export", `[`, "invalid JSON body"},
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			newHTTPHandler(nil, passthroughExports(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tc.url, strings.NewReader(tc.body)))

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, decodeError(t, rec).Message, tc.message)
		})
	}
}

// ---- GET /export/{resource} ------------------------------------------------

func TestGetExport_200(t *testing.T) {
	var gotToken, gotResource string
	svc := passthroughExports()
	svc.exportResource = func(_ context.Context, token, resource string) ([]export.Row, error) {
		gotToken, gotResource = token, resource
		return []export.Row{{{Key: "Order", Value: "A1"}}}, nil
	}
	req := httptest.NewRequest(http.MethodGet, "/export/orders?format=csv", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "jwt-1"})
	rec := httptest.NewRecorder()

	newHTTPHandler(nil, svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jwt-1", gotToken)
	assert.Equal(t, "orders", gotResource)
	assert.Equal(t, `attachment; filename="orders.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Order\nA1\n", rec.Body.String())
}

func TestGetExport_401_NoToken(t *testing.T) {
	svc := passthroughExports()
	svc.exportResource = func(context.Context, string, string) ([]export.Row, error) {
		t.Fatal("backend must not be called without a token")
		return nil, nil
	}
	rec := httptest.NewRecorder()

	newHTTPHandler(nil, svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export/orders", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Code)
}

func TestGetExport_ServiceErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		err         error
		status      int
		code        string
		clearsToken bool
	}{
		"token rejected": {fmt.Errorf("upstream: %w", domain.ErrUnauthorized), http.StatusUnauthorized, "unauthorized", true},
		"unknown":        {fmt.Errorf("service: %w", domain.ErrNotFound), http.StatusNotFound, "not_found", false},
		"backend down":   {fmt.Errorf("upstream: %w", domain.ErrUpstream), http.StatusBadGateway, "upstream_error", false},
	} {
		t.Run(name, func(t *testing.T) {
			svc := passthroughExports()
			svc.exportResource = func(context.Context, string, string) ([]export.Row, error) {
				return nil, tc.err
			}
			req := httptest.NewRequest(http.MethodGet, "/export/widgets", nil)
			req.AddCookie(&http.Cookie{Name: "token", Value: "jwt-1"})
			rec := httptest.NewRecorder()

			newHTTPHandler(nil, svc, nil).ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeError(t, rec).Code)

			var cleared bool
			for _, c := range rec.Result().Cookies() {
				if c.Name == "token" && c.MaxAge < 0 {
					cleared = true
				}
			}
			assert.Equal(t, tc.clearsToken, cleared)
		})
	}
}
