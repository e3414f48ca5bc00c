package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/domain"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/export"
)

// exportRequest is the body of POST /export. Without columns every record
// is flattened into dotted keys.
type exportRequest struct {
	Records []map[string]any `json:"records"`
	Columns []export.Column  `json:"columns,omitempty"`
}

// ListExports handles GET /export and lists the exportable resources.
func (s *Server) ListExports(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{"resources": s.exports.Resources()})
}

// PostExport handles POST /export.
// It formats the posted records through the posted columns.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) PostExport(w http.ResponseWriter, r *http.Request) {
	format, ok := bindFormat(w, r)
	if !ok {
		return
	}
	var req exportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Records == nil {
		invalidRequest(w, "records is required")
		return
	}
	for i, c := range req.Columns {
		if c.Source == "" || c.Label == "" {
			invalidRequest(w, fmt.Sprintf("columns[%d]: source and label are required", i))
			return
		}
	}

	var rows []export.Row
	if len(req.Columns) == 0 {
		rows = s.exports.Flatten(req.Records)
	} else {
		rows = s.exports.Format(req.Records, req.Columns, nil)
	}
	s.respondRows(w, r, rows, format, s.exports.Filename("export", format))
}

// GetExport handles GET /export/{resource}.
// It pulls every record of the resource from the backend with the caller's
// token and formats it with the resource's preset.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	format, ok := bindFormat(w, r)
	if !ok {
		return
	}
	resource := chi.URLParam(r, "resource")

	c, err := r.Cookie(s.opts.TokenCookie)
	if err != nil || c.Value == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "login required")
		return
	}

	rows, err := s.exports.ExportResource(r.Context(), c.Value, resource)
	if err != nil {
		s.respondServiceError(w, r, err, "export "+resource)
		return
	}
	s.respondRows(w, r, rows, format, s.exports.Filename(resource, format))
}

// bindFormat reads the optional ?format= query parameter.
func bindFormat(w http.ResponseWriter, r *http.Request) (domain.ExportFormat, bool) {
	var raw *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &raw); err != nil {
		invalidRequest(w, fmt.Sprintf("invalid format parameter: %v", err))
		return "", false
	}
	format, err := domain.ParseExportFormat(raw)
	if err != nil {
		invalidRequest(w, unwrapMessage(err))
		return "", false
	}
	return format, true
}

// respondRows renders rows as JSON or as a CSV attachment.
func (s *Server) respondRows(w http.ResponseWriter, r *http.Request, rows []export.Row, format domain.ExportFormat, filename string) {
	if rows == nil {
		rows = []export.Row{}
	}
	if format != domain.ExportCSV {
		respondJSON(w, http.StatusOK, rows)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rows); err != nil {
		s.respondServiceError(w, r, err, "export")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}
