package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/domain"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/export"
	"github.com/Sotatek-TuNguyen6/yolo-sub000/internal/pricing"
)

const (
	exportPageSize = 100
	exportMaxPages = 50
)

// DateLayout is how preset date columns are rendered.
const DateLayout = "2006-01-02 15:04"

// BackendLister pages through a backend listing.
// *upstream.Client satisfies it.
type BackendLister interface {
	ListAll(ctx context.Context, token, resource string, limit, maxPages int) ([]map[string]any, error)
}

// Preset is the column mapping and formatters used to export one backend
// resource.
type Preset struct {
	Columns    []export.Column
	Formatters map[string]export.Formatter
}

// ExportService turns backend records into display-ready rows.
type ExportService struct {
	backend BackendLister
	presets map[string]Preset
	// exportable lists every backend resource that may be exported; those
	// without a preset are flattened.
	exportable map[string]bool
	now        func() time.Time
}

// NewExportService constructs an ExportService with the built-in presets.
func NewExportService(backend BackendLister) *ExportService {
	return &ExportService{
		backend: backend,
		presets: defaultPresets(),
		exportable: map[string]bool{
			"orders": true, "products": true, "users": true, "categories": true,
			"colors": true, "sizes": true, "tags": true,
		},
		now: time.Now,
	}
}

// Format projects records through columns. See export.Format.
func (s *ExportService) Format(records []map[string]any, columns []export.Column, formatters map[string]export.Formatter) []export.Row {
	return export.Format(records, columns, formatters)
}

// Flatten flattens every record into dotted keys.
func (s *ExportService) Flatten(records []map[string]any) []export.Row {
	return export.FlattenAll(records)
}

// Resources returns the exportable resource names in lexical order.
func (s *ExportService) Resources() []string {
	out := make([]string, 0, len(s.exportable))
	for name := range s.exportable {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ExportResource fetches every record of resource from the backend with the
// caller's token and projects it through the resource's preset, or flattens
// it when the resource has none.
// Returns domain.ErrNotFound for a resource that cannot be exported.
func (s *ExportService) ExportResource(ctx context.Context, token, resource string) ([]export.Row, error) {
	if !s.exportable[resource] {
		return nil, fmt.Errorf("service.ExportService.ExportResource: %w: no export for %q", domain.ErrNotFound, resource)
	}

	records, err := s.backend.ListAll(ctx, token, resource, exportPageSize, exportMaxPages)
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.ExportResource: %w", err)
	}

	preset, ok := s.presets[resource]
	if !ok {
		return export.FlattenAll(records), nil
	}
	return export.Format(records, preset.Columns, preset.Formatters), nil
}

// Filename suggests a download name such as "orders-20250301.csv".
func (s *ExportService) Filename(resource string, format domain.ExportFormat) string {
	return fmt.Sprintf("%s-%s.%s", resource, s.now().UTC().Format("20060102"), format)
}

func defaultPresets() map[string]Preset {
	return map[string]Preset{
		"orders": {
			Columns: []export.Column{
				{Source: "_id", Label: "Order ID"},
				{Source: "customerInfo.name", Label: "Customer"},
				{Source: "customerInfo.email", Label: "Email"},
				{Source: "customerInfo.phone", Label: "Phone"},
				{Source: "customerInfo.address", Label: "Address"},
				{Source: "items", Label: "Items"},
				{Source: "totalPrice", Label: "Total"},
				{Source: "paymentMethod", Label: "Payment"},
				{Source: "status", Label: "Status"},
				{Source: "createdAt", Label: "Created"},
			},
			Formatters: map[string]export.Formatter{
				"items":      formatOrderItems,
				"totalPrice": formatMoney,
				"createdAt":  formatDate,
			},
		},
		"products": {
			Columns: []export.Column{
				{Source: "_id", Label: "Product ID"},
				{Source: "name", Label: "Name"},
				{Source: "category", Label: "Category"},
				{Source: "subCategory", Label: "Sub-category"},
				{Source: "price", Label: "Price"},
				{Source: "discount", Label: "Discount (%)"},
				{Source: "colors", Label: "Colors"},
				{Source: "sizes", Label: "Sizes"},
				{Source: "tags", Label: "Tags"},
				{Source: "stock", Label: "Stock"},
				{Source: "createdAt", Label: "Created"},
			},
			Formatters: map[string]export.Formatter{
				"category":    formatCategory,
				"subCategory": formatCategory,
				"price":       formatMoney,
				"colors":      formatNames,
				"sizes":       formatNames,
				"tags":        formatNames,
				"createdAt":   formatDate,
			},
		},
		"users": {
			Columns: []export.Column{
				{Source: "_id", Label: "User ID"},
				{Source: "name", Label: "Name"},
				{Source: "email", Label: "Email"},
				{Source: "phone", Label: "Phone"},
				{Source: "role", Label: "Role"},
				{Source: "createdAt", Label: "Joined"},
			},
			Formatters: map[string]export.Formatter{
				"createdAt": formatDate,
			},
		},
		"categories": {
			Columns: []export.Column{
				{Source: "_id", Label: "Category ID"},
				{Source: "name", Label: "Name"},
				{Source: "slug", Label: "Slug"},
				{Source: "parentCategory", Label: "Parent"},
				{Source: "createdAt", Label: "Created"},
			},
			Formatters: map[string]export.Formatter{
				"parentCategory": formatCategory,
				"createdAt":      formatDate,
			},
		},
	}
}

// formatDate renders RFC 3339 timestamps with DateLayout in UTC. Values that
// do not parse are passed through.
func formatDate(raw any, _ map[string]any) any {
	s, ok := raw.(string)
	if !ok || s == "" {
		return raw
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return raw
	}
	return t.UTC().Format(DateLayout)
}

// formatMoney renders numbers with two decimals.
func formatMoney(raw any, _ map[string]any) any {
	switch v := raw.(type) {
	case float64:
		return pricing.FormatAmount(v)
	case int:
		return pricing.FormatAmount(float64(v))
	default:
		return raw
	}
}

// formatCategory resolves a reference-only or populated category to a name.
func formatCategory(raw any, _ map[string]any) any {
	ref := domain.CategoryRefFromValue(raw)
	if ref.IsZero() {
		return ""
	}
	return ref.DisplayName()
}

// formatNames joins a list into "a, b". Object elements contribute their
// name (or colorName) when they have one.
func formatNames(raw any, _ map[string]any) any {
	list, ok := raw.([]any)
	if !ok {
		return raw
	}
	parts := make([]string, 0, len(list))
	for _, el := range list {
		parts = append(parts, elementName(el))
	}
	return strings.Join(parts, ", ")
}

func elementName(el any) string {
	obj, ok := el.(map[string]any)
	if !ok {
		return export.Stringify(el)
	}
	for _, key := range []string{"name", "colorName", "colorCode", "_id"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return export.Stringify(obj)
}

// formatOrderItems summarises order lines as "Shirt x2; Cap x1".
func formatOrderItems(raw any, _ map[string]any) any {
	list, ok := raw.([]any)
	if !ok {
		return raw
	}
	parts := make([]string, 0, len(list))
	for _, el := range list {
		obj, ok := el.(map[string]any)
		if !ok {
			parts = append(parts, export.Stringify(el))
			continue
		}
		name := export.Stringify(obj["name"])
		if name == "" {
			if p, ok := obj["product"].(map[string]any); ok {
				name = export.Stringify(p["name"])
			}
		}
		qty := export.Stringify(obj["quantity"])
		if qty == "" {
			qty = "1"
		}
		parts = append(parts, name+" x"+qty)
	}
	return strings.Join(parts, "; ")
}
