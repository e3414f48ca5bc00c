package domain

import "fmt"

// ExportFormat selects how export rows are rendered.
type ExportFormat string

const (
	// ExportJSON renders rows as a JSON array of objects (the default).
	ExportJSON ExportFormat = "json"
	// ExportCSV renders rows as CSV with a header line.
	ExportCSV ExportFormat = "csv"
)

// ParseExportFormat maps an optional query value onto a format.
// Nil or empty means JSON; unknown values are a validation error.
func ParseExportFormat(v *string) (ExportFormat, error) {
	if v == nil || *v == "" {
		return ExportJSON, nil
	}
	switch ExportFormat(*v) {
	case ExportJSON:
		return ExportJSON, nil
	case ExportCSV:
		return ExportCSV, nil
	default:
		return "", fmt.Errorf("%w: format must be csv or json", ErrValidation)
	}
}
