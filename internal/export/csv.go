package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes rows as CSV. The header is Columns(rows); a row without a
// given column gets an empty cell and no rows means no output at all.
// Values are rendered with Stringify.
func WriteCSV(w io.Writer, rows []Row) error {
	cols := Columns(rows)
	if len(cols) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)

	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("export.WriteCSV: header: %w", err)
	}
	record := make([]string, len(cols))
	for _, r := range rows {
		values := r.Map()
		for i, c := range cols {
			record[i] = Stringify(values[c])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export.WriteCSV: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
