package sheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one canonicalized spreadsheet row. Number is the spreadsheet row
// number including the header offset, so diagnostics match what the uploader
// sees in their file.
type Row struct {
	Number int
	Cells  map[string]string
}

// Get returns the trimmed cell for a canonical field.
func (r Row) Get(field string) string {
	return strings.TrimSpace(r.Cells[field])
}

// Has reports whether the row carries a non-empty value for the field.
func (r Row) Has(field string) bool {
	return r.Get(field) != ""
}

// Parse reads the first sheet of an xlsx file. The first row is the header;
// columns that resolve to no canonical field are ignored.
func Parse(reader io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// Column index -> canonical field.
	columns := map[int]string{}
	for i, header := range rows[0] {
		if canon, ok := CanonicalField(header); ok {
			columns[i] = canon
		}
	}

	out := make([]Row, 0, len(rows)-1)
	for i, raw := range rows[1:] {
		cells := map[string]string{}
		empty := true
		for col, field := range columns {
			if col < len(raw) {
				v := strings.TrimSpace(raw[col])
				cells[field] = v
				if v != "" {
					empty = false
				}
			}
		}
		if empty {
			continue
		}
		out = append(out, Row{
			// +2: 1-based, plus the header row.
			Number: i + 2,
			Cells:  cells,
		})
	}
	return out, nil
}
