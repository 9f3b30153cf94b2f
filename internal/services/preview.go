package services

import (
	"io"

	"github.com/minsocial/celiaquia-backend/internal/normalization"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
	"github.com/minsocial/celiaquia-backend/internal/sheet"
)

// PreviewRow is one canonicalized row with its normalization warnings.
type PreviewRow struct {
	Row      int               `json:"row"`
	Cells    map[string]string `json:"cells"`
	Warnings []RowWarning      `json:"warnings,omitempty"`
}

// PreviewService canonicalizes uploads without persisting anything; it shares
// the import engine's column mapping and numeric coercion.
type PreviewService interface {
	Preview(spreadsheet io.Reader, maxRows int) ([]PreviewRow, error)
	Template() ([]byte, error)
}

type previewService struct {
	log *logger.Logger
}

func NewPreviewService(baseLog *logger.Logger) PreviewService {
	return &previewService{log: baseLog.With("service", "PreviewService")}
}

func (p *previewService) Preview(spreadsheet io.Reader, maxRows int) ([]PreviewRow, error) {
	rows, err := sheet.Parse(spreadsheet)
	if err != nil {
		return nil, err
	}
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	out := make([]PreviewRow, 0, len(rows))
	for _, row := range rows {
		pr := PreviewRow{Row: row.Number, Cells: map[string]string{}}
		for field, value := range row.Cells {
			if sheet.NumericFields[field] && value != "" {
				digits := normalization.DigitsOnly(value)
				if digits == "" {
					pr.Warnings = append(pr.Warnings, RowWarning{
						Row:     row.Number,
						Field:   field,
						Message: "non-numeric value dropped",
					})
				}
				value = digits
			}
			pr.Cells[field] = value
		}
		out = append(out, pr)
	}
	return out, nil
}

func (p *previewService) Template() ([]byte, error) {
	return sheet.Template()
}
