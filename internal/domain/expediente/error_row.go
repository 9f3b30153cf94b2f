package expediente

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ErrorRow stages a spreadsheet row the import engine could not persist.
// The raw column map is kept verbatim so reprocessing can rebuild the row.
// An expediente with any unprocessed error row cannot leave CREADO.
type ErrorRow struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ExpedienteID uuid.UUID         `gorm:"type:uuid;not null;index;column:expediente_id" json:"expediente_id"`
	RowNumber    int               `gorm:"not null;column:row_number" json:"row_number"`
	Raw          datatypes.JSONMap `gorm:"column:raw" json:"raw"`
	ErrorText    string            `gorm:"column:error_text" json:"error_text"`
	Processed    bool              `gorm:"not null;default:false;column:processed" json:"processed"`
	ProcessedAt  *time.Time        `gorm:"column:processed_at" json:"processed_at,omitempty"`
	CreatedAt    time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null" json:"updated_at"`
}

func (ErrorRow) TableName() string { return "registro_erroneo" }
