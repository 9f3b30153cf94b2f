package expediente

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// InformePago is the single immutable payment report attached on entry to
// PAGADO. It references the set of approved, SINTYS-matched, in-cupo legajos.
type InformePago struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ExpedienteID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex;column:expediente_id" json:"expediente_id"`
	GeneratedByID uuid.UUID      `gorm:"type:uuid;not null;column:generated_by_id" json:"generated_by_id"`
	LegajoIDs     datatypes.JSON `gorm:"column:legajo_ids" json:"legajo_ids"`
	Total         int            `gorm:"not null;column:total" json:"total"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
}

func (InformePago) TableName() string { return "informe_pago" }
