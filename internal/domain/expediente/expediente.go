package expediente

import (
	"time"

	"github.com/google/uuid"
)

// State is the expediente lifecycle state. Transitions are owned by the
// expediente flow service; nothing else writes the state column.
type State string

const (
	StateCreado              State = "CREADO"
	StateProcesado           State = "PROCESADO"
	StateEnEspera            State = "EN_ESPERA"
	StateConfirmacionDeEnvio State = "CONFIRMACION_DE_ENVIO"
	StateRecepcionado        State = "RECEPCIONADO"
	StateAsignado            State = "ASIGNADO"
	StateProcesoDeCruce      State = "PROCESO_DE_CRUCE"
	StateEnRevision          State = "EN_REVISION"
	StatePagoPendiente       State = "PAGO_PENDIENTE"
	StatePagado              State = "PAGADO"
	StateRechazado           State = "RECHAZADO"
)

// OpenPreCupoStates are the states in which an expediente still competes for
// candidates: a citizen with a legajo in any expediente in one of these
// states is a duplicate for every other import.
var OpenPreCupoStates = []State{
	StateCreado,
	StateProcesado,
	StateEnEspera,
	StateConfirmacionDeEnvio,
	StateRecepcionado,
	StateAsignado,
	StateProcesoDeCruce,
}

func (s State) Terminal() bool {
	return s == StatePagado || s == StateRechazado
}

// Expediente is a provincial batch submission. Province is fixed at creation
// and derives from the creating provincial user.
type Expediente struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProvinceID        uint       `gorm:"not null;index;column:province_id" json:"province_id"`
	State             State      `gorm:"not null;column:state" json:"state"`
	CreatedByID       uuid.UUID  `gorm:"type:uuid;not null;column:created_by_id" json:"created_by_id"`
	AssignedTecnicoID *uuid.UUID `gorm:"type:uuid;column:assigned_tecnico_id" json:"assigned_tecnico_id,omitempty"`
	SpreadsheetKey    string     `gorm:"column:spreadsheet_key" json:"spreadsheet_key"`
	CreatedAt         time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"not null" json:"updated_at"`
}

func (Expediente) TableName() string { return "expediente" }

// ExpedienteHistory is the append-only state transition journal. Every state
// change produces exactly one entry.
type ExpedienteHistory struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ExpedienteID uuid.UUID `gorm:"type:uuid;not null;index;column:expediente_id" json:"expediente_id"`
	PrevState    State     `gorm:"not null;column:prev_state" json:"prev_state"`
	NewState     State     `gorm:"not null;column:new_state" json:"new_state"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;column:user_id" json:"user_id"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (ExpedienteHistory) TableName() string { return "expediente_history" }
