package expediente

import (
	"time"

	"github.com/google/uuid"
)

// Rol is the citizen's role within one expediente. The combined variant is a
// distinct case, not a bitmask.
type Rol string

const (
	RolBeneficiario             Rol = "BENEFICIARIO"
	RolResponsable              Rol = "RESPONSABLE"
	RolBeneficiarioYResponsable Rol = "BENEFICIARIO_Y_RESPONSABLE"
)

// IntakeState tracks per-legajo documentation intake.
type IntakeState string

const (
	IntakeDocumentoPendiente IntakeState = "DOCUMENTO_PENDIENTE"
	IntakeDocumentoCompleto  IntakeState = "DOCUMENTO_COMPLETO"
)

// TechReview is the technician's per-legajo verdict.
type TechReview string

const (
	ReviewSinRevisar TechReview = "SIN_REVISAR"
	ReviewAprobado   TechReview = "APROBADO"
	ReviewRechazado  TechReview = "RECHAZADO"
	ReviewSubsanar   TechReview = "SUBSANAR"
)

// SintysResult is the cross-reference outcome.
type SintysResult string

const (
	SintysSinCruce SintysResult = "SIN_CRUCE"
	SintysMatch    SintysResult = "MATCH"
	SintysNoMatch  SintysResult = "NO_MATCH"
)

// RenaperStatus is the recorded identity-registry verdict.
type RenaperStatus string

const (
	RenaperSinValidar RenaperStatus = "SIN_VALIDAR"
	RenaperOK         RenaperStatus = "OK"
	RenaperRechazado  RenaperStatus = "RECHAZADO"
	RenaperSubsanar   RenaperStatus = "SUBSANAR"
)

// CupoState tracks the legajo's position relative to the provincial quota.
type CupoState string

const (
	CupoNoEvaluado CupoState = "NO_EVALUADO"
	CupoDentro     CupoState = "DENTRO"
	CupoFuera      CupoState = "FUERA"
)

// Legajo is one citizen's participation in one expediente.
// (expediente_id, citizen_id) is unique. A legajo DENTRO of cupo is an active
// titular iff it is approved and SINTYS-matched.
type Legajo struct {
	ID                uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ExpedienteID      uuid.UUID     `gorm:"type:uuid;not null;column:expediente_id;uniqueIndex:idx_legajo_expediente_citizen" json:"expediente_id"`
	CitizenID         uuid.UUID     `gorm:"type:uuid;not null;column:citizen_id;uniqueIndex:idx_legajo_expediente_citizen;index" json:"citizen_id"`
	Rol               Rol           `gorm:"not null;column:rol" json:"rol"`
	IntakeState       IntakeState   `gorm:"not null;column:intake_state" json:"intake_state"`
	TechReview        TechReview    `gorm:"not null;column:tech_review" json:"tech_review"`
	SintysResult      SintysResult  `gorm:"not null;column:sintys_result" json:"sintys_result"`
	RenaperStatus     RenaperStatus `gorm:"not null;column:renaper_status" json:"renaper_status"`
	RemediationMotive string        `gorm:"column:remediation_motive" json:"remediation_motive"`
	RemediationAt     *time.Time    `gorm:"column:remediation_at" json:"remediation_at,omitempty"`
	RemediationUserID *uuid.UUID    `gorm:"type:uuid;column:remediation_user_id" json:"remediation_user_id,omitempty"`
	CupoState         CupoState     `gorm:"not null;column:cupo_state" json:"cupo_state"`
	IsActiveTitular   bool          `gorm:"not null;default:false;column:is_active_titular" json:"is_active_titular"`
	CreatedAt         time.Time     `gorm:"not null;index" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"not null" json:"updated_at"`
}

func (Legajo) TableName() string { return "expediente_ciudadano" }

// ReviewHistory is the append-only technician review journal.
type ReviewHistory struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	LegajoID   uuid.UUID  `gorm:"type:uuid;not null;index;column:legajo_id" json:"legajo_id"`
	PrevReview TechReview `gorm:"not null;column:prev_review" json:"prev_review"`
	NewReview  TechReview `gorm:"not null;column:new_review" json:"new_review"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;column:user_id" json:"user_id"`
	Motive     string     `gorm:"column:motive" json:"motive"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
}

func (ReviewHistory) TableName() string { return "review_history" }
