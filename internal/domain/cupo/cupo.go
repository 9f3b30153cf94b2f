package cupo

import (
	"time"

	"github.com/google/uuid"
)

// MovementKind is a slot event on the provincial ledger.
type MovementKind string

const (
	MovementAlta MovementKind = "ALTA"
	MovementBaja MovementKind = "BAJA"
)

// Config holds the configured quota for one province. The row doubles as the
// serialization point: admission locks it FOR UPDATE so the active count is
// always computed under the same lock that mutates it.
type Config struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProvinceID uint      `gorm:"not null;uniqueIndex;column:province_id" json:"province_id"`
	Quota      int       `gorm:"not null;column:quota" json:"quota"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (Config) TableName() string { return "cupo_config" }

// Movement is one slot event (admission or release). The active titular count
// per province equals ALTA minus BAJA and never exceeds the configured quota.
type Movement struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	ProvinceID uint         `gorm:"not null;index;column:province_id" json:"province_id"`
	LegajoID   uuid.UUID    `gorm:"type:uuid;not null;index;column:legajo_id" json:"legajo_id"`
	Kind       MovementKind `gorm:"not null;column:kind" json:"kind"`
	UserID     uuid.UUID    `gorm:"type:uuid;not null;column:user_id" json:"user_id"`
	Motive     string       `gorm:"column:motive" json:"motive"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

func (Movement) TableName() string { return "cupo_movement" }

// Metrics is the read model for a province's quota.
type Metrics struct {
	ProvinceID uint `json:"province_id"`
	Quota      int  `json:"quota"`
	Active     int  `json:"active"`
	Free       int  `json:"free"`
}
