package citizen

import (
	"time"

	"github.com/google/uuid"
)

const (
	// RelationChild is the canonical caregiver -> dependent relation kind.
	RelationChild = "HIJO/A"
	// RelationParent is its inverse.
	RelationParent = "PADRE/MADRE"
)

// FamilyRelation is a directional caregiver -> dependent pair.
// (caregiver_id, dependent_id) is unique; self-reference is rejected at the
// service layer.
type FamilyRelation struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CaregiverID      uuid.UUID `gorm:"type:uuid;not null;column:caregiver_id;uniqueIndex:idx_family_pair" json:"caregiver_id"`
	DependentID      uuid.UUID `gorm:"type:uuid;not null;column:dependent_id;uniqueIndex:idx_family_pair;index" json:"dependent_id"`
	RelationKind     string    `gorm:"not null;column:relation_kind" json:"relation_kind"`
	InverseKind      string    `gorm:"not null;column:inverse_kind" json:"inverse_kind"`
	Cohabits         bool      `gorm:"not null;default:false;column:cohabits" json:"cohabits"`
	PrimaryCaregiver bool      `gorm:"not null;default:false;column:primary_caregiver" json:"primary_caregiver"`
	Observations     string    `gorm:"column:observations" json:"observations"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

func (FamilyRelation) TableName() string { return "family_relation" }
