package user

import (
	"time"

	"github.com/google/uuid"
)

// Role is the actor's group within the programme. Identity and group
// membership are supplied by an external collaborator; the core only scopes
// operations by them.
type Role string

const (
	RoleProvincial  Role = "PROVINCIAL"
	RoleTecnico     Role = "TECNICO"
	RoleCoordinador Role = "COORDINADOR"
	RoleAdmin       Role = "ADMIN"
)

type User struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email      string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Name       string    `gorm:"column:name" json:"name"`
	Role       Role      `gorm:"not null;column:role" json:"role"`
	ProvinceID *uint     `gorm:"column:province_id" json:"province_id,omitempty"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "programa_user" }
