package citizen

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentKind is a closed enum; values mirror the national document types.
type DocumentKind string

const (
	DocumentDNI       DocumentKind = "DNI"
	DocumentCUIT      DocumentKind = "CUIT"
	DocumentPasaporte DocumentKind = "PASAPORTE"
	DocumentLE        DocumentKind = "LE"
)

// ParseDocumentKind resolves a spreadsheet value case-insensitively.
// An empty value defaults to DNI.
func ParseDocumentKind(raw string) (DocumentKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "DNI":
		return DocumentDNI, true
	case "CUIT", "CUIL":
		return DocumentCUIT, true
	case "PASAPORTE":
		return DocumentPasaporte, true
	case "LE", "LC":
		return DocumentLE, true
	}
	return "", false
}

// Citizen is the canonical person identity, independent of any expediente.
// (document_kind, document_number) is globally unique and immutable once set.
type Citizen struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentKind   DocumentKind `gorm:"not null;column:document_kind;uniqueIndex:idx_citizen_document" json:"document_kind"`
	DocumentNumber int64        `gorm:"not null;column:document_number;uniqueIndex:idx_citizen_document" json:"document_number"`
	Surname        string       `gorm:"column:surname" json:"surname"`
	GivenName      string       `gorm:"column:given_name" json:"given_name"`
	BirthDate      *time.Time   `gorm:"column:birth_date" json:"birth_date,omitempty"`
	SexID          *uint        `gorm:"column:sex_id" json:"sex_id,omitempty"`
	NationalityID  *uint        `gorm:"column:nationality_id" json:"nationality_id,omitempty"`
	ProvinceID     *uint        `gorm:"column:province_id" json:"province_id,omitempty"`
	MunicipalityID *uint        `gorm:"column:municipality_id" json:"municipality_id,omitempty"`
	LocalityID     *uint        `gorm:"column:locality_id" json:"locality_id,omitempty"`
	Address        string       `gorm:"column:address" json:"address"`
	AddressNumber  string       `gorm:"column:address_number" json:"address_number"`
	PostalCode     string       `gorm:"column:postal_code" json:"postal_code"`
	Email          string       `gorm:"column:email" json:"email"`
	Phone          string       `gorm:"column:phone" json:"phone"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updated_at"`
}

func (Citizen) TableName() string { return "citizen" }
