package reference

// Reference data consumed from external collaborators. Read-only at runtime;
// the core never mutates these tables.

type Province struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null;column:name" json:"name"`
}

func (Province) TableName() string { return "ref_province" }

type Municipality struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"not null;column:name" json:"name"`
	ProvinceID uint   `gorm:"not null;index;column:province_id" json:"province_id"`
}

func (Municipality) TableName() string { return "ref_municipality" }

type Locality struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Name           string `gorm:"not null;column:name" json:"name"`
	MunicipalityID uint   `gorm:"not null;index;column:municipality_id" json:"municipality_id"`
	ProvinceID     uint   `gorm:"not null;index;column:province_id" json:"province_id"`
}

func (Locality) TableName() string { return "ref_locality" }

type Sex struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null;column:name" json:"name"`
	// RenaperCode is the external alphabet value: M, F or X.
	RenaperCode string `gorm:"column:renaper_code" json:"renaper_code"`
}

func (Sex) TableName() string { return "ref_sex" }

type Nationality struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null;column:name" json:"name"`
}

func (Nationality) TableName() string { return "ref_nationality" }
