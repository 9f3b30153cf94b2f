package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/minsocial/celiaquia-backend/internal/domain"
)

// SeedReference installs a small geography/enum fixture:
// province 1 "Buenos Aires" (municipality 10 "La Plata", localities 100/101),
// province 2 "Chaco" (municipality 20, locality 200), sexes M/F/X and two
// nationalities.
func SeedReference(tb testing.TB, gdb *gorm.DB) *types.Catalog {
	tb.Helper()

	provinces := []types.Province{
		{ID: 1, Name: "Buenos Aires"},
		{ID: 2, Name: "Chaco"},
	}
	municipalities := []types.Municipality{
		{ID: 10, Name: "La Plata", ProvinceID: 1},
		{ID: 20, Name: "Resistencia", ProvinceID: 2},
	}
	localities := []types.Locality{
		{ID: 100, Name: "La Plata Centro", MunicipalityID: 10, ProvinceID: 1},
		{ID: 101, Name: "Tolosa", MunicipalityID: 10, ProvinceID: 1},
		{ID: 200, Name: "Resistencia Centro", MunicipalityID: 20, ProvinceID: 2},
	}
	sexes := []types.Sex{
		{ID: 1, Name: "Masculino", RenaperCode: "M"},
		{ID: 2, Name: "Femenino", RenaperCode: "F"},
		{ID: 3, Name: "X", RenaperCode: "X"},
	}
	nationalities := []types.Nationality{
		{ID: 1, Name: "Argentina"},
		{ID: 2, Name: "Paraguaya"},
	}

	for _, p := range provinces {
		if err := gdb.Create(&p).Error; err != nil {
			tb.Fatalf("seed province: %v", err)
		}
	}
	for _, m := range municipalities {
		if err := gdb.Create(&m).Error; err != nil {
			tb.Fatalf("seed municipality: %v", err)
		}
	}
	for _, l := range localities {
		if err := gdb.Create(&l).Error; err != nil {
			tb.Fatalf("seed locality: %v", err)
		}
	}
	for _, s := range sexes {
		if err := gdb.Create(&s).Error; err != nil {
			tb.Fatalf("seed sex: %v", err)
		}
	}
	for _, n := range nationalities {
		if err := gdb.Create(&n).Error; err != nil {
			tb.Fatalf("seed nationality: %v", err)
		}
	}

	return types.NewCatalog(provinces, municipalities, localities, sexes, nationalities)
}

// SeedUser creates an actor with the given role and province.
func SeedUser(tb testing.TB, gdb *gorm.DB, role types.Role, provinceID *uint) *types.User {
	tb.Helper()
	u := &types.User{
		ID:         uuid.New(),
		Email:      uuid.NewString() + "@example.gov.ar",
		Name:       "Test " + string(role),
		Role:       role,
		ProvinceID: provinceID,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := gdb.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

// SeedExpediente creates an expediente in the given state.
func SeedExpediente(tb testing.TB, gdb *gorm.DB, provinceID uint, createdBy uuid.UUID, state types.ExpedienteState) *types.Expediente {
	tb.Helper()
	e := &types.Expediente{
		ID:          uuid.New(),
		ProvinceID:  provinceID,
		State:       state,
		CreatedByID: createdBy,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := gdb.Create(e).Error; err != nil {
		tb.Fatalf("seed expediente: %v", err)
	}
	return e
}

func Uint(v uint) *uint { return &v }
