package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minsocial/celiaquia-backend/internal/data/repos"
	types "github.com/minsocial/celiaquia-backend/internal/domain"
	"github.com/minsocial/celiaquia-backend/internal/normalization"
	pkgerrors "github.com/minsocial/celiaquia-backend/internal/pkg/errors"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
)

// RawCitizen is the untyped shape a spreadsheet row (or an error-row replay)
// provides. Every field is the raw cell text; normalization happens here and
// nowhere else.
type RawCitizen struct {
	DocumentKind string
	Document     string
	Surname      string
	GivenName    string
	BirthDate    string
	Sex          string
	Nationality  string
	Province     string
	Municipality string
	Locality     string
	Address      string
	Number       string
	PostalCode   string
	Email        string
	Phone        string
}

// CitizenResolver owns canonical citizen identity. It knows nothing about
// expedientes; the import engine composes the two.
type CitizenResolver interface {
	// ResolveOrCreate finds or creates the citizen for the raw row. Existing
	// citizens only gain values for fields that were empty; populated fields
	// are never overwritten by import data.
	ResolveOrCreate(ctx context.Context, tx *gorm.DB, raw RawCitizen) (*types.Citizen, error)
}

type citizenResolver struct {
	db          *gorm.DB
	log         *logger.Logger
	citizenRepo repos.CitizenRepo
	catalog     *types.Catalog
}

func NewCitizenResolver(db *gorm.DB, baseLog *logger.Logger, citizenRepo repos.CitizenRepo, catalog *types.Catalog) CitizenResolver {
	return &citizenResolver{
		db:          db,
		log:         baseLog.With("service", "CitizenResolver"),
		citizenRepo: citizenRepo,
		catalog:     catalog,
	}
}

func (r *citizenResolver) ResolveOrCreate(ctx context.Context, tx *gorm.DB, raw RawCitizen) (*types.Citizen, error) {
	kind, ok := types.ParseDocumentKind(raw.DocumentKind)
	if !ok {
		return nil, pkgerrors.Validationf("document_kind", "unknown document kind %q", raw.DocumentKind)
	}

	digits := normalization.DigitsOnly(raw.Document)
	if digits == "" {
		return nil, pkgerrors.Validation("document", "missing or non-numeric document number")
	}
	number, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || number < 1 {
		return nil, pkgerrors.Validation("document", "invalid document number")
	}

	var birth *time.Time
	if raw.BirthDate != "" {
		t, ok := normalization.ParseDate(raw.BirthDate)
		if !ok {
			return nil, pkgerrors.Validationf("birth_date", "unparseable date %q", raw.BirthDate)
		}
		birth = &t
	}

	sexID, err := r.resolveSex(raw.Sex)
	if err != nil {
		return nil, err
	}
	natID, err := r.resolveNationality(raw.Nationality)
	if err != nil {
		return nil, err
	}
	provID, munID, locID, err := r.resolveGeography(raw.Province, raw.Municipality, raw.Locality)
	if err != nil {
		return nil, err
	}

	existing, err := r.citizenRepo.GetByDocument(ctx, tx, kind, number)
	if err == nil {
		return r.fillEmpty(ctx, tx, existing, raw, birth, sexID, natID, provID, munID, locID)
	}
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	c := &types.Citizen{
		ID:             uuid.New(),
		DocumentKind:   kind,
		DocumentNumber: number,
		Surname:        normalization.ParseInputString(raw.Surname),
		GivenName:      normalization.ParseInputString(raw.GivenName),
		BirthDate:      birth,
		SexID:          sexID,
		NationalityID:  natID,
		ProvinceID:     provID,
		MunicipalityID: munID,
		LocalityID:     locID,
		Address:        normalization.ParseInputString(raw.Address),
		AddressNumber:  normalization.DigitsOnly(raw.Number),
		PostalCode:     normalization.DigitsOnly(raw.PostalCode),
		Email:          normalization.ParseInputString(raw.Email),
		Phone:          normalization.DigitsOnly(raw.Phone),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	createErr := r.citizenRepo.Create(ctx, tx, c)
	if createErr == nil {
		return c, nil
	}
	if !errors.Is(createErr, pkgerrors.ErrConflict) {
		return nil, createErr
	}

	// A concurrent writer inserted the same identity; recover their row.
	recovered, err := r.citizenRepo.GetByDocument(ctx, tx, kind, number)
	if err != nil {
		return nil, pkgerrors.ErrConflict
	}
	return recovered, nil
}

func (r *citizenResolver) resolveSex(raw string) (*uint, error) {
	raw = normalization.ParseInputString(raw)
	if raw == "" {
		return nil, nil
	}
	if id, err := strconv.Atoi(raw); err == nil {
		if s, ok := r.catalog.SexByID(uint(id)); ok {
			return &s.ID, nil
		}
		return nil, pkgerrors.Validationf("sex", "unknown sex id %d", id)
	}
	if s, ok := r.catalog.SexByName(raw); ok {
		return &s.ID, nil
	}
	// Single-letter spreadsheet shorthand matches the RENAPER alphabet.
	for _, code := range []string{"M", "F", "X"} {
		if strings.EqualFold(raw, code) {
			if s, ok := r.sexByCode(code); ok {
				return &s.ID, nil
			}
		}
	}
	return nil, pkgerrors.Validationf("sex", "unknown sex %q", raw)
}

func (r *citizenResolver) sexByCode(code string) (types.Sex, bool) {
	for _, name := range []string{"Masculino", "Femenino", "X"} {
		if s, ok := r.catalog.SexByName(name); ok && s.RenaperCode == code {
			return s, true
		}
	}
	return types.Sex{}, false
}

func (r *citizenResolver) resolveNationality(raw string) (*uint, error) {
	raw = normalization.ParseInputString(raw)
	if raw == "" {
		return nil, nil
	}
	if id, err := strconv.Atoi(raw); err == nil {
		if n, ok := r.catalog.NationalityByID(uint(id)); ok {
			return &n.ID, nil
		}
		return nil, pkgerrors.Validationf("nationality", "unknown nationality id %d", id)
	}
	if n, ok := r.catalog.NationalityByName(raw); ok {
		return &n.ID, nil
	}
	return nil, pkgerrors.Validationf("nationality", "unknown nationality %q", raw)
}

func (r *citizenResolver) resolveGeography(province, municipality, locality string) (*uint, *uint, *uint, error) {
	var provID, munID, locID *uint

	province = normalization.ParseInputString(province)
	if province != "" {
		p, ok := r.lookupProvince(province)
		if !ok {
			return nil, nil, nil, pkgerrors.Validationf("province", "unknown province %q", province)
		}
		provID = &p.ID
	}

	municipality = normalization.ParseInputString(municipality)
	if municipality != "" {
		m, ok := r.lookupMunicipality(municipality)
		if !ok {
			return nil, nil, nil, pkgerrors.Validationf("municipality", "unknown municipality %q", municipality)
		}
		if provID == nil {
			return nil, nil, nil, pkgerrors.Validation("municipality", "municipality given without a province")
		}
		if m.ProvinceID != *provID {
			return nil, nil, nil, pkgerrors.Validationf("municipality", "municipality %q does not belong to the province", municipality)
		}
		munID = &m.ID
	}

	locality = normalization.ParseInputString(locality)
	if locality != "" {
		l, ok := r.lookupLocality(locality)
		if !ok {
			return nil, nil, nil, pkgerrors.Validationf("locality", "unknown locality %q", locality)
		}
		if provID != nil && l.ProvinceID != *provID {
			return nil, nil, nil, pkgerrors.Validationf("locality", "locality %q does not belong to the province", locality)
		}
		if munID != nil && l.MunicipalityID != *munID {
			return nil, nil, nil, pkgerrors.Validationf("locality", "locality %q does not belong to the municipality", locality)
		}
		locID = &l.ID
	}

	return provID, munID, locID, nil
}

func (r *citizenResolver) lookupProvince(raw string) (types.Province, bool) {
	if id, err := strconv.Atoi(raw); err == nil {
		return r.catalog.ProvinceByID(uint(id))
	}
	return r.catalog.ProvinceByName(raw)
}

func (r *citizenResolver) lookupMunicipality(raw string) (types.Municipality, bool) {
	if id, err := strconv.Atoi(raw); err == nil {
		return r.catalog.MunicipalityByID(uint(id))
	}
	return r.catalog.MunicipalityByName(raw)
}

func (r *citizenResolver) lookupLocality(raw string) (types.Locality, bool) {
	if id, err := strconv.Atoi(raw); err == nil {
		return r.catalog.LocalityByID(uint(id))
	}
	return r.catalog.LocalityByName(raw)
}

// fillEmpty applies the update policy for existing citizens: only empty
// fields gain values.
func (r *citizenResolver) fillEmpty(ctx context.Context, tx *gorm.DB, existing *types.Citizen, raw RawCitizen, birth *time.Time, sexID, natID, provID, munID, locID *uint) (*types.Citizen, error) {
	updates := map[string]interface{}{}

	if existing.Surname == "" && raw.Surname != "" {
		existing.Surname = normalization.ParseInputString(raw.Surname)
		updates["surname"] = existing.Surname
	}
	if existing.GivenName == "" && raw.GivenName != "" {
		existing.GivenName = normalization.ParseInputString(raw.GivenName)
		updates["given_name"] = existing.GivenName
	}
	if existing.BirthDate == nil && birth != nil {
		existing.BirthDate = birth
		updates["birth_date"] = *birth
	}
	if existing.SexID == nil && sexID != nil {
		existing.SexID = sexID
		updates["sex_id"] = *sexID
	}
	if existing.NationalityID == nil && natID != nil {
		existing.NationalityID = natID
		updates["nationality_id"] = *natID
	}
	if existing.ProvinceID == nil && provID != nil {
		existing.ProvinceID = provID
		updates["province_id"] = *provID
	}
	if existing.MunicipalityID == nil && munID != nil {
		existing.MunicipalityID = munID
		updates["municipality_id"] = *munID
	}
	if existing.LocalityID == nil && locID != nil {
		existing.LocalityID = locID
		updates["locality_id"] = *locID
	}
	if existing.Address == "" && raw.Address != "" {
		existing.Address = normalization.ParseInputString(raw.Address)
		updates["address"] = existing.Address
	}
	if existing.AddressNumber == "" {
		if v := normalization.DigitsOnly(raw.Number); v != "" {
			existing.AddressNumber = v
			updates["address_number"] = v
		}
	}
	if existing.PostalCode == "" {
		if v := normalization.DigitsOnly(raw.PostalCode); v != "" {
			existing.PostalCode = v
			updates["postal_code"] = v
		}
	}
	if existing.Email == "" && raw.Email != "" {
		existing.Email = normalization.ParseInputString(raw.Email)
		updates["email"] = existing.Email
	}
	if existing.Phone == "" {
		if v := normalization.DigitsOnly(raw.Phone); v != "" {
			existing.Phone = v
			updates["phone"] = v
		}
	}

	if len(updates) == 0 {
		return existing, nil
	}
	if err := r.citizenRepo.UpdateFields(ctx, tx, existing.ID, updates); err != nil {
		return nil, err
	}
	return existing, nil
}
