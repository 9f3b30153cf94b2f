package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/minsocial/celiaquia-backend/internal/config"
	"github.com/minsocial/celiaquia-backend/internal/data/repos"
	types "github.com/minsocial/celiaquia-backend/internal/domain"
	"github.com/minsocial/celiaquia-backend/internal/normalization"
	pkgerrors "github.com/minsocial/celiaquia-backend/internal/pkg/errors"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
	"github.com/minsocial/celiaquia-backend/internal/sheet"
)

// RowError is one spreadsheet row the import could not persist.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Exclusion is a row skipped because the citizen already participates.
type Exclusion struct {
	Row                int        `json:"row"`
	Document           string     `json:"document"`
	Motive             string     `json:"motive"`
	SourceExpedienteID *uuid.UUID `json:"source_expediente_id,omitempty"`
}

// RowWarning is a non-fatal normalization note (e.g. a dropped non-numeric
// phone).
type RowWarning struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ImportSummary is the outcome of one import or reprocess run.
type ImportSummary struct {
	ValidCount    int          `json:"valid_count"`
	ErrorCount    int          `json:"error_count"`
	ExcludedCount int          `json:"excluded_count"`
	Errors        []RowError   `json:"error_details"`
	Excluded      []Exclusion  `json:"excluded"`
	Warnings      []RowWarning `json:"warnings"`
}

// Exclusion motives.
const (
	MotiveAlreadyInExpediente = "already in this expediente"
	MotiveAlreadyInProgramme  = "already in programme"
	MotiveDuplicateOpen       = "duplicate in open expediente"
)

type ImportEngine interface {
	// Import parses the spreadsheet and materializes legajos for an
	// expediente in CREADO. One import runs per expediente at a time; a
	// concurrent attempt gets ErrImportRunning.
	Import(ctx context.Context, expedienteID uuid.UUID, actor *types.User, spreadsheet io.Reader) (*ImportSummary, error)
	// Reprocess replays the expediente's unprocessed error rows from their
	// stored payloads. Rows that now pass are marked processed; rows that
	// still fail keep their updated diagnostic.
	Reprocess(ctx context.Context, expedienteID uuid.UUID, actor *types.User) (*ImportSummary, error)
}

type importEngine struct {
	db           *gorm.DB
	log          *logger.Logger
	programa     config.Programa
	catalog      *types.Catalog
	resolver     CitizenResolver
	linker       FamilyLinker
	citizenRepo  repos.CitizenRepo
	expRepo      repos.ExpedienteRepo
	legajoRepo   repos.LegajoRepo
	errorRowRepo repos.ErrorRowRepo
	historyRepo  repos.ExpedienteHistoryRepo
	hook         AuditHook

	mu      sync.Mutex
	running map[uuid.UUID]bool
}

func NewImportEngine(
	db *gorm.DB,
	baseLog *logger.Logger,
	programa config.Programa,
	catalog *types.Catalog,
	resolver CitizenResolver,
	linker FamilyLinker,
	citizenRepo repos.CitizenRepo,
	expRepo repos.ExpedienteRepo,
	legajoRepo repos.LegajoRepo,
	errorRowRepo repos.ErrorRowRepo,
	historyRepo repos.ExpedienteHistoryRepo,
	hook AuditHook,
) ImportEngine {
	return &importEngine{
		db:           db,
		log:          baseLog.With("service", "ImportEngine"),
		programa:     programa,
		catalog:      catalog,
		resolver:     resolver,
		linker:       linker,
		citizenRepo:  citizenRepo,
		expRepo:      expRepo,
		legajoRepo:   legajoRepo,
		errorRowRepo: errorRowRepo,
		historyRepo:  historyRepo,
		hook:         hook,
		running:      map[uuid.UUID]bool{},
	}
}

func (e *importEngine) acquire(expedienteID uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running[expedienteID] {
		return false
	}
	e.running[expedienteID] = true
	return true
}

func (e *importEngine) release(expedienteID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.running, expedienteID)
}

func (e *importEngine) Import(ctx context.Context, expedienteID uuid.UUID, actor *types.User, spreadsheet io.Reader) (*ImportSummary, error) {
	rows, err := sheet.Parse(spreadsheet)
	if err != nil {
		return nil, err
	}

	if !e.acquire(expedienteID) {
		return nil, pkgerrors.ErrImportRunning
	}
	defer e.release(expedienteID)

	summary := &ImportSummary{}
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exp, err := e.expRepo.GetByIDForUpdate(ctx, tx, expedienteID)
		if err != nil {
			return err
		}
		if err := requireProvince(actor, exp.ProvinceID); err != nil {
			return err
		}
		switch exp.State {
		case types.StateCreado, types.StateProcesado, types.StateEnEspera:
		default:
			return pkgerrors.Invariant("expediente %s is %s, import is closed", exp.ID, exp.State)
		}

		for _, row := range rows {
			e.processStagedRow(ctx, tx, exp, row, actor, summary)
		}

		// Unprocessed error rows pin the expediente to CREADO. Rows staged
		// by earlier imports count too, not just this run's.
		pending, err := e.errorRowRepo.CountUnprocessed(ctx, tx, expedienteID)
		if err != nil {
			return err
		}
		next := types.StateProcesado
		if pending > 0 {
			next = types.StateCreado
		}
		return e.setImportState(ctx, tx, exp, next, actor.ID)
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("import finished",
		"expediente_id", expedienteID,
		"valid", summary.ValidCount,
		"errors", summary.ErrorCount,
		"excluded", summary.ExcludedCount,
	)
	return summary, nil
}

// processStagedRow runs one row under a savepoint; a failed row rolls its own
// writes back and is staged as an ErrorRow without aborting the batch.
func (e *importEngine) processStagedRow(ctx context.Context, tx *gorm.DB, exp *types.Expediente, row sheet.Row, actor *types.User, summary *ImportSummary) {
	sp := fmt.Sprintf("row_%d", row.Number)
	tx.SavePoint(sp)
	if err := e.processRow(ctx, tx, exp, row, actor, summary); err != nil {
		tx.RollbackTo(sp)
		summary.ErrorCount++
		summary.Errors = append(summary.Errors, RowError{Row: row.Number, Message: err.Error()})
		e.stageErrorRow(ctx, tx, exp.ID, row, err)
	}
}

func (e *importEngine) stageErrorRow(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID, row sheet.Row, cause error) {
	raw := datatypes.JSONMap{}
	for field, value := range row.Cells {
		raw[field] = value
	}
	now := time.Now()
	if err := e.errorRowRepo.Create(ctx, tx, &types.ErrorRow{
		ID:           uuid.New(),
		ExpedienteID: expedienteID,
		RowNumber:    row.Number,
		Raw:          raw,
		ErrorText:    cause.Error(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		e.log.Error("stage error row failed", "expediente_id", expedienteID, "row", row.Number, "error", err)
	}
}

// processRow runs steps: normalization, required fields, provincial
// geography, the three dedup rules, citizen materialization, role detection,
// caregiver age check, legajo creation. A returned error means ErrorRow.
func (e *importEngine) processRow(ctx context.Context, tx *gorm.DB, exp *types.Expediente, row sheet.Row, actor *types.User, summary *ImportSummary) error {
	e.normalizeNumerics(row, summary)

	for _, field := range []string{sheet.FieldSurname, sheet.FieldGivenName, sheet.FieldDocument, sheet.FieldBirthDate} {
		if !row.Has(field) {
			return fmt.Errorf("missing required field %s", field)
		}
	}

	if err := e.checkGeography(row, exp.ProvinceID); err != nil {
		return err
	}

	kind, ok := types.ParseDocumentKind(row.Get(sheet.FieldDocumentKind))
	if !ok {
		return fmt.Errorf("unknown document kind %q", row.Get(sheet.FieldDocumentKind))
	}
	document, err := strconv.ParseInt(normalization.DigitsOnly(row.Get(sheet.FieldDocument)), 10, 64)
	if err != nil || document < 1 {
		return fmt.Errorf("invalid document %q", row.Get(sheet.FieldDocument))
	}

	excluded, err := e.dedup(ctx, tx, exp, row, kind, document, summary)
	if err != nil {
		return err
	}
	if excluded {
		return nil
	}

	beneficiary, err := e.resolver.ResolveOrCreate(ctx, tx, rawFromRow(row, false))
	if err != nil {
		return err
	}

	rol, responsible, err := e.detectRole(ctx, tx, row, beneficiary)
	if err != nil {
		return err
	}

	if responsible != nil {
		if err := e.checkCaregiverAge(responsible, beneficiary); err != nil {
			return err
		}
	}

	if err := e.ensureLegajo(ctx, tx, exp.ID, beneficiary.ID, rol); err != nil {
		return err
	}
	if responsible != nil {
		if err := e.ensureLegajo(ctx, tx, exp.ID, responsible.ID, types.RolResponsable); err != nil {
			return err
		}
		if _, err := e.linker.Link(ctx, tx, responsible.ID, beneficiary.ID); err != nil {
			return err
		}
	}

	summary.ValidCount++
	return nil
}

func (e *importEngine) normalizeNumerics(row sheet.Row, summary *ImportSummary) {
	for field := range sheet.NumericFields {
		raw := row.Get(field)
		if raw == "" {
			continue
		}
		digits := normalization.DigitsOnly(raw)
		if digits == "" {
			summary.Warnings = append(summary.Warnings, RowWarning{
				Row:     row.Number,
				Field:   field,
				Message: fmt.Sprintf("non-numeric value %q dropped", raw),
			})
		}
		row.Cells[field] = digits
	}
}

// checkGeography requires municipality and locality, when given, to resolve
// inside the expediente's province.
func (e *importEngine) checkGeography(row sheet.Row, provinceID uint) error {
	if raw := row.Get(sheet.FieldMunicipality); raw != "" {
		muni, ok := e.lookupMunicipality(raw)
		if !ok {
			return fmt.Errorf("unknown municipality %q", raw)
		}
		if muni.ProvinceID != provinceID {
			return fmt.Errorf("municipality %q is outside the expediente province", raw)
		}
	}
	if raw := row.Get(sheet.FieldLocality); raw != "" {
		loc, ok := e.lookupLocality(raw)
		if !ok {
			return fmt.Errorf("unknown locality %q", raw)
		}
		if loc.ProvinceID != provinceID {
			return fmt.Errorf("locality %q is outside the expediente province", raw)
		}
	}
	return nil
}

func (e *importEngine) lookupMunicipality(raw string) (types.Municipality, bool) {
	if id, err := strconv.Atoi(raw); err == nil {
		return e.catalog.MunicipalityByID(uint(id))
	}
	return e.catalog.MunicipalityByName(raw)
}

func (e *importEngine) lookupLocality(raw string) (types.Locality, bool) {
	if id, err := strconv.Atoi(raw); err == nil {
		return e.catalog.LocalityByID(uint(id))
	}
	return e.catalog.LocalityByName(raw)
}

// dedup applies the three duplicate rules against already-known citizens.
// A true result means the row was recorded as an exclusion.
func (e *importEngine) dedup(ctx context.Context, tx *gorm.DB, exp *types.Expediente, row sheet.Row, kind types.DocumentKind, document int64, summary *ImportSummary) (bool, error) {
	known, err := e.citizenByDocument(ctx, tx, kind, document)
	if err != nil {
		return false, err
	}
	if known == nil {
		// A citizen the programme has never seen cannot be a duplicate.
		return false, nil
	}

	exclude := func(motive string, source *uuid.UUID) {
		summary.ExcludedCount++
		summary.Excluded = append(summary.Excluded, Exclusion{
			Row:                row.Number,
			Document:           strconv.FormatInt(document, 10),
			Motive:             motive,
			SourceExpedienteID: source,
		})
	}

	if _, err := e.legajoRepo.GetByExpedienteAndCitizen(ctx, tx, exp.ID, known.ID); err == nil {
		exclude(MotiveAlreadyInExpediente, nil)
		return true, nil
	} else if !errors.Is(err, pkgerrors.ErrNotFound) {
		return false, err
	}

	if titular, err := e.legajoRepo.FindActiveTitular(ctx, tx, known.ID, exp.ID); err == nil {
		source := titular.ExpedienteID
		exclude(MotiveAlreadyInProgramme, &source)
		return true, nil
	} else if !errors.Is(err, pkgerrors.ErrNotFound) {
		return false, err
	}

	if _, err := e.legajoRepo.FindInOpenExpedientes(ctx, tx, known.ID, exp.ID); err == nil {
		exclude(MotiveDuplicateOpen, nil)
		return true, nil
	} else if !errors.Is(err, pkgerrors.ErrNotFound) {
		return false, err
	}

	return false, nil
}

func (e *importEngine) citizenByDocument(ctx context.Context, tx *gorm.DB, kind types.DocumentKind, document int64) (*types.Citizen, error) {
	c, err := e.citizenRepo.GetByDocument(ctx, tx, kind, document)
	if errors.Is(err, pkgerrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (e *importEngine) detectRole(ctx context.Context, tx *gorm.DB, row sheet.Row, beneficiary *types.Citizen) (types.LegajoRol, *types.Citizen, error) {
	respDoc := normalization.DigitsOnly(row.Get(sheet.FieldRespDocument))
	respNamed := row.Has(sheet.FieldRespSurname) || row.Has(sheet.FieldRespGivenName)

	if respDoc == "" && !respNamed {
		return types.RolBeneficiario, nil, nil
	}
	if respDoc != "" && respDoc == strconv.FormatInt(beneficiary.DocumentNumber, 10) {
		return types.RolBeneficiarioYResponsable, nil, nil
	}

	responsible, err := e.resolver.ResolveOrCreate(ctx, tx, rawFromRow(row, true))
	if err != nil {
		return "", nil, err
	}
	return types.RolBeneficiario, responsible, nil
}

// checkCaregiverAge rejects a responsible who was younger than the configured
// adult age when the beneficiary was born. Unknown birth dates skip the check.
func (e *importEngine) checkCaregiverAge(responsible, beneficiary *types.Citizen) error {
	if responsible.BirthDate == nil || beneficiary.BirthDate == nil {
		return nil
	}
	age := normalization.YearsBetween(*responsible.BirthDate, *beneficiary.BirthDate)
	if age < e.programa.MinCaregiverAge {
		return fmt.Errorf("responsible was %d at the beneficiary's birth, minimum is %d", age, e.programa.MinCaregiverAge)
	}
	return nil
}

func (e *importEngine) ensureLegajo(ctx context.Context, tx *gorm.DB, expedienteID, citizenID uuid.UUID, rol types.LegajoRol) error {
	if _, err := e.legajoRepo.GetByExpedienteAndCitizen(ctx, tx, expedienteID, citizenID); err == nil {
		return nil
	} else if !errors.Is(err, pkgerrors.ErrNotFound) {
		return err
	}
	now := time.Now()
	err := e.legajoRepo.Create(ctx, tx, &types.Legajo{
		ID:            uuid.New(),
		ExpedienteID:  expedienteID,
		CitizenID:     citizenID,
		Rol:           rol,
		IntakeState:   types.IntakeDocumentoPendiente,
		TechReview:    types.ReviewSinRevisar,
		SintysResult:  types.SintysSinCruce,
		RenaperStatus: types.RenaperSinValidar,
		CupoState:     types.CupoNoEvaluado,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if errors.Is(err, pkgerrors.ErrConflict) {
		return nil
	}
	return err
}

func rawFromRow(row sheet.Row, responsible bool) RawCitizen {
	if responsible {
		return RawCitizen{
			DocumentKind: row.Get(sheet.FieldRespDocumentKind),
			Document:     row.Get(sheet.FieldRespDocument),
			Surname:      row.Get(sheet.FieldRespSurname),
			GivenName:    row.Get(sheet.FieldRespGivenName),
			BirthDate:    row.Get(sheet.FieldRespBirthDate),
			Sex:          row.Get(sheet.FieldRespSex),
			Nationality:  row.Get(sheet.FieldRespNationality),
		}
	}
	return RawCitizen{
		DocumentKind: row.Get(sheet.FieldDocumentKind),
		Document:     row.Get(sheet.FieldDocument),
		Surname:      row.Get(sheet.FieldSurname),
		GivenName:    row.Get(sheet.FieldGivenName),
		BirthDate:    row.Get(sheet.FieldBirthDate),
		Sex:          row.Get(sheet.FieldSex),
		Nationality:  row.Get(sheet.FieldNationality),
		Province:     row.Get(sheet.FieldProvince),
		Municipality: row.Get(sheet.FieldMunicipality),
		Locality:     row.Get(sheet.FieldLocality),
		Address:      row.Get(sheet.FieldAddress),
		Number:       row.Get(sheet.FieldNumber),
		PostalCode:   row.Get(sheet.FieldPostalCode),
		Email:        row.Get(sheet.FieldEmail),
		Phone:        row.Get(sheet.FieldPhone),
	}
}

func (e *importEngine) setImportState(ctx context.Context, tx *gorm.DB, exp *types.Expediente, next types.ExpedienteState, userID uuid.UUID) error {
	if exp.State == next {
		return nil
	}
	moved, err := e.expRepo.TransitionState(ctx, tx, exp.ID, exp.State, next)
	if err != nil {
		return err
	}
	if !moved {
		return pkgerrors.Invariant("expediente %s changed state during import", exp.ID)
	}
	if err := e.historyRepo.Append(ctx, tx, &types.ExpedienteHistory{
		ID:           uuid.New(),
		ExpedienteID: exp.ID,
		PrevState:    exp.State,
		NewState:     next,
		UserID:       userID,
		CreatedAt:    time.Now(),
	}); err != nil {
		return err
	}
	prev := exp.State
	exp.State = next
	e.hook.ExpedienteTransition(ctx, exp.ID, prev, next, userID, "import")
	return nil
}

func (e *importEngine) Reprocess(ctx context.Context, expedienteID uuid.UUID, actor *types.User) (*ImportSummary, error) {
	if !e.acquire(expedienteID) {
		return nil, pkgerrors.ErrImportRunning
	}
	defer e.release(expedienteID)

	summary := &ImportSummary{}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exp, err := e.expRepo.GetByIDForUpdate(ctx, tx, expedienteID)
		if err != nil {
			return err
		}
		if err := requireProvince(actor, exp.ProvinceID); err != nil {
			return err
		}

		pending, err := e.errorRowRepo.ListUnprocessed(ctx, tx, expedienteID)
		if err != nil {
			return err
		}
		for _, staged := range pending {
			row := rowFromErrorRow(staged)
			sp := fmt.Sprintf("reprocess_%d", staged.RowNumber)
			tx.SavePoint(sp)
			if err := e.processRow(ctx, tx, exp, row, actor, summary); err != nil {
				tx.RollbackTo(sp)
				summary.ErrorCount++
				summary.Errors = append(summary.Errors, RowError{Row: row.Number, Message: err.Error()})
				if err := e.errorRowRepo.SetErrorText(ctx, tx, staged.ID, err.Error()); err != nil {
					return err
				}
				continue
			}
			if err := e.errorRowRepo.MarkProcessed(ctx, tx, staged.ID, time.Now()); err != nil {
				return err
			}
		}

		if exp.State == types.StateCreado {
			remaining, err := e.errorRowRepo.CountUnprocessed(ctx, tx, expedienteID)
			if err != nil {
				return err
			}
			if remaining == 0 {
				return e.setImportState(ctx, tx, exp, types.StateProcesado, actor.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("reprocess finished",
		"expediente_id", expedienteID,
		"recovered", summary.ValidCount+summary.ExcludedCount,
		"still_failing", summary.ErrorCount,
	)
	return summary, nil
}

func rowFromErrorRow(staged *types.ErrorRow) sheet.Row {
	cells := map[string]string{}
	for field, value := range staged.Raw {
		if s, ok := value.(string); ok {
			cells[field] = s
		}
	}
	return sheet.Row{Number: staged.RowNumber, Cells: cells}
}

// requireProvince scopes province-bound users to their own province. Admins
// bypass; a user without a province is national.
func requireProvince(actor *types.User, provinceID uint) error {
	if actor.Role == types.RoleAdmin {
		return nil
	}
	if actor.ProvinceID == nil || *actor.ProvinceID == provinceID {
		return nil
	}
	return pkgerrors.Permission("user %s cannot act on province %d", actor.ID, provinceID)
}
