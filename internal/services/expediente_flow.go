package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minsocial/celiaquia-backend/internal/data/repos"
	types "github.com/minsocial/celiaquia-backend/internal/domain"
	pkgerrors "github.com/minsocial/celiaquia-backend/internal/pkg/errors"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
	"github.com/minsocial/celiaquia-backend/internal/sheet"
)

// CruceResult combines the SINTYS ingest summary with the cupo admission
// pass that entering the cross-reference phase triggers.
type CruceResult struct {
	Admission *AdmissionOutcome `json:"admission"`
}

type ExpedienteFlow interface {
	Create(ctx context.Context, actor *types.User, spreadsheetKey string) (*types.Expediente, error)
	Get(ctx context.Context, actor *types.User, expedienteID uuid.UUID) (*types.Expediente, error)
	ListByProvince(ctx context.Context, actor *types.User, provinceID uint) ([]*types.Expediente, error)
	// ConfirmarEnvio submits the expediente for central intake. Blocked
	// while unprocessed error rows remain.
	ConfirmarEnvio(ctx context.Context, expedienteID uuid.UUID, actor *types.User) error
	Recepcionar(ctx context.Context, expedienteID uuid.UUID, actor *types.User) error
	AsignarTecnico(ctx context.Context, expedienteID, tecnicoID uuid.UUID, actor *types.User) error
	// IniciarCruce moves the expediente into the cross-reference phase and
	// runs the deterministic cupo admission pass.
	IniciarCruce(ctx context.Context, expedienteID uuid.UUID, actor *types.User) (*CruceResult, error)
	// RegistrarCruce ingests the returned SINTYS file and moves the
	// expediente under review.
	RegistrarCruce(ctx context.Context, expedienteID uuid.UUID, actor *types.User, spreadsheet io.Reader) (*SintysSummary, error)
	// ReviewLegajo records the technician's verdict on one legajo, with the
	// cupo side effects of approval and rejection.
	ReviewLegajo(ctx context.Context, legajoID uuid.UUID, verdict types.TechReview, motive string, actor *types.User) error
	FinalizarRevision(ctx context.Context, expedienteID uuid.UUID, actor *types.User) error
	// RegistrarInformePago attaches the immutable payment report and closes
	// the expediente as PAGADO.
	RegistrarInformePago(ctx context.Context, expedienteID uuid.UUID, actor *types.User) (*types.InformePago, error)
	// ExportInforme renders the registered payment roster as a spreadsheet.
	ExportInforme(ctx context.Context, expedienteID uuid.UUID, actor *types.User) ([]byte, error)
	Rechazar(ctx context.Context, expedienteID uuid.UUID, actor *types.User, motive string) error
	History(ctx context.Context, expedienteID uuid.UUID) ([]*types.ExpedienteHistory, error)
}

type expedienteFlow struct {
	db          *gorm.DB
	log         *logger.Logger
	expRepo     repos.ExpedienteRepo
	legajoRepo  repos.LegajoRepo
	citizenRepo repos.CitizenRepo
	errorRows   repos.ErrorRowRepo
	historyRepo repos.ExpedienteHistoryRepo
	reviewRepo  repos.ReviewHistoryRepo
	informeRepo repos.InformePagoRepo
	userRepo    repos.UserRepo
	ledger      CupoLedger
	sintys      SintysCrossReferencer
	hook        AuditHook
}

func NewExpedienteFlow(
	db *gorm.DB,
	baseLog *logger.Logger,
	expRepo repos.ExpedienteRepo,
	legajoRepo repos.LegajoRepo,
	citizenRepo repos.CitizenRepo,
	errorRows repos.ErrorRowRepo,
	historyRepo repos.ExpedienteHistoryRepo,
	reviewRepo repos.ReviewHistoryRepo,
	informeRepo repos.InformePagoRepo,
	userRepo repos.UserRepo,
	ledger CupoLedger,
	sintys SintysCrossReferencer,
	hook AuditHook,
) ExpedienteFlow {
	return &expedienteFlow{
		db:          db,
		log:         baseLog.With("service", "ExpedienteFlow"),
		expRepo:     expRepo,
		legajoRepo:  legajoRepo,
		citizenRepo: citizenRepo,
		errorRows:   errorRows,
		historyRepo: historyRepo,
		reviewRepo:  reviewRepo,
		informeRepo: informeRepo,
		userRepo:    userRepo,
		ledger:      ledger,
		sintys:      sintys,
		hook:        hook,
	}
}

func requireRole(actor *types.User, allowed ...types.Role) error {
	if actor.Role == types.RoleAdmin {
		return nil
	}
	for _, role := range allowed {
		if actor.Role == role {
			return nil
		}
	}
	return pkgerrors.Permission("role %s cannot perform this action", actor.Role)
}

// requireAssignment admits the assigned technician; coordinators and admins
// bypass assignment.
func requireAssignment(actor *types.User, exp *types.Expediente) error {
	if actor.Role == types.RoleAdmin || actor.Role == types.RoleCoordinador {
		return nil
	}
	if exp.AssignedTecnicoID != nil && *exp.AssignedTecnicoID == actor.ID {
		return nil
	}
	return pkgerrors.Permission("user %s is not assigned to expediente %s", actor.ID, exp.ID)
}

func (f *expedienteFlow) Create(ctx context.Context, actor *types.User, spreadsheetKey string) (*types.Expediente, error) {
	if err := requireRole(actor, types.RoleProvincial); err != nil {
		return nil, err
	}
	if actor.ProvinceID == nil {
		return nil, pkgerrors.Validation("province", "creating user has no province")
	}
	now := time.Now()
	exp := &types.Expediente{
		ID:             uuid.New(),
		ProvinceID:     *actor.ProvinceID,
		State:          types.StateCreado,
		CreatedByID:    actor.ID,
		SpreadsheetKey: spreadsheetKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := f.expRepo.Create(ctx, nil, exp); err != nil {
		return nil, err
	}
	f.log.Info("expediente created", "expediente_id", exp.ID, "province_id", exp.ProvinceID)
	return exp, nil
}

func (f *expedienteFlow) Get(ctx context.Context, actor *types.User, expedienteID uuid.UUID) (*types.Expediente, error) {
	exp, err := f.expRepo.GetByID(ctx, nil, expedienteID)
	if err != nil {
		return nil, err
	}
	if err := requireProvince(actor, exp.ProvinceID); err != nil {
		return nil, err
	}
	return exp, nil
}

func (f *expedienteFlow) ListByProvince(ctx context.Context, actor *types.User, provinceID uint) ([]*types.Expediente, error) {
	if err := requireProvince(actor, provinceID); err != nil {
		return nil, err
	}
	return f.expRepo.ListByProvince(ctx, nil, provinceID)
}

// transition moves the expediente optimistically and journals the change.
// The caller already holds the row via GetByIDForUpdate where needed.
func (f *expedienteFlow) transition(ctx context.Context, tx *gorm.DB, exp *types.Expediente, next types.ExpedienteState, actor *types.User) error {
	if exp.State.Terminal() {
		return pkgerrors.Invariant("expediente %s is terminal (%s)", exp.ID, exp.State)
	}
	moved, err := f.expRepo.TransitionState(ctx, tx, exp.ID, exp.State, next)
	if err != nil {
		return err
	}
	if !moved {
		return pkgerrors.ErrConflict
	}
	if err := f.historyRepo.Append(ctx, tx, &types.ExpedienteHistory{
		ID:           uuid.New(),
		ExpedienteID: exp.ID,
		PrevState:    exp.State,
		NewState:     next,
		UserID:       actor.ID,
		CreatedAt:    time.Now(),
	}); err != nil {
		return err
	}
	prev := exp.State
	exp.State = next
	f.hook.ExpedienteTransition(ctx, exp.ID, prev, next, actor.ID, "")
	return nil
}

func (f *expedienteFlow) loadScoped(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID, actor *types.User) (*types.Expediente, error) {
	exp, err := f.expRepo.GetByIDForUpdate(ctx, tx, expedienteID)
	if err != nil {
		return nil, err
	}
	if err := requireProvince(actor, exp.ProvinceID); err != nil {
		return nil, err
	}
	return exp, nil
}

func (f *expedienteFlow) ConfirmarEnvio(ctx context.Context, expedienteID uuid.UUID, actor *types.User) error {
	if err := requireRole(actor, types.RoleProvincial); err != nil {
		return err
	}
	return f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exp, err := f.loadScoped(ctx, tx, expedienteID, actor)
		if err != nil {
			return err
		}
		if exp.State != types.StateCreado && exp.State != types.StateProcesado {
			return pkgerrors.Invariant("cannot confirm from %s", exp.State)
		}
		pending, err := f.errorRows.CountUnprocessed(ctx, tx, expedienteID)
		if err != nil {
			return err
		}
		if pending > 0 {
			return pkgerrors.Validationf("error_rows", "%d error rows pending correction", pending)
		}
		return f.transition(ctx, tx, exp, types.StateConfirmacionDeEnvio, actor)
	})
}

func (f *expedienteFlow) Recepcionar(ctx context.Context, expedienteID uuid.UUID, actor *types.User) error {
	if err := requireRole(actor, types.RoleCoordinador); err != nil {
		return err
	}
	return f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exp, err := f.loadScoped(ctx, tx, expedienteID, actor)
		if err != nil {
			return err
		}
		if exp.State != types.StateConfirmacionDeEnvio {
			return pkgerrors.Invariant("cannot receive from %s", exp.State)
		}
		return f.transition(ctx, tx, exp, types.StateRecepcionado, actor)
	})
}

func (f *expedienteFlow) AsignarTecnico(ctx context.Context, expedienteID, tecnicoID uuid.UUID, actor *types.User) error {
	if err := requireRole(actor, types.RoleCoordinador); err != nil {
		return err
	}
	return f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exp, err := f.loadScoped(ctx, tx, expedienteID, actor)
		if err != nil {
			return err
		}
		if exp.State != types.StateRecepcionado {
			return pkgerrors.Invariant("cannot assign from %s", exp.State)
		}
		tecnico, err := f.userRepo.GetByID(ctx, tx, tecnicoID)
		if err != nil {
			return err
		}
		if tecnico.Role != types.RoleTecnico {
			return pkgerrors.Validationf("tecnico", "user %s is not a technician", tecnicoID)
		}
		if err := f.expRepo.UpdateFields(ctx, tx, exp.ID, map[string]interface{}{
			"assigned_tecnico_id": tecnicoID,
		}); err != nil {
			return err
		}
		return f.transition(ctx, tx, exp, types.StateAsignado, actor)
	})
}

func (f *expedienteFlow) IniciarCruce(ctx context.Context, expedienteID uuid.UUID, actor *types.User) (*CruceResult, error) {
	if err := requireRole(actor, types.RoleTecnico, types.RoleCoordinador); err != nil {
		return nil, err
	}
	result := &CruceResult{}
	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exp, err := f.loadScoped(ctx, tx, expedienteID, actor)
		if err != nil {
			return err
		}
		if err := requireAssignment(actor, exp); err != nil {
			return err
		}
		if exp.State != types.StateAsignado {
			return pkgerrors.Invariant("cannot start cross-reference from %s", exp.State)
		}
		if err := f.transition(ctx, tx, exp, types.StateProcesoDeCruce, actor); err != nil {
			return err
		}
		admission, err := f.ledger.AdmitEligible(ctx, tx, exp.ID, exp.ProvinceID, actor.ID)
		if err != nil {
			return err
		}
		result.Admission = admission
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (f *expedienteFlow) RegistrarCruce(ctx context.Context, expedienteID uuid.UUID, actor *types.User, spreadsheet io.Reader) (*SintysSummary, error) {
	if err := requireRole(actor, types.RoleTecnico, types.RoleCoordinador); err != nil {
		return nil, err
	}
	var summary *SintysSummary
	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exp, err := f.loadScoped(ctx, tx, expedienteID, actor)
		if err != nil {
			return err
		}
		if err := requireAssignment(actor, exp); err != nil {
			return err
		}
		if exp.State != types.StateProcesoDeCruce {
			return pkgerrors.Invariant("cannot ingest cross-reference from %s", exp.State)
		}
		summary, err = f.sintys.Ingest(ctx, tx, expedienteID, spreadsheet, actor.ID)
		if err != nil {
			return err
		}
		return f.transition(ctx, tx, exp, types.StateEnRevision, actor)
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (f *expedienteFlow) ReviewLegajo(ctx context.Context, legajoID uuid.UUID, verdict types.TechReview, motive string, actor *types.User) error {
	if err := requireRole(actor, types.RoleTecnico, types.RoleCoordinador); err != nil {
		return err
	}
	switch verdict {
	case types.ReviewAprobado, types.ReviewRechazado, types.ReviewSubsanar:
	default:
		return pkgerrors.Validationf("tech_review", "cannot record verdict %q", verdict)
	}
	return f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		legajo, err := f.legajoRepo.GetByID(ctx, tx, legajoID)
		if err != nil {
			return err
		}
		exp, err := f.loadScoped(ctx, tx, legajo.ExpedienteID, actor)
		if err != nil {
			return err
		}
		if err := requireAssignment(actor, exp); err != nil {
			return err
		}
		if exp.State != types.StateEnRevision {
			return pkgerrors.Invariant("cannot review while expediente is %s", exp.State)
		}

		prev := legajo.TechReview
		updates := map[string]interface{}{"tech_review": verdict}
		if verdict == types.ReviewSubsanar {
			now := time.Now()
			updates["remediation_motive"] = motive
			updates["remediation_at"] = now
			updates["remediation_user_id"] = actor.ID
		}
		if err := f.legajoRepo.UpdateFields(ctx, tx, legajoID, updates); err != nil {
			return err
		}
		legajo.TechReview = verdict

		if err := f.reviewRepo.Append(ctx, tx, &types.ReviewHistory{
			ID:         uuid.New(),
			LegajoID:   legajoID,
			PrevReview: prev,
			NewReview:  verdict,
			UserID:     actor.ID,
			Motive:     motive,
			CreatedAt:  time.Now(),
		}); err != nil {
			return err
		}

		switch verdict {
		case types.ReviewAprobado:
			// An approved, matched legajo holding a slot is an active titular.
			if legajo.SintysResult == types.SintysMatch && legajo.CupoState == types.CupoDentro && !legajo.IsActiveTitular {
				if err := f.legajoRepo.UpdateFields(ctx, tx, legajoID, map[string]interface{}{
					"is_active_titular": true,
				}); err != nil {
					return err
				}
			}
		case types.ReviewRechazado, types.ReviewSubsanar:
			if legajo.CupoState == types.CupoDentro {
				if err := f.ledger.Release(ctx, tx, legajo, exp.ProvinceID, actor.ID, motive); err != nil {
					return err
				}
			}
		}

		f.hook.LegajoReview(ctx, legajoID, prev, verdict, actor.ID, motive)
		return nil
	})
}

func (f *expedienteFlow) FinalizarRevision(ctx context.Context, expedienteID uuid.UUID, actor *types.User) error {
	if err := requireRole(actor, types.RoleTecnico, types.RoleCoordinador); err != nil {
		return err
	}
	return f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exp, err := f.loadScoped(ctx, tx, expedienteID, actor)
		if err != nil {
			return err
		}
		if err := requireAssignment(actor, exp); err != nil {
			return err
		}
		if exp.State != types.StateEnRevision {
			return pkgerrors.Invariant("cannot finish review from %s", exp.State)
		}
		return f.transition(ctx, tx, exp, types.StatePagoPendiente, actor)
	})
}

func (f *expedienteFlow) RegistrarInformePago(ctx context.Context, expedienteID uuid.UUID, actor *types.User) (*types.InformePago, error) {
	if err := requireRole(actor, types.RoleTecnico, types.RoleCoordinador); err != nil {
		return nil, err
	}
	var informe *types.InformePago
	err := f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exp, err := f.loadScoped(ctx, tx, expedienteID, actor)
		if err != nil {
			return err
		}
		if err := requireAssignment(actor, exp); err != nil {
			return err
		}
		if exp.State != types.StatePagoPendiente {
			return pkgerrors.Invariant("cannot register payment from %s", exp.State)
		}

		payable, err := f.legajoRepo.ListApprovedMatched(ctx, tx, expedienteID)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(payable))
		for _, l := range payable {
			ids = append(ids, l.ID)
		}
		rawIDs, err := json.Marshal(ids)
		if err != nil {
			return err
		}
		informe = &types.InformePago{
			ID:            uuid.New(),
			ExpedienteID:  expedienteID,
			GeneratedByID: actor.ID,
			LegajoIDs:     rawIDs,
			Total:         len(ids),
			CreatedAt:     time.Now(),
		}
		if err := f.informeRepo.Create(ctx, tx, informe); err != nil {
			if errors.Is(err, pkgerrors.ErrConflict) {
				return pkgerrors.Invariant("expediente %s already has a payment report", expedienteID)
			}
			return err
		}
		f.hook.InformeCreated(ctx, expedienteID, informe.ID, actor.ID, informe.Total)
		return f.transition(ctx, tx, exp, types.StatePagado, actor)
	})
	if err != nil {
		return nil, err
	}
	f.log.Info("payment report registered", "expediente_id", expedienteID, "total", informe.Total)
	return informe, nil
}

// informeHeaders is the fixed layout of the payment roster export.
var informeHeaders = []string{"Legajo", "Documento", "Apellido", "Nombre"}

func (f *expedienteFlow) ExportInforme(ctx context.Context, expedienteID uuid.UUID, actor *types.User) ([]byte, error) {
	exp, err := f.expRepo.GetByID(ctx, nil, expedienteID)
	if err != nil {
		return nil, err
	}
	if err := requireProvince(actor, exp.ProvinceID); err != nil {
		return nil, err
	}
	informe, err := f.informeRepo.GetByExpediente(ctx, nil, expedienteID)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	if err := json.Unmarshal(informe.LegajoIDs, &ids); err != nil {
		return nil, err
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	rows := make([][]interface{}, 0, len(ids))
	for _, id := range ids {
		legajo, err := f.legajoRepo.GetByID(ctx, nil, id)
		if err != nil {
			return nil, err
		}
		citizen, err := f.citizenRepo.GetByID(ctx, nil, legajo.CitizenID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, []interface{}{
			legajo.ID.String(),
			strconv.FormatInt(citizen.DocumentNumber, 10),
			citizen.Surname,
			citizen.GivenName,
		})
	}
	return sheet.Write("Informe", informeHeaders, rows)
}

func (f *expedienteFlow) Rechazar(ctx context.Context, expedienteID uuid.UUID, actor *types.User, motive string) error {
	if err := requireRole(actor, types.RoleCoordinador); err != nil {
		return err
	}
	return f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exp, err := f.loadScoped(ctx, tx, expedienteID, actor)
		if err != nil {
			return err
		}
		if exp.State.Terminal() {
			return pkgerrors.Invariant("expediente %s is already terminal", expedienteID)
		}

		// Free any slots the expediente was holding.
		legajos, err := f.legajoRepo.ListByExpediente(ctx, tx, expedienteID)
		if err != nil {
			return err
		}
		for _, l := range legajos {
			if l.CupoState == types.CupoDentro {
				if err := f.ledger.Release(ctx, tx, l, exp.ProvinceID, actor.ID, motive); err != nil {
					return err
				}
			}
		}
		return f.transition(ctx, tx, exp, types.StateRechazado, actor)
	})
}

func (f *expedienteFlow) History(ctx context.Context, expedienteID uuid.UUID) ([]*types.ExpedienteHistory, error) {
	return f.historyRepo.ListByExpediente(ctx, nil, expedienteID)
}
