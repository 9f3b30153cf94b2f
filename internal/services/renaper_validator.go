package services

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minsocial/celiaquia-backend/internal/clients/renaper"
	"github.com/minsocial/celiaquia-backend/internal/data/repos"
	types "github.com/minsocial/celiaquia-backend/internal/domain"
	pkgerrors "github.com/minsocial/celiaquia-backend/internal/pkg/errors"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
)

// RenaperVerdict is the outcome of one identity check. Nothing is persisted
// by Validate; the technician records their decision through SetStatus.
type RenaperVerdict struct {
	Match     bool                   `json:"match"`
	Fallecido bool                   `json:"fallecido"`
	Reason    string                 `json:"reason,omitempty"`
	Surname   string                 `json:"surname,omitempty"`
	Names     string                 `json:"names,omitempty"`
	BirthDate string                 `json:"birth_date,omitempty"`
	Address   string                 `json:"address,omitempty"`
	Raw       map[string]interface{} `json:"raw,omitempty"`
}

type RenaperValidator interface {
	// Validate queries the identity registry for the legajo's citizen. The
	// call happens outside any import transaction and mutates nothing.
	Validate(ctx context.Context, tx *gorm.DB, legajoID uuid.UUID) (*RenaperVerdict, error)
	// SetStatus records the technician's decision. SUBSANAR also flips the
	// technician review to SUBSANAR and stamps the remediation fields.
	SetStatus(ctx context.Context, tx *gorm.DB, legajoID uuid.UUID, status types.RenaperStatus, userID uuid.UUID, motive string) error
}

type renaperValidator struct {
	db          *gorm.DB
	log         *logger.Logger
	client      renaper.Client
	catalog     *types.Catalog
	legajoRepo  repos.LegajoRepo
	citizenRepo repos.CitizenRepo
	reviewRepo  repos.ReviewHistoryRepo
	expRepo     repos.ExpedienteRepo
	ledger      CupoLedger
	hook        AuditHook
}

func NewRenaperValidator(db *gorm.DB, baseLog *logger.Logger, client renaper.Client, catalog *types.Catalog, legajoRepo repos.LegajoRepo, citizenRepo repos.CitizenRepo, reviewRepo repos.ReviewHistoryRepo, expRepo repos.ExpedienteRepo, ledger CupoLedger, hook AuditHook) RenaperValidator {
	return &renaperValidator{
		db:          db,
		log:         baseLog.With("service", "RenaperValidator"),
		client:      client,
		catalog:     catalog,
		legajoRepo:  legajoRepo,
		citizenRepo: citizenRepo,
		reviewRepo:  reviewRepo,
		expRepo:     expRepo,
		ledger:      ledger,
		hook:        hook,
	}
}

// queryDNI derives the registry's 8-digit DNI: an 11-digit document is a
// CUIT and the DNI is its middle section.
func queryDNI(document int64) string {
	s := strconv.FormatInt(document, 10)
	if len(s) == 11 {
		return s[2:10]
	}
	return s
}

func (v *renaperValidator) Validate(ctx context.Context, tx *gorm.DB, legajoID uuid.UUID) (*RenaperVerdict, error) {
	legajo, err := v.legajoRepo.GetByID(ctx, tx, legajoID)
	if err != nil {
		return nil, err
	}
	citizen, err := v.citizenRepo.GetByID(ctx, tx, legajo.CitizenID)
	if err != nil {
		return nil, err
	}

	dni := queryDNI(citizen.DocumentNumber)
	sexes := []string{"M", "F"}
	if citizen.SexID != nil {
		if s, ok := v.catalog.SexByID(*citizen.SexID); ok && s.RenaperCode != "" {
			sexes = []string{s.RenaperCode}
		}
	}

	var last renaper.Person
	for _, sexo := range sexes {
		person, err := v.client.Query(ctx, dni, sexo)
		if err != nil {
			return nil, err
		}
		last = person
		if person.Success || person.Fallecido {
			break
		}
	}

	verdict := &RenaperVerdict{
		Match:     last.Success,
		Fallecido: last.Fallecido,
		Surname:   last.Surname,
		Names:     last.Names,
		BirthDate: last.FechaNacimiento,
		Address:   last.Address,
		Raw:       last.Raw,
	}
	switch {
	case last.Fallecido:
		verdict.Match = false
		verdict.Reason = "deceased"
	case !last.Success:
		verdict.Reason = "no match"
	}
	v.log.Info("renaper validated", "legajo_id", legajoID, "match", verdict.Match, "reason", verdict.Reason)
	return verdict, nil
}

func (v *renaperValidator) SetStatus(ctx context.Context, tx *gorm.DB, legajoID uuid.UUID, status types.RenaperStatus, userID uuid.UUID, motive string) error {
	switch status {
	case types.RenaperOK, types.RenaperRechazado, types.RenaperSubsanar:
	default:
		return pkgerrors.Validationf("renaper_status", "cannot set status %q", status)
	}

	legajo, err := v.legajoRepo.GetByID(ctx, tx, legajoID)
	if err != nil {
		return err
	}
	prev := legajo.RenaperStatus

	updates := map[string]interface{}{"renaper_status": status}
	if status == types.RenaperSubsanar {
		now := time.Now()
		updates["tech_review"] = types.ReviewSubsanar
		updates["remediation_motive"] = motive
		updates["remediation_at"] = now
		updates["remediation_user_id"] = userID
		if err := v.reviewRepo.Append(ctx, tx, &types.ReviewHistory{
			ID:         uuid.New(),
			LegajoID:   legajoID,
			PrevReview: legajo.TechReview,
			NewReview:  types.ReviewSubsanar,
			UserID:     userID,
			Motive:     motive,
			CreatedAt:  now,
		}); err != nil {
			return err
		}
	}
	if err := v.legajoRepo.UpdateFields(ctx, tx, legajoID, updates); err != nil {
		return err
	}
	// A legajo sent back for remediation must not keep its cupo slot.
	if status == types.RenaperSubsanar && legajo.CupoState == types.CupoDentro {
		exp, err := v.expRepo.GetByID(ctx, tx, legajo.ExpedienteID)
		if err != nil {
			return err
		}
		if err := v.ledger.Release(ctx, tx, legajo, exp.ProvinceID, userID, motive); err != nil {
			return err
		}
	}
	v.hook.LegajoRenaper(ctx, legajoID, prev, status, userID, motive)
	return nil
}
