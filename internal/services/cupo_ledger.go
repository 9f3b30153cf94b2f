package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minsocial/celiaquia-backend/internal/data/repos"
	types "github.com/minsocial/celiaquia-backend/internal/domain"
	pkgerrors "github.com/minsocial/celiaquia-backend/internal/pkg/errors"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
)

// AdmissionOutcome summarizes one batch admission pass over an expediente.
type AdmissionOutcome struct {
	Admitted int `json:"admitted"`
	Outside  int `json:"outside"`
	Free     int `json:"free"`
}

type CupoLedger interface {
	Metrics(ctx context.Context, tx *gorm.DB, provinceID uint) (*types.CupoMetrics, error)
	Configure(ctx context.Context, tx *gorm.DB, provinceID uint, quota int) error
	// Admit takes one slot for a legajo if the province has room. Returns
	// QuotaDenied when the quota is full, ErrCupoUnconfigured when the
	// province has no configured quota.
	Admit(ctx context.Context, tx *gorm.DB, legajo *types.Legajo, provinceID uint, userID uuid.UUID, motive string) error
	// Release frees the slot held by a legajo. Releasing never promotes a
	// waiting legajo; slots are retaken only on the next admission pass.
	Release(ctx context.Context, tx *gorm.DB, legajo *types.Legajo, provinceID uint, userID uuid.UUID, motive string) error
	// AdmitEligible runs the batch admission for an expediente entering the
	// cross-reference phase: candidates in legajo creation order take slots
	// until the quota runs out; the rest are marked outside.
	AdmitEligible(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID, provinceID uint, userID uuid.UUID) (*AdmissionOutcome, error)
	Movements(ctx context.Context, tx *gorm.DB, provinceID uint, limit int) ([]*types.CupoMovement, error)
}

type cupoLedger struct {
	db         *gorm.DB
	log        *logger.Logger
	cupoRepo   repos.CupoRepo
	legajoRepo repos.LegajoRepo
	hook       AuditHook
}

func NewCupoLedger(db *gorm.DB, baseLog *logger.Logger, cupoRepo repos.CupoRepo, legajoRepo repos.LegajoRepo, hook AuditHook) CupoLedger {
	return &cupoLedger{
		db:         db,
		log:        baseLog.With("service", "CupoLedger"),
		cupoRepo:   cupoRepo,
		legajoRepo: legajoRepo,
		hook:       hook,
	}
}

func (c *cupoLedger) Metrics(ctx context.Context, tx *gorm.DB, provinceID uint) (*types.CupoMetrics, error) {
	cfg, err := c.cupoRepo.GetConfig(ctx, tx, provinceID)
	if err != nil {
		return nil, err
	}
	active, err := c.legajoRepo.CountActiveByProvince(ctx, tx, provinceID)
	if err != nil {
		return nil, err
	}
	free := cfg.Quota - int(active)
	if free < 0 {
		free = 0
	}
	return &types.CupoMetrics{
		ProvinceID: provinceID,
		Quota:      cfg.Quota,
		Active:     int(active),
		Free:       free,
	}, nil
}

func (c *cupoLedger) Configure(ctx context.Context, tx *gorm.DB, provinceID uint, quota int) error {
	if quota < 0 {
		return pkgerrors.Validation("quota", "must be zero or positive")
	}
	if err := c.cupoRepo.UpsertConfig(ctx, tx, provinceID, quota); err != nil {
		return err
	}
	c.log.Info("cupo configured", "province_id", provinceID, "quota", quota)
	return nil
}

func (c *cupoLedger) Admit(ctx context.Context, tx *gorm.DB, legajo *types.Legajo, provinceID uint, userID uuid.UUID, motive string) error {
	if legajo.CupoState == types.CupoDentro {
		c.log.Error("cupo admit on a legajo already holding a slot", "legajo_id", legajo.ID, "province_id", provinceID)
		return pkgerrors.Invariant("legajo %s already holds a cupo slot", legajo.ID)
	}
	cfg, err := c.cupoRepo.GetConfigForUpdate(ctx, tx, provinceID)
	if err != nil {
		return err
	}
	active, err := c.legajoRepo.CountActiveByProvince(ctx, tx, provinceID)
	if err != nil {
		return err
	}
	if int(active) >= cfg.Quota {
		return &pkgerrors.QuotaDenied{
			ProvinceID: provinceID,
			Reason:     fmt.Sprintf("quota %d full (%d active)", cfg.Quota, active),
		}
	}
	return c.take(ctx, tx, legajo, provinceID, userID, motive)
}

func (c *cupoLedger) take(ctx context.Context, tx *gorm.DB, legajo *types.Legajo, provinceID uint, userID uuid.UUID, motive string) error {
	// A slot holder counts as titular activo only once the technician
	// approved it and SINTYS confirmed the match.
	titular := legajo.TechReview == types.ReviewAprobado && legajo.SintysResult == types.SintysMatch
	if err := c.legajoRepo.UpdateFields(ctx, tx, legajo.ID, map[string]interface{}{
		"cupo_state":        types.CupoDentro,
		"is_active_titular": titular,
	}); err != nil {
		return err
	}
	legajo.CupoState = types.CupoDentro
	legajo.IsActiveTitular = titular
	if err := c.cupoRepo.AppendMovement(ctx, tx, &types.CupoMovement{
		ID:         uuid.New(),
		ProvinceID: provinceID,
		LegajoID:   legajo.ID,
		Kind:       types.MovementAlta,
		UserID:     userID,
		Motive:     motive,
		CreatedAt:  time.Now(),
	}); err != nil {
		return err
	}
	c.hook.CupoMovement(ctx, legajo.ID, types.MovementAlta, userID, motive)
	return nil
}

func (c *cupoLedger) Release(ctx context.Context, tx *gorm.DB, legajo *types.Legajo, provinceID uint, userID uuid.UUID, motive string) error {
	if legajo.CupoState != types.CupoDentro {
		c.log.Error("cupo release on a legajo not holding a slot", "legajo_id", legajo.ID, "cupo_state", legajo.CupoState)
		return pkgerrors.Invariant("legajo %s holds no cupo slot", legajo.ID)
	}
	if _, err := c.cupoRepo.GetConfigForUpdate(ctx, tx, provinceID); err != nil {
		if !errors.Is(err, pkgerrors.ErrCupoUnconfigured) {
			return err
		}
	}
	if err := c.legajoRepo.UpdateFields(ctx, tx, legajo.ID, map[string]interface{}{
		"cupo_state":        types.CupoNoEvaluado,
		"is_active_titular": false,
	}); err != nil {
		return err
	}
	legajo.CupoState = types.CupoNoEvaluado
	legajo.IsActiveTitular = false
	c.log.Info("cupo slot released", "province_id", provinceID, "legajo_id", legajo.ID, "motive", motive)
	if err := c.cupoRepo.AppendMovement(ctx, tx, &types.CupoMovement{
		ID:         uuid.New(),
		ProvinceID: provinceID,
		LegajoID:   legajo.ID,
		Kind:       types.MovementBaja,
		UserID:     userID,
		Motive:     motive,
		CreatedAt:  time.Now(),
	}); err != nil {
		return err
	}
	c.hook.CupoMovement(ctx, legajo.ID, types.MovementBaja, userID, motive)
	return nil
}

func (c *cupoLedger) AdmitEligible(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID, provinceID uint, userID uuid.UUID) (*AdmissionOutcome, error) {
	cfg, err := c.cupoRepo.GetConfigForUpdate(ctx, tx, provinceID)
	if err != nil {
		return nil, err
	}
	active, err := c.legajoRepo.CountActiveByProvince(ctx, tx, provinceID)
	if err != nil {
		return nil, err
	}
	free := cfg.Quota - int(active)
	if free < 0 {
		free = 0
	}

	candidates, err := c.legajoRepo.ListCupoCandidates(ctx, tx, expedienteID)
	if err != nil {
		return nil, err
	}

	outcome := &AdmissionOutcome{}
	for _, l := range candidates {
		if free > 0 {
			if err := c.take(ctx, tx, l, provinceID, userID, "admision por cruce"); err != nil {
				return nil, err
			}
			free--
			outcome.Admitted++
			continue
		}
		if l.CupoState != types.CupoFuera {
			if err := c.legajoRepo.UpdateFields(ctx, tx, l.ID, map[string]interface{}{
				"cupo_state": types.CupoFuera,
			}); err != nil {
				return nil, err
			}
			l.CupoState = types.CupoFuera
		}
		outcome.Outside++
	}
	outcome.Free = free
	c.log.Info("cupo admission pass",
		"expediente_id", expedienteID,
		"province_id", provinceID,
		"admitted", outcome.Admitted,
		"outside", outcome.Outside,
		"free", outcome.Free,
	)
	return outcome, nil
}

func (c *cupoLedger) Movements(ctx context.Context, tx *gorm.DB, provinceID uint, limit int) ([]*types.CupoMovement, error) {
	return c.cupoRepo.ListMovements(ctx, tx, provinceID, limit)
}
