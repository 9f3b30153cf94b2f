package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/minsocial/celiaquia-backend/internal/clients/audit"
	types "github.com/minsocial/celiaquia-backend/internal/domain"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
)

// AuditHook publishes entity state changes to the audit sink. Emission is
// best-effort: a sink failure is logged and never rolls back the change that
// produced it.
type AuditHook interface {
	ExpedienteTransition(ctx context.Context, expedienteID uuid.UUID, prev, next types.ExpedienteState, userID uuid.UUID, motive string)
	LegajoReview(ctx context.Context, legajoID uuid.UUID, prev, next types.TechReview, userID uuid.UUID, motive string)
	LegajoRenaper(ctx context.Context, legajoID uuid.UUID, prev, next types.RenaperStatus, userID uuid.UUID, motive string)
	LegajoSintys(ctx context.Context, legajoID uuid.UUID, prev, next types.SintysResult, userID uuid.UUID)
	CupoMovement(ctx context.Context, legajoID uuid.UUID, kind types.MovementKind, userID uuid.UUID, motive string)
	InformeCreated(ctx context.Context, expedienteID, informeID uuid.UUID, userID uuid.UUID, total int)
}

type auditHook struct {
	log  *logger.Logger
	sink audit.Sink
}

func NewAuditHook(baseLog *logger.Logger, sink audit.Sink) AuditHook {
	return &auditHook{
		log:  baseLog.With("service", "AuditHook"),
		sink: sink,
	}
}

func (a *auditHook) emit(ctx context.Context, ev audit.Event) {
	ev.At = time.Now()
	if err := a.sink.Emit(ctx, ev); err != nil {
		a.log.Warn("audit emit failed",
			"entity_kind", ev.EntityKind,
			"entity_id", ev.EntityID,
			"error", err,
		)
	}
}

func (a *auditHook) ExpedienteTransition(ctx context.Context, expedienteID uuid.UUID, prev, next types.ExpedienteState, userID uuid.UUID, motive string) {
	a.emit(ctx, audit.Event{
		EntityKind: "expediente",
		EntityID:   expedienteID.String(),
		Prev:       string(prev),
		New:        string(next),
		UserID:     userID.String(),
		Motive:     motive,
	})
}

func (a *auditHook) LegajoReview(ctx context.Context, legajoID uuid.UUID, prev, next types.TechReview, userID uuid.UUID, motive string) {
	a.emit(ctx, audit.Event{
		EntityKind: "legajo_review",
		EntityID:   legajoID.String(),
		Prev:       string(prev),
		New:        string(next),
		UserID:     userID.String(),
		Motive:     motive,
	})
}

func (a *auditHook) LegajoRenaper(ctx context.Context, legajoID uuid.UUID, prev, next types.RenaperStatus, userID uuid.UUID, motive string) {
	a.emit(ctx, audit.Event{
		EntityKind: "legajo_renaper",
		EntityID:   legajoID.String(),
		Prev:       string(prev),
		New:        string(next),
		UserID:     userID.String(),
		Motive:     motive,
	})
}

func (a *auditHook) LegajoSintys(ctx context.Context, legajoID uuid.UUID, prev, next types.SintysResult, userID uuid.UUID) {
	a.emit(ctx, audit.Event{
		EntityKind: "legajo_sintys",
		EntityID:   legajoID.String(),
		Prev:       string(prev),
		New:        string(next),
		UserID:     userID.String(),
	})
}

func (a *auditHook) CupoMovement(ctx context.Context, legajoID uuid.UUID, kind types.MovementKind, userID uuid.UUID, motive string) {
	a.emit(ctx, audit.Event{
		EntityKind: "cupo_movement",
		EntityID:   legajoID.String(),
		New:        string(kind),
		UserID:     userID.String(),
		Motive:     motive,
	})
}

func (a *auditHook) InformeCreated(ctx context.Context, expedienteID, informeID uuid.UUID, userID uuid.UUID, total int) {
	a.emit(ctx, audit.Event{
		EntityKind: "informe_pago",
		EntityID:   informeID.String(),
		New:        "CREADO",
		UserID:     userID.String(),
		Motive:     fmt.Sprintf("expediente %s, %d legajos", expedienteID, total),
	})
}
