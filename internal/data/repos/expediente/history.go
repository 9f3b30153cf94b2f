package expediente

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/minsocial/celiaquia-backend/internal/domain"
	pkgerrors "github.com/minsocial/celiaquia-backend/internal/pkg/errors"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
)

// The journals are append-only: no update or delete methods exist.

type ExpedienteHistoryRepo interface {
	Append(ctx context.Context, tx *gorm.DB, entry *types.ExpedienteHistory) error
	ListByExpediente(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID) ([]*types.ExpedienteHistory, error)
}

type expedienteHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExpedienteHistoryRepo(db *gorm.DB, baseLog *logger.Logger) ExpedienteHistoryRepo {
	return &expedienteHistoryRepo{db: db, log: baseLog.With("repo", "ExpedienteHistoryRepo")}
}

func (r *expedienteHistoryRepo) Append(ctx context.Context, tx *gorm.DB, entry *types.ExpedienteHistory) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(entry).Error
}

func (r *expedienteHistoryRepo) ListByExpediente(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID) ([]*types.ExpedienteHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ExpedienteHistory
	if err := transaction.WithContext(ctx).
		Where("expediente_id = ?", expedienteID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type ReviewHistoryRepo interface {
	Append(ctx context.Context, tx *gorm.DB, entry *types.ReviewHistory) error
	ListByLegajo(ctx context.Context, tx *gorm.DB, legajoID uuid.UUID) ([]*types.ReviewHistory, error)
}

type reviewHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewHistoryRepo(db *gorm.DB, baseLog *logger.Logger) ReviewHistoryRepo {
	return &reviewHistoryRepo{db: db, log: baseLog.With("repo", "ReviewHistoryRepo")}
}

func (r *reviewHistoryRepo) Append(ctx context.Context, tx *gorm.DB, entry *types.ReviewHistory) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(entry).Error
}

func (r *reviewHistoryRepo) ListByLegajo(ctx context.Context, tx *gorm.DB, legajoID uuid.UUID) ([]*types.ReviewHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ReviewHistory
	if err := transaction.WithContext(ctx).
		Where("legajo_id = ?", legajoID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type InformePagoRepo interface {
	Create(ctx context.Context, tx *gorm.DB, informe *types.InformePago) error
	GetByExpediente(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID) (*types.InformePago, error)
}

type informePagoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInformePagoRepo(db *gorm.DB, baseLog *logger.Logger) InformePagoRepo {
	return &informePagoRepo{db: db, log: baseLog.With("repo", "InformePagoRepo")}
}

func (r *informePagoRepo) Create(ctx context.Context, tx *gorm.DB, informe *types.InformePago) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(informe).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return pkgerrors.ErrConflict
		}
		return err
	}
	return nil
}

func (r *informePagoRepo) GetByExpediente(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID) (*types.InformePago, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var informe types.InformePago
	err := transaction.WithContext(ctx).Where("expediente_id = ?", expedienteID).First(&informe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &informe, nil
}
