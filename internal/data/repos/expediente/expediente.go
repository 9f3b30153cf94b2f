package expediente

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/minsocial/celiaquia-backend/internal/domain"
	pkgerrors "github.com/minsocial/celiaquia-backend/internal/pkg/errors"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
)

type ExpedienteRepo interface {
	Create(ctx context.Context, tx *gorm.DB, e *types.Expediente) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Expediente, error)
	// GetByIDForUpdate locks the expediente row for the life of tx. Used to
	// serialize imports: a second concurrent import blocks here and then
	// observes the first one's effects.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Expediente, error)
	ListByProvince(ctx context.Context, tx *gorm.DB, provinceID uint) ([]*types.Expediente, error)
	// TransitionState moves id from prev to next, re-checking prev inside the
	// statement. Returns false when the precondition no longer holds.
	TransitionState(ctx context.Context, tx *gorm.DB, id uuid.UUID, prev, next types.ExpedienteState) (bool, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type expedienteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExpedienteRepo(db *gorm.DB, baseLog *logger.Logger) ExpedienteRepo {
	return &expedienteRepo{db: db, log: baseLog.With("repo", "ExpedienteRepo")}
}

func (r *expedienteRepo) Create(ctx context.Context, tx *gorm.DB, e *types.Expediente) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(e).Error
}

func (r *expedienteRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Expediente, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var e types.Expediente
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *expedienteRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Expediente, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	query := transaction.WithContext(ctx)
	// Row locks only exist on postgres; the sqlite test harness relies on its
	// single-writer semantics instead.
	if transaction.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var e types.Expediente
	err := query.Where("id = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *expedienteRepo) ListByProvince(ctx context.Context, tx *gorm.DB, provinceID uint) ([]*types.Expediente, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Expediente
	if err := transaction.WithContext(ctx).
		Where("province_id = ?", provinceID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *expedienteRepo) TransitionState(ctx context.Context, tx *gorm.DB, id uuid.UUID, prev, next types.ExpedienteState) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Expediente{}).
		Where("id = ? AND state = ?", id, prev).
		Update("state", next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *expedienteRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Expediente{}).
		Where("id = ?", id).
		Updates(updates).Error
}
