package expediente

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/minsocial/celiaquia-backend/internal/domain"
	pkgerrors "github.com/minsocial/celiaquia-backend/internal/pkg/errors"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
)

type ErrorRowRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.ErrorRow) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ErrorRow, error)
	ListUnprocessed(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID) ([]*types.ErrorRow, error)
	CountUnprocessed(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID) (int64, error)
	MarkProcessed(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error
	SetErrorText(ctx context.Context, tx *gorm.DB, id uuid.UUID, text string) error
}

type errorRowRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewErrorRowRepo(db *gorm.DB, baseLog *logger.Logger) ErrorRowRepo {
	return &errorRowRepo{db: db, log: baseLog.With("repo", "ErrorRowRepo")}
}

func (r *errorRowRepo) Create(ctx context.Context, tx *gorm.DB, row *types.ErrorRow) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (r *errorRowRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ErrorRow, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.ErrorRow
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *errorRowRepo) ListUnprocessed(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID) ([]*types.ErrorRow, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ErrorRow
	if err := transaction.WithContext(ctx).
		Where("expediente_id = ? AND processed = ?", expedienteID, false).
		Order("row_number ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *errorRowRepo) CountUnprocessed(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ErrorRow{}).
		Where("expediente_id = ? AND processed = ?", expedienteID, false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *errorRowRepo) MarkProcessed(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ErrorRow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed":    true,
			"processed_at": at,
			"error_text":   "",
		}).Error
}

func (r *errorRowRepo) SetErrorText(ctx context.Context, tx *gorm.DB, id uuid.UUID, text string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ErrorRow{}).
		Where("id = ?", id).
		Update("error_text", text).Error
}
