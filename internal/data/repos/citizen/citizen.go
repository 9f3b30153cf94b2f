package citizen

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/minsocial/celiaquia-backend/internal/domain"
	pkgerrors "github.com/minsocial/celiaquia-backend/internal/pkg/errors"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
)

type CitizenRepo interface {
	Create(ctx context.Context, tx *gorm.DB, c *types.Citizen) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Citizen, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Citizen, error)
	GetByDocument(ctx context.Context, tx *gorm.DB, kind types.DocumentKind, number int64) (*types.Citizen, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type citizenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCitizenRepo(db *gorm.DB, baseLog *logger.Logger) CitizenRepo {
	return &citizenRepo{db: db, log: baseLog.With("repo", "CitizenRepo")}
}

func (r *citizenRepo) Create(ctx context.Context, tx *gorm.DB, c *types.Citizen) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return pkgerrors.ErrConflict
		}
		return err
	}
	return nil
}

func (r *citizenRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Citizen, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var c types.Citizen
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *citizenRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Citizen, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Citizen
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *citizenRepo) GetByDocument(ctx context.Context, tx *gorm.DB, kind types.DocumentKind, number int64) (*types.Citizen, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var c types.Citizen
	err := transaction.WithContext(ctx).
		Where("document_kind = ? AND document_number = ?", kind, number).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *citizenRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Citizen{}).
		Where("id = ?", id).
		Updates(updates).Error
}
