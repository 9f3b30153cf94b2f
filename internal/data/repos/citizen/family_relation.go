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

type FamilyRelationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rel *types.FamilyRelation) error
	GetByPair(ctx context.Context, tx *gorm.DB, caregiverID, dependentID uuid.UUID) (*types.FamilyRelation, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	ListByCaregiver(ctx context.Context, tx *gorm.DB, caregiverID uuid.UUID) ([]*types.FamilyRelation, error)
	ListByCaregiverIDs(ctx context.Context, tx *gorm.DB, caregiverIDs []uuid.UUID) ([]*types.FamilyRelation, error)
	ListByDependent(ctx context.Context, tx *gorm.DB, dependentID uuid.UUID) ([]*types.FamilyRelation, error)
	ListByDependentIDs(ctx context.Context, tx *gorm.DB, dependentIDs []uuid.UUID) ([]*types.FamilyRelation, error)
	ExistsAsCaregiver(ctx context.Context, tx *gorm.DB, citizenID uuid.UUID) (bool, error)
}

type familyRelationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFamilyRelationRepo(db *gorm.DB, baseLog *logger.Logger) FamilyRelationRepo {
	return &familyRelationRepo{db: db, log: baseLog.With("repo", "FamilyRelationRepo")}
}

func (r *familyRelationRepo) Create(ctx context.Context, tx *gorm.DB, rel *types.FamilyRelation) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(rel).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return pkgerrors.ErrConflict
		}
		return err
	}
	return nil
}

func (r *familyRelationRepo) GetByPair(ctx context.Context, tx *gorm.DB, caregiverID, dependentID uuid.UUID) (*types.FamilyRelation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rel types.FamilyRelation
	err := transaction.WithContext(ctx).
		Where("caregiver_id = ? AND dependent_id = ?", caregiverID, dependentID).
		First(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func (r *familyRelationRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.FamilyRelation{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *familyRelationRepo) ListByCaregiver(ctx context.Context, tx *gorm.DB, caregiverID uuid.UUID) ([]*types.FamilyRelation, error) {
	return r.ListByCaregiverIDs(ctx, tx, []uuid.UUID{caregiverID})
}

func (r *familyRelationRepo) ListByCaregiverIDs(ctx context.Context, tx *gorm.DB, caregiverIDs []uuid.UUID) ([]*types.FamilyRelation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.FamilyRelation
	if len(caregiverIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("caregiver_id IN ?", caregiverIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *familyRelationRepo) ListByDependent(ctx context.Context, tx *gorm.DB, dependentID uuid.UUID) ([]*types.FamilyRelation, error) {
	return r.ListByDependentIDs(ctx, tx, []uuid.UUID{dependentID})
}

func (r *familyRelationRepo) ListByDependentIDs(ctx context.Context, tx *gorm.DB, dependentIDs []uuid.UUID) ([]*types.FamilyRelation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.FamilyRelation
	if len(dependentIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("dependent_id IN ?", dependentIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *familyRelationRepo) ExistsAsCaregiver(ctx context.Context, tx *gorm.DB, citizenID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.FamilyRelation{}).
		Where("caregiver_id = ?", citizenID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
