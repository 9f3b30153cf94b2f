package cupo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/minsocial/celiaquia-backend/internal/domain"
	pkgerrors "github.com/minsocial/celiaquia-backend/internal/pkg/errors"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
)

type CupoRepo interface {
	GetConfig(ctx context.Context, tx *gorm.DB, provinceID uint) (*types.CupoConfig, error)
	// GetConfigForUpdate locks the province's quota row for the life of tx.
	// Every admit/release for the province serializes on this lock, so the
	// active count is always computed under the lock that mutates it.
	GetConfigForUpdate(ctx context.Context, tx *gorm.DB, provinceID uint) (*types.CupoConfig, error)
	UpsertConfig(ctx context.Context, tx *gorm.DB, provinceID uint, quota int) error
	AppendMovement(ctx context.Context, tx *gorm.DB, m *types.CupoMovement) error
	ListMovements(ctx context.Context, tx *gorm.DB, provinceID uint, limit int) ([]*types.CupoMovement, error)
}

type cupoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCupoRepo(db *gorm.DB, baseLog *logger.Logger) CupoRepo {
	return &cupoRepo{db: db, log: baseLog.With("repo", "CupoRepo")}
}

func (r *cupoRepo) GetConfig(ctx context.Context, tx *gorm.DB, provinceID uint) (*types.CupoConfig, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var cfg types.CupoConfig
	err := transaction.WithContext(ctx).Where("province_id = ?", provinceID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrCupoUnconfigured
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *cupoRepo) GetConfigForUpdate(ctx context.Context, tx *gorm.DB, provinceID uint) (*types.CupoConfig, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	query := transaction.WithContext(ctx)
	if transaction.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var cfg types.CupoConfig
	err := query.Where("province_id = ?", provinceID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrCupoUnconfigured
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *cupoRepo) UpsertConfig(ctx context.Context, tx *gorm.DB, provinceID uint, quota int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "province_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quota", "updated_at"}),
		}).
		Create(&types.CupoConfig{ProvinceID: provinceID, Quota: quota}).Error
}

func (r *cupoRepo) AppendMovement(ctx context.Context, tx *gorm.DB, m *types.CupoMovement) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Create(m).Error
}

func (r *cupoRepo) ListMovements(ctx context.Context, tx *gorm.DB, provinceID uint, limit int) ([]*types.CupoMovement, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	query := transaction.WithContext(ctx).
		Where("province_id = ?", provinceID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var out []*types.CupoMovement
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
