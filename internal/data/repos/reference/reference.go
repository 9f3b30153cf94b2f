package reference

import (
	"context"

	"gorm.io/gorm"

	types "github.com/minsocial/celiaquia-backend/internal/domain"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
)

// ReferenceRepo reads the external collaborators' reference tables. The core
// never writes them outside of seeding.
type ReferenceRepo interface {
	ListProvinces(ctx context.Context, tx *gorm.DB) ([]types.Province, error)
	ListMunicipalities(ctx context.Context, tx *gorm.DB) ([]types.Municipality, error)
	ListLocalities(ctx context.Context, tx *gorm.DB) ([]types.Locality, error)
	ListSexes(ctx context.Context, tx *gorm.DB) ([]types.Sex, error)
	ListNationalities(ctx context.Context, tx *gorm.DB) ([]types.Nationality, error)
	// LoadCatalog reads everything and builds the immutable enum cache.
	LoadCatalog(ctx context.Context, tx *gorm.DB) (*types.Catalog, error)
}

type referenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReferenceRepo(db *gorm.DB, baseLog *logger.Logger) ReferenceRepo {
	return &referenceRepo{db: db, log: baseLog.With("repo", "ReferenceRepo")}
}

func (r *referenceRepo) ListProvinces(ctx context.Context, tx *gorm.DB) ([]types.Province, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.Province
	if err := transaction.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *referenceRepo) ListMunicipalities(ctx context.Context, tx *gorm.DB) ([]types.Municipality, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.Municipality
	if err := transaction.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *referenceRepo) ListLocalities(ctx context.Context, tx *gorm.DB) ([]types.Locality, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.Locality
	if err := transaction.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *referenceRepo) ListSexes(ctx context.Context, tx *gorm.DB) ([]types.Sex, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.Sex
	if err := transaction.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *referenceRepo) ListNationalities(ctx context.Context, tx *gorm.DB) ([]types.Nationality, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.Nationality
	if err := transaction.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *referenceRepo) LoadCatalog(ctx context.Context, tx *gorm.DB) (*types.Catalog, error) {
	provinces, err := r.ListProvinces(ctx, tx)
	if err != nil {
		return nil, err
	}
	municipalities, err := r.ListMunicipalities(ctx, tx)
	if err != nil {
		return nil, err
	}
	localities, err := r.ListLocalities(ctx, tx)
	if err != nil {
		return nil, err
	}
	sexes, err := r.ListSexes(ctx, tx)
	if err != nil {
		return nil, err
	}
	nationalities, err := r.ListNationalities(ctx, tx)
	if err != nil {
		return nil, err
	}
	return types.NewCatalog(provinces, municipalities, localities, sexes, nationalities), nil
}
