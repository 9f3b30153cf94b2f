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

type LegajoRepo interface {
	Create(ctx context.Context, tx *gorm.DB, l *types.Legajo) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Legajo, error)
	GetByExpedienteAndCitizen(ctx context.Context, tx *gorm.DB, expedienteID, citizenID uuid.UUID) (*types.Legajo, error)
	ListByExpediente(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID) ([]*types.Legajo, error)
	// ListByExpedienteAndCitizens filters an expediente's legajos to a citizen set.
	ListByExpedienteAndCitizens(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID, citizenIDs []uuid.UUID) ([]*types.Legajo, error)
	// FindActiveTitular returns a citizen's legajo holding a cupo slot in any
	// expediente other than exclude, or ErrNotFound.
	FindActiveTitular(ctx context.Context, tx *gorm.DB, citizenID uuid.UUID, exclude uuid.UUID) (*types.Legajo, error)
	// FindInOpenExpedientes returns a citizen's legajo inside any other
	// expediente currently in an open pre-cupo state, or ErrNotFound.
	FindInOpenExpedientes(ctx context.Context, tx *gorm.DB, citizenID uuid.UUID, exclude uuid.UUID) (*types.Legajo, error)
	// ListCupoCandidates returns the expediente's legajos still unevaluated
	// for cupo, in deterministic admission order (created_at, id ascending).
	ListCupoCandidates(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID) ([]*types.Legajo, error)
	// ListApprovedMatched returns approved, SINTYS-matched, in-cupo legajos
	// ordered by id ascending (the payment report order).
	ListApprovedMatched(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID) ([]*types.Legajo, error)
	CountActiveByProvince(ctx context.Context, tx *gorm.DB, provinceID uint) (int64, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type legajoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLegajoRepo(db *gorm.DB, baseLog *logger.Logger) LegajoRepo {
	return &legajoRepo{db: db, log: baseLog.With("repo", "LegajoRepo")}
}

func (r *legajoRepo) Create(ctx context.Context, tx *gorm.DB, l *types.Legajo) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(l).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return pkgerrors.ErrConflict
		}
		return err
	}
	return nil
}

func (r *legajoRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Legajo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var l types.Legajo
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *legajoRepo) GetByExpedienteAndCitizen(ctx context.Context, tx *gorm.DB, expedienteID, citizenID uuid.UUID) (*types.Legajo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var l types.Legajo
	err := transaction.WithContext(ctx).
		Where("expediente_id = ? AND citizen_id = ?", expedienteID, citizenID).
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *legajoRepo) ListByExpediente(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID) ([]*types.Legajo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Legajo
	if err := transaction.WithContext(ctx).
		Where("expediente_id = ?", expedienteID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *legajoRepo) ListByExpedienteAndCitizens(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID, citizenIDs []uuid.UUID) ([]*types.Legajo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Legajo
	if len(citizenIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("expediente_id = ? AND citizen_id IN ?", expedienteID, citizenIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *legajoRepo) FindActiveTitular(ctx context.Context, tx *gorm.DB, citizenID uuid.UUID, exclude uuid.UUID) (*types.Legajo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var l types.Legajo
	err := transaction.WithContext(ctx).
		Where("citizen_id = ? AND cupo_state = ? AND expediente_id <> ?", citizenID, types.CupoDentro, exclude).
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *legajoRepo) FindInOpenExpedientes(ctx context.Context, tx *gorm.DB, citizenID uuid.UUID, exclude uuid.UUID) (*types.Legajo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var l types.Legajo
	err := transaction.WithContext(ctx).
		Joins("JOIN expediente ON expediente.id = expediente_ciudadano.expediente_id").
		Where("expediente_ciudadano.citizen_id = ?", citizenID).
		Where("expediente_ciudadano.expediente_id <> ?", exclude).
		Where("expediente.state IN ?", types.OpenPreCupoStates).
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *legajoRepo) ListCupoCandidates(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID) ([]*types.Legajo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Legajo
	if err := transaction.WithContext(ctx).
		Where("expediente_id = ? AND cupo_state IN ?", expedienteID,
			[]types.LegajoCupoState{types.CupoNoEvaluado, types.CupoFuera}).
		Where("tech_review NOT IN ?", []types.TechReview{types.ReviewRechazado, types.ReviewSubsanar}).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *legajoRepo) ListApprovedMatched(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID) ([]*types.Legajo, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Legajo
	if err := transaction.WithContext(ctx).
		Where("expediente_id = ? AND tech_review = ? AND sintys_result = ? AND cupo_state = ?",
			expedienteID, types.ReviewAprobado, types.SintysMatch, types.CupoDentro).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *legajoRepo) CountActiveByProvince(ctx context.Context, tx *gorm.DB, provinceID uint) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Legajo{}).
		Joins("JOIN expediente ON expediente.id = expediente_ciudadano.expediente_id").
		Where("expediente.province_id = ? AND expediente_ciudadano.cupo_state = ?", provinceID, types.CupoDentro).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *legajoRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Legajo{}).
		Where("id = ?", id).
		Updates(updates).Error
}
