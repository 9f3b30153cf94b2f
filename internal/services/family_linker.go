package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minsocial/celiaquia-backend/internal/data/repos"
	types "github.com/minsocial/celiaquia-backend/internal/domain"
	pkgerrors "github.com/minsocial/celiaquia-backend/internal/pkg/errors"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
)

// FamilyNode is one caregiver with their in-expediente dependents.
type FamilyNode struct {
	Caregiver  *types.Citizen   `json:"caregiver"`
	Dependents []*types.Citizen `json:"dependents"`
}

// FamilyTree is the per-expediente view: caregivers that are not themselves
// dependents (including relation-less legajos, as dependent-less roots), plus
// dependents whose caregiver is outside the expediente. Every legajo of the
// expediente appears in exactly one place.
type FamilyTree struct {
	Roots     []FamilyNode     `json:"roots"`
	Unclaimed []*types.Citizen `json:"unclaimed"`
}

type FamilyLinker interface {
	// Link creates or upgrades the caregiver -> dependent relation with the
	// canonical child kind, cohabiting, primary caregiver.
	Link(ctx context.Context, tx *gorm.DB, caregiverID, dependentID uuid.UUID) (*types.FamilyRelation, error)
	// ChildrenOf lists a caregiver's dependents; with expedienteID set, only
	// those that are legajos of that expediente.
	ChildrenOf(ctx context.Context, tx *gorm.DB, caregiverID uuid.UUID, expedienteID *uuid.UUID) ([]*types.Citizen, error)
	CaregiversOf(ctx context.Context, tx *gorm.DB, dependentID uuid.UUID) ([]*types.Citizen, error)
	IsCaregiver(ctx context.Context, tx *gorm.DB, citizenID uuid.UUID) (bool, error)
	// CaregiversMap returns dependent id -> caregiver ids for a citizen set.
	CaregiversMap(ctx context.Context, tx *gorm.DB, dependentIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error)
	FamilyTree(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID) (*FamilyTree, error)
}

type familyLinker struct {
	db           *gorm.DB
	log          *logger.Logger
	relationRepo repos.FamilyRelationRepo
	citizenRepo  repos.CitizenRepo
	legajoRepo   repos.LegajoRepo
}

func NewFamilyLinker(db *gorm.DB, baseLog *logger.Logger, relationRepo repos.FamilyRelationRepo, citizenRepo repos.CitizenRepo, legajoRepo repos.LegajoRepo) FamilyLinker {
	return &familyLinker{
		db:           db,
		log:          baseLog.With("service", "FamilyLinker"),
		relationRepo: relationRepo,
		citizenRepo:  citizenRepo,
		legajoRepo:   legajoRepo,
	}
}

func (f *familyLinker) Link(ctx context.Context, tx *gorm.DB, caregiverID, dependentID uuid.UUID) (*types.FamilyRelation, error) {
	if caregiverID == dependentID {
		return nil, pkgerrors.Validation("family_relation", "caregiver and dependent are the same citizen")
	}

	existing, err := f.relationRepo.GetByPair(ctx, tx, caregiverID, dependentID)
	if err == nil {
		updates := map[string]interface{}{}
		if !existing.Cohabits {
			existing.Cohabits = true
			updates["cohabits"] = true
		}
		if !existing.PrimaryCaregiver {
			existing.PrimaryCaregiver = true
			updates["primary_caregiver"] = true
		}
		if existing.RelationKind != types.RelationChild {
			existing.RelationKind = types.RelationChild
			existing.InverseKind = types.RelationParent
			updates["relation_kind"] = types.RelationChild
			updates["inverse_kind"] = types.RelationParent
		}
		if err := f.relationRepo.UpdateFields(ctx, tx, existing.ID, updates); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	rel := &types.FamilyRelation{
		ID:               uuid.New(),
		CaregiverID:      caregiverID,
		DependentID:      dependentID,
		RelationKind:     types.RelationChild,
		InverseKind:      types.RelationParent,
		Cohabits:         true,
		PrimaryCaregiver: true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := f.relationRepo.Create(ctx, tx, rel); err != nil {
		if errors.Is(err, pkgerrors.ErrConflict) {
			// Concurrent link of the same pair; re-read and upgrade.
			return f.Link(ctx, tx, caregiverID, dependentID)
		}
		return nil, err
	}
	return rel, nil
}

func (f *familyLinker) ChildrenOf(ctx context.Context, tx *gorm.DB, caregiverID uuid.UUID, expedienteID *uuid.UUID) ([]*types.Citizen, error) {
	rels, err := f.relationRepo.ListByCaregiver(ctx, tx, caregiverID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rels))
	for _, rel := range rels {
		ids = append(ids, rel.DependentID)
	}
	if expedienteID != nil {
		legajos, err := f.legajoRepo.ListByExpedienteAndCitizens(ctx, tx, *expedienteID, ids)
		if err != nil {
			return nil, err
		}
		inExp := make(map[uuid.UUID]bool, len(legajos))
		for _, l := range legajos {
			inExp[l.CitizenID] = true
		}
		filtered := ids[:0]
		for _, id := range ids {
			if inExp[id] {
				filtered = append(filtered, id)
			}
		}
		ids = filtered
	}
	return f.citizenRepo.GetByIDs(ctx, tx, ids)
}

func (f *familyLinker) CaregiversOf(ctx context.Context, tx *gorm.DB, dependentID uuid.UUID) ([]*types.Citizen, error) {
	rels, err := f.relationRepo.ListByDependent(ctx, tx, dependentID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rels))
	for _, rel := range rels {
		ids = append(ids, rel.CaregiverID)
	}
	return f.citizenRepo.GetByIDs(ctx, tx, ids)
}

func (f *familyLinker) IsCaregiver(ctx context.Context, tx *gorm.DB, citizenID uuid.UUID) (bool, error) {
	return f.relationRepo.ExistsAsCaregiver(ctx, tx, citizenID)
}

func (f *familyLinker) CaregiversMap(ctx context.Context, tx *gorm.DB, dependentIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	rels, err := f.relationRepo.ListByDependentIDs(ctx, tx, dependentIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID][]uuid.UUID, len(rels))
	for _, rel := range rels {
		out[rel.DependentID] = append(out[rel.DependentID], rel.CaregiverID)
	}
	return out, nil
}

func (f *familyLinker) FamilyTree(ctx context.Context, tx *gorm.DB, expedienteID uuid.UUID) (*FamilyTree, error) {
	legajos, err := f.legajoRepo.ListByExpediente(ctx, tx, expedienteID)
	if err != nil {
		return nil, err
	}
	citizenIDs := make([]uuid.UUID, 0, len(legajos))
	inExpediente := make(map[uuid.UUID]bool, len(legajos))
	for _, l := range legajos {
		citizenIDs = append(citizenIDs, l.CitizenID)
		inExpediente[l.CitizenID] = true
	}

	citizens, err := f.citizenRepo.GetByIDs(ctx, tx, citizenIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.Citizen, len(citizens))
	for _, c := range citizens {
		byID[c.ID] = c
	}

	asCaregiver, err := f.relationRepo.ListByCaregiverIDs(ctx, tx, citizenIDs)
	if err != nil {
		return nil, err
	}
	asDependent, err := f.relationRepo.ListByDependentIDs(ctx, tx, citizenIDs)
	if err != nil {
		return nil, err
	}

	dependentsOf := map[uuid.UUID][]uuid.UUID{}
	for _, rel := range asCaregiver {
		if inExpediente[rel.DependentID] {
			dependentsOf[rel.CaregiverID] = append(dependentsOf[rel.CaregiverID], rel.DependentID)
		}
	}
	hasInExpedienteCaregiver := map[uuid.UUID]bool{}
	isDependent := map[uuid.UUID]bool{}
	for _, rel := range asDependent {
		isDependent[rel.DependentID] = true
		if inExpediente[rel.CaregiverID] {
			hasInExpedienteCaregiver[rel.DependentID] = true
		}
	}

	tree := &FamilyTree{}
	emitted := map[uuid.UUID]bool{}

	// Roots: caregivers that are not themselves dependents. Each citizen is
	// emitted at most once, which keeps relation cycles from looping.
	for _, l := range legajos {
		id := l.CitizenID
		if isDependent[id] || len(dependentsOf[id]) == 0 || emitted[id] {
			continue
		}
		emitted[id] = true
		node := FamilyNode{Caregiver: byID[id]}
		for _, depID := range dependentsOf[id] {
			if emitted[depID] {
				continue
			}
			emitted[depID] = true
			node.Dependents = append(node.Dependents, byID[depID])
		}
		tree.Roots = append(tree.Roots, node)
	}

	// Dependents with no caregiver inside the expediente.
	for _, l := range legajos {
		id := l.CitizenID
		if emitted[id] {
			continue
		}
		if isDependent[id] && !hasInExpedienteCaregiver[id] {
			emitted[id] = true
			tree.Unclaimed = append(tree.Unclaimed, byID[id])
		}
	}

	// Whatever is left has no relation at all, or sits on a relation cycle.
	// Emit them as dependent-less roots so every legajo appears exactly once;
	// a cycle member picks up its not-yet-emitted dependents.
	for _, l := range legajos {
		id := l.CitizenID
		if emitted[id] {
			continue
		}
		emitted[id] = true
		node := FamilyNode{Caregiver: byID[id]}
		for _, depID := range dependentsOf[id] {
			if emitted[depID] {
				continue
			}
			emitted[depID] = true
			node.Dependents = append(node.Dependents, byID[depID])
		}
		tree.Roots = append(tree.Roots, node)
	}

	return tree, nil
}
