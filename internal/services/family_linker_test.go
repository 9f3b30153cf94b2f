package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/minsocial/celiaquia-backend/internal/domain"
	pkgerrors "github.com/minsocial/celiaquia-backend/internal/pkg/errors"
)

func (f *fixture) citizen(t *testing.T, doc int64, surname string) *types.Citizen {
	t.Helper()
	now := time.Now()
	c := &types.Citizen{
		ID:             uuid.New(),
		DocumentKind:   types.DocumentDNI,
		DocumentNumber: doc,
		Surname:        surname,
		GivenName:      "Test",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := f.citizenRepo.Create(context.Background(), nil, c); err != nil {
		t.Fatalf("create citizen: %v", err)
	}
	return c
}

func (f *fixture) legajo(t *testing.T, expedienteID, citizenID uuid.UUID, rol types.LegajoRol) *types.Legajo {
	t.Helper()
	now := time.Now()
	l := &types.Legajo{
		ID:            uuid.New(),
		ExpedienteID:  expedienteID,
		CitizenID:     citizenID,
		Rol:           rol,
		IntakeState:   types.IntakeDocumentoPendiente,
		TechReview:    types.ReviewSinRevisar,
		SintysResult:  types.SintysSinCruce,
		RenaperStatus: types.RenaperSinValidar,
		CupoState:     types.CupoNoEvaluado,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := f.legajoRepo.Create(context.Background(), nil, l); err != nil {
		t.Fatalf("create legajo: %v", err)
	}
	return l
}

func TestLinkRejectsSelfReference(t *testing.T) {
	f := newFixture(t)
	c := f.citizen(t, 30111222, "Diaz")
	if _, err := f.linker.Link(context.Background(), nil, c.ID, c.ID); !pkgerrors.IsValidation(err) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestLinkUpgradesExistingRelation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	caregiver := f.citizen(t, 30111222, "Diaz")
	dependent := f.citizen(t, 50333444, "Diaz")

	first, err := f.linker.Link(ctx, nil, caregiver.ID, dependent.ID)
	if err != nil {
		t.Fatalf("link: %v", err)
	}

	// Degrade the relation, then relink: the canonical shape comes back.
	if err := f.relRepo.UpdateFields(ctx, nil, first.ID, map[string]interface{}{
		"cohabits":          false,
		"primary_caregiver": false,
		"relation_kind":     "TUTOR",
	}); err != nil {
		t.Fatalf("degrade: %v", err)
	}

	again, err := f.linker.Link(ctx, nil, caregiver.ID, dependent.ID)
	if err != nil {
		t.Fatalf("relink: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("relink created a second relation")
	}
	rel, _ := f.relRepo.GetByPair(ctx, nil, caregiver.ID, dependent.ID)
	if !rel.Cohabits || !rel.PrimaryCaregiver || rel.RelationKind != types.RelationChild {
		t.Fatalf("relation not upgraded: %+v", rel)
	}
}

func TestChildrenOfFilteredByExpediente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.provincialUser(t)
	exp := f.expediente(t, user, types.StateCreado)

	caregiver := f.citizen(t, 30111222, "Diaz")
	inExp := f.citizen(t, 50333444, "Diaz")
	outExp := f.citizen(t, 50333445, "Diaz")
	f.legajo(t, exp.ID, caregiver.ID, types.RolResponsable)
	f.legajo(t, exp.ID, inExp.ID, types.RolBeneficiario)

	for _, dep := range []*types.Citizen{inExp, outExp} {
		if _, err := f.linker.Link(ctx, nil, caregiver.ID, dep.ID); err != nil {
			t.Fatalf("link: %v", err)
		}
	}

	all, err := f.linker.ChildrenOf(ctx, nil, caregiver.ID, nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("all children: %v %d", err, len(all))
	}
	scoped, err := f.linker.ChildrenOf(ctx, nil, caregiver.ID, &exp.ID)
	if err != nil || len(scoped) != 1 || scoped[0].ID != inExp.ID {
		t.Fatalf("scoped children: %v %+v", err, scoped)
	}

	ok, err := f.linker.IsCaregiver(ctx, nil, caregiver.ID)
	if err != nil || !ok {
		t.Fatalf("is caregiver: %v %v", err, ok)
	}
}

func TestFamilyTreeRootsAndUnclaimed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.provincialUser(t)
	exp := f.expediente(t, user, types.StateCreado)

	caregiver := f.citizen(t, 30111222, "Diaz")
	child := f.citizen(t, 50333444, "Diaz")
	orphan := f.citizen(t, 50333445, "Vera")
	outsideCaregiver := f.citizen(t, 30999888, "Vera")

	f.legajo(t, exp.ID, caregiver.ID, types.RolResponsable)
	f.legajo(t, exp.ID, child.ID, types.RolBeneficiario)
	f.legajo(t, exp.ID, orphan.ID, types.RolBeneficiario)

	if _, err := f.linker.Link(ctx, nil, caregiver.ID, child.ID); err != nil {
		t.Fatalf("link: %v", err)
	}
	// The orphan's caregiver exists but has no legajo here.
	if _, err := f.linker.Link(ctx, nil, outsideCaregiver.ID, orphan.ID); err != nil {
		t.Fatalf("link orphan: %v", err)
	}

	tree, err := f.linker.FamilyTree(ctx, nil, exp.ID)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if len(tree.Roots) != 1 {
		t.Fatalf("roots: %+v", tree.Roots)
	}
	if tree.Roots[0].Caregiver.ID != caregiver.ID || len(tree.Roots[0].Dependents) != 1 {
		t.Fatalf("root: %+v", tree.Roots[0])
	}
	if len(tree.Unclaimed) != 1 || tree.Unclaimed[0].ID != orphan.ID {
		t.Fatalf("unclaimed: %+v", tree.Unclaimed)
	}
}

func TestFamilyTreeCycleSafe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.provincialUser(t)
	exp := f.expediente(t, user, types.StateCreado)

	a := f.citizen(t, 30111222, "Diaz")
	b := f.citizen(t, 30111223, "Diaz")
	f.legajo(t, exp.ID, a.ID, types.RolResponsable)
	f.legajo(t, exp.ID, b.ID, types.RolBeneficiario)

	if _, err := f.linker.Link(ctx, nil, a.ID, b.ID); err != nil {
		t.Fatalf("link a->b: %v", err)
	}
	if _, err := f.linker.Link(ctx, nil, b.ID, a.ID); err != nil {
		t.Fatalf("link b->a: %v", err)
	}

	tree, err := f.linker.FamilyTree(ctx, nil, exp.ID)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	seen := map[uuid.UUID]int{}
	for _, root := range tree.Roots {
		seen[root.Caregiver.ID]++
		for _, dep := range root.Dependents {
			seen[dep.ID]++
		}
	}
	for _, c := range tree.Unclaimed {
		seen[c.ID]++
	}
	for _, id := range []uuid.UUID{a.ID, b.ID} {
		if seen[id] != 1 {
			t.Fatalf("citizen %s emitted %d times, want exactly 1", id, seen[id])
		}
	}
}

func TestFamilyTreeEmitsRelationlessLegajoOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.provincialUser(t)
	exp := f.expediente(t, user, types.StateCreado)

	// A self-responsible legajo carries no family relation at all.
	solo := f.citizen(t, 30111222, "Diaz")
	f.legajo(t, exp.ID, solo.ID, types.RolBeneficiarioYResponsable)

	tree, err := f.linker.FamilyTree(ctx, nil, exp.ID)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	seen := 0
	for _, root := range tree.Roots {
		if root.Caregiver.ID == solo.ID {
			seen++
			if len(root.Dependents) != 0 {
				t.Fatalf("dependents: %+v", root.Dependents)
			}
		}
		for _, dep := range root.Dependents {
			if dep.ID == solo.ID {
				seen++
			}
		}
	}
	for _, c := range tree.Unclaimed {
		if c.ID == solo.ID {
			seen++
		}
	}
	if seen != 1 {
		t.Fatalf("legajo emitted %d times, want exactly 1", seen)
	}
}

func TestCaregiversMap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	caregiver := f.citizen(t, 30111222, "Diaz")
	other := f.citizen(t, 30111223, "Sosa")
	dep := f.citizen(t, 50333444, "Diaz")

	for _, cg := range []*types.Citizen{caregiver, other} {
		if _, err := f.linker.Link(ctx, nil, cg.ID, dep.ID); err != nil {
			t.Fatalf("link: %v", err)
		}
	}

	m, err := f.linker.CaregiversMap(ctx, nil, []uuid.UUID{dep.ID})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if len(m[dep.ID]) != 2 {
		t.Fatalf("caregivers: %+v", m)
	}
}
