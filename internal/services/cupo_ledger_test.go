package services

import (
	"context"
	"errors"
	"testing"

	types "github.com/minsocial/celiaquia-backend/internal/domain"
	pkgerrors "github.com/minsocial/celiaquia-backend/internal/pkg/errors"
)

func TestCupoMetricsUnconfigured(t *testing.T) {
	f := newFixture(t)
	if _, err := f.ledger.Metrics(context.Background(), nil, 1); !errors.Is(err, pkgerrors.ErrCupoUnconfigured) {
		t.Fatalf("err = %v, want ErrCupoUnconfigured", err)
	}
}

func TestCupoAdmitEligibleOverflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.provincialUser(t)
	exp := f.expediente(t, user, types.StateCreado)

	if err := f.ledger.Configure(ctx, nil, 1, 2); err != nil {
		t.Fatalf("configure: %v", err)
	}

	if _, err := f.engine.Import(ctx, exp.ID, user, xlsx(t, importHeaders,
		beneficiaryRow("Gomez", "Ana", "40111222", "2015-02-10"),
		beneficiaryRow("Ruiz", "Leo", "40111223", "2014-03-01"),
		beneficiaryRow("Vera", "Sol", "40111224", "2013-04-02"),
	)); err != nil {
		t.Fatalf("import: %v", err)
	}

	outcome, err := f.ledger.AdmitEligible(ctx, nil, exp.ID, 1, user.ID)
	if err != nil {
		t.Fatalf("admit eligible: %v", err)
	}
	if outcome.Admitted != 2 || outcome.Outside != 1 || outcome.Free != 0 {
		t.Fatalf("outcome: %+v", outcome)
	}

	// Admission follows legajo creation order: the last row overflows.
	legajos, err := f.legajoRepo.ListByExpediente(ctx, nil, exp.ID)
	if err != nil {
		t.Fatalf("legajos: %v", err)
	}
	var dentro, fuera int
	for _, l := range legajos {
		switch l.CupoState {
		case types.CupoDentro:
			dentro++
			// Unreviewed holders are not titulares yet.
			if l.IsActiveTitular {
				t.Fatalf("unconfirmed legajo %s marked titular", l.ID)
			}
		case types.CupoFuera:
			fuera++
		}
	}
	if dentro != 2 || fuera != 1 {
		t.Fatalf("dentro=%d fuera=%d", dentro, fuera)
	}

	metrics, err := f.ledger.Metrics(ctx, nil, 1)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if metrics.Active != 2 || metrics.Free != 0 || metrics.Quota != 2 {
		t.Fatalf("metrics: %+v", metrics)
	}

	movements, err := f.ledger.Movements(ctx, nil, 1, 0)
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("want 2 ALTA movements, got %d", len(movements))
	}
}

func TestCupoReleaseDoesNotPromote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.provincialUser(t)
	exp := f.expediente(t, user, types.StateCreado)

	if err := f.ledger.Configure(ctx, nil, 1, 1); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if _, err := f.engine.Import(ctx, exp.ID, user, xlsx(t, importHeaders,
		beneficiaryRow("Gomez", "Ana", "40111222", "2015-02-10"),
		beneficiaryRow("Ruiz", "Leo", "40111223", "2014-03-01"),
	)); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := f.ledger.AdmitEligible(ctx, nil, exp.ID, 1, user.ID); err != nil {
		t.Fatalf("admit: %v", err)
	}

	legajos, _ := f.legajoRepo.ListByExpediente(ctx, nil, exp.ID)
	var holder *types.Legajo
	for _, l := range legajos {
		if l.CupoState == types.CupoDentro {
			holder = l
		}
	}
	if holder == nil {
		t.Fatal("no slot holder")
	}

	if err := f.ledger.Release(ctx, nil, holder, 1, user.ID, "baja voluntaria"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if holder.CupoState != types.CupoNoEvaluado || holder.IsActiveTitular {
		t.Fatalf("holder after release: %+v", holder)
	}

	// The freed slot is not handed to the waiting legajo.
	legajos, _ = f.legajoRepo.ListByExpediente(ctx, nil, exp.ID)
	for _, l := range legajos {
		if l.CupoState == types.CupoDentro {
			t.Fatalf("legajo %s promoted without an admission pass", l.ID)
		}
	}

	metrics, _ := f.ledger.Metrics(ctx, nil, 1)
	if metrics.Active != 0 || metrics.Free != 1 {
		t.Fatalf("metrics: %+v", metrics)
	}

	movements, _ := f.ledger.Movements(ctx, nil, 1, 0)
	var bajas int
	for _, m := range movements {
		if m.Kind == types.MovementBaja {
			bajas++
			if m.Motive != "baja voluntaria" {
				t.Fatalf("baja motive: %q", m.Motive)
			}
		}
	}
	if bajas != 1 {
		t.Fatalf("want one BAJA, got %d", bajas)
	}
}

func TestCupoAdmitDeniedWhenFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.provincialUser(t)
	exp := f.expediente(t, user, types.StateCreado)

	if err := f.ledger.Configure(ctx, nil, 1, 1); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if _, err := f.engine.Import(ctx, exp.ID, user, xlsx(t, importHeaders,
		beneficiaryRow("Gomez", "Ana", "40111222", "2015-02-10"),
		beneficiaryRow("Ruiz", "Leo", "40111223", "2014-03-01"),
	)); err != nil {
		t.Fatalf("import: %v", err)
	}
	legajos, _ := f.legajoRepo.ListByExpediente(ctx, nil, exp.ID)

	if err := f.ledger.Admit(ctx, nil, legajos[0], 1, user.ID, "alta manual"); err != nil {
		t.Fatalf("first admit: %v", err)
	}
	err := f.ledger.Admit(ctx, nil, legajos[1], 1, user.ID, "alta manual")
	var denied *pkgerrors.QuotaDenied
	if !errors.As(err, &denied) {
		t.Fatalf("err = %v, want QuotaDenied", err)
	}
	if denied.ProvinceID != 1 {
		t.Fatalf("denied: %+v", denied)
	}
}

func TestCupoAdmitHeldSlotIsInvariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.provincialUser(t)
	exp := f.expediente(t, user, types.StateCreado)

	if err := f.ledger.Configure(ctx, nil, 1, 2); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if _, err := f.engine.Import(ctx, exp.ID, user, xlsx(t, importHeaders,
		beneficiaryRow("Gomez", "Ana", "40111222", "2015-02-10"),
	)); err != nil {
		t.Fatalf("import: %v", err)
	}
	legajos, _ := f.legajoRepo.ListByExpediente(ctx, nil, exp.ID)

	if err := f.ledger.Admit(ctx, nil, legajos[0], 1, user.ID, "alta manual"); err != nil {
		t.Fatalf("admit: %v", err)
	}
	err := f.ledger.Admit(ctx, nil, legajos[0], 1, user.ID, "alta manual")
	if !errors.Is(err, pkgerrors.ErrInvariant) {
		t.Fatalf("err = %v, want ErrInvariant", err)
	}
}

func TestCupoReleaseWithoutSlotIsInvariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.provincialUser(t)
	exp := f.expediente(t, user, types.StateCreado)

	if err := f.ledger.Configure(ctx, nil, 1, 1); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if _, err := f.engine.Import(ctx, exp.ID, user, xlsx(t, importHeaders,
		beneficiaryRow("Gomez", "Ana", "40111222", "2015-02-10"),
	)); err != nil {
		t.Fatalf("import: %v", err)
	}
	legajos, _ := f.legajoRepo.ListByExpediente(ctx, nil, exp.ID)

	err := f.ledger.Release(ctx, nil, legajos[0], 1, user.ID, "baja voluntaria")
	if !errors.Is(err, pkgerrors.ErrInvariant) {
		t.Fatalf("err = %v, want ErrInvariant", err)
	}
}
