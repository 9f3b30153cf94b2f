package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/minsocial/celiaquia-backend/internal/data/repos/testutil"
	types "github.com/minsocial/celiaquia-backend/internal/domain"
	pkgerrors "github.com/minsocial/celiaquia-backend/internal/pkg/errors"
)

// walkToRevision drives an expediente with one imported beneficiary up to
// EN_REVISION with a SINTYS match, returning the actors involved.
func walkToRevision(t *testing.T, f *fixture) (*types.Expediente, *types.User, *types.User) {
	t.Helper()
	ctx := context.Background()
	provincial := f.provincialUser(t)
	coordinator := testutil.SeedUser(t, f.db, types.RoleCoordinador, nil)
	tecnico := testutil.SeedUser(t, f.db, types.RoleTecnico, nil)

	if err := f.ledger.Configure(ctx, nil, 1, 10); err != nil {
		t.Fatalf("configure cupo: %v", err)
	}

	exp, err := f.flow.Create(ctx, provincial, "padron.xlsx")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.engine.Import(ctx, exp.ID, provincial, xlsx(t, importHeaders,
		beneficiaryRow("Gomez", "Ana", "40111222", "2015-02-10"),
	)); err != nil {
		t.Fatalf("import: %v", err)
	}
	if err := f.flow.ConfirmarEnvio(ctx, exp.ID, provincial); err != nil {
		t.Fatalf("confirmar envio: %v", err)
	}
	if err := f.flow.Recepcionar(ctx, exp.ID, coordinator); err != nil {
		t.Fatalf("recepcionar: %v", err)
	}
	if err := f.flow.AsignarTecnico(ctx, exp.ID, tecnico.ID, coordinator); err != nil {
		t.Fatalf("asignar: %v", err)
	}
	cruce, err := f.flow.IniciarCruce(ctx, exp.ID, tecnico)
	if err != nil {
		t.Fatalf("iniciar cruce: %v", err)
	}
	if cruce.Admission.Admitted != 1 {
		t.Fatalf("admission: %+v", cruce.Admission)
	}

	roster, err := f.sintys.Export(ctx, nil, exp.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := f.flow.RegistrarCruce(ctx, exp.ID, tecnico, readerOf(roster)); err != nil {
		t.Fatalf("registrar cruce: %v", err)
	}
	return exp, tecnico, coordinator
}

func TestExpedienteFullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exp, tecnico, _ := walkToRevision(t, f)

	legajos, _ := f.legajoRepo.ListByExpediente(ctx, nil, exp.ID)
	if len(legajos) != 1 || legajos[0].SintysResult != types.SintysMatch {
		t.Fatalf("legajo after cruce: %+v", legajos)
	}

	if err := f.flow.ReviewLegajo(ctx, legajos[0].ID, types.ReviewAprobado, "", tecnico); err != nil {
		t.Fatalf("review: %v", err)
	}
	if err := f.flow.FinalizarRevision(ctx, exp.ID, tecnico); err != nil {
		t.Fatalf("finalizar: %v", err)
	}
	informe, err := f.flow.RegistrarInformePago(ctx, exp.ID, tecnico)
	if err != nil {
		t.Fatalf("informe: %v", err)
	}
	if informe.Total != 1 {
		t.Fatalf("informe total: %d", informe.Total)
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(informe.LegajoIDs, &ids); err != nil || len(ids) != 1 || ids[0] != legajos[0].ID {
		t.Fatalf("informe legajos: %v %+v", err, ids)
	}

	got, _ := f.expRepo.GetByID(ctx, nil, exp.ID)
	if got.State != types.StatePagado {
		t.Fatalf("state = %s, want PAGADO", got.State)
	}

	// Every transition journaled once.
	history, _ := f.historyRepo.ListByExpediente(ctx, nil, exp.ID)
	want := []types.ExpedienteState{
		types.StateProcesado,
		types.StateConfirmacionDeEnvio,
		types.StateRecepcionado,
		types.StateAsignado,
		types.StateProcesoDeCruce,
		types.StateEnRevision,
		types.StatePagoPendiente,
		types.StatePagado,
	}
	if len(history) != len(want) {
		t.Fatalf("history length = %d, want %d", len(history), len(want))
	}
	for i, entry := range history {
		if entry.NewState != want[i] {
			t.Fatalf("history[%d] = %s, want %s", i, entry.NewState, want[i])
		}
	}

	// The audit sink saw the state changes, the sintys marking and the
	// report creation.
	counts := map[string]int{}
	for _, ev := range f.recorder.Events {
		counts[ev.EntityKind]++
	}
	if counts["expediente"] != len(want) {
		t.Fatalf("audit transitions = %d, want %d", counts["expediente"], len(want))
	}
	if counts["legajo_sintys"] != 1 || counts["informe_pago"] != 1 {
		t.Fatalf("audit counts: %v", counts)
	}

	// The roster export carries the paid legajo.
	raw, err := f.flow.ExportInforme(ctx, exp.ID, tecnico)
	if err != nil {
		t.Fatalf("export informe: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("empty informe export")
	}
}

func TestExportInformeRequiresReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.provincialUser(t)
	exp := f.expediente(t, user, types.StateCreado)

	if _, err := f.flow.ExportInforme(ctx, exp.ID, user); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestConfirmarEnvioBlockedByErrorRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.provincialUser(t)

	exp, err := f.flow.Create(ctx, user, "padron.xlsx")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.engine.Import(ctx, exp.ID, user, xlsx(t, importHeaders,
		beneficiaryRow("", "Ana", "40111222", "2015-02-10"),
	)); err != nil {
		t.Fatalf("import: %v", err)
	}

	err = f.flow.ConfirmarEnvio(ctx, exp.ID, user)
	if !pkgerrors.IsValidation(err) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestReviewRejectReleasesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exp, tecnico, _ := walkToRevision(t, f)

	legajos, _ := f.legajoRepo.ListByExpediente(ctx, nil, exp.ID)
	if err := f.flow.ReviewLegajo(ctx, legajos[0].ID, types.ReviewRechazado, "documentacion invalida", tecnico); err != nil {
		t.Fatalf("review: %v", err)
	}

	l, _ := f.legajoRepo.GetByID(ctx, nil, legajos[0].ID)
	if l.CupoState == types.CupoDentro || l.IsActiveTitular {
		t.Fatalf("slot not released: %+v", l)
	}
	metrics, _ := f.ledger.Metrics(ctx, nil, 1)
	if metrics.Active != 0 {
		t.Fatalf("metrics: %+v", metrics)
	}

	reviews, _ := f.reviewRepo.ListByLegajo(ctx, nil, legajos[0].ID)
	if len(reviews) != 1 || reviews[0].NewReview != types.ReviewRechazado {
		t.Fatalf("review history: %+v", reviews)
	}
}

func TestReviewSubsanarStampsRemediation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exp, tecnico, _ := walkToRevision(t, f)

	legajos, _ := f.legajoRepo.ListByExpediente(ctx, nil, exp.ID)
	if err := f.flow.ReviewLegajo(ctx, legajos[0].ID, types.ReviewSubsanar, "falta partida", tecnico); err != nil {
		t.Fatalf("review: %v", err)
	}

	l, _ := f.legajoRepo.GetByID(ctx, nil, legajos[0].ID)
	if l.TechReview != types.ReviewSubsanar || l.RemediationMotive != "falta partida" || l.RemediationAt == nil {
		t.Fatalf("remediation: %+v", l)
	}
	if l.CupoState == types.CupoDentro {
		t.Fatalf("slot not released: %+v", l)
	}
}

func TestRechazarFreesSlotsAndIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	exp, _, coordinator := walkToRevision(t, f)

	if err := f.flow.Rechazar(ctx, exp.ID, coordinator, "fuera de plazo"); err != nil {
		t.Fatalf("rechazar: %v", err)
	}
	got, _ := f.expRepo.GetByID(ctx, nil, exp.ID)
	if got.State != types.StateRechazado {
		t.Fatalf("state = %s", got.State)
	}
	metrics, _ := f.ledger.Metrics(ctx, nil, 1)
	if metrics.Active != 0 {
		t.Fatalf("metrics after rechazo: %+v", metrics)
	}

	if err := f.flow.Rechazar(ctx, exp.ID, coordinator, "de nuevo"); err == nil {
		t.Fatal("terminal expediente accepted a transition")
	}
}

func TestRolePermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	provincial := f.provincialUser(t)

	exp, err := f.flow.Create(ctx, provincial, "padron.xlsx")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// A provincial user cannot receive their own expediente.
	if err := f.flow.Recepcionar(ctx, exp.ID, provincial); !errors.Is(err, pkgerrors.ErrPermission) {
		t.Fatalf("err = %v, want ErrPermission", err)
	}

	// A technician not assigned to the expediente cannot act on it.
	stranger := testutil.SeedUser(t, f.db, types.RoleTecnico, nil)
	if _, err := f.flow.IniciarCruce(ctx, exp.ID, stranger); !errors.Is(err, pkgerrors.ErrPermission) {
		t.Fatalf("err = %v, want ErrPermission", err)
	}

	// A provincial user from another province cannot see it.
	outsider := f.chacoUser(t)
	if _, err := f.flow.Get(ctx, outsider, exp.ID); !errors.Is(err, pkgerrors.ErrPermission) {
		t.Fatalf("err = %v, want ErrPermission", err)
	}
}

func TestCreateRequiresProvince(t *testing.T) {
	f := newFixture(t)
	national := testutil.SeedUser(t, f.db, types.RoleProvincial, nil)
	if _, err := f.flow.Create(context.Background(), national, "x.xlsx"); !pkgerrors.IsValidation(err) {
		t.Fatalf("err = %v, want validation", err)
	}
}
