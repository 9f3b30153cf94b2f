package services

import (
	"bytes"
	"testing"

	"gorm.io/gorm"

	"github.com/minsocial/celiaquia-backend/internal/clients/audit"
	"github.com/minsocial/celiaquia-backend/internal/config"
	"github.com/minsocial/celiaquia-backend/internal/data/repos"
	"github.com/minsocial/celiaquia-backend/internal/data/repos/testutil"
	types "github.com/minsocial/celiaquia-backend/internal/domain"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
	"github.com/minsocial/celiaquia-backend/internal/sheet"
)

// fixture wires the full service graph over an isolated in-memory database.
type fixture struct {
	db       *gorm.DB
	catalog  *types.Catalog
	recorder *audit.Recorder
	testLog  *logger.Logger

	citizenRepo repos.CitizenRepo
	relRepo     repos.FamilyRelationRepo
	expRepo     repos.ExpedienteRepo
	legajoRepo  repos.LegajoRepo
	errorRepo   repos.ErrorRowRepo
	historyRepo repos.ExpedienteHistoryRepo
	reviewRepo  repos.ReviewHistoryRepo
	informeRepo repos.InformePagoRepo
	cupoRepo    repos.CupoRepo
	userRepo    repos.UserRepo

	resolver CitizenResolver
	linker   FamilyLinker
	ledger   CupoLedger
	engine   ImportEngine
	sintys   SintysCrossReferencer
	flow     ExpedienteFlow
	hook     AuditHook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.SQLiteDB(t)
	log := testutil.Logger(t)
	catalog := testutil.SeedReference(t, gdb)

	f := &fixture{
		db:          gdb,
		catalog:     catalog,
		recorder:    &audit.Recorder{},
		testLog:     log,
		citizenRepo: repos.NewCitizenRepo(gdb, log),
		relRepo:     repos.NewFamilyRelationRepo(gdb, log),
		expRepo:     repos.NewExpedienteRepo(gdb, log),
		legajoRepo:  repos.NewLegajoRepo(gdb, log),
		errorRepo:   repos.NewErrorRowRepo(gdb, log),
		historyRepo: repos.NewExpedienteHistoryRepo(gdb, log),
		reviewRepo:  repos.NewReviewHistoryRepo(gdb, log),
		informeRepo: repos.NewInformePagoRepo(gdb, log),
		cupoRepo:    repos.NewCupoRepo(gdb, log),
		userRepo:    repos.NewUserRepo(gdb, log),
	}

	programa := config.Programa{MinCaregiverAge: 14}

	f.hook = NewAuditHook(log, f.recorder)
	f.resolver = NewCitizenResolver(gdb, log, f.citizenRepo, catalog)
	f.linker = NewFamilyLinker(gdb, log, f.relRepo, f.citizenRepo, f.legajoRepo)
	f.ledger = NewCupoLedger(gdb, log, f.cupoRepo, f.legajoRepo, f.hook)
	f.engine = NewImportEngine(gdb, log, programa, catalog, f.resolver, f.linker,
		f.citizenRepo, f.expRepo, f.legajoRepo, f.errorRepo, f.historyRepo, f.hook)
	f.sintys = NewSintysCrossReferencer(gdb, log, catalog, f.legajoRepo, f.citizenRepo, f.hook)
	f.flow = NewExpedienteFlow(gdb, log, f.expRepo, f.legajoRepo, f.citizenRepo, f.errorRepo,
		f.historyRepo, f.reviewRepo, f.informeRepo, f.userRepo, f.ledger, f.sintys, f.hook)
	return f
}

func readerOf(raw []byte) *bytes.Reader { return bytes.NewReader(raw) }

// xlsx renders an in-memory spreadsheet for import tests.
func xlsx(t *testing.T, headers []string, rows ...[]interface{}) *bytes.Reader {
	t.Helper()
	raw, err := sheet.Write("Padron", headers, rows)
	if err != nil {
		t.Fatalf("build spreadsheet: %v", err)
	}
	return bytes.NewReader(raw)
}

var importHeaders = []string{
	"Apellido", "Nombre", "Documento", "Fecha Nacimiento", "Sexo",
	"Provincia", "Municipio", "Localidad",
	"Apellido Responsable", "Nombre Responsable", "Documento Responsable",
	"Fecha Nacimiento Responsable",
}

func beneficiaryRow(surname, name, doc, birth string) []interface{} {
	return []interface{}{surname, name, doc, birth, "F", "Buenos Aires", "La Plata", "La Plata Centro", "", "", "", ""}
}

func (f *fixture) provincialUser(t *testing.T) *types.User {
	t.Helper()
	return testutil.SeedUser(t, f.db, types.RoleProvincial, testutil.Uint(1))
}

func (f *fixture) chacoUser(t *testing.T) *types.User {
	t.Helper()
	return testutil.SeedUser(t, f.db, types.RoleProvincial, testutil.Uint(2))
}

func (f *fixture) expediente(t *testing.T, user *types.User, state types.ExpedienteState) *types.Expediente {
	t.Helper()
	return testutil.SeedExpediente(t, f.db, 1, user.ID, state)
}
