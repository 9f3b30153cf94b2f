package services

import (
	"context"
	"testing"

	types "github.com/minsocial/celiaquia-backend/internal/domain"
)

func TestSintysExportIngestRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.provincialUser(t)
	exp := f.expediente(t, user, types.StateCreado)

	if _, err := f.engine.Import(ctx, exp.ID, user, xlsx(t, importHeaders,
		beneficiaryRow("Gomez", "Ana", "40111222", "2015-02-10"),
		beneficiaryRow("Ruiz", "Leo", "40111223", "2014-03-01"),
	)); err != nil {
		t.Fatalf("import: %v", err)
	}

	roster, err := f.sintys.Export(ctx, nil, exp.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	summary, err := f.sintys.Ingest(ctx, nil, exp.ID, readerOf(roster), user.ID)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if summary.Matched != 2 || summary.Unmatched != 0 {
		t.Fatalf("summary: %+v", summary)
	}

	legajos, _ := f.legajoRepo.ListByExpediente(ctx, nil, exp.ID)
	for _, l := range legajos {
		if l.SintysResult != types.SintysMatch {
			t.Fatalf("legajo %s: %s", l.ID, l.SintysResult)
		}
	}

	// Re-ingesting the same file changes nothing.
	again, err := f.sintys.Ingest(ctx, nil, exp.ID, readerOf(roster), user.ID)
	if err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	if again.Matched != 2 {
		t.Fatalf("re-ingest summary: %+v", again)
	}
}

func TestSintysIngestPartialMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.provincialUser(t)
	exp := f.expediente(t, user, types.StateCreado)

	if _, err := f.engine.Import(ctx, exp.ID, user, xlsx(t, importHeaders,
		beneficiaryRow("Gomez", "Ana", "40111222", "2015-02-10"),
		beneficiaryRow("Ruiz", "Leo", "40111223", "2014-03-01"),
	)); err != nil {
		t.Fatalf("import: %v", err)
	}

	// The office answers with a CUIT for the first person only.
	returned := xlsx(t, []string{"Documento"}, []interface{}{"27401112224"})
	summary, err := f.sintys.Ingest(ctx, nil, exp.ID, returned, user.ID)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if summary.Matched != 1 || summary.Unmatched != 1 {
		t.Fatalf("summary: %+v", summary)
	}

	matchedCitizen, _ := f.citizenRepo.GetByDocument(ctx, nil, types.DocumentDNI, 40111222)
	l, _ := f.legajoRepo.GetByExpedienteAndCitizen(ctx, nil, exp.ID, matchedCitizen.ID)
	if l.SintysResult != types.SintysMatch {
		t.Fatalf("CUIT did not match embedded DNI: %s", l.SintysResult)
	}
}
