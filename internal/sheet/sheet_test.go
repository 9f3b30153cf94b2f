package sheet

import (
	"bytes"
	"testing"
)

func TestNormalizeHeader(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Apellido", "apellido"},
		{"  Fecha Nacimiento ", "fecha_nacimiento"},
		{"Código Postal", "codigo_postal"},
		{"NÚMERO", "numero"},
		{"Tipo-Documento", "tipo_documento"},
		{"N° Documento", "n_documento"},
		{"apellido/nombre", "apellido_nombre"},
	}
	for _, tc := range cases {
		if got := NormalizeHeader(tc.in); got != tc.want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalField(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Apellido", FieldSurname, true},
		{"DNI", FieldDocument, true},
		{"Nro Documento", FieldDocument, true},
		{"Fecha de Nacimiento", FieldBirthDate, true},
		{"Género", FieldSex, true},
		{"Partido", FieldMunicipality, true},
		{"DNI Responsable", FieldRespDocument, true},
		{"Columna Misteriosa", "", false},
	}
	for _, tc := range cases {
		got, ok := CanonicalField(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("CanonicalField(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	raw, err := Write("Padron",
		[]string{"Apellido", "Nombre", "Documento", "Columna Extra"},
		[][]interface{}{
			{"Gomez", "Ana", "40111222", "ignorada"},
			{"", "", "", ""},
			{"Diaz", "Luis", "30111222", ""},
		})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	rows, err := Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (blank row skipped)", len(rows))
	}
	if rows[0].Number != 2 || rows[1].Number != 4 {
		t.Fatalf("row numbers = %d, %d", rows[0].Number, rows[1].Number)
	}
	if rows[0].Get(FieldSurname) != "Gomez" || rows[0].Get(FieldDocument) != "40111222" {
		t.Fatalf("row 2 cells: %v", rows[0].Cells)
	}
	if _, ok := rows[0].Cells["columna_extra"]; ok {
		t.Fatal("unknown column leaked into cells")
	}
	if !rows[1].Has(FieldGivenName) || rows[1].Get(FieldGivenName) != "Luis" {
		t.Fatalf("row 4 cells: %v", rows[1].Cells)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse(bytes.NewReader([]byte("not a spreadsheet"))); err == nil {
		t.Fatal("expected an error for a non-xlsx payload")
	}
}

func TestTemplateHasCanonicalColumns(t *testing.T) {
	raw, err := Template()
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	rows, err := Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parse template: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("template should have no data rows, got %d", len(rows))
	}
	for _, h := range TemplateHeaders {
		if _, ok := CanonicalField(h); !ok {
			t.Errorf("template header %q resolves to no field", h)
		}
	}
}
