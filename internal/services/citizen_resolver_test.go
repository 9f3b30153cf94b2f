package services

import (
	"context"
	"testing"

	types "github.com/minsocial/celiaquia-backend/internal/domain"
	pkgerrors "github.com/minsocial/celiaquia-backend/internal/pkg/errors"
)

func TestResolveCreatesNormalizedCitizen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.resolver.ResolveOrCreate(ctx, nil, RawCitizen{
		DocumentKind: "dni",
		Document:     "40.111.222",
		Surname:      "  Gomez  ",
		GivenName:    "Ana   Maria",
		BirthDate:    "10/02/2015",
		Sex:          "F",
		Nationality:  "argentina",
		Province:     "buenos aires",
		Municipality: "La Plata",
		Locality:     "la plata centro",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if c.DocumentKind != types.DocumentDNI || c.DocumentNumber != 40111222 {
		t.Fatalf("document: %+v", c)
	}
	if c.Surname != "Gomez" || c.GivenName != "Ana Maria" {
		t.Fatalf("names not normalized: %+v", c)
	}
	if c.BirthDate == nil || c.BirthDate.Format("2006-01-02") != "2015-02-10" {
		t.Fatalf("birth date: %v", c.BirthDate)
	}
	if c.SexID == nil || *c.SexID != 2 {
		t.Fatalf("sex: %v", c.SexID)
	}
	if c.LocalityID == nil || *c.LocalityID != 100 {
		t.Fatalf("locality: %v", c.LocalityID)
	}
}

func TestResolveFillsOnlyEmptyFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.resolver.ResolveOrCreate(ctx, nil, RawCitizen{
		Document: "40111222", Surname: "Gomez", GivenName: "Ana",
	})
	if err != nil {
		t.Fatalf("first: %v", err)
	}

	second, err := f.resolver.ResolveOrCreate(ctx, nil, RawCitizen{
		Document: "40111222", Surname: "GOMEZ CAMBIADO", GivenName: "Ana",
		BirthDate: "2015-02-10",
	})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("resolver created a duplicate")
	}
	if second.Surname != "Gomez" {
		t.Fatalf("populated surname overwritten: %q", second.Surname)
	}
	if second.BirthDate == nil {
		t.Fatal("empty birth date not filled")
	}
}

func TestResolveDocumentKindDefaultsAndAliases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cuil, err := f.resolver.ResolveOrCreate(ctx, nil, RawCitizen{
		DocumentKind: "cuil", Document: "27401112224", Surname: "Gomez", GivenName: "Ana",
	})
	if err != nil {
		t.Fatalf("cuil: %v", err)
	}
	if cuil.DocumentKind != types.DocumentCUIT {
		t.Fatalf("kind = %s", cuil.DocumentKind)
	}

	if _, err := f.resolver.ResolveOrCreate(ctx, nil, RawCitizen{
		DocumentKind: "cedula", Document: "123", Surname: "X", GivenName: "Y",
	}); !pkgerrors.IsValidation(err) {
		t.Fatalf("unknown kind err = %v", err)
	}
}

func TestResolveRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		raw  RawCitizen
	}{
		{"missing document", RawCitizen{Surname: "Gomez", GivenName: "Ana"}},
		{"non-digit document", RawCitizen{Document: "abc", Surname: "Gomez", GivenName: "Ana"}},
		{"bad date", RawCitizen{Document: "40111222", BirthDate: "02-31-x", Surname: "Gomez", GivenName: "Ana"}},
		{"unknown sex", RawCitizen{Document: "40111222", Sex: "desconocido", Surname: "Gomez", GivenName: "Ana"}},
		{"municipality in wrong province", RawCitizen{Document: "40111222", Province: "Chaco", Municipality: "La Plata", Surname: "Gomez", GivenName: "Ana"}},
	}
	for _, tc := range cases {
		if _, err := f.resolver.ResolveOrCreate(ctx, nil, tc.raw); !pkgerrors.IsValidation(err) {
			t.Fatalf("%s: err = %v, want validation", tc.name, err)
		}
	}
}
