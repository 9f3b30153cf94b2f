package renaper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minsocial/celiaquia-backend/internal/config"
	pkgerrors "github.com/minsocial/celiaquia-backend/internal/pkg/errors"
	"github.com/minsocial/celiaquia-backend/internal/pkg/logger"
)

type fakeRegistry struct {
	logins  atomic.Int64
	queries atomic.Int64

	// expireIssued makes every issued token immediately invalid, so the
	// first query after login comes back 401.
	expireIssued atomic.Bool
	queryStatus  atomic.Int64

	validToken string
}

func (f *fakeRegistry) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.logins.Add(1)
		token := fmt.Sprintf("tok-%d", f.logins.Load())
		if !f.expireIssued.Load() {
			f.validToken = token
		}
		json.NewEncoder(w).Encode(map[string]string{
			"token":      token,
			"expiration": time.Now().Add(time.Hour).Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/consultarenaper", func(w http.ResponseWriter, r *http.Request) {
		f.queries.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+f.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if s := f.queryStatus.Load(); s != 0 {
			w.WriteHeader(int(s))
			return
		}
		dni := r.URL.Query().Get("dni")
		switch dni {
		case "40111222":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"isSuccess": true,
				"result": map[string]interface{}{
					"apellido":        "GOMEZ",
					"nombres":         "ANA MARIA",
					"fechaNacimiento": "2015-02-10",
					"domicilio":       "CALLE 7 123",
				},
			})
		case "90999888":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"isSuccess": false,
				"result": map[string]interface{}{
					"apellido": "PEREZ",
					"mensaf":   "FALLECIDO",
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{"isSuccess": false})
		}
	})
	return mux
}

func newTestClient(t *testing.T, reg *fakeRegistry) (Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(reg.handler())
	t.Cleanup(srv.Close)

	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	c, err := NewClient(config.Renaper{
		BaseURL:     srv.URL,
		Username:    "svc",
		Password:    "secret",
		TokenMargin: time.Minute,
	}, log)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c, srv
}

func TestQueryCachesToken(t *testing.T) {
	reg := &fakeRegistry{}
	c, _ := newTestClient(t, reg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := c.Query(ctx, "40111222", "F")
		if err != nil {
			t.Fatalf("query %d: %v", i, err)
		}
		if !p.Success || p.Surname != "GOMEZ" || p.Names != "ANA MARIA" {
			t.Fatalf("person: %+v", p)
		}
	}
	if n := reg.logins.Load(); n != 1 {
		t.Fatalf("logins = %d, want 1", n)
	}
}

func TestQueryReloginsOnceOn401(t *testing.T) {
	reg := &fakeRegistry{}
	c, _ := newTestClient(t, reg)
	ctx := context.Background()

	if _, err := c.Query(ctx, "40111222", "F"); err != nil {
		t.Fatalf("warmup: %v", err)
	}

	// Invalidate the cached bearer server-side.
	reg.validToken = "revoked"
	p, err := c.Query(ctx, "40111222", "F")
	if err != nil {
		t.Fatalf("query after revocation: %v", err)
	}
	if !p.Success {
		t.Fatalf("person: %+v", p)
	}
	if n := reg.logins.Load(); n != 2 {
		t.Fatalf("logins = %d, want 2", n)
	}
}

func TestQueryGivesUpWhenCredentialsRejected(t *testing.T) {
	reg := &fakeRegistry{}
	reg.expireIssued.Store(true)
	reg.validToken = "never"
	c, _ := newTestClient(t, reg)

	_, err := c.Query(context.Background(), "40111222", "F")
	if !errors.Is(err, pkgerrors.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestQueryDeceased(t *testing.T) {
	reg := &fakeRegistry{}
	c, _ := newTestClient(t, reg)

	p, err := c.Query(context.Background(), "90999888", "M")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if p.Success || !p.Fallecido || p.Surname != "PEREZ" {
		t.Fatalf("person: %+v", p)
	}
}

func TestQueryNoMatch(t *testing.T) {
	reg := &fakeRegistry{}
	c, _ := newTestClient(t, reg)

	p, err := c.Query(context.Background(), "1", "M")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if p.Success || p.Fallecido {
		t.Fatalf("person: %+v", p)
	}
}

func TestQueryServerErrorIsUnavailable(t *testing.T) {
	reg := &fakeRegistry{}
	reg.queryStatus.Store(http.StatusBadGateway)
	c, _ := newTestClient(t, reg)

	_, err := c.Query(context.Background(), "40111222", "F")
	if !errors.Is(err, pkgerrors.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
