package validation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"tenant-validation/internal/shared/server/middleware"
)

func newHandlerRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api/v1")
	api.Use(middleware.Auth(nil, "dev"))
	NewHandler(f.svc).RegisterRoutes(api)
	return r, f
}

func do(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Actor-Id", "admin-7")
	req.Header.Set("X-Request-Id", "req-1")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

type procesoEnvelope struct {
	OK        bool    `json:"ok"`
	Resultado Proceso `json:"resultado"`
}

func TestHandlerRunCategory(t *testing.T) {
	r, f := newHandlerRouter(t)
	f.uploadComplete()

	resp := do(t, r, http.MethodPost, "/api/v1/owners/owner-1/validations/face/run", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var env procesoEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.OK || env.Resultado.Proceso != "face" || env.Resultado.Estado != "OK" || env.Resultado.Resumen == "" {
		t.Fatalf("unexpected response %+v", env)
	}

	rec, err := f.repo.Get(context.Background(), "owner-1", CategoryFace)
	if err != nil {
		t.Fatalf("stored record: %v", err)
	}
	if rec.UpdatedBy != "admin-7" {
		t.Fatalf("expected actor from header, got %q", rec.UpdatedBy)
	}
}

func TestHandlerManualCategory(t *testing.T) {
	r, _ := newHandlerRouter(t)

	resp := do(t, r, http.MethodPost, "/api/v1/owners/owner-1/validations/legal_search", `{"searched":true,"hits":1}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var env procesoEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Resultado.Estado != "FAIL" {
		t.Fatalf("expected FAIL, got %+v", env.Resultado)
	}

	resp = do(t, r, http.MethodPost, "/api/v1/owners/owner-1/validations/legal_search", `{"unknown":true}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad payload, got %d", resp.Code)
	}
}

func TestHandlerErrors(t *testing.T) {
	r, _ := newHandlerRouter(t)
	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"unknown category", http.MethodPost, "/api/v1/owners/owner-1/validations/credit/run", http.StatusBadRequest},
		{"manual via run", http.MethodPost, "/api/v1/owners/owner-1/validations/deposit/run", http.StatusBadRequest},
		{"unknown owner", http.MethodPost, "/api/v1/owners/ghost/validations/files/run", http.StatusNotFound},
		{"bad only", http.MethodPost, "/api/v1/validations/resumen_full?only=nope", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, r, tt.method, tt.path, "")
			if resp.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, resp.Code, resp.Body.String())
			}
			var body struct {
				OK      bool   `json:"ok"`
				Mensaje string `json:"mensaje"`
			}
			if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.OK || body.Mensaje == "" {
				t.Fatalf("expected error envelope, got %s", resp.Body.String())
			}
		})
	}
}

func TestHandlerRunAllAndStatus(t *testing.T) {
	r, f := newHandlerRouter(t)
	f.uploadComplete()

	resp := do(t, r, http.MethodPost, "/api/v1/owners/owner-1/validations/run", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var all struct {
		Resultado struct {
			Procesos []Proceso `json:"procesos"`
			Estado   string    `json:"estado"`
		} `json:"resultado"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all.Resultado.Procesos) != 5 || all.Resultado.Estado != "PENDING" {
		t.Fatalf("unexpected run-all result %+v", all.Resultado)
	}

	resp = do(t, r, http.MethodGet, "/api/v1/owners/owner-1/validations/status", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var status struct {
		Resultado GlobalStatus `json:"resultado"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Resultado.Categorias["income"] != "OK" || status.Resultado.Categorias["deposit"] != "PENDING" {
		t.Fatalf("unexpected status %+v", status.Resultado)
	}
}

func TestHandlerEnqueue(t *testing.T) {
	r, f := newHandlerRouter(t)
	resp := do(t, r, http.MethodPost, "/api/v1/owners/owner-1/validations/enqueue", "")
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		OK        bool   `json:"ok"`
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.OK || body.RequestID != "req-1" {
		t.Fatalf("unexpected body %+v", body)
	}
	if len(f.queue.sent) != 1 || f.queue.sent[0].ActorID != "admin-7" {
		t.Fatalf("unexpected messages %+v", f.queue.sent)
	}
}

func TestHandlerResummarizeDryRun(t *testing.T) {
	r, f := newHandlerRouter(t)
	seedStale(t, f.repo, "owner-1", CategoryLegalSearch, `{"searched":true}`, VerdictFail, "viejo")

	resp := do(t, r, http.MethodPost, "/api/v1/owners/owner-1/validations/resumen_full?only=legal_search&dry=1", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Resultado ResummarizeReport `json:"resultado"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Resultado.DryRun || body.Resultado.Changed != 1 {
		t.Fatalf("unexpected report %+v", body.Resultado)
	}
	rec, _ := f.repo.Get(context.Background(), "owner-1", CategoryLegalSearch)
	if rec.Verdict != VerdictFail {
		t.Fatalf("dry run wrote a record")
	}
}
