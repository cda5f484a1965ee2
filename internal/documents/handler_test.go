package documents

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func multipartBody(t *testing.T, typeTag, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if typeTag != "" {
		if err := w.WriteField("type", typeTag); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	fw, err := w.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func TestHandlerUploadAndList(t *testing.T) {
	router := newTestRouter(t)

	body, ct := multipartBody(t, "INE Frontal", "ine.jpg", "jpeg bytes")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/owners/o-9/documents", body)
	req.Header.Set("Content-Type", ct)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created struct {
		OK        bool     `json:"ok"`
		Resultado Document `json:"resultado"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !created.OK || created.Resultado.Role != RoleIDFront {
		t.Fatalf("unexpected response %+v", created)
	}

	listResp := httptest.NewRecorder()
	router.ServeHTTP(listResp, httptest.NewRequest(http.MethodGet, "/api/v1/owners/o-9/documents", nil))
	if listResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", listResp.Code)
	}
	var listed struct {
		OK        bool `json:"ok"`
		Resultado struct {
			Documentos []Document `json:"documentos"`
		} `json:"resultado"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Resultado.Documentos) != 1 || listed.Resultado.Documentos[0].FileName != "ine.jpg" {
		t.Fatalf("unexpected list %+v", listed)
	}
}

func TestHandlerUploadRequiresType(t *testing.T) {
	router := newTestRouter(t)
	body, ct := multipartBody(t, "", "a.jpg", "x")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/owners/o-1/documents", body)
	req.Header.Set("Content-Type", ct)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var payload struct {
		OK      bool   `json:"ok"`
		Mensaje string `json:"mensaje"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload.OK || payload.Mensaje == "" {
		t.Fatalf("unexpected error payload %+v", payload)
	}
}
