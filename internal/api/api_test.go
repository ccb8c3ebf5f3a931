package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pulsar-rules/pulsar/internal/domain"
)

func testCatalog() *domain.SensorCatalog {
	return domain.NewSensorCatalog([]string{"temperature", "alert"})
}

func testServer() *Server {
	return NewServer(DefaultServerConfig(), testCatalog(), 8, nil, "test-v1")
}

const validRules = `
rules:
  - name: HighTemp
    conditions:
      all:
        - condition:
            type: comparison
            sensor: temperature
            op: ">"
            value: 100
    actions:
      - set_value:
          key: alert
          value: 1
`

func TestHealthAndReady(t *testing.T) {
	server := testServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 from /health, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/ready", nil)
	rr = httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 from /ready with a populated catalog, got %d", rr.Code)
	}
}

func TestReadyEmptyCatalog(t *testing.T) {
	server := NewServer(DefaultServerConfig(), domain.NewSensorCatalog(nil), 8, nil, "test-v1")

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 from /ready with an empty catalog, got %d", rr.Code)
	}
}

func TestCompileAndManifest(t *testing.T) {
	server := testServer()

	reqBody := compileRequest{RulesYAML: validRules, SourceName: "rules.yaml"}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/compile", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /compile, got %d: %s", rr.Code, rr.Body.String())
	}

	var manifest domain.Manifest
	if err := json.Unmarshal(rr.Body.Bytes(), &manifest); err != nil {
		t.Fatalf("failed to decode manifest: %v", err)
	}
	if len(manifest.Rules) != 1 {
		t.Errorf("expected 1 rule in manifest, got %d", len(manifest.Rules))
	}

	req = httptest.NewRequest(http.MethodGet, "/manifest", nil)
	rr = httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /manifest after a compile, got %d", rr.Code)
	}
}

func TestManifestBeforeCompile(t *testing.T) {
	server := testServer()

	req := httptest.NewRequest(http.MethodGet, "/manifest", nil)
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 from /manifest before any compile, got %d", rr.Code)
	}
}

func TestCompileInvalidRules(t *testing.T) {
	server := testServer()

	reqBody := compileRequest{RulesYAML: "not: [valid", SourceName: "rules.yaml"}
	body, _ := json.Marshal(reqBody)

	req := httptest.NewRequest(http.MethodPost, "/compile", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 from /compile with malformed rules, got %d", rr.Code)
	}
}

func TestCompileMissingBody(t *testing.T) {
	server := testServer()

	req := httptest.NewRequest(http.MethodPost, "/compile", bytes.NewBuffer([]byte(`{}`)))
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 from /compile with an empty rulesYaml, got %d", rr.Code)
	}
}
