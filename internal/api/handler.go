package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/pulsar-rules/pulsar/internal/compiler"
	"github.com/pulsar-rules/pulsar/internal/domain"
	"github.com/pulsar-rules/pulsar/internal/sensorstore"
)

// Handler implements the compiler service's HTTP endpoints: trigger a
// compilation, fetch the manifest it produced, and health/ready probes.
type Handler struct {
	catalog          *domain.SensorCatalog
	defaultGroupSize int
	store            domain.SensorStore // optional; used only for the health probe
	version          string

	mu       sync.RWMutex
	lastUnit *compiler.Result
}

// NewHandler builds a Handler serving compilations against catalog.
func NewHandler(catalog *domain.SensorCatalog, defaultGroupSize int, store domain.SensorStore, version string) *Handler {
	return &Handler{catalog: catalog, defaultGroupSize: defaultGroupSize, store: store, version: version}
}

// compileRequest is the POST /compile body.
type compileRequest struct {
	RulesYAML  string `json:"rulesYaml"`
	SourceName string `json:"sourceName"`
	GroupSize  int    `json:"groupSize"`
}

// Compile parses and compiles a rules document, returning its manifest.
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body: " + err.Error()})
		return
	}
	if req.RulesYAML == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rulesYaml is required"})
		return
	}
	sourceName := req.SourceName
	if sourceName == "" {
		sourceName = "request"
	}
	groupSize := req.GroupSize
	if groupSize <= 0 {
		groupSize = h.defaultGroupSize
	}

	result, err := compiler.Compile([]byte(req.RulesYAML), h.catalog, sourceName, groupSize)
	if err != nil {
		status, body := errorResponse(err)
		slog.Warn("compile request failed", "error", err, "request_id", GetRequestID(r.Context()))
		writeJSON(w, status, body)
		return
	}

	h.mu.Lock()
	h.lastUnit = result
	h.mu.Unlock()

	slog.Info("compile request succeeded",
		"rule_count", len(result.Rules),
		"file_count", len(result.Unit.Files),
		"request_id", GetRequestID(r.Context()),
	)
	writeJSON(w, http.StatusOK, result.Unit.Manifest)
}

// Manifest returns the most recently produced manifest.
func (h *Handler) Manifest(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	result := h.lastUnit
	h.mu.RUnlock()

	if result == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no compilation has been performed yet"})
		return
	}
	writeJSON(w, http.StatusOK, result.Unit.Manifest)
}

// Health reports whether the configured SensorStore is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	code := http.StatusOK
	if pinger, ok := h.store.(sensorstore.PingCloser); ok {
		if err := pinger.Ping(r.Context()); err != nil {
			status = "unhealthy: " + err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]string{"status": status, "version": h.version})
}

// Ready reports whether the server can accept compile requests.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ready := "true"
	if h.catalog == nil || h.catalog.Len() == 0 {
		ready = "false"
	}
	status := http.StatusOK
	if ready == "false" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"ready": ready})
}

func errorResponse(err error) (int, map[string]string) {
	var catalogErr *domain.CatalogError
	var parseErr *domain.ParseError
	var exprErr *domain.ExpressionError
	var cycleErr *domain.CycleError
	var conflictErr *domain.ConflictError
	var ioErr *domain.IoError

	switch {
	case errors.As(err, &catalogErr), errors.As(err, &parseErr), errors.As(err, &exprErr),
		errors.As(err, &cycleErr), errors.As(err, &conflictErr):
		return http.StatusBadRequest, map[string]string{"error": err.Error()}
	case errors.As(err, &ioErr):
		return http.StatusInternalServerError, map[string]string{"error": err.Error()}
	default:
		return http.StatusInternalServerError, map[string]string{"error": err.Error()}
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
