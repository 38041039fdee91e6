package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/RodrigoLima82/databricks-assessment-tool/internal/report"
	"github.com/RodrigoLima82/databricks-assessment-tool/internal/run"
)

// LastRequestLoader reads back the persisted execution request.
type LastRequestLoader interface {
	LoadLast() (run.Request, bool, error)
}

// Handler serves the REST API surface: run control, status, and report
// retrieval.
type Handler struct {
	svc         *run.Service
	store       report.Store
	last        LastRequestLoader
	resultNames []string
}

// NewHandler wires the API handler. resultNames lists the report
// artifacts a full run can produce, in pipeline order.
func NewHandler(svc *run.Service, store report.Store, last LastRequestLoader, resultNames []string) *Handler {
	return &Handler{svc: svc, store: store, last: last, resultNames: resultNames}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// HandleExecute starts an assessment run.
// POST /api/execute
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req run.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	sessionID, err := h.svc.Start(req)
	switch {
	case errors.Is(err, run.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, run.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Printf("execute failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to start run")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"sessionId": sessionID})
}

// HandleStop requests cancellation of the active run. Always succeeds;
// stopping an idle service is a no-op.
// POST /api/stop
func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.svc.Stop()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleStatus reports the current session snapshot.
// GET /api/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	snap, ok := h.svc.Snapshot()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"state": run.StateIdle})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleResults lists report artifacts, derived purely from storage so it
// reflects partial runs and survives restarts.
// GET /api/results
func (h *Handler) HandleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	entries, err := report.Listing(r.Context(), h.store, h.resultNames)
	if err != nil {
		log.Printf("results listing failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": entries})
}

// HandleReport serves one report artifact as markdown.
// GET /api/reports/{name}
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/reports/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusBadRequest, "report name is required")
		return
	}
	data, err := h.store.Get(r.Context(), name)
	if errors.Is(err, report.ErrNotFound) {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		log.Printf("report %s read failed: %v", name, err)
		writeError(w, http.StatusInternalServerError, "failed to read report")
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write(data)
}

// HandleLastRequest returns the request of the most recent run, so the
// client can pre-fill its form after a restart.
// GET /api/config/last
func (h *Handler) HandleLastRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.last == nil {
		writeJSON(w, http.StatusOK, map[string]any{"found": false})
		return
	}
	req, ok, err := h.last.LoadLast()
	if err != nil {
		log.Printf("last request load failed: %v", err)
		writeJSON(w, http.StatusOK, map[string]any{"found": false})
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"found": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"found": true, "request": req})
}
