package httpadapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/domain"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/ports"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/core/usecase"
	"github.com/rextmaxwell/O-M-Asset-Identifier/internal/observability/metrics"
)

const serviceName = "api"

// Router serves the run API. It reads run state through the narrow RunReader
// and RunConfirmer ports rather than the full repository.
type Router struct {
	submitter ports.RunSubmitter
	runs      ports.RunReader
	confirmer ports.RunConfirmer
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(submitter ports.RunSubmitter, runs ports.RunReader, confirmer ports.RunConfirmer, m *metrics.HTTPServerMetrics) *Router {
	return &Router{
		submitter: submitter,
		runs:      runs,
		confirmer: confirmer,
		metrics:   m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/runs", rt.submitRun)
	mux.HandleFunc("/v1/runs/", rt.runSubresource)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return withRequestLogging(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitRunRequest struct {
	RegistryPath  string                   `json:"registry_path"`
	DocumentPaths []string                 `json:"document_paths"`
	Options       domain.MatchOptionsPatch `json:"options"`
}

func (rt *Router) submitRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req submitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	run, err := rt.submitter.Submit(r.Context(), req.RegistryPath, req.DocumentPaths, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordRunSubmitted(serviceName)
	}
	writeJSON(w, http.StatusAccepted, run)
}

// runSubresource dispatches /v1/runs/{id}, /v1/runs/{id}/export and
// /v1/runs/{id}/confirmations.
func (rt *Router) runSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	id, sub := rest, ""
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		id, sub = rest[:idx], rest[idx+1:]
	}
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "run id is required"})
		return
	}

	switch sub {
	case "":
		rt.getRun(w, r, id)
	case "export":
		rt.exportRun(w, r, id)
	case "confirmations":
		rt.appendConfirmations(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (rt *Router) getRun(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	run, err := rt.runs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (rt *Router) exportRun(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "format must be csv or xlsx"})
		return
	}

	run, err := rt.runs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if run.Status != domain.RunDone {
		writeJSON(w, http.StatusConflict, map[string]string{"error": fmt.Sprintf("run is %s, not done", run.Status)})
		return
	}

	rows := usecase.ExportRows(run.Results)
	if rt.metrics != nil {
		rt.metrics.RecordExport(serviceName, format)
	}

	switch format {
	case "xlsx":
		data, err := usecase.BuildXLSX(rows)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "matches-"+id+".xlsx"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	default:
		var buf bytes.Buffer
		if err := usecase.WriteCSV(&buf, rows); err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "matches-"+id+".csv"))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	}
}

type confirmationRequest struct {
	Confirmations []struct {
		FilePath  string `json:"file_path"`
		AssetID   string `json:"asset_id"`
		DecidedBy string `json:"decided_by"`
	} `json:"confirmations"`
}

func (rt *Router) appendConfirmations(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req confirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if len(req.Confirmations) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "at least one confirmation is required"})
		return
	}

	now := time.Now().UTC()
	entries := make([]domain.Confirmation, 0, len(req.Confirmations))
	for _, c := range req.Confirmations {
		if c.FilePath == "" || c.AssetID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file_path and asset_id are required"})
			return
		}
		entries = append(entries, domain.Confirmation{
			FilePath:  c.FilePath,
			AssetID:   c.AssetID,
			DecidedBy: c.DecidedBy,
			DecidedAt: now,
		})
	}

	log, err := rt.confirmer.AppendConfirmations(r.Context(), id, entries)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordConfirmations(serviceName, len(entries))
	}
	writeJSON(w, http.StatusOK, map[string]any{"confirmations": log})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
