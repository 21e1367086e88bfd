package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"stackforge/internal/artifactstore"
	"stackforge/internal/contract"
	"stackforge/internal/events"
	"stackforge/internal/gateway/middleware"
	"stackforge/internal/pipeline"
	"stackforge/internal/session"
)

// Handler carries the service dependencies for all HTTP endpoints.
type Handler struct {
	Pipeline  *pipeline.Pipeline
	Sessions  *session.Store
	Events    *events.Channel
	Artifacts artifactstore.Store
	Registry  *contract.Registry
	Logger    *log.Logger
}

// Routes builds the service mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /v1/generate", h.generate)
	mux.HandleFunc("GET /v1/runs", h.listRuns)
	mux.HandleFunc("GET /v1/runs/{id}", h.runStatus)
	mux.HandleFunc("GET /v1/runs/{id}/stream", h.streamRun)
	mux.HandleFunc("GET /v1/runs/{id}/files/{path...}", h.runFile)
	mux.HandleFunc("GET /v1/contracts", h.contracts)
	mux.HandleFunc("GET /v1/events/stats", h.eventStats)
	return middleware.CORS(mux)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"runs": h.Sessions.List()})
}

func (h *Handler) runStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := h.Sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown run")
		return
	}

	resp := map[string]any{"run": run}
	if out, ok := h.Sessions.Output(id); ok {
		resp["report"] = out.Report
		resp["file_counts"] = out.FileCounts
		resp["correlation_id"] = out.CorrelationID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) runFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	path := r.PathValue("path")

	run, err := h.Sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown run")
		return
	}
	data, err := h.Artifacts.Get(r.Context(), run.ProjectID, path)
	if errors.Is(err, artifactstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no such file")
		return
	}
	if err != nil {
		h.Logger.Printf("handler: fetch artifact %s/%s: %v", run.ProjectID, path, err)
		writeError(w, http.StatusInternalServerError, "artifact fetch failed")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(data)
}

func (h *Handler) contracts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"features":    h.Registry.Features(),
		"endpoints":   h.Registry.AllEndpoints(),
		"models":      h.Registry.AllModels(),
		"consistency": h.Registry.ValidateConsistency(),
	})
}

func (h *Handler) eventStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Events.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("handler: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
