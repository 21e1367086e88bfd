package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"stackforge/internal/events"
	"stackforge/internal/pipeline"
)

type generateRequest struct {
	ProjectID string   `json:"project_id"`
	Features  []string `json:"features"`
}

// generate accepts a job, runs the pipeline on a background goroutine and
// returns 202 with the run id immediately. Progress is available via the
// status and stream endpoints.
func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var features []string
	for _, f := range req.Features {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	if len(features) == 0 {
		writeError(w, http.StatusBadRequest, "features required")
		return
	}

	runID := events.NewID()
	correlationID := events.NewID()
	if req.ProjectID == "" {
		req.ProjectID = "project-" + runID
	}
	h.Sessions.Create(runID, req.ProjectID, features)
	h.Sessions.SetCorrelation(runID, correlationID)

	go func() {
		// The run outlives the HTTP request; detach from its context.
		out, err := h.Pipeline.Run(context.Background(), pipeline.Request{
			ProjectID:     req.ProjectID,
			Features:      features,
			CorrelationID: correlationID,
		})
		if err != nil {
			h.Logger.Printf("run %s failed: %v", runID, err)
			h.Sessions.Fail(runID, &out, err)
			return
		}
		h.Sessions.Complete(runID, &out)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id":     runID,
		"project_id": req.ProjectID,
		"status":     "running",
	})
}
