package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stackforge/internal/artifactstore"
	"stackforge/internal/contract"
	"stackforge/internal/coordinator"
	"stackforge/internal/events"
	"stackforge/internal/llm"
	"stackforge/internal/pipeline"
	"stackforge/internal/session"
)

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	ch := events.NewChannel(quiet())
	reg := contract.NewRegistry(nil, quiet())
	store, err := artifactstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sessions, err := session.NewStore()
	if err != nil {
		t.Fatal(err)
	}
	return &Handler{
		Pipeline: &pipeline.Pipeline{
			LLM:         llm.NewFakeClient(),
			Registry:    reg,
			Events:      ch,
			Coordinator: coordinator.New(ch, reg, 8.0, 1, quiet()),
			Artifacts:   store,
			Target:      1.0,
			MaxCycles:   1,
			Logger:      quiet(),
		},
		Sessions:  sessions,
		Events:    ch,
		Artifacts: store,
		Registry:  reg,
		Logger:    quiet(),
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGenerateAcceptsAndRuns(t *testing.T) {
	h := newTestHandler(t)
	srv := h.Routes()

	body := strings.NewReader(`{"project_id":"proj1","features":["item management"]}`)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/generate", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	runID := resp["run_id"]
	if runID == "" {
		t.Fatal("no run_id in response")
	}

	// The fake oracle is instant, but the run happens on a goroutine.
	deadline := time.Now().Add(5 * time.Second)
	for {
		run, err := h.Sessions.Get(runID)
		if err != nil {
			t.Fatal(err)
		}
		if run.Status != session.StatusRunning {
			if run.Status != session.StatusCompleted {
				t.Fatalf("run ended as %s: %s", run.Status, run.Error)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("run did not finish")
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/runs/"+runID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d", rec.Code)
	}
	var status map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status["report"] == nil {
		t.Fatal("finished run status missing quality report")
	}
}

func TestGenerateRejectsEmptyFeatures(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest("POST", "/v1/generate",
		strings.NewReader(`{"features":["  "]}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRunStatusUnknownID(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest("GET", "/v1/runs/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestContractsEndpoint(t *testing.T) {
	h := newTestHandler(t)
	h.Registry.Register(contract.FeatureContract{
		FeatureName: "items",
		Endpoints:   []contract.APIEndpoint{{Method: "GET", Path: "/api/items"}},
	})

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest("GET", "/v1/contracts", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	eps, _ := resp["endpoints"].([]any)
	if len(eps) != 1 {
		t.Fatalf("endpoints = %v", resp["endpoints"])
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/v1/generate", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatal("missing CORS header")
	}
}
