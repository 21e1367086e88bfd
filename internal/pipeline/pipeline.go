package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"stackforge/internal/artifactstore"
	"stackforge/internal/component"
	"stackforge/internal/contract"
	"stackforge/internal/coordinator"
	"stackforge/internal/docs"
	"stackforge/internal/events"
	"stackforge/internal/llmclient"
)

// generation order: the backend establishes the API and data contracts the
// other components consume.
var componentOrder = []component.Component{
	component.Backend{},
	component.Frontend{},
	component.Database{},
}

// Request is one full-stack generation job. CorrelationID may be set by
// the caller to tag the run's events up front; left empty, the pipeline
// assigns one.
type Request struct {
	ProjectID     string   `json:"project_id"`
	Features      []string `json:"features"`
	CorrelationID string   `json:"correlation_id,omitempty"`
}

// Output is everything a finished run produced.
type Output struct {
	ProjectID     string                      `json:"project_id"`
	CorrelationID string                      `json:"correlation_id"`
	Results       map[string]component.Result `json:"results"`
	Report        coordinator.QualityReport   `json:"report"`
	FileCounts    map[string]int              `json:"file_counts"`
	Elapsed       time.Duration               `json:"elapsed"`
}

// Succeeded reports whether the run produced a usable backend.
func (o Output) Succeeded() bool {
	res, ok := o.Results["backend"]
	return ok && res.Success
}

// Pipeline runs component generation in dependency order, coordinates the
// cross-stack quality pass and writes artifacts and docs.
type Pipeline struct {
	LLM         llmclient.LLMClient
	Registry    *contract.Registry
	Events      *events.Channel
	Coordinator *coordinator.Coordinator
	Artifacts   artifactstore.Store
	Docs        *docs.Manager
	Target      float64
	MaxCycles   int
	TokenBudget int
	Logger      *log.Logger
}

// Run executes one generation job. A backend failure skips the remaining
// components; a frontend or database failure is tolerated and the run is
// reported as partial.
func (p *Pipeline) Run(ctx context.Context, req Request) (Output, error) {
	if len(req.Features) == 0 {
		return Output{}, fmt.Errorf("pipeline: no features requested")
	}
	logger := p.Logger
	if logger == nil {
		logger = log.Default()
	}
	start := time.Now()

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = events.NewID()
	}
	out := Output{
		ProjectID:     req.ProjectID,
		CorrelationID: correlationID,
		Results:       make(map[string]component.Result, len(componentOrder)),
		FileCounts:    make(map[string]int, len(componentOrder)),
	}

	p.Events.Publish("generation_started", "pipeline", map[string]any{
		"project_id": req.ProjectID,
		"features":   req.Features,
	}, correlationID)
	if p.Docs != nil {
		p.Docs.InitProject(req.ProjectID, req.Features)
	}

	loop := component.NewLoop(p.LLM, p.Registry, p.Events, p.Target, p.MaxCycles, logger)
	loop.TokenBudget = p.TokenBudget

	backendFailed := false
	for _, comp := range componentOrder {
		name := comp.Name()
		if backendFailed {
			out.Results[name] = component.Result{
				Component:    name,
				Features:     req.Features,
				Files:        map[string]string{},
				ErrorMessage: "skipped: backend generation failed",
			}
			continue
		}

		res := loop.Generate(ctx, comp, req.Features, correlationID)
		out.Results[name] = res
		out.FileCounts[name] = len(res.Files)

		if !res.Success {
			logger.Printf("pipeline: %s failed: %s", name, res.ErrorMessage)
			if p.Docs != nil {
				p.Docs.RecordFailure(req.ProjectID, name, res.ErrorMessage)
			}
			if name == "backend" {
				backendFailed = true
			}
		}
		if p.Docs != nil {
			p.Docs.SaveStageSnapshot(req.ProjectID, name, res)
		}
	}

	out.Report = p.Coordinator.ValidateAndRefine(out.Results, correlationID)

	if err := p.writeArtifacts(ctx, req.ProjectID, out.Results, logger); err != nil {
		logger.Printf("pipeline: artifact write: %v", err)
	}

	if p.Docs != nil {
		if out.Succeeded() {
			p.Docs.RecordCompletion(req.ProjectID, req.Features, out.Report.ComponentScores, out.Report.OverallScore)
		}
		p.Docs.SaveStageSnapshot(req.ProjectID, "quality_report", out.Report)
	}

	out.Elapsed = time.Since(start)
	p.Events.Publish("generation_completed", "pipeline", map[string]any{
		"project_id":    req.ProjectID,
		"success":       out.Succeeded(),
		"overall_score": out.Report.OverallScore,
		"elapsed_ms":    out.Elapsed.Milliseconds(),
	}, correlationID)

	if !out.Succeeded() {
		return out, fmt.Errorf("pipeline: backend generation failed: %s", out.Results["backend"].ErrorMessage)
	}
	return out, nil
}

func (p *Pipeline) writeArtifacts(ctx context.Context, projectID string, results map[string]component.Result, logger *log.Logger) error {
	if p.Artifacts == nil {
		return nil
	}
	var firstErr error
	for name, res := range results {
		if !res.Success {
			continue
		}
		for path, content := range res.Files {
			if err := p.Artifacts.Put(ctx, projectID, name+"/"+path, []byte(content)); err != nil {
				logger.Printf("pipeline: store %s/%s: %v", name, path, err)
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	return firstErr
}
