package component

import (
	"context"
	"log"
	"strings"
	"time"

	"stackforge/internal/contract"
	"stackforge/internal/events"
	"stackforge/internal/llm"
	"stackforge/internal/llmclient"
	"stackforge/internal/quality"
)

// Loop drives one component through generate -> validate -> refine until
// the quality target is met or the cycle budget runs out.
type Loop struct {
	LLM         llmclient.LLMClient
	Registry    *contract.Registry
	Events      *events.Channel
	Target      float64
	MaxCycles   int
	TokenBudget int
	Logger      *log.Logger

	history map[string]Result
}

func NewLoop(cli llmclient.LLMClient, reg *contract.Registry, ch *events.Channel, target float64, maxCycles int, logger *log.Logger) *Loop {
	if target <= 0 {
		target = 8.0
	}
	if maxCycles <= 0 {
		maxCycles = 5
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Loop{
		LLM:       cli,
		Registry:  reg,
		Events:    ch,
		Target:    target,
		MaxCycles: maxCycles,
		Logger:    logger,
		history:   make(map[string]Result),
	}
}

// Generate produces one component's files. An oracle failure on the initial
// call or any refinement call yields a failed Result (score 0, no files)
// and exactly one component_generation_failed event. Refinement that
// exhausts MaxCycles without reaching the target still succeeds with the
// best output so far.
func (l *Loop) Generate(ctx context.Context, comp Component, features []string, correlationID string) Result {
	name := comp.Name()
	ctx = llm.WithComponent(ctx, name)
	start := time.Now()

	brief := l.Registry.ContextFor(name, strings.Join(features, ", "))
	chunks := BuildChunks(brief, features, l.history)
	if l.TokenBudget > 0 {
		chunks = FitBudget(chunks, l.TokenBudget)
	}

	prompt := comp.GeneratePrompt(features, chunks)
	tokens := l.LLM.CountTokens(prompt)

	raw, err := l.LLM.GenerateJSON(ctx, prompt, nil)
	if err != nil {
		return l.fail(comp, features, correlationID, start, tokens, err)
	}

	files, err := ParseFileMap(raw)
	if err != nil {
		l.Logger.Printf("%s: unparseable oracle output, using skeleton fallback", name)
		files = comp.Skeleton()
	}

	report := quality.Validate(name, files)
	cycles := 0

	for report.OverallScore < l.Target && cycles < l.MaxCycles {
		cycles++

		improvePrompt := comp.ImprovementPrompt(files, report.Issues, report.OverallScore, l.Target)
		tokens += l.LLM.CountTokens(improvePrompt)

		raw, err = l.LLM.GenerateJSON(ctx, improvePrompt, nil)
		if err != nil {
			return l.fail(comp, features, correlationID, start, tokens, err)
		}
		refined, err := ParseFileMap(raw)
		if err != nil {
			l.Logger.Printf("%s: refinement cycle %d unparseable, keeping previous files", name, cycles)
		} else {
			files = MergeFiles(files, refined)
		}

		report = quality.Validate(name, files)
		l.Events.Publish("refinement_cycle_completed", name, map[string]any{
			"component":     name,
			"cycle":         cycles,
			"quality_score": report.OverallScore,
			"target":        l.Target,
		}, correlationID)
	}

	if report.OverallScore < l.Target {
		l.Logger.Printf("%s: refinement exhausted at %.1f/%.1f after %d cycles",
			name, report.OverallScore, l.Target, cycles)
	}

	extracted := comp.Extract(files, features)
	l.register(name, features, extracted)

	res := Result{
		Success:          true,
		Component:        name,
		Features:         features,
		Files:            files,
		Contracts:        extracted,
		QualityScore:     report.OverallScore,
		TokensUsed:       tokens,
		Elapsed:          time.Since(start),
		RefinementCycles: cycles,
	}
	l.history[name] = res

	l.Events.Publish("component_generation_completed", name, map[string]any{
		"component":     name,
		"quality_score": res.QualityScore,
		"file_count":    len(res.Files),
		"cycles":        cycles,
	}, correlationID)
	return res
}

func (l *Loop) fail(comp Component, features []string, correlationID string, start time.Time, tokens int, err error) Result {
	name := comp.Name()
	l.Logger.Printf("%s: generation failed: %v", name, err)

	res := Result{
		Component:    name,
		Features:     features,
		Files:        map[string]string{},
		TokensUsed:   tokens,
		Elapsed:      time.Since(start),
		ErrorMessage: err.Error(),
	}
	l.history[name] = res

	l.Events.Publish("component_generation_failed", name, map[string]any{
		"component": name,
		"error":     err.Error(),
	}, correlationID)
	return res
}

// register files extracted contracts with the registry, one FeatureContract
// per feature. Endpoints and models are assigned to the feature whose name
// tokens appear in their path or name; unmatched entries go to the first
// feature.
func (l *Loop) register(component string, features []string, ex contract.Extracted) {
	if l.Registry == nil || len(features) == 0 {
		return
	}
	if len(ex.Endpoints) == 0 && len(ex.Models) == 0 {
		return
	}

	byFeature := make(map[string]*contract.FeatureContract, len(features))
	for _, f := range features {
		byFeature[f] = &contract.FeatureContract{FeatureName: f, CreatedBy: component}
	}

	for _, ep := range ex.Endpoints {
		ep.Component = component
		f := matchFeature(features, ep.Path)
		byFeature[f].Endpoints = append(byFeature[f].Endpoints, ep)
	}
	for _, m := range ex.Models {
		f := matchFeature(features, m.Name+" "+m.TableName)
		byFeature[f].Models = append(byFeature[f].Models, m)
	}

	for _, f := range features {
		fc := byFeature[f]
		if len(fc.Endpoints) == 0 && len(fc.Models) == 0 {
			continue
		}
		l.Registry.Register(*fc)
	}
}

// matchFeature picks the feature whose normalized name tokens appear in the
// candidate string. Falls back to the first feature.
func matchFeature(features []string, candidate string) string {
	lower := strings.ToLower(candidate)
	for _, f := range features {
		for _, tok := range strings.Fields(strings.ToLower(f)) {
			if len(tok) >= 3 && strings.Contains(lower, tok) {
				return f
			}
		}
	}
	return features[0]
}
