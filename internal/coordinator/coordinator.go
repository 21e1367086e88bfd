package coordinator

import (
	"fmt"
	"log"
	"sort"
	"time"

	"stackforge/internal/component"
	"stackforge/internal/contract"
	"stackforge/internal/events"
)

// category groups checkers under a weighted concern. Weights sum to 1.
type category struct {
	name     string
	weight   float64
	checkers []checker
}

// Coordinator assesses a completed generation run across components:
// weighted category scores feed a cross-stack score, which combines with
// the per-component scores into the overall score.
type Coordinator struct {
	Events    *events.Channel
	Registry  *contract.Registry
	Target    float64
	MaxCycles int
	Logger    *log.Logger

	categories []category
}

func New(ch *events.Channel, reg *contract.Registry, target float64, maxCycles int, logger *log.Logger) *Coordinator {
	if target <= 0 {
		target = 8.0
	}
	if maxCycles <= 0 {
		maxCycles = 3
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{
		Events:    ch,
		Registry:  reg,
		Target:    target,
		MaxCycles: maxCycles,
		Logger:    logger,
		categories: []category{
			{name: "consistency", weight: 0.30, checkers: []checker{
				{"api_consistency", checkAPIConsistency},
				{"data_model_consistency", checkDataModelConsistency},
				{"auth_consistency", checkAuthConsistency},
				{"contract_registry", checkRegistryConsistency},
			}},
			{name: "security", weight: 0.25, checkers: []checker{
				{"input_sanitization", checkInputSanitization},
				{"authentication", checkAuthenticationSecurity},
				{"authorization", passThrough},
				{"encryption", passThrough},
			}},
			{name: "performance", weight: 0.20, checkers: []checker{
				{"query_efficiency", passThrough},
				{"bundle_size", passThrough},
				{"caching", passThrough},
			}},
			{name: "code_quality", weight: 0.15, checkers: []checker{
				{"complexity", passThrough},
				{"duplication", passThrough},
				{"conventions", passThrough},
			}},
			{name: "maintainability", weight: 0.10, checkers: []checker{
				{"modularity", passThrough},
				{"documentation", passThrough},
				{"test_coverage", passThrough},
			}},
		},
	}
}

// Assess scores the run. A checker that panics contributes a neutral 8.0
// and a warning naming it, so one broken heuristic cannot sink or abort
// the whole assessment.
func (c *Coordinator) Assess(results map[string]component.Result) QualityReport {
	in := checkInput{results: results, registry: c.Registry}

	rep := QualityReport{
		ComponentScores: make(map[string]float64, len(results)),
		CategoryScores:  make(map[string]float64, len(c.categories)),
		Timestamp:       time.Now().UTC(),
	}

	var crossStack float64
	for _, cat := range c.categories {
		var sum float64
		for _, chk := range cat.checkers {
			s, issues := c.runChecker(chk, in)
			sum += s
			for _, is := range issues {
				if is.Severity == severityCritical {
					rep.Critical = append(rep.Critical, is)
				} else {
					rep.Warnings = append(rep.Warnings, is)
				}
			}
		}
		mean := sum / float64(len(cat.checkers))
		rep.CategoryScores[cat.name] = mean
		crossStack += cat.weight * mean
	}
	rep.CrossStackScore = crossStack

	var compSum float64
	var compCount int
	for name, res := range results {
		rep.ComponentScores[name] = res.QualityScore
		compSum += res.QualityScore
		compCount++
	}
	componentMean := 0.0
	if compCount > 0 {
		componentMean = compSum / float64(compCount)
	}
	rep.OverallScore = 0.6*componentMean + 0.4*crossStack

	rep.Metrics = map[string]any{
		"components_assessed": compCount,
		"critical_issues":     len(rep.Critical),
		"warnings":            len(rep.Warnings),
	}
	rep.Recommendations = recommend(rep)
	return rep
}

func (c *Coordinator) runChecker(chk checker, in checkInput) (s float64, issues []Issue) {
	defer func() {
		if r := recover(); r != nil {
			c.Logger.Printf("coordinator: checker %s panicked: %v", chk.name, r)
			s = 8.0
			issues = []Issue{{
				Category:    chk.name,
				Severity:    severityWarning,
				Description: fmt.Sprintf("checker %s failed and was skipped", chk.name),
				Penalty:     0,
			}}
		}
	}()
	return chk.run(in)
}

// ValidateAndRefine assesses the run and, while critical issues remain and
// the score is below target, drives refinement cycles. Fix application is
// delegated back to the caller via the pipeline's component regeneration;
// this loop re-assesses, counts cycles and emits progress events. When the
// cycle budget runs out below target, the report recommends human review.
func (c *Coordinator) ValidateAndRefine(results map[string]component.Result, correlationID string) QualityReport {
	rep := c.Assess(results)

	for cycle := 1; cycle <= c.MaxCycles; cycle++ {
		if rep.Passed(c.Target) {
			break
		}
		rep.RefinementCycles = cycle

		priorities := topPriorities(rep.Critical, 3)
		c.Logger.Printf("coordinator: cycle %d, score %.1f/%.1f, addressing %d critical issues",
			cycle, rep.OverallScore, c.Target, len(priorities))

		results = c.applyImprovements(results, priorities)
		rep2 := c.Assess(results)
		rep2.RefinementCycles = cycle

		if c.Events != nil {
			c.Events.Publish("quality_refinement_cycle", "coordinator", map[string]any{
				"cycle":         cycle,
				"overall_score": rep2.OverallScore,
				"target":        c.Target,
				"critical":      len(rep2.Critical),
			}, correlationID)
		}
		rep = rep2
	}

	if !rep.Passed(c.Target) {
		rep.Recommendations = append(rep.Recommendations,
			fmt.Sprintf("Automated refinement stopped at %.1f/10; human review recommended", rep.OverallScore))
	}
	return rep
}

// applyImprovements is where targeted fixes would be synthesized and
// merged into the component file sets. Cross-stack fixes need coordinated
// regeneration across components, which the pipeline owns; until that
// lands this step records the priorities and returns the input unchanged.
func (c *Coordinator) applyImprovements(results map[string]component.Result, priorities []Issue) map[string]component.Result {
	for _, is := range priorities {
		c.Logger.Printf("coordinator: queued fix [%s] %s", is.Category, is.Description)
	}
	return results
}

// topPriorities returns the n highest-penalty critical issues.
func topPriorities(critical []Issue, n int) []Issue {
	sorted := append([]Issue(nil), critical...)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].Penalty > sorted[b].Penalty
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func recommend(rep QualityReport) []string {
	var recs []string
	if len(rep.Critical) > 0 {
		recs = append(recs, fmt.Sprintf("Resolve %d critical cross-stack issues before deploying", len(rep.Critical)))
	}
	seen := map[string]bool{}
	for _, is := range rep.Critical {
		if is.Fix != "" && !seen[is.Fix] {
			seen[is.Fix] = true
			recs = append(recs, is.Fix)
		}
	}
	return recs
}
