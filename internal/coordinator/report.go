package coordinator

import "time"

// Issue is one cross-stack finding.
type Issue struct {
	Category    string  `json:"category"`
	Severity    string  `json:"severity"` // CRITICAL or WARNING
	Description string  `json:"description"`
	Affected    string  `json:"affected,omitempty"`
	Fix         string  `json:"fix,omitempty"`
	Penalty     float64 `json:"penalty"`
}

const (
	severityCritical = "CRITICAL"
	severityWarning  = "WARNING"
)

// QualityReport is the coordinator's assessment of a full generation run.
type QualityReport struct {
	OverallScore     float64            `json:"overall_score"`
	ComponentScores  map[string]float64 `json:"component_scores"`
	CrossStackScore  float64            `json:"cross_stack_score"`
	CategoryScores   map[string]float64 `json:"category_scores"`
	Critical         []Issue            `json:"critical,omitempty"`
	Warnings         []Issue            `json:"warnings,omitempty"`
	Recommendations  []string           `json:"recommendations,omitempty"`
	Metrics          map[string]any     `json:"metrics,omitempty"`
	RefinementCycles int                `json:"refinement_cycles"`
	Timestamp        time.Time          `json:"timestamp"`
}

// Passed reports whether the run met the target with no critical findings.
func (r QualityReport) Passed(target float64) bool {
	return r.OverallScore >= target && len(r.Critical) == 0
}
