package component

import (
	"time"

	"stackforge/internal/contract"
)

// Result is the outcome of generating one component.
type Result struct {
	Success          bool               `json:"success"`
	Component        string             `json:"component"`
	Features         []string           `json:"features"`
	Files            map[string]string  `json:"files"`
	Contracts        contract.Extracted `json:"contracts"`
	QualityScore     float64            `json:"quality_score"`
	TokensUsed       int                `json:"tokens_used"`
	Elapsed          time.Duration      `json:"elapsed"`
	RefinementCycles int                `json:"refinement_cycles"`
	ErrorMessage     string             `json:"error_message,omitempty"`
}

// Component is one code-generation target (backend, frontend, database).
// Implementations provide prompts, contract extraction and a fallback
// skeleton used when the oracle's output cannot be parsed at all.
type Component interface {
	Name() string
	GeneratePrompt(features []string, chunks []ContextChunk) string
	ImprovementPrompt(files map[string]string, issues []string, current, target float64) string
	Extract(files map[string]string, features []string) contract.Extracted
	Skeleton() map[string]string
}
