package contract

import (
	"encoding/json"
	"time"
)

// APIEndpoint describes one HTTP operation a feature exposes.
type APIEndpoint struct {
	Method       string          `json:"method"`
	Path         string          `json:"path"`
	InputSchema  json.RawMessage `json:"input_schema,omitempty"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
	AuthRequired bool            `json:"auth_required"`
	RateLimit    string          `json:"rate_limit,omitempty"`
	Description  string          `json:"description,omitempty"`
	Component    string          `json:"component,omitempty"`
}

// Key returns the registry index key, "METHOD path".
func (e APIEndpoint) Key() string { return e.Method + " " + e.Path }

// DataModel describes one persistent entity a feature owns.
type DataModel struct {
	Name          string          `json:"name"`
	Schema        json.RawMessage `json:"schema,omitempty"`
	Relationships []string        `json:"relationships,omitempty"`
	TableName     string          `json:"table_name,omitempty"`
	Indexes       []string        `json:"indexes,omitempty"`
	Constraints   []string        `json:"constraints,omitempty"`
}

// FeatureContract is everything registered for one feature.
type FeatureContract struct {
	FeatureName  string        `json:"feature_name"`
	Endpoints    []APIEndpoint `json:"endpoints"`
	Models       []DataModel   `json:"models"`
	Dependencies []string      `json:"dependencies,omitempty"`
	CreatedBy    string        `json:"created_by,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// GenerationContext accumulates cross-component conventions that later
// generations must stay consistent with.
type GenerationContext struct {
	EstablishedPatterns    []string          `json:"established_patterns"`
	ArchitecturalDecisions []string          `json:"architectural_decisions"`
	SecurityStandards      []string          `json:"security_standards"`
	NamingConventions      map[string]string `json:"naming_conventions"`
	CodeStyle              map[string]string `json:"code_style"`
}

// PatternUpdate is what a component reports back after generating, to be
// merged into the shared GenerationContext.
type PatternUpdate struct {
	Patterns          []string          `json:"patterns,omitempty"`
	Decisions         []string          `json:"decisions,omitempty"`
	SecurityStandards []string          `json:"security_standards,omitempty"`
	NamingConventions map[string]string `json:"naming_conventions,omitempty"`
	CodeStyle         map[string]string `json:"code_style,omitempty"`
}

// Brief is the contract slice handed to a component before generation:
// what already exists plus the conventions to follow.
type Brief struct {
	Component         string            `json:"component"`
	Feature           string            `json:"feature"`
	ExistingEndpoints []APIEndpoint     `json:"existing_endpoints"`
	ExistingModels    []DataModel       `json:"existing_models"`
	Patterns          []string          `json:"patterns"`
	Decisions         []string          `json:"decisions"`
	SecurityStandards []string          `json:"security_standards"`
	NamingConventions map[string]string `json:"naming_conventions"`
	CodeStyle         map[string]string `json:"code_style"`
}

// Extracted is what a component's extractor pulled out of generated files.
type Extracted struct {
	Endpoints  []APIEndpoint `json:"endpoints,omitempty"`
	APICalls   []string      `json:"api_calls,omitempty"`
	Models     []DataModel   `json:"models,omitempty"`
	Tables     []string      `json:"tables,omitempty"`
	Services   []string      `json:"services,omitempty"`
	Components []string      `json:"components,omitempty"`
	Hooks      []string      `json:"hooks,omitempty"`
	Middleware []string      `json:"middleware,omitempty"`
}

// HTTPMethods is the verb set recognized by extractors and the registry.
var HTTPMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH"}
