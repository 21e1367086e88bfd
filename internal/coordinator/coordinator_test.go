package coordinator

import (
	"io"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackforge/internal/component"
	"stackforge/internal/contract"
	"stackforge/internal/events"
)

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func testCoordinator() *Coordinator {
	return New(events.NewChannel(quiet()), contract.NewRegistry(nil, quiet()), 8.0, 3, quiet())
}

func okResult(name string, score float64) component.Result {
	return component.Result{Success: true, Component: name, QualityScore: score, Files: map[string]string{}}
}

func TestAPIConsistencyMismatch(t *testing.T) {
	backend := okResult("backend", 9.0)
	backend.Contracts = contract.Extracted{
		Endpoints: []contract.APIEndpoint{{Method: "GET", Path: "/api/users"}},
	}
	frontend := okResult("frontend", 9.0)
	frontend.Contracts = contract.Extracted{APICalls: []string{"/api/other"}}

	in := checkInput{results: map[string]component.Result{
		"backend": backend, "frontend": frontend,
	}}
	s, issues := checkAPIConsistency(in)

	var critical, warnings []Issue
	for _, is := range issues {
		if is.Severity == severityCritical {
			critical = append(critical, is)
		} else {
			warnings = append(warnings, is)
		}
	}
	require.Len(t, critical, 1)
	assert.Contains(t, critical[0].Description, "/api/other")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Description, "/api/users")
	assert.InDelta(t, 6.0, s, 1e-9) // 10 - 3 - 1
}

func TestAPIConsistencyMatched(t *testing.T) {
	backend := okResult("backend", 9.0)
	backend.Contracts = contract.Extracted{
		Endpoints: []contract.APIEndpoint{{Method: "GET", Path: "/api/users"}},
	}
	frontend := okResult("frontend", 9.0)
	frontend.Contracts = contract.Extracted{APICalls: []string{"/api/users"}}

	s, issues := checkAPIConsistency(checkInput{results: map[string]component.Result{
		"backend": backend, "frontend": frontend,
	}})
	assert.Empty(t, issues)
	assert.Equal(t, 10.0, s)
}

func TestDataModelConsistency(t *testing.T) {
	backend := okResult("backend", 9.0)
	backend.Contracts = contract.Extracted{
		Models: []contract.DataModel{{Name: "User", TableName: "users"}},
	}
	database := okResult("database", 9.0)
	database.Contracts = contract.Extracted{Tables: []string{"users", "audit_log"}}

	s, issues := checkDataModelConsistency(checkInput{results: map[string]component.Result{
		"backend": backend, "database": database,
	}})
	require.Len(t, issues, 1)
	assert.Equal(t, severityWarning, issues[0].Severity)
	assert.Contains(t, issues[0].Description, "audit_log")
	assert.InDelta(t, 9.0, s, 1e-9)
}

func TestAuthConsistencyPartialCoverage(t *testing.T) {
	backend := okResult("backend", 9.0)
	backend.Files = map[string]string{"src/auth.js": "const jwt = require('jsonwebtoken');"}
	frontend := okResult("frontend", 9.0)
	frontend.Files = map[string]string{"src/App.tsx": "export default function App() { return null; }"}

	_, issues := checkAuthConsistency(checkInput{results: map[string]component.Result{
		"backend": backend, "frontend": frontend,
	}})
	require.Len(t, issues, 1)
	assert.Equal(t, severityCritical, issues[0].Severity)
	assert.Contains(t, issues[0].Affected, "frontend")
}

func TestAssessBlendsComponentAndCrossStackScores(t *testing.T) {
	c := testCoordinator()
	results := map[string]component.Result{
		"backend":  okResult("backend", 9.0),
		"frontend": okResult("frontend", 7.0),
	}
	rep := c.Assess(results)

	assert.InDelta(t, 8.0, (rep.ComponentScores["backend"]+rep.ComponentScores["frontend"])/2, 1e-9)
	assert.Greater(t, rep.CrossStackScore, 0.0)
	assert.LessOrEqual(t, rep.CrossStackScore, 10.0)

	want := 0.6*8.0 + 0.4*rep.CrossStackScore
	assert.InDelta(t, want, rep.OverallScore, 1e-9)
}

func TestCheckerPanicIsIsolated(t *testing.T) {
	c := testCoordinator()
	c.categories = append(c.categories, category{
		name: "exploding", weight: 0, checkers: []checker{
			{"boom", func(checkInput) (float64, []Issue) { panic("boom") }},
		},
	})

	rep := c.Assess(map[string]component.Result{"backend": okResult("backend", 9.0)})
	assert.Equal(t, 8.0, rep.CategoryScores["exploding"])

	found := false
	for _, w := range rep.Warnings {
		if w.Category == "boom" {
			found = true
		}
	}
	assert.True(t, found, "panicking checker should leave a warning naming it")
}

func TestValidateAndRefineStopsAtMaxCycles(t *testing.T) {
	ch := events.NewChannel(quiet())
	c := New(ch, contract.NewRegistry(nil, quiet()), 8.0, 3, quiet())

	// Low component scores keep the overall below target; with fixes
	// deferred to the pipeline the loop must run exactly MaxCycles and
	// recommend human review.
	results := map[string]component.Result{
		"backend": okResult("backend", 2.0),
	}
	rep := c.ValidateAndRefine(results, "run-1")

	assert.Equal(t, c.MaxCycles, rep.RefinementCycles)
	assert.False(t, rep.Passed(c.Target))

	cycles := ch.History(events.Filter{Types: []string{"quality_refinement_cycle"}})
	assert.Len(t, cycles, c.MaxCycles)

	human := false
	for _, r := range rep.Recommendations {
		if strings.Contains(r, "human review") {
			human = true
		}
	}
	assert.True(t, human, "expected a human-review recommendation: %v", rep.Recommendations)
}

func TestValidateAndRefinePassesImmediately(t *testing.T) {
	c := testCoordinator()
	results := map[string]component.Result{
		"backend": okResult("backend", 9.5),
	}
	rep := c.ValidateAndRefine(results, "run-1")
	assert.Equal(t, 0, rep.RefinementCycles)
	assert.True(t, rep.Passed(c.Target))
}
