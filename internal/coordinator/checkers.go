package coordinator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"stackforge/internal/component"
	"stackforge/internal/contract"
)

// checkInput is everything a checker may inspect.
type checkInput struct {
	results  map[string]component.Result
	registry *contract.Registry
}

// checker scores one concern from 10 downward and reports its findings.
type checker struct {
	name string
	run  func(in checkInput) (float64, []Issue)
}

func (in checkInput) files(componentName string) map[string]string {
	if res, ok := in.results[componentName]; ok && res.Success {
		return res.Files
	}
	return nil
}

func (in checkInput) allContent(componentName string) string {
	files := in.files(componentName)
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var b strings.Builder
	for _, p := range paths {
		b.WriteString(files[p])
		b.WriteByte('\n')
	}
	return b.String()
}

func score(base float64, issues []Issue) (float64, []Issue) {
	for _, is := range issues {
		base -= is.Penalty
	}
	if base < 0 {
		base = 0
	}
	return base, issues
}

// checkAPIConsistency verifies that every API path the frontend calls is
// served by the backend, and flags backend endpoints nothing calls.
func checkAPIConsistency(in checkInput) (float64, []Issue) {
	backend, okB := in.results["backend"]
	frontend, okF := in.results["frontend"]
	if !okB || !okF || !backend.Success || !frontend.Success {
		return 10.0, nil
	}

	served := make(map[string]bool, len(backend.Contracts.Endpoints))
	for _, ep := range backend.Contracts.Endpoints {
		served[ep.Path] = true
	}

	var issues []Issue
	called := make(map[string]bool, len(frontend.Contracts.APICalls))
	for _, call := range frontend.Contracts.APICalls {
		called[call] = true
		if !served[call] {
			issues = append(issues, Issue{
				Category:    "api_consistency",
				Severity:    severityCritical,
				Description: fmt.Sprintf("frontend calls %s but no backend endpoint serves it", call),
				Affected:    call,
				Fix:         "add the endpoint to the backend or fix the frontend URL",
				Penalty:     3.0,
			})
		}
	}
	for _, ep := range backend.Contracts.Endpoints {
		if !called[ep.Path] {
			issues = append(issues, Issue{
				Category:    "api_consistency",
				Severity:    severityWarning,
				Description: fmt.Sprintf("backend endpoint %s %s is never called by the frontend", ep.Method, ep.Path),
				Affected:    ep.Path,
				Penalty:     1.0,
			})
		}
	}
	return score(10.0, issues)
}

// checkDataModelConsistency verifies backend models have matching database
// tables, and flags tables no model maps to.
func checkDataModelConsistency(in checkInput) (float64, []Issue) {
	backend, okB := in.results["backend"]
	database, okD := in.results["database"]
	if !okB || !okD || !backend.Success || !database.Success {
		return 10.0, nil
	}

	tables := make(map[string]bool, len(database.Contracts.Tables))
	for _, t := range database.Contracts.Tables {
		tables[t] = true
	}
	modeled := make(map[string]bool)

	var issues []Issue
	for _, m := range backend.Contracts.Models {
		modeled[m.TableName] = true
		if !tables[m.TableName] {
			issues = append(issues, Issue{
				Category:    "data_model_consistency",
				Severity:    severityCritical,
				Description: fmt.Sprintf("model %s has no table %q in the migrations", m.Name, m.TableName),
				Affected:    m.Name,
				Fix:         "add a migration creating the table",
				Penalty:     2.0,
			})
		}
	}
	for _, t := range database.Contracts.Tables {
		if !modeled[t] {
			issues = append(issues, Issue{
				Category:    "data_model_consistency",
				Severity:    severityWarning,
				Description: fmt.Sprintf("table %q has no backend model", t),
				Affected:    t,
				Penalty:     1.0,
			})
		}
	}
	return score(10.0, issues)
}

var authMarkerRe = regexp.MustCompile(`(?i)jwt|token|auth|login`)

// checkAuthConsistency looks for auth machinery appearing in some layers
// but missing from others.
func checkAuthConsistency(in checkInput) (float64, []Issue) {
	present := map[string]bool{}
	var have, missing []string
	for _, name := range []string{"backend", "frontend"} {
		if in.files(name) == nil {
			continue
		}
		present[name] = authMarkerRe.MatchString(in.allContent(name))
		if present[name] {
			have = append(have, name)
		} else {
			missing = append(missing, name)
		}
	}

	var issues []Issue
	if len(have) > 0 && len(missing) > 0 {
		issues = append(issues, Issue{
			Category:    "auth_consistency",
			Severity:    severityCritical,
			Description: fmt.Sprintf("auth handling present in %s but absent from %s", strings.Join(have, ", "), strings.Join(missing, ", ")),
			Affected:    strings.Join(missing, ", "),
			Fix:         "propagate token handling through every layer",
			Penalty:     2.0,
		})
	}
	return score(10.0, issues)
}

// checkRegistryConsistency surfaces registry-level findings (duplicate
// paths across features, dependency cycles) as cross-stack issues.
func checkRegistryConsistency(in checkInput) (float64, []Issue) {
	if in.registry == nil {
		return 10.0, nil
	}
	rep := in.registry.ValidateConsistency()

	var issues []Issue
	for _, conflict := range rep.PathConflicts {
		issues = append(issues, Issue{
			Category:    "contract_registry",
			Severity:    severityWarning,
			Description: conflict,
			Penalty:     1.0,
		})
	}
	for _, cycle := range rep.DependencyCycles {
		issues = append(issues, Issue{
			Category:    "contract_registry",
			Severity:    severityCritical,
			Description: cycle,
			Fix:         "break the dependency cycle between features",
			Penalty:     2.0,
		})
	}
	return score(10.0, issues)
}

var sanitizeRe = regexp.MustCompile(`(?i)sanitize|escape|validate|joi|DOMPurify`)

// checkInputSanitization requires sanitization or validation primitives in
// each code-bearing layer.
func checkInputSanitization(in checkInput) (float64, []Issue) {
	var issues []Issue
	for _, name := range []string{"backend", "frontend"} {
		content := in.allContent(name)
		if content == "" {
			continue
		}
		if !sanitizeRe.MatchString(content) {
			issues = append(issues, Issue{
				Category:    "input_sanitization",
				Severity:    severityCritical,
				Description: fmt.Sprintf("%s has no input sanitization or validation", name),
				Affected:    name,
				Fix:         "validate and sanitize all user input",
				Penalty:     3.0,
			})
		}
	}
	return score(10.0, issues)
}

// checkAuthenticationSecurity checks the backend for password hashing,
// token-based auth and rate limiting whenever it does auth at all.
func checkAuthenticationSecurity(in checkInput) (float64, []Issue) {
	content := in.allContent("backend")
	if content == "" || !authMarkerRe.MatchString(content) {
		return 10.0, nil
	}

	var issues []Issue
	if !strings.Contains(content, "bcrypt") && !strings.Contains(content, "argon2") {
		issues = append(issues, Issue{
			Category:    "authentication",
			Severity:    severityCritical,
			Description: "auth code without password hashing (bcrypt/argon2)",
			Affected:    "backend",
			Penalty:     2.0,
		})
	}
	if !regexp.MustCompile(`(?i)jsonwebtoken|jwt\.sign|jwt\.verify`).MatchString(content) {
		issues = append(issues, Issue{
			Category:    "authentication",
			Severity:    severityCritical,
			Description: "auth code without signed token issuance or verification",
			Affected:    "backend",
			Penalty:     2.0,
		})
	}
	if !regexp.MustCompile(`(?i)rate.?limit`).MatchString(content) {
		issues = append(issues, Issue{
			Category:    "authentication",
			Severity:    severityWarning,
			Description: "no rate limiting on auth endpoints",
			Affected:    "backend",
			Penalty:     1.0,
		})
	}
	return score(10.0, issues)
}

// passThrough is a placeholder for checks that need human review or
// tooling this service does not run (profiling, linting). They hold the
// category at a neutral 8.0 so absent tooling neither inflates nor tanks
// the cross-stack score.
func passThrough(in checkInput) (float64, []Issue) {
	return 8.0, nil
}
