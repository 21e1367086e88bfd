package quality

import (
	"fmt"
	"sort"
	"strings"
)

const (
	maxScore    = 10.0
	targetScore = 8.0
	minFileSize = 100
)

// Issue is one deduction applied to a file.
type Issue struct {
	Rule     string  `json:"rule"`
	Penalty  float64 `json:"penalty"`
	Critical bool    `json:"critical"`
	Message  string  `json:"message"`
}

// FileScore is the per-file result: 10.0 minus accumulated penalties,
// floored at zero.
type FileScore struct {
	Path   string  `json:"path"`
	Score  float64 `json:"score"`
	Issues []Issue `json:"issues,omitempty"`
}

// Metrics aggregates a validation pass.
type Metrics struct {
	TotalFiles     int `json:"total_files"`
	FilesAtTarget  int `json:"files_at_target"`
	CriticalIssues int `json:"critical_issues"`
}

// Report is the outcome of validating one component's files.
type Report struct {
	Component    string      `json:"component"`
	OverallScore float64     `json:"overall_score"`
	Files        []FileScore `json:"files"`
	Issues       []string    `json:"issues,omitempty"`
	Metrics      Metrics     `json:"metrics"`
}

// AtTarget reports whether the overall score meets the refinement target.
func (r Report) AtTarget() bool { return r.OverallScore >= targetScore }

// Validate scores every generated file against the component's rule set
// plus generic size and brace-balance checks. Files are walked in sorted
// path order so the same input always yields the same report. An empty file
// map scores zero.
func Validate(component string, files map[string]string) Report {
	rep := Report{Component: component}
	if len(files) == 0 {
		return rep
	}

	rs := RulesFor(component)

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var total float64
	for _, path := range paths {
		fs := scoreFile(rs, path, files[path])
		rep.Files = append(rep.Files, fs)
		total += fs.Score
		rep.Metrics.TotalFiles++
		if fs.Score >= targetScore {
			rep.Metrics.FilesAtTarget++
		}
		for _, is := range fs.Issues {
			if is.Critical {
				rep.Metrics.CriticalIssues++
			}
			rep.Issues = append(rep.Issues, fmt.Sprintf("%s: %s", path, is.Message))
		}
	}
	rep.OverallScore = total / float64(rep.Metrics.TotalFiles)
	return rep
}

func scoreFile(rs RuleSet, path, content string) FileScore {
	fs := FileScore{Path: path, Score: maxScore}

	deduct := func(is Issue) {
		fs.Issues = append(fs.Issues, is)
		fs.Score -= is.Penalty
	}

	if len(strings.TrimSpace(content)) < minFileSize {
		deduct(Issue{
			Rule: "file_size", Penalty: 3.0, Critical: true,
			Message: "file too small to be a real implementation",
		})
	}
	if open, close := strings.Count(content, "{"), strings.Count(content, "}"); open != close {
		deduct(Issue{
			Rule: "brace_balance", Penalty: 2.0, Critical: true,
			Message: fmt.Sprintf("unbalanced braces (%d open, %d close)", open, close),
		})
	}

	if !skipPath(rs, path) {
		for _, rule := range rs.Rules {
			if !ruleApplies(rule, path) {
				continue
			}
			if rule.Pattern.MatchString(content) {
				continue
			}
			deduct(Issue{
				Rule: rule.Name, Penalty: rule.Penalty,
				Critical: rule.Critical, Message: rule.Message,
			})
		}
	}

	if fs.Score < 0 {
		fs.Score = 0
	}
	return fs
}

func skipPath(rs RuleSet, path string) bool {
	for _, suf := range rs.SkipSuffixes {
		if strings.HasSuffix(path, suf) {
			return true
		}
	}
	return false
}

func ruleApplies(rule Rule, path string) bool {
	lower := strings.ToLower(path)
	for _, frag := range rule.PathLacks {
		if strings.Contains(lower, frag) {
			return false
		}
	}
	if len(rule.PathHas) == 0 {
		return true
	}
	for _, frag := range rule.PathHas {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}
