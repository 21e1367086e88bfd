package docs

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Manager maintains human-readable project documentation alongside the
// generated artifacts: a README that tracks generation progress and JSON
// snapshots of each stage. Persistence failures are logged and swallowed;
// documentation must never fail a generation run.
type Manager struct {
	dir    string
	logger *log.Logger
}

func NewManager(dir string, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{dir: dir, logger: logger}
}

// InitProject writes the initial README for a new generation run.
func (m *Manager) InitProject(projectID string, features []string) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Project %s\n\n", projectID)
	fmt.Fprintf(&b, "Generation started %s.\n\n## Features\n\n", time.Now().UTC().Format(time.RFC3339))
	for _, f := range features {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\n## Status\n\nIn progress.\n")
	m.write(projectID, "README.md", []byte(b.String()))
}

// RecordCompletion rewrites the README status section after a successful
// run.
func (m *Manager) RecordCompletion(projectID string, features []string, scores map[string]float64, overall float64) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Project %s\n\n", projectID)
	fmt.Fprintf(&b, "Generated %s.\n\n## Features\n\n", time.Now().UTC().Format(time.RFC3339))
	for _, f := range features {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\n## Quality\n\n")
	names := make([]string, 0, len(scores))
	for n := range scores {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(&b, "- %s: %.1f/10\n", n, scores[n])
	}
	fmt.Fprintf(&b, "- overall: %.1f/10\n", overall)
	m.write(projectID, "README.md", []byte(b.String()))
}

// RecordFailure appends the failure to the README so a half-generated
// project explains itself.
func (m *Manager) RecordFailure(projectID, component, reason string) {
	note := fmt.Sprintf("\n## Failure\n\n%s generation failed at %s: %s\n",
		component, time.Now().UTC().Format(time.RFC3339), reason)
	path := filepath.Join(m.dir, projectID, "README.md")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		m.logger.Printf("docs: append failure note: %v", err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(note); err != nil {
		m.logger.Printf("docs: append failure note: %v", err)
	}
}

// SaveStageSnapshot stores a JSON snapshot of one stage's outcome under
// docs/<stage>.json.
func (m *Manager) SaveStageSnapshot(projectID, stage string, payload any) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		m.logger.Printf("docs: marshal %s snapshot: %v", stage, err)
		return
	}
	m.write(projectID, filepath.Join("docs", stage+".json"), data)
}

func (m *Manager) write(projectID, rel string, data []byte) {
	path := filepath.Join(m.dir, projectID, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		m.logger.Printf("docs: mkdir for %s: %v", rel, err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		m.logger.Printf("docs: write %s: %v", rel, err)
	}
}
