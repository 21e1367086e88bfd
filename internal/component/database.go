package component

import (
	"regexp"
	"strings"

	"stackforge/internal/contract"
)

// Database generates SQL migrations for Postgres.
type Database struct{}

func (Database) Name() string { return "database" }

func (Database) GeneratePrompt(features []string, chunks []ContextChunk) string {
	var b strings.Builder
	b.WriteString(`You are an expert database engineer. Generate Postgres migrations for the
features below.

Requirements:
- One numbered migration file per concern (001_init.sql, 002_...)
- Every table has a primary key, NOT NULL constraints and created_at
- Cover every data model listed in the context with a matching table name
- Foreign keys with REFERENCES for relationships, indexes on lookup columns

Respond with a single JSON object mapping file paths to complete file
contents, nothing else.

`)
	b.WriteString(RenderChunks(chunks))
	return b.String()
}

func (Database) ImprovementPrompt(files map[string]string, issues []string, current, target float64) string {
	return improvementPrompt("database", files, issues, current, target)
}

var createTableRe = regexp.MustCompile(`(?i)CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?"?(\w+)"?`)

// Extract lists tables created by the generated migrations.
func (Database) Extract(files map[string]string, features []string) contract.Extracted {
	var ex contract.Extracted
	seen := make(map[string]bool)
	for _, path := range sortedPaths(files) {
		if !strings.HasSuffix(path, ".sql") {
			continue
		}
		for _, m := range createTableRe.FindAllStringSubmatch(files[path], -1) {
			t := strings.ToLower(m[1])
			if !seen[t] {
				seen[t] = true
				ex.Tables = append(ex.Tables, t)
			}
		}
	}
	return ex
}

func (Database) Skeleton() map[string]string {
	return map[string]string{
		"migrations/001_init.sql": `CREATE TABLE IF NOT EXISTS app_meta (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`,
	}
}
