package component

import (
	"regexp"
	"strings"

	"stackforge/internal/contract"
)

// Frontend generates a React/TypeScript client.
type Frontend struct{}

func (Frontend) Name() string { return "frontend" }

func (Frontend) GeneratePrompt(features []string, chunks []ContextChunk) string {
	var b strings.Builder
	b.WriteString(`You are an expert React engineer. Generate a complete TypeScript React
frontend for the features below.

Requirements:
- Function components with hooks, .tsx files, explicit prop interfaces
- Call the backend API endpoints listed in the context; never invent new
  endpoint paths
- try/catch or .catch on every fetch, with user-visible error states
- Loading states for every async view
- aria attributes on interactive elements

Respond with a single JSON object mapping file paths to complete file
contents, nothing else.

`)
	b.WriteString(RenderChunks(chunks))
	return b.String()
}

func (Frontend) ImprovementPrompt(files map[string]string, issues []string, current, target float64) string {
	return improvementPrompt("frontend", files, issues, current, target)
}

var (
	apiCallRe = regexp.MustCompile("(?:fetch|axios(?:\\.(?:get|post|put|delete|patch))?)\\s*\\(\\s*['\"`]([^'\"`]+)['\"`]")
	exportedComponentRe = regexp.MustCompile(`export\s+(?:default\s+)?function\s+([A-Z]\w+)|export\s+const\s+([A-Z]\w+)\s*[:=]`)
	hookRe              = regexp.MustCompile(`function\s+(use[A-Z]\w+)|const\s+(use[A-Z]\w+)\s*=`)
)

// Extract finds API calls, exported components and custom hooks in the
// generated frontend files.
func (Frontend) Extract(files map[string]string, features []string) contract.Extracted {
	var ex contract.Extracted
	seenCall := make(map[string]bool)

	for _, path := range sortedPaths(files) {
		content := files[path]
		for _, m := range apiCallRe.FindAllStringSubmatch(content, -1) {
			url := m[1]
			if !strings.HasPrefix(url, "/") || seenCall[url] {
				continue
			}
			seenCall[url] = true
			ex.APICalls = append(ex.APICalls, url)
		}
		if strings.HasSuffix(path, ".tsx") {
			for _, m := range exportedComponentRe.FindAllStringSubmatch(content, -1) {
				name := m[1]
				if name == "" {
					name = m[2]
				}
				if name != "" && !strings.HasPrefix(name, "Use") {
					ex.Components = appendUnique(ex.Components, name)
				}
			}
		}
		for _, m := range hookRe.FindAllStringSubmatch(content, -1) {
			name := m[1]
			if name == "" {
				name = m[2]
			}
			if name != "" {
				ex.Hooks = appendUnique(ex.Hooks, name)
			}
		}
	}
	return ex
}

func (Frontend) Skeleton() map[string]string {
	return map[string]string{
		"src/App.tsx": `import React from 'react';

export default function App(): JSX.Element {
  return (
    <main>
      <h1>Generated Application</h1>
    </main>
  );
}
`,
		"src/index.tsx": `import React from 'react';
import { createRoot } from 'react-dom/client';
import App from './App';

const el = document.getElementById('root');
if (el) {
  createRoot(el).render(<App />);
}
`,
		"package.json": `{
  "name": "generated-frontend",
  "version": "0.1.0",
  "dependencies": {
    "react": "^18.2.0",
    "react-dom": "^18.2.0"
  },
  "devDependencies": {
    "typescript": "^5.0.0"
  }
}
`,
	}
}
