package component

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"stackforge/internal/contract"
)

// Backend generates a Node/Express API layer.
type Backend struct{}

func (Backend) Name() string { return "backend" }

func (Backend) GeneratePrompt(features []string, chunks []ContextChunk) string {
	var b strings.Builder
	b.WriteString(`You are an expert Node.js backend engineer. Generate a complete Express
backend for the features below.

Requirements:
- Express with helmet, cors and express.json middleware
- Controllers with try/catch and next(err), explicit HTTP status codes
- Joi validation for every request body
- bcrypt for passwords, JWT for auth where the features need it
- Sequelize models for persistent entities
- console or winston logging in every controller

Respond with a single JSON object mapping file paths to complete file
contents, nothing else. Example:
{"src/app.js": "...", "src/routes/items.js": "..."}

`)
	b.WriteString(RenderChunks(chunks))
	return b.String()
}

func (Backend) ImprovementPrompt(files map[string]string, issues []string, current, target float64) string {
	return improvementPrompt("backend", files, issues, current, target)
}

var (
	backendRouteRe = regexp.MustCompile("(?:router|app)\\s*\\.\\s*(get|post|put|delete|patch)\\s*\\(\\s*['\"`]([^'\"`]+)['\"`]")
	sequelizeRe    = regexp.MustCompile(`(?:sequelize|db)\.define\(\s*['"](\w+)['"]|class\s+(\w+)\s+extends\s+Model`)
	serviceRe      = regexp.MustCompile(`class\s+(\w+Service)\b`)
	middlewareRe   = regexp.MustCompile(`app\.use\(\s*(\w+)`)
)

// Extract finds routes, models, services and middleware in the generated
// backend files.
func (Backend) Extract(files map[string]string, features []string) contract.Extracted {
	var ex contract.Extracted
	seenEp := make(map[string]bool)
	seenModel := make(map[string]bool)

	for _, path := range sortedPaths(files) {
		content := files[path]
		for _, m := range backendRouteRe.FindAllStringSubmatch(content, -1) {
			method := strings.ToUpper(m[1])
			route := m[2]
			key := method + " " + route
			if seenEp[key] {
				continue
			}
			seenEp[key] = true
			ex.Endpoints = append(ex.Endpoints, contract.APIEndpoint{
				Method:       method,
				Path:         route,
				AuthRequired: strings.Contains(content, "authenticate") || strings.Contains(content, "requireAuth"),
			})
		}
		for _, m := range sequelizeRe.FindAllStringSubmatch(content, -1) {
			name := m[1]
			if name == "" {
				name = m[2]
			}
			if name == "" || seenModel[name] {
				continue
			}
			seenModel[name] = true
			ex.Models = append(ex.Models, contract.DataModel{
				Name:      name,
				TableName: tableName(name),
			})
		}
		for _, m := range serviceRe.FindAllStringSubmatch(content, -1) {
			ex.Services = appendUnique(ex.Services, m[1])
		}
		if strings.Contains(path, "app.js") || strings.Contains(path, "server.js") {
			for _, m := range middlewareRe.FindAllStringSubmatch(content, -1) {
				ex.Middleware = appendUnique(ex.Middleware, m[1])
			}
		}
	}
	return ex
}

// Skeleton is the minimal backend used when the oracle's output cannot be
// parsed at all.
func (Backend) Skeleton() map[string]string {
	return map[string]string{
		"src/app.js": `const express = require('express');
const helmet = require('helmet');
const cors = require('cors');

const app = express();
app.use(helmet());
app.use(cors());
app.use(express.json());

app.get('/health', (req, res) => res.status(200).json({ status: 'ok' }));

app.use((err, req, res, next) => {
  console.error(err);
  res.status(500).json({ error: 'internal error' });
});

module.exports = app;
`,
		"src/server.js": `const app = require('./app');
const port = process.env.PORT || 3000;
app.listen(port, () => console.log('listening on ' + port));
`,
		"package.json": `{
  "name": "generated-backend",
  "version": "0.1.0",
  "main": "src/server.js",
  "dependencies": {
    "express": "^4.18.0",
    "helmet": "^7.0.0",
    "cors": "^2.8.5",
    "joi": "^17.9.0"
  }
}
`,
	}
}

func improvementPrompt(component string, files map[string]string, issues []string, current, target float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You previously generated %s code that scored %.1f/10; the target is %.1f.
Fix the issues below. Respond with a JSON object mapping file paths to
complete corrected file contents. Only include files you changed or added.

Issues:
`, component, current, target)
	for _, is := range issues {
		b.WriteString("- " + is + "\n")
	}
	b.WriteString("\nCurrent files:\n")
	for _, path := range sortedPaths(files) {
		fmt.Fprintf(&b, "--- %s ---\n%s\n", path, files[path])
	}
	return b.String()
}

func sortedPaths(files map[string]string) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// tableName lowercases and naively pluralizes a model name.
func tableName(model string) string {
	t := strings.ToLower(model)
	if strings.HasSuffix(t, "s") {
		return t
	}
	if strings.HasSuffix(t, "y") {
		return t[:len(t)-1] + "ies"
	}
	return t + "s"
}
