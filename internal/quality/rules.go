package quality

import "regexp"

// Rule is one heuristic check applied to a generated file. When Pattern
// finds no match in an applicable file, Penalty is deducted. PathHas limits
// the rule to files whose path contains any of the fragments; PathLacks
// skips files containing any of them.
type Rule struct {
	Name      string
	Pattern   *regexp.Regexp
	PathHas   []string
	PathLacks []string
	Penalty   float64
	Critical  bool
	Message   string
}

// RuleSet is the ordered rule list for one component. Files whose path ends
// in one of SkipSuffixes are exempt from the rules (but not from the
// generic size and brace checks).
type RuleSet struct {
	Component    string
	SkipSuffixes []string
	Rules        []Rule
}

// RulesFor returns the rule set for a component. Unknown components get an
// empty set, so only the generic checks apply.
func RulesFor(component string) RuleSet {
	switch component {
	case "backend":
		return backendRules
	case "frontend":
		return frontendRules
	case "database":
		return databaseRules
	default:
		return RuleSet{Component: component}
	}
}

var backendRules = RuleSet{
	Component:    "backend",
	SkipSuffixes: []string{".sql", ".env.example", ".md", ".json"},
	Rules: []Rule{
		{
			Name:     "error_handling",
			Pattern:  regexp.MustCompile(`try\s*\{|catch\s*\(|\.catch\(|next\(|throw\s+new`),
			Penalty:  2.0,
			Critical: true,
			Message:  "no error handling (try/catch, next(err) or throw)",
		},
		{
			Name:     "input_validation",
			Pattern:  regexp.MustCompile(`joi\.|Joi\.|validator\.|validate\(|schema\.`),
			PathHas:  []string{"controller", "route"},
			Penalty:  1.5,
			Critical: true,
			Message:  "no input validation in request-handling code",
		},
		{
			Name:     "security_middleware",
			Pattern:  regexp.MustCompile(`helmet|cors|sanitize|escape|bcrypt|jwt`),
			PathHas:  []string{"auth", "security"},
			Penalty:  1.5,
			Critical: true,
			Message:  "auth/security file without security primitives",
		},
		{
			Name:      "async_await",
			Pattern:   regexp.MustCompile(`async\s|await\s|\.then\(`),
			PathLacks: []string{"config"},
			Penalty:   1.0,
			Message:   "no async handling for I/O-bound code",
		},
		{
			Name:    "logging",
			Pattern: regexp.MustCompile(`console\.(log|error|warn)|logger\.|winston|pino`),
			Penalty: 0.5,
			Message: "no logging statements",
		},
		{
			Name:    "status_codes",
			Pattern: regexp.MustCompile(`\.status\(\s*\d{3}\s*\)|sendStatus\(`),
			PathHas: []string{"controller"},
			Penalty: 1.0,
			Message: "controller without explicit HTTP status codes",
		},
		{
			Name:    "app_middleware",
			Pattern: regexp.MustCompile(`app\.use\(`),
			PathHas: []string{"app.js", "server.js"},
			Penalty: 1.0,
			Message: "app entry without middleware wiring",
		},
	},
}

var frontendRules = RuleSet{
	Component:    "frontend",
	SkipSuffixes: []string{".css", ".scss", ".svg", ".json", ".md", ".html"},
	Rules: []Rule{
		{
			Name:    "typescript_types",
			Pattern: regexp.MustCompile(`:\s*\w+(\[\])?[\s=,)]|interface\s+\w+|type\s+\w+\s*=`),
			PathHas: []string{".ts", ".tsx"},
			Penalty: 1.0,
			Message: "TypeScript file without type annotations",
		},
		{
			Name:    "proper_hooks",
			Pattern: regexp.MustCompile(`use(State|Effect|Callback|Memo|Ref|Context)\(`),
			PathHas: []string{"component", "hook"},
			Penalty: 1.0,
			Message: "component without React hooks usage",
		},
		{
			Name:     "error_handling",
			Pattern:  regexp.MustCompile(`try\s*\{|\.catch\(|ErrorBoundary|componentDidCatch|onError`),
			Penalty:  1.5,
			Critical: true,
			Message:  "no error handling for async or render failures",
		},
		{
			Name:    "loading_states",
			Pattern: regexp.MustCompile(`loading|isLoading|pending|Suspense|Skeleton`),
			PathHas: []string{"component"},
			Penalty: 1.0,
			Message: "component without loading state handling",
		},
		{
			Name:    "accessibility",
			Pattern: regexp.MustCompile(`aria-|role=|alt=|htmlFor=`),
			PathHas: []string{"component"},
			Penalty: 0.5,
			Message: "component without accessibility attributes",
		},
		{
			Name:    "input_security",
			Pattern: regexp.MustCompile(`sanitize|escape|DOMPurify|encodeURIComponent`),
			PathHas: []string{"form", "input"},
			Penalty: 1.0,
			Message: "form/input handling without sanitization",
		},
	},
}

var databaseRules = RuleSet{
	Component:    "database",
	SkipSuffixes: []string{".md", ".json"},
	Rules: []Rule{
		{
			Name:     "primary_keys",
			Pattern:  regexp.MustCompile(`(?i)PRIMARY\s+KEY`),
			PathHas:  []string{".sql"},
			Penalty:  2.0,
			Critical: true,
			Message:  "schema without primary keys",
		},
		{
			Name:    "constraints",
			Pattern: regexp.MustCompile(`(?i)NOT\s+NULL|UNIQUE|CHECK\s*\(|REFERENCES`),
			PathHas: []string{".sql"},
			Penalty: 1.0,
			Message: "schema without integrity constraints",
		},
		{
			Name:    "indexes",
			Pattern: regexp.MustCompile(`(?i)CREATE\s+(UNIQUE\s+)?INDEX`),
			PathHas: []string{".sql"},
			Penalty: 0.5,
			Message: "no indexes defined",
		},
		{
			Name:    "timestamps",
			Pattern: regexp.MustCompile(`(?i)TIMESTAMPTZ|TIMESTAMP|created_at`),
			PathHas: []string{".sql"},
			Penalty: 0.5,
			Message: "tables without audit timestamps",
		},
	},
}
