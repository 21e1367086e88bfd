package config

import (
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Oracle configures the LLM client and its middleware chain.
type Oracle struct {
	Provider    string // "gemini" or "fake"
	Model       string
	TokenCap    int
	RPS         float64
	Burst       int
	MaxAttempts int
}

// S3 configures the optional object-storage artifact backend.
type S3 struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Config is the resolved service configuration. Flags win over env vars;
// env vars win over defaults. A .env file is loaded when present.
type Config struct {
	Port   string
	AppEnv string

	Oracle Oracle

	ProjectDir  string
	ContractDir string
	ContractDSN string // non-empty selects the Postgres contract store
	S3          S3     // Endpoint non-empty selects the S3 artifact store

	QualityTarget float64
	MaxCycles     int
	TokenBudget   int
}

// Load parses flags and environment into a Config.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	var (
		port     = flag.String("port", "", "listen port (overrides PORT)")
		provider = flag.String("oracle", "", "oracle provider: gemini or fake (overrides ORACLE_PROVIDER)")
	)
	flag.Parse()

	cfg := Config{
		Port:   firstNonEmpty(*port, os.Getenv("PORT"), "8080"),
		AppEnv: firstNonEmpty(os.Getenv("APP_ENV"), "development"),
		Oracle: Oracle{
			Provider:    firstNonEmpty(*provider, os.Getenv("ORACLE_PROVIDER"), "gemini"),
			Model:       firstNonEmpty(os.Getenv("ORACLE_MODEL"), "gemini-2.5-flash"),
			TokenCap:    envInt("ORACLE_TOKEN_CAP", 12000),
			RPS:         envFloat("ORACLE_RPS", 1.0),
			Burst:       envInt("ORACLE_BURST", 2),
			MaxAttempts: envInt("ORACLE_MAX_ATTEMPTS", 3),
		},
		ProjectDir:  firstNonEmpty(os.Getenv("PROJECT_DIR"), "generated_projects"),
		ContractDir: firstNonEmpty(os.Getenv("CONTRACT_DIR"), ".contracts"),
		ContractDSN: os.Getenv("CONTRACT_STORE_PG_DSN"),
		S3: S3{
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Bucket:    firstNonEmpty(os.Getenv("S3_BUCKET"), "stackforge-artifacts"),
			UseSSL:    os.Getenv("S3_USE_SSL") == "true",
		},
		QualityTarget: envFloat("QUALITY_TARGET", 8.0),
		MaxCycles:     envInt("MAX_REFINEMENT_CYCLES", 5),
		TokenBudget:   envInt("CONTEXT_TOKEN_BUDGET", 8000),
	}
	return cfg
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("config: invalid %s=%q, using %d", key, v, def)
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("config: invalid %s=%q, using %g", key, v, def)
	}
	return def
}
