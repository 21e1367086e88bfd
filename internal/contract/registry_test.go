package contract

import (
	"testing"
)

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Register(FeatureContract{
		FeatureName: "user auth",
		Endpoints: []APIEndpoint{
			{Method: "POST", Path: "/api/auth/login", Component: "backend"},
			{Method: "POST", Path: "/api/auth/register", Component: "backend"},
		},
		Models: []DataModel{{Name: "User", TableName: "users"}},
	})

	fc, ok := r.Get("user auth")
	if !ok {
		t.Fatal("contract not found after Register")
	}
	if len(fc.Endpoints) != 2 {
		t.Fatalf("endpoints = %d, want 2", len(fc.Endpoints))
	}
	if fc.CreatedAt.IsZero() {
		t.Fatal("CreatedAt not set")
	}
}

func TestAllEndpointsKeepsEveryDeclaration(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Register(FeatureContract{
		FeatureName: "a",
		Endpoints:   []APIEndpoint{{Method: "GET", Path: "/api/x"}},
	})
	r.Register(FeatureContract{
		FeatureName: "b",
		Endpoints:   []APIEndpoint{{Method: "GET", Path: "/api/x"}},
	})

	// The index keeps the last writer, but AllEndpoints surfaces both
	// declarations so the consistency check can see the conflict.
	if got := len(r.AllEndpoints()); got != 2 {
		t.Fatalf("AllEndpoints = %d entries, want 2", got)
	}
}

func TestContextForExcludesOwnComponent(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Register(FeatureContract{
		FeatureName: "items",
		Endpoints: []APIEndpoint{
			{Method: "GET", Path: "/api/items", Component: "backend"},
		},
		Models: []DataModel{{Name: "Item", TableName: "items"}},
	})

	brief := r.ContextFor("backend", "items")
	if len(brief.ExistingEndpoints) != 0 {
		t.Fatalf("backend brief should not include its own endpoints, got %d", len(brief.ExistingEndpoints))
	}

	brief = r.ContextFor("frontend", "items")
	if len(brief.ExistingEndpoints) != 1 {
		t.Fatalf("frontend brief endpoints = %d, want 1", len(brief.ExistingEndpoints))
	}
	if len(brief.ExistingModels) != 1 {
		t.Fatalf("frontend brief models = %d, want 1", len(brief.ExistingModels))
	}
}

func TestRecordPatternUpdateMerges(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.RecordPatternUpdate(PatternUpdate{
		Patterns:          []string{"REST controllers"},
		NamingConventions: map[string]string{"tables": "snake_case"},
	})
	r.RecordPatternUpdate(PatternUpdate{
		Patterns:          []string{"JWT auth middleware"},
		NamingConventions: map[string]string{"components": "PascalCase"},
	})

	gc := r.Context()
	if len(gc.EstablishedPatterns) != 2 {
		t.Fatalf("patterns = %v", gc.EstablishedPatterns)
	}
	if gc.NamingConventions["tables"] != "snake_case" || gc.NamingConventions["components"] != "PascalCase" {
		t.Fatalf("naming conventions = %v", gc.NamingConventions)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(store, nil)
	r.Register(FeatureContract{
		FeatureName: "User Auth",
		Endpoints:   []APIEndpoint{{Method: "POST", Path: "/api/auth/login"}},
	})
	r.RecordPatternUpdate(PatternUpdate{Patterns: []string{"REST"}})

	r2 := NewRegistry(store, nil)
	if err := r2.Restore(); err != nil {
		t.Fatal(err)
	}
	if _, ok := r2.Get("User Auth"); !ok {
		t.Fatal("contract not restored from file store")
	}
	if got := r2.Context().EstablishedPatterns; len(got) != 1 || got[0] != "REST" {
		t.Fatalf("restored patterns = %v", got)
	}
}
