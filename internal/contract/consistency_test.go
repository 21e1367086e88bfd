package contract

import (
	"strings"
	"testing"
)

func TestValidateConsistencyFlagsDuplicatePaths(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Register(FeatureContract{
		FeatureName: "auth",
		Endpoints:   []APIEndpoint{{Method: "GET", Path: "/api/profile"}},
	})
	r.Register(FeatureContract{
		FeatureName: "profile",
		Endpoints:   []APIEndpoint{{Method: "POST", Path: "/api/profile"}},
	})

	rep := r.ValidateConsistency()
	if len(rep.PathConflicts) != 1 {
		t.Fatalf("path conflicts = %v, want exactly one", rep.PathConflicts)
	}
	if !strings.Contains(rep.PathConflicts[0], "/api/profile") {
		t.Fatalf("conflict message %q does not name the path", rep.PathConflicts[0])
	}
}

func TestValidateConsistencyDetectsCycle(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Register(FeatureContract{FeatureName: "a", Dependencies: []string{"b"}})
	r.Register(FeatureContract{FeatureName: "b", Dependencies: []string{"a"}})

	rep := r.ValidateConsistency()
	if len(rep.DependencyCycles) == 0 {
		t.Fatal("a<->b cycle not detected")
	}
	if rep.OK() {
		t.Fatal("report should not be OK")
	}
}

func TestValidateConsistencyCleanGraph(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Register(FeatureContract{FeatureName: "a", Dependencies: []string{"b"}})
	r.Register(FeatureContract{
		FeatureName: "b",
		Endpoints:   []APIEndpoint{{Method: "GET", Path: "/api/b"}},
	})

	if rep := r.ValidateConsistency(); !rep.OK() {
		t.Fatalf("unexpected problems: %+v", rep)
	}
}

func TestDiamondDependencyIsNotACycle(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Register(FeatureContract{FeatureName: "a", Dependencies: []string{"b", "c"}})
	r.Register(FeatureContract{FeatureName: "b", Dependencies: []string{"d"}})
	r.Register(FeatureContract{FeatureName: "c", Dependencies: []string{"d"}})
	r.Register(FeatureContract{FeatureName: "d"})

	if rep := r.ValidateConsistency(); len(rep.DependencyCycles) != 0 {
		t.Fatalf("diamond flagged as cycle: %v", rep.DependencyCycles)
	}
}
