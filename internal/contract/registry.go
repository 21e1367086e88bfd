package contract

import (
	"log"
	"sync"
	"time"
)

// Registry is the in-memory index of all feature contracts plus the shared
// generation context. Writes go through the configured Store so a restarted
// service can reload state; persistence failures are logged and do not fail
// the registration.
type Registry struct {
	mu        sync.RWMutex
	store     Store
	contracts map[string]FeatureContract
	endpoints map[string]APIEndpoint // "METHOD path" -> endpoint, last write wins
	models    map[string]DataModel
	deps      map[string]map[string]struct{}
	genCtx    GenerationContext
	logger    *log.Logger
}

func NewRegistry(store Store, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		store:     store,
		contracts: make(map[string]FeatureContract),
		endpoints: make(map[string]APIEndpoint),
		models:    make(map[string]DataModel),
		deps:      make(map[string]map[string]struct{}),
		genCtx: GenerationContext{
			NamingConventions: make(map[string]string),
			CodeStyle:         make(map[string]string),
		},
		logger: logger,
	}
}

// Restore loads previously persisted contracts and context into the
// registry. Call once at startup.
func (r *Registry) Restore() error {
	if r.store == nil {
		return nil
	}
	contracts, genCtx, err := r.store.LoadAll()
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fc := range contracts {
		r.index(fc)
	}
	if genCtx != nil {
		r.genCtx = *genCtx
		if r.genCtx.NamingConventions == nil {
			r.genCtx.NamingConventions = make(map[string]string)
		}
		if r.genCtx.CodeStyle == nil {
			r.genCtx.CodeStyle = make(map[string]string)
		}
	}
	return nil
}

// Register records a feature contract and indexes its endpoints and models.
// An endpoint with the same method and path as an existing one silently
// replaces it in the index; the full contract keeps every entry.
func (r *Registry) Register(fc FeatureContract) {
	if fc.CreatedAt.IsZero() {
		fc.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	r.index(fc)
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.SaveContract(fc); err != nil {
			r.logger.Printf("contract: persist %q failed: %v", fc.FeatureName, err)
		}
	}
}

// index must be called with r.mu held.
func (r *Registry) index(fc FeatureContract) {
	r.contracts[fc.FeatureName] = fc
	for _, ep := range fc.Endpoints {
		r.endpoints[ep.Key()] = ep
	}
	for _, m := range fc.Models {
		r.models[m.Name] = m
	}
	if len(fc.Dependencies) > 0 {
		set := r.deps[fc.FeatureName]
		if set == nil {
			set = make(map[string]struct{})
			r.deps[fc.FeatureName] = set
		}
		for _, d := range fc.Dependencies {
			set[d] = struct{}{}
		}
	}
}

// Get returns the contract for a feature, if registered.
func (r *Registry) Get(feature string) (FeatureContract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fc, ok := r.contracts[feature]
	return fc, ok
}

// Features lists registered feature names.
func (r *Registry) Features() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.contracts))
	for name := range r.contracts {
		out = append(out, name)
	}
	return out
}

// AllEndpoints returns every endpoint from every contract. Duplicated
// method+path pairs across features appear once per declaration; the
// consistency check flags them rather than this accessor hiding them.
func (r *Registry) AllEndpoints() []APIEndpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []APIEndpoint
	for _, fc := range r.contracts {
		out = append(out, fc.Endpoints...)
	}
	return out
}

// AllModels returns every data model from every contract.
func (r *Registry) AllModels() []DataModel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []DataModel
	for _, fc := range r.contracts {
		out = append(out, fc.Models...)
	}
	return out
}

// Context returns a copy of the shared generation context.
func (r *Registry) Context() GenerationContext {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyContext(r.genCtx)
}

// ContextFor builds the brief a component receives before generating:
// endpoints and models declared so far plus the accumulated conventions.
// Endpoints declared by the requesting component itself are excluded so a
// regeneration does not treat its own earlier output as a foreign contract.
func (r *Registry) ContextFor(component, feature string) Brief {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b := Brief{
		Component:         component,
		Feature:           feature,
		Patterns:          append([]string(nil), r.genCtx.EstablishedPatterns...),
		Decisions:         append([]string(nil), r.genCtx.ArchitecturalDecisions...),
		SecurityStandards: append([]string(nil), r.genCtx.SecurityStandards...),
		NamingConventions: copyMap(r.genCtx.NamingConventions),
		CodeStyle:         copyMap(r.genCtx.CodeStyle),
	}
	for _, fc := range r.contracts {
		for _, ep := range fc.Endpoints {
			if ep.Component != component {
				b.ExistingEndpoints = append(b.ExistingEndpoints, ep)
			}
		}
		b.ExistingModels = append(b.ExistingModels, fc.Models...)
	}
	return b
}

// RecordPatternUpdate merges a component's reported conventions into the
// shared context and persists it.
func (r *Registry) RecordPatternUpdate(up PatternUpdate) {
	r.mu.Lock()
	r.genCtx.EstablishedPatterns = append(r.genCtx.EstablishedPatterns, up.Patterns...)
	r.genCtx.ArchitecturalDecisions = append(r.genCtx.ArchitecturalDecisions, up.Decisions...)
	r.genCtx.SecurityStandards = append(r.genCtx.SecurityStandards, up.SecurityStandards...)
	for k, v := range up.NamingConventions {
		r.genCtx.NamingConventions[k] = v
	}
	for k, v := range up.CodeStyle {
		r.genCtx.CodeStyle[k] = v
	}
	snapshot := copyContext(r.genCtx)
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.SaveContext(snapshot); err != nil {
			r.logger.Printf("contract: persist context failed: %v", err)
		}
	}
}

func copyContext(gc GenerationContext) GenerationContext {
	return GenerationContext{
		EstablishedPatterns:    append([]string(nil), gc.EstablishedPatterns...),
		ArchitecturalDecisions: append([]string(nil), gc.ArchitecturalDecisions...),
		SecurityStandards:      append([]string(nil), gc.SecurityStandards...),
		NamingConventions:      copyMap(gc.NamingConventions),
		CodeStyle:              copyMap(gc.CodeStyle),
	}
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
