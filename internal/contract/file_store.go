package contract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const contextFileName = "generation_context.json"

// FileStore keeps one JSON file per feature contract under dir, plus a
// generation_context.json for the shared context.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = ".contracts"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("contract: create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) SaveContract(fc FeatureContract) error {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.contractPath(fc.FeatureName), data, 0o644)
}

func (s *FileStore) SaveContext(gc GenerationContext) error {
	data, err := json.MarshalIndent(gc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, contextFileName), data, 0o644)
}

func (s *FileStore) LoadAll() ([]FeatureContract, *GenerationContext, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var contracts []FeatureContract
	var genCtx *GenerationContext
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, nil, err
		}
		if e.Name() == contextFileName {
			var gc GenerationContext
			if err := json.Unmarshal(data, &gc); err != nil {
				return nil, nil, fmt.Errorf("contract: decode %s: %w", e.Name(), err)
			}
			genCtx = &gc
			continue
		}
		if !strings.HasSuffix(e.Name(), "_contract.json") {
			continue
		}
		var fc FeatureContract
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, nil, fmt.Errorf("contract: decode %s: %w", e.Name(), err)
		}
		contracts = append(contracts, fc)
	}
	return contracts, genCtx, nil
}

func (s *FileStore) contractPath(feature string) string {
	name := strings.ToLower(strings.ReplaceAll(feature, " ", "_"))
	return filepath.Join(s.dir, name+"_contract.json")
}
