package contract

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore persists contracts in Postgres via database/sql with the
// pgx stdlib driver. A small LRU sits in front of reads so repeated brief
// construction does not hit the database.
type PostgresStore struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
	cache      *lru.Cache[string, FeatureContract]
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("contract: open postgres: %w", err)
	}
	cache, err := lru.New[string, FeatureContract](128)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresStore{db: db, cache: cache}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) ensureSchema() error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS feature_contracts (
    feature_name TEXT PRIMARY KEY,
    payload      JSONB NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS generation_context (
    id         INT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
    payload    JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`)
	})
	return s.schemaErr
}

func (s *PostgresStore) SaveContract(fc FeatureContract) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	payload, err := json.Marshal(fc)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
INSERT INTO feature_contracts (feature_name, payload, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (feature_name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		fc.FeatureName, payload)
	if err != nil {
		return fmt.Errorf("contract: upsert %q: %w", fc.FeatureName, err)
	}
	s.cache.Add(fc.FeatureName, fc)
	return nil
}

func (s *PostgresStore) SaveContext(gc GenerationContext) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	payload, err := json.Marshal(gc)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
INSERT INTO generation_context (id, payload, updated_at)
VALUES (1, $1, now())
ON CONFLICT (id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		payload)
	if err != nil {
		return fmt.Errorf("contract: upsert context: %w", err)
	}
	return nil
}

// Contract returns one contract, from cache when possible.
func (s *PostgresStore) Contract(feature string) (FeatureContract, error) {
	if fc, ok := s.cache.Get(feature); ok {
		return fc, nil
	}
	if err := s.ensureSchema(); err != nil {
		return FeatureContract{}, err
	}
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM feature_contracts WHERE feature_name = $1`, feature).Scan(&payload)
	if err == sql.ErrNoRows {
		return FeatureContract{}, ErrNotFound
	}
	if err != nil {
		return FeatureContract{}, err
	}
	var fc FeatureContract
	if err := json.Unmarshal(payload, &fc); err != nil {
		return FeatureContract{}, err
	}
	s.cache.Add(feature, fc)
	return fc, nil
}

func (s *PostgresStore) LoadAll() ([]FeatureContract, *GenerationContext, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, nil, err
	}
	rows, err := s.db.Query(`SELECT payload FROM feature_contracts ORDER BY feature_name`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var contracts []FeatureContract
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, nil, err
		}
		var fc FeatureContract
		if err := json.Unmarshal(payload, &fc); err != nil {
			return nil, nil, err
		}
		contracts = append(contracts, fc)
		s.cache.Add(fc.FeatureName, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var payload []byte
	err = s.db.QueryRow(`SELECT payload FROM generation_context WHERE id = 1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return contracts, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	var gc GenerationContext
	if err := json.Unmarshal(payload, &gc); err != nil {
		return nil, nil, err
	}
	return contracts, &gc, nil
}
