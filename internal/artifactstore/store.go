package artifactstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no artifact exists at the key.
var ErrNotFound = errors.New("artifact: not found")

// Store persists generated project files keyed by "projectID/path".
type Store interface {
	Put(ctx context.Context, projectID, path string, data []byte) error
	Get(ctx context.Context, projectID, path string) ([]byte, error)
	List(ctx context.Context, projectID string) ([]string, error)
}
