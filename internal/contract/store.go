package contract

import "errors"

// ErrNotFound is returned when a store has no record for the key.
var ErrNotFound = errors.New("contract: not found")

// Store persists feature contracts and the shared generation context.
type Store interface {
	SaveContract(fc FeatureContract) error
	SaveContext(gc GenerationContext) error
	// LoadAll returns every persisted contract plus the generation context,
	// which is nil when none has been saved yet.
	LoadAll() ([]FeatureContract, *GenerationContext, error)
}
