package badger

import "github.com/halcyonlabs/ringsight/storage"

// NewMemoryIndex creates an in-memory vector index for testing.
// Data is lost when the index is closed.
func NewMemoryIndex() (storage.VectorIndex, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	return newIndex(backend), nil
}
