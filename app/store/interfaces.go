package store

import "context"

// DocumentStore reads and writes whole named JSON documents. The subscriber
// collection is one such document, read once per operation and written back
// wholesale; there is no per-record access and no cross-process locking.
type DocumentStore interface {
	// Get returns the document body, or (nil, nil) when the document does
	// not exist yet.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte) error
	Close() error
}
