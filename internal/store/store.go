// Package store implements the content storage layer for directory objects.
//
// A Store keeps the serialized bytes of every directory revision keyed by
// (directory path, node id):
// - Get returns the full bytes of one revision
// - Add records a revision, optionally as a delta against an older one
// - identical (path, node) pairs are only stored once
//
// MemoryStore is the in-process implementation used by tests. LocalStore
// (filesystem) and BadgerStore (badger/v4) persist zstd records and keep a
// fulltext LRU cache in front of the backend.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/CuylerR/Meta-sapling-OS/internal/node"
)

var (
	ErrNotFound   = errors.New("store: object not found")
	ErrRefMissing = errors.New("store: ref not found")
	ErrCorrupt    = errors.New("store: corrupt record")
)

// Store handles directory object storage.
type Store interface {
	// Get retrieves the full bytes of the directory revision id at path.
	Get(ctx context.Context, path string, id node.ID) ([]byte, error)

	// Add stores data as revision id of path. deltaBase names an earlier
	// revision of the same path the store may encode data against;
	// node.Null means no base.
	Add(ctx context.Context, path string, id, deltaBase node.ID, data []byte) error
}

// RefStore maps names to root ids.
type RefStore interface {
	GetRef(name string) (node.ID, error)
	PutRef(name string, id node.ID) error
}

// objectKey returns a stable key for (path, id). The path is kept verbatim
// so keys sort by directory.
func objectKey(path string, id node.ID) string {
	return fmt.Sprintf("%s\x00%s", path, id.Hex())
}
