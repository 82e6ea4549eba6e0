package treemanifest

import (
	"github.com/CuylerR/Meta-sapling-OS/internal/node"
	"github.com/CuylerR/Meta-sapling-OS/internal/store"
)

// Node is a 20-byte file revision or directory object id.
type Node = node.ID

// NullID is the zero Node. It stands for "absent".
var NullID = node.Null

// NodeFromHex parses a 40 character hex node id.
func NodeFromHex(s string) (Node, error) {
	return node.FromHex(s)
}

// Store is the persistence contract for directory objects.
// Re-exported from internal/store for convenience.
type Store = store.Store

// RefStore maps names to root ids.
type RefStore = store.RefStore

// StoreOptions configures the bundled persistent stores.
type StoreOptions = store.Options

// Bundled stores.
type (
	MemoryStore = store.MemoryStore
	LocalStore  = store.LocalStore
	BadgerStore = store.BadgerStore
)

// NewMemoryStore returns an in-process Store.
func NewMemoryStore() *MemoryStore {
	return store.NewMemoryStore()
}

// OpenLocalStore opens a filesystem Store rooted at dir.
func OpenLocalStore(dir string, opts StoreOptions) (*LocalStore, error) {
	return store.NewLocalStore(dir, opts)
}

// OpenBadgerStore opens a badger backed Store at dir; "" is in-memory.
func OpenBadgerStore(dir string, opts StoreOptions) (*BadgerStore, error) {
	return store.NewBadgerStore(dir, opts)
}

// DefaultStoreOptions enables zstd compression and deltas.
func DefaultStoreOptions() StoreOptions {
	return store.DefaultOptions()
}
