package store

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/CuylerR/Meta-sapling-OS/internal/node"
)

type memoryObject struct {
	data      []byte
	deltaBase node.ID
}

// MemoryStore keeps fulltexts in a map. It records the delta base each
// object was added with so callers can inspect write behaviour.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	refs    map[string]node.ID
	adds    int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		refs:    make(map[string]node.ID),
	}
}

func (s *MemoryStore) Get(ctx context.Context, path string, id node.ID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[objectKey(path, id)]
	if !ok {
		return nil, fmt.Errorf("%w: %q@%s", ErrNotFound, path, id.Short())
	}
	return bytes.Clone(obj.data), nil
}

func (s *MemoryStore) Add(ctx context.Context, path string, id, deltaBase node.ID, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := objectKey(path, id)
	if _, ok := s.objects[key]; ok {
		return nil
	}
	s.objects[key] = memoryObject{data: bytes.Clone(data), deltaBase: deltaBase}
	s.adds++
	return nil
}

// Has reports whether (path, id) is stored.
func (s *MemoryStore) Has(path string, id node.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[objectKey(path, id)]
	return ok
}

// DeltaBase returns the base (path, id) was added with.
func (s *MemoryStore) DeltaBase(path string, id node.ID) (node.ID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[objectKey(path, id)]
	return obj.deltaBase, ok
}

// Adds returns the number of objects actually stored.
func (s *MemoryStore) Adds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adds
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

func (s *MemoryStore) GetRef(name string) (node.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.refs[name]
	if !ok {
		return node.Null, fmt.Errorf("%w: %s", ErrRefMissing, name)
	}
	return id, nil
}

func (s *MemoryStore) PutRef(name string, id node.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[name] = id
	return nil
}
