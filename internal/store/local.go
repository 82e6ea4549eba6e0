package store

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/CuylerR/Meta-sapling-OS/internal/node"
)

// LocalStore implements Store using the local filesystem.
//
// Storage layout:
//
//	basePath/
//	  objects/
//	    ab/cd123.../<path digest>  (one record per directory revision)
//	  refs/
//	    main  (plain text: 40 hex characters)
type LocalStore struct {
	*objectStore
	basePath string
}

type localBackend struct {
	basePath string
}

// NewLocalStore opens (creating if needed) a filesystem store at basePath.
func NewLocalStore(basePath string, opts Options) (*LocalStore, error) {
	objectsDir := filepath.Join(basePath, "objects")
	refsDir := filepath.Join(basePath, "refs")

	for _, dir := range []string{objectsDir, refsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	b := &localBackend{basePath: basePath}
	objects, err := newObjectStore(b, opts, logrus.WithField("store", basePath))
	if err != nil {
		return nil, err
	}

	return &LocalStore{objectStore: objects, basePath: basePath}, nil
}

func (b *localBackend) read(path string, id node.ID) ([]byte, error) {
	data, err := os.ReadFile(b.objectPath(path, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q@%s", ErrNotFound, path, id.Short())
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

func (b *localBackend) write(path string, id node.ID, data []byte) error {
	target := b.objectPath(path, id)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write then rename so a crashed write never leaves a torn record.
	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}

func (b *localBackend) has(path string, id node.ID) (bool, error) {
	_, err := os.Stat(b.objectPath(path, id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// objectPath returns the filesystem path for an object.
// Git-style sharding on the node id: objects/ab/cd123.../<path digest>
func (b *localBackend) objectPath(path string, id node.ID) string {
	hash := id.Hex()
	sum := sha1.Sum([]byte(path))
	return filepath.Join(b.basePath, "objects", hash[:2], hash[2:], hex.EncodeToString(sum[:8]))
}

// GetRef retrieves a reference.
func (s *LocalStore) GetRef(name string) (node.ID, error) {
	data, err := os.ReadFile(s.refPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return node.Null, fmt.Errorf("%w: %s", ErrRefMissing, name)
		}
		return node.Null, err
	}
	return node.FromHex(strings.TrimSpace(string(data)))
}

// PutRef stores a reference.
func (s *LocalStore) PutRef(name string, id node.ID) error {
	path := s.refPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create ref directory: %w", err)
	}
	return os.WriteFile(path, []byte(id.Hex()+"\n"), 0644)
}

// Close releases the compressor.
func (s *LocalStore) Close() error {
	return s.comp.Close()
}

// refPath returns the filesystem path for a reference.
func (s *LocalStore) refPath(name string) string {
	return filepath.Join(s.basePath, "refs", name)
}
