package store

import (
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/CuylerR/Meta-sapling-OS/internal/node"
)

const (
	prefixObject = "o:"
	prefixRef    = "r:"
)

// BadgerStore implements Store on top of an embedded badger database.
//
// Key layout:
//
//	o:<path>\0<hex id>  → record
//	r:<name>            → 20 byte root id
type BadgerStore struct {
	*objectStore
	db *badgerdb.DB
}

type badgerBackend struct {
	db *badgerdb.DB
}

// NewBadgerStore opens a badger database at dir. An empty dir opens an
// in-memory database.
func NewBadgerStore(dir string, opts Options) (*BadgerStore, error) {
	dbOpts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		dbOpts = dbOpts.WithInMemory(true)
	}

	db, err := badgerdb.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	name := dir
	if name == "" {
		name = "memory"
	}
	objects, err := newObjectStore(&badgerBackend{db: db}, opts, logrus.WithField("store", "badger:"+name))
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BadgerStore{objectStore: objects, db: db}, nil
}

func keyObject(path string, id node.ID) []byte {
	return []byte(prefixObject + objectKey(path, id))
}

func keyRef(name string) []byte {
	return []byte(prefixRef + name)
}

func (b *badgerBackend) read(path string, id node.ID) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyObject(path, id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %q@%s", ErrNotFound, path, id.Short())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

func (b *badgerBackend) write(path string, id node.ID, data []byte) error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(keyObject(path, id), data)
	})
}

func (b *badgerBackend) has(path string, id node.ID) (bool, error) {
	err := b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(keyObject(path, id))
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetRef retrieves a reference.
func (s *BadgerStore) GetRef(name string) (node.ID, error) {
	var id node.ID
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyRef(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id, err = node.FromBytes(val)
			return err
		})
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return node.Null, fmt.Errorf("%w: %s", ErrRefMissing, name)
	}
	return id, err
}

// PutRef stores a reference.
func (s *BadgerStore) PutRef(name string, id node.ID) error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(keyRef(name), id[:])
	})
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	s.comp.Close()
	return s.db.Close()
}
