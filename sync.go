package treemanifest

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/CuylerR/Meta-sapling-OS/internal/remote"
)

// Remote replicates written directory objects.
type Remote = remote.Remote

// NewRegistryRemote returns a Remote keeping manifests as OCI images at
// imageRef, authenticating through the Docker keychain.
func NewRegistryRemote(imageRef string) (Remote, error) {
	r, err := remote.NewOCIRemote(imageRef, remote.NewDefaultAuthenticator())
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Subtrees calls fn for every directory of a written manifest, parents
// before children, with the directory's path ("" for the root), id and
// stored bytes. It fails with ErrUnwritten if any directory is dirty.
func (m *Manifest) Subtrees(ctx context.Context, fn func(path string, id Node, data []byte) error) error {
	if _, ok := m.Node(); !ok {
		return ErrUnwritten
	}
	if m.store == nil {
		return invalid("manifest has no store")
	}
	return m.subtrees(ctx, m.root, "", fn)
}

func (m *Manifest) subtrees(ctx context.Context, d *dirNode, path string, fn func(string, Node, []byte) error) error {
	id := d.persisted()
	if id.IsNull() {
		return fmt.Errorf("%w: %q", ErrUnwritten, path)
	}
	data, err := m.store.Get(ctx, path, id)
	if err != nil {
		return &StoreError{Op: "get", Path: path, Node: id, Err: err}
	}
	if err := fn(path, id, data); err != nil {
		return err
	}

	if err := d.materialize(ctx, m.store, path); err != nil {
		return err
	}
	for i := range d.entries {
		e := &d.entries[i]
		if e.isDir() {
			if err := m.subtrees(ctx, e.dir, joinPath(path, e.name), fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Push sends every directory of the written manifest m to r.
func Push(ctx context.Context, m *Manifest, r Remote) (Node, error) {
	if r == nil {
		return NullID, ErrNoRemote
	}
	root, ok := m.Node()
	if !ok {
		return NullID, ErrUnwritten
	}

	objects := make(map[string][]byte)
	err := m.Subtrees(ctx, func(path string, id Node, data []byte) error {
		objects[remote.ObjectKey(path, id)] = data
		return nil
	})
	if err != nil {
		return NullID, err
	}

	if err := r.Push(ctx, root, objects); err != nil {
		return NullID, fmt.Errorf("push %s: %w", root.Short(), err)
	}
	m.opts.Logger.WithFields(logrus.Fields{
		"root":    root.Short(),
		"objects": len(objects),
	}).Info("Pushed manifest")
	return root, nil
}

// Pull fetches a manifest from r into s and returns it loaded from s. Every
// object is checked against its id before it is stored.
func Pull(ctx context.Context, s Store, r Remote, opts ...Option) (*Manifest, error) {
	if r == nil {
		return nil, ErrNoRemote
	}
	root, objects, err := r.Pull(ctx)
	if err != nil {
		return nil, fmt.Errorf("pull: %w", err)
	}

	for key, data := range objects {
		path, id, err := remote.ParseObjectKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if got := hashDir(data); got != id {
			return nil, fmt.Errorf("%w: %q: content hashes to %s, want %s", ErrCorrupt, path, got.Short(), id.Short())
		}
		if err := s.Add(ctx, path, id, NullID, data); err != nil {
			return nil, &StoreError{Op: "add", Path: path, Node: id, Err: err}
		}
	}

	m := Load(s, root, opts...)
	m.opts.Logger.WithFields(logrus.Fields{
		"root":    root.Short(),
		"objects": len(objects),
	}).Info("Pulled manifest")
	return m, nil
}
