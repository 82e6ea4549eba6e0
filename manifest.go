package treemanifest

import (
	"context"
	"errors"
	"fmt"
)

// Manifest maps file paths to (node, flag) pairs as a tree of directories.
//
// A Manifest is not safe for concurrent use. Copy is O(1) and the copies
// share every unmodified directory, so independent copies may be used from
// different goroutines.
type Manifest struct {
	root  *dirNode
	store Store
	owner *owner
	opts  *Options
}

// New creates an empty manifest. store is used to load directories of
// manifests this one is derived from; it may be nil for purely in-memory use.
func New(store Store, opts ...Option) *Manifest {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	o := &owner{}
	return &Manifest{
		root:  newDir(o),
		store: store,
		owner: o,
		opts:  options,
	}
}

// Load binds a manifest to the stored root directory id. Nothing is read
// until the first traversal.
func Load(store Store, root Node, opts ...Option) *Manifest {
	m := New(store, opts...)
	if !root.IsNull() {
		m.root = storedDir(root)
	}
	return m
}

// Node returns the root id and true if the manifest is fully written.
func (m *Manifest) Node() (Node, bool) {
	id := m.root.persisted()
	return id, !id.IsNull()
}

// Store returns the store directories are loaded from.
func (m *Manifest) Store() Store {
	return m.store
}

func (m *Manifest) load(d *dirNode, path string) error {
	return d.materialize(context.Background(), m.store, path)
}

// Set records path with node and flag, replacing a directory of the same
// name if there is one. A NullID node deletes the path.
func (m *Manifest) Set(path string, id Node, flag Flag) error {
	if id.IsNull() {
		if flag != FlagNone {
			return invalid("flag %q given without a node for %q", string(flag), path)
		}
		return m.Remove(path)
	}
	if err := flag.validate(); err != nil {
		return fmt.Errorf("%q: %w", path, err)
	}
	comps, err := splitPath(path)
	if err != nil {
		return err
	}
	return m.apply(comps, &File{Node: id, Flag: flag})
}

// Remove deletes the file at path. Removing an absent path is a no-op.
// Directories left empty are pruned.
func (m *Manifest) Remove(path string) error {
	comps, err := splitPath(path)
	if err != nil {
		return err
	}
	return m.apply(comps, nil)
}

func (m *Manifest) apply(comps []string, value *File) error {
	s := setter{ctx: context.Background(), store: m.store, owner: m.owner}
	root, changed, err := s.set(m.root, "", comps, value)
	if err != nil || !changed {
		return err
	}
	if root == nil {
		root = newDir(m.owner)
		root.prior = m.root.base()
	}
	m.root = root
	return nil
}

// SetFlag changes the flag of an existing file.
func (m *Manifest) SetFlag(path string, flag Flag) error {
	f, err := m.find(path)
	if err != nil {
		return err
	}
	return m.Set(path, f.Node, flag)
}

// SetNode sets the node of path, keeping its flag if it exists.
func (m *Manifest) SetNode(path string, id Node) error {
	flag := FlagNone
	if f, err := m.find(path); err == nil {
		flag = f.Flag
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return m.Set(path, id, flag)
}

// Find returns the node and flag of the file at path. A missing path or a
// directory yields ErrNotFound.
func (m *Manifest) Find(path string) (Node, Flag, error) {
	f, err := m.find(path)
	return f.Node, f.Flag, err
}

func (m *Manifest) find(path string) (File, error) {
	comps, err := splitPath(path)
	if err != nil {
		return File{}, err
	}

	d, dirPath := m.root, ""
	for i, name := range comps {
		if err := m.load(d, dirPath); err != nil {
			return File{}, err
		}
		j, ok := d.lookup(name)
		if !ok {
			return File{}, notFound(path)
		}
		e := d.entries[j]
		if i == len(comps)-1 {
			if e.isDir() {
				return File{}, notFound(path)
			}
			return e.file, nil
		}
		if !e.isDir() {
			return File{}, notFound(path)
		}
		d, dirPath = e.dir, joinPath(dirPath, name)
	}
	return File{}, notFound(path)
}

// findDir returns the materialized directory at path; "" is the root.
func (m *Manifest) findDir(path string) (*dirNode, error) {
	d := m.root
	if path != "" {
		comps, err := splitPath(path)
		if err != nil {
			return nil, err
		}
		dirPath := ""
		for _, name := range comps {
			if err := m.load(d, dirPath); err != nil {
				return nil, err
			}
			i, ok := d.search(name, true)
			if !ok {
				return nil, notFound(path)
			}
			d, dirPath = d.entries[i].dir, joinPath(dirPath, name)
		}
	}
	if err := m.load(d, path); err != nil {
		return nil, err
	}
	return d, nil
}

// Get returns the node of the file at path. It never fails; anything but a
// file reports false.
func (m *Manifest) Get(path string) (Node, bool) {
	f, err := m.find(path)
	if err != nil {
		m.logLookupError(path, err)
		return NullID, false
	}
	return f.Node, true
}

// Flags returns the flag of the file at path, or def if there is none.
func (m *Manifest) Flags(path string, def Flag) Flag {
	f, err := m.find(path)
	if err != nil {
		m.logLookupError(path, err)
		return def
	}
	return f.Flag
}

// Contains reports whether path is a file. Directories are not contained.
func (m *Manifest) Contains(path string) bool {
	_, err := m.find(path)
	return err == nil
}

// HasDir reports whether path is a directory.
func (m *Manifest) HasDir(path string) bool {
	if path == "" {
		return false
	}
	_, err := m.findDir(path)
	return err == nil
}

func (m *Manifest) logLookupError(path string, err error) {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidArgument) {
		return
	}
	m.opts.Logger.WithError(err).WithField("path", path).Warn("Manifest lookup failed")
}

// ListDir returns the names directly inside dir ("" for the root) in
// canonical order. Subdirectory names carry a trailing '/'.
func (m *Manifest) ListDir(dir string) ([]string, error) {
	d, err := m.findDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(d.entries))
	for i := range d.entries {
		e := &d.entries[i]
		if e.isDir() {
			names = append(names, e.name+"/")
		} else {
			names = append(names, e.name)
		}
	}
	return names, nil
}

// Dirs returns every directory path in canonical order.
func (m *Manifest) Dirs() ([]string, error) {
	var dirs []string
	var walk func(d *dirNode, path string) error
	walk = func(d *dirNode, path string) error {
		if err := m.load(d, path); err != nil {
			return err
		}
		for i := range d.entries {
			e := &d.entries[i]
			if !e.isDir() {
				continue
			}
			sub := joinPath(path, e.name)
			dirs = append(dirs, sub)
			if err := walk(e.dir, sub); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(m.root, ""); err != nil {
		return nil, err
	}
	return dirs, nil
}

// Empty reports whether the manifest holds no files.
func (m *Manifest) Empty() (bool, error) {
	if err := m.load(m.root, ""); err != nil {
		return false, err
	}
	return len(m.root.entries) == 0, nil
}

// Len counts the files.
func (m *Manifest) Len() (int, error) {
	n := 0
	it := m.Iter()
	for it.Next() {
		n++
	}
	return n, it.Err()
}

// Keys returns every file path in canonical order.
func (m *Manifest) Keys() ([]string, error) {
	var keys []string
	it := m.Iter()
	for it.Next() {
		keys = append(keys, it.Path())
	}
	return keys, it.Err()
}

// Copy returns a manifest sharing all of m's directories. Later changes to
// either one are invisible to the other.
func (m *Manifest) Copy() *Manifest {
	m.owner = &owner{}
	return &Manifest{
		root:  m.root,
		store: m.store,
		owner: &owner{},
		opts:  m.opts,
	}
}

// Text renders every file as a flat manifest text, byte-identical to a
// flat manifest holding the same files.
func (m *Manifest) Text(format Format) ([]byte, error) {
	w := newTextWriter(format)
	it := m.Iter()
	for it.Next() {
		f := it.File()
		w.Add(it.Path(), f.Node, string(f.Flag))
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Matches returns a new manifest holding only the files pred accepts.
func (m *Manifest) Matches(pred func(path string) bool) (*Manifest, error) {
	out := &Manifest{store: m.store, opts: m.opts, owner: &owner{}}
	out.root = newDir(out.owner)

	it := m.Iter()
	for it.Next() {
		if !pred(it.Path()) {
			continue
		}
		f := it.File()
		if err := out.Set(it.Path(), f.Node, f.Flag); err != nil {
			return nil, err
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// FilesNotIn returns the files of m that other lacks, in canonical order.
func (m *Manifest) FilesNotIn(other *Manifest) ([]string, error) {
	changes, err := m.Diff(other, false)
	if err != nil {
		return nil, err
	}
	var paths []string
	for path, c := range changes {
		if c.Old.Present() && !c.New.Present() {
			paths = append(paths, path)
		}
	}
	sortPaths(paths)
	return paths, nil
}
