package treemanifest

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Flag is per-file metadata: empty, or exactly one byte.
type Flag string

const (
	FlagNone    Flag = ""
	FlagExec    Flag = "x"
	FlagSymlink Flag = "l"

	// dirFlag marks subdirectory entries in serialized directories and is
	// never a valid file flag.
	dirFlag = "t"
)

func (f Flag) validate() error {
	switch {
	case len(f) > 1:
		return invalid("flag %q longer than one byte", string(f))
	case f == dirFlag:
		return invalid("flag %q is reserved for directories", string(f))
	case f == "\n":
		return invalid("flag %q cannot be encoded: entries are newline terminated", string(f))
	}
	return nil
}

// File is the value stored for a path.
type File struct {
	Node Node
	Flag Flag
}

// Present reports whether f names a file; the zero File means absent.
func (f File) Present() bool {
	return !f.Node.IsNull()
}

// owner tags the nodes a Manifest may mutate in place. Copy retires the
// token, after which every existing node is shared and path-copied on write.
type owner struct{ _ byte }

type entry struct {
	name string
	file File
	dir  *dirNode
}

func (e *entry) isDir() bool {
	return e.dir != nil
}

// dirNode represents one directory level. A node is either materialized
// (entries loaded) or a bare reference to a stored object to be fetched on
// first traversal.
type dirNode struct {
	mu sync.Mutex // guards loading and id

	id     Node // stored object id; NullID while dirty
	prior  Node // id this node was derived from, used as delta base
	loaded bool

	entries []entry // canonical order
	owner   *owner
}

func newDir(o *owner) *dirNode {
	return &dirNode{loaded: true, owner: o}
}

func storedDir(id Node) *dirNode {
	return &dirNode{id: id}
}

// persisted returns the stored id, or NullID if d has unwritten changes.
func (d *dirNode) persisted() Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.id
}

// base returns the id a replacement for d should delta against.
func (d *dirNode) base() Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.id.IsNull() {
		return d.prior
	}
	return d.id
}

func (d *dirNode) markPersisted(id Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.id = id
	d.prior = NullID
}

// materialize loads d's entries from s if they are not in memory yet.
func (d *dirNode) materialize(ctx context.Context, s Store, path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.loaded {
		return nil
	}
	if s == nil {
		return &StoreError{Op: "get", Path: path, Node: d.id, Err: errors.New("no store bound")}
	}

	data, err := s.Get(ctx, path, d.id)
	if err != nil {
		return &StoreError{Op: "get", Path: path, Node: d.id, Err: err}
	}
	if got := hashDir(data); got != d.id {
		return fmt.Errorf("%w: %q: content hashes to %s, want %s", ErrCorrupt, path, got.Short(), d.id.Short())
	}

	entries, err := decodeDir(data)
	if err != nil {
		return fmt.Errorf("%w: %q@%s: %v", ErrCorrupt, path, d.id.Short(), err)
	}

	d.entries = entries
	d.loaded = true
	return nil
}

// mutable returns a node that o may modify: d itself when o owns it,
// otherwise a shallow copy sharing all children.
func (d *dirNode) mutable(o *owner) *dirNode {
	if d.owner == o {
		if !d.id.IsNull() {
			d.prior, d.id = d.id, NullID
		}
		return d
	}

	return &dirNode{
		owner:   o,
		loaded:  true,
		prior:   d.base(),
		entries: slices.Clone(d.entries),
	}
}

// keyByte returns the byte at i of a sort key, where directories sort as
// if their name carried a trailing '/'. -1 marks the end of the key.
func keyByte(name string, dir bool, i int) int {
	switch {
	case i < len(name):
		return int(name[i])
	case i == len(name) && dir:
		return '/'
	default:
		return -1
	}
}

// compareKeys orders entries by unsigned bytes of name, or name+"/" for
// directories.
func compareKeys(a string, adir bool, b string, bdir bool) int {
	n := min(len(a), len(b))
	if c := strings.Compare(a[:n], b[:n]); c != 0 {
		return c
	}
	for i := n; ; i++ {
		ca, cb := keyByte(a, adir, i), keyByte(b, bdir, i)
		if ca != cb {
			return cmp.Compare(ca, cb)
		}
		if ca < 0 {
			return 0
		}
	}
}

func compareEntries(a, b *entry) int {
	return compareKeys(a.name, a.isDir(), b.name, b.isDir())
}

func (d *dirNode) search(name string, dir bool) (int, bool) {
	return slices.BinarySearchFunc(d.entries, name, func(e entry, target string) int {
		return compareKeys(e.name, e.isDir(), target, dir)
	})
}

// lookup finds name as a file or as a directory.
func (d *dirNode) lookup(name string) (int, bool) {
	if i, ok := d.search(name, false); ok {
		return i, true
	}
	return d.search(name, true)
}

func (d *dirNode) insert(e entry) {
	i, _ := d.search(e.name, e.isDir())
	d.entries = slices.Insert(d.entries, i, e)
}

// setter carries the state of one mutation down the tree.
type setter struct {
	ctx   context.Context
	store Store
	owner *owner
}

// set stores value (nil removes) at comps below d. It returns the node to
// put in d's place, nil when d ended up empty, and whether anything changed.
// Nodes on the path are copied unless owned; siblings are shared.
func (s *setter) set(d *dirNode, dirPath string, comps []string, value *File) (*dirNode, bool, error) {
	if err := d.materialize(s.ctx, s.store, dirPath); err != nil {
		return d, false, err
	}

	name := comps[0]
	i, found := d.lookup(name)

	if len(comps) == 1 {
		switch {
		case value == nil:
			if !found || d.entries[i].isDir() {
				return d, false, nil
			}
			nd := d.mutable(s.owner)
			nd.entries = slices.Delete(nd.entries, i, i+1)
			return pruned(nd), true, nil
		case found && !d.entries[i].isDir():
			if d.entries[i].file == *value {
				return d, false, nil
			}
			nd := d.mutable(s.owner)
			nd.entries[i].file = *value
			return nd, true, nil
		default:
			// New name, or a directory replaced by a file.
			nd := d.mutable(s.owner)
			if found {
				nd.entries = slices.Delete(nd.entries, i, i+1)
			}
			nd.insert(entry{name: name, file: *value})
			return nd, true, nil
		}
	}

	var child *dirNode
	switch {
	case found && d.entries[i].isDir():
		child = d.entries[i].dir
	case value == nil:
		return d, false, nil
	default:
		// New name, or a file replaced by a directory.
		child = newDir(s.owner)
	}

	newChild, changed, err := s.set(child, joinPath(dirPath, name), comps[1:], value)
	if err != nil || !changed {
		return d, false, err
	}

	nd := d.mutable(s.owner)
	switch {
	case found && nd.entries[i].isDir() && newChild != nil:
		nd.entries[i].dir = newChild
	case found:
		nd.entries = slices.Delete(nd.entries, i, i+1)
		if newChild != nil {
			nd.insert(entry{name: name, dir: newChild})
		}
	default:
		nd.insert(entry{name: name, dir: newChild})
	}
	return pruned(nd), true, nil
}

func pruned(d *dirNode) *dirNode {
	if len(d.entries) == 0 {
		return nil
	}
	return d
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// splitPath validates a file path and returns its components.
func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, invalid("empty path")
	}
	comps := strings.Split(path, "/")
	for _, c := range comps {
		if c == "" {
			return nil, invalid("path %q has an empty component", path)
		}
		if strings.ContainsAny(c, "\x00\n") {
			return nil, invalid("path %q contains NUL or newline", path)
		}
	}
	return comps, nil
}
