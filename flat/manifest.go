// Package flat implements the legacy flat manifest: every file of a
// revision listed in one sorted text blob.
//
// The tree manifest renders its Text through this package's Writer, so a
// tree and a flat manifest holding the same files produce the same bytes.
package flat

import (
	"fmt"
	"iter"
	"slices"

	"github.com/CuylerR/Meta-sapling-OS/internal/node"
)

// Manifest is a flat path → (node, flag) map.
type Manifest struct {
	entries map[string]Record
}

// New returns an empty manifest.
func New() *Manifest {
	return &Manifest{entries: make(map[string]Record)}
}

// Parse builds a manifest from text in either format.
func Parse(data []byte) (*Manifest, error) {
	records, err := Decode(data)
	if err != nil {
		return nil, err
	}
	m := New()
	for _, r := range records {
		m.entries[r.Path] = r
	}
	return m, nil
}

// Set records path with the given node and flag.
func (m *Manifest) Set(path string, id node.ID, flag string) {
	m.entries[path] = Record{Path: path, Node: id, Flag: flag}
}

// SetFlag replaces the flag of an existing path.
func (m *Manifest) SetFlag(path, flag string) error {
	r, ok := m.entries[path]
	if !ok {
		return fmt.Errorf("flat: %q not found", path)
	}
	r.Flag = flag
	m.entries[path] = r
	return nil
}

func (m *Manifest) Get(path string) (Record, bool) {
	r, ok := m.entries[path]
	return r, ok
}

func (m *Manifest) Delete(path string) {
	delete(m.entries, path)
}

func (m *Manifest) Len() int {
	return len(m.entries)
}

// Records yields entries in path order.
func (m *Manifest) Records() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, path := range m.sortedPaths() {
			if !yield(m.entries[path]) {
				return
			}
		}
	}
}

// Text renders the manifest in the given format.
func (m *Manifest) Text(format Format) []byte {
	w := NewWriter(format)
	for r := range m.Records() {
		w.Add(r.Path, r.Node, r.Flag)
	}
	return w.Bytes()
}

func (m *Manifest) sortedPaths() []string {
	paths := make([]string, 0, len(m.entries))
	for p := range m.entries {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}
