package treemanifest

import (
	"iter"
	"slices"

	"github.com/CuylerR/Meta-sapling-OS/flat"
)

// Entry is one file yielded by iteration.
type Entry struct {
	Path string
	Node Node
	Flag Flag
}

// Item is a (path, node) pair.
type Item struct {
	Path string
	Node Node
}

type frame struct {
	dir  *dirNode
	path string
	next int
}

// Iterator walks files in canonical order, loading directories as it
// reaches them. Its stack grows with path depth only.
//
//	it := m.Iter()
//	for it.Next() {
//	    fmt.Println(it.Path(), it.File().Node)
//	}
//	if err := it.Err(); err != nil { ... }
//
// The manifest must not be modified during iteration.
type Iterator struct {
	m       *Manifest
	stack   []frame
	started bool

	path string
	file File
	err  error
}

// Iter returns an iterator over all files.
func (m *Manifest) Iter() *Iterator {
	return &Iterator{m: m}
}

// Next advances to the next file. It returns false at the end or on error.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.started {
		it.started = true
		if err := it.m.load(it.m.root, ""); err != nil {
			it.err = err
			return false
		}
		it.stack = append(it.stack, frame{dir: it.m.root})
	}

	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		if top.next >= len(top.dir.entries) {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}
		e := &top.dir.entries[top.next]
		top.next++

		path := joinPath(top.path, e.name)
		if e.isDir() {
			if err := it.m.load(e.dir, path); err != nil {
				it.err = err
				it.stack = nil
				return false
			}
			it.stack = append(it.stack, frame{dir: e.dir, path: path})
			continue
		}

		it.path, it.file = path, e.file
		return true
	}
	return false
}

// Path returns the current file's path.
func (it *Iterator) Path() string { return it.path }

// File returns the current file's node and flag.
func (it *Iterator) File() File { return it.file }

// Err returns the error that stopped iteration, if any.
func (it *Iterator) Err() error { return it.err }

// Entries yields every file. A load failure is yielded once as the error
// and ends the sequence.
func (m *Manifest) Entries() iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		it := m.Iter()
		for it.Next() {
			if !yield(Entry{Path: it.path, Node: it.file.Node, Flag: it.file.Flag}, nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(Entry{}, err)
		}
	}
}

// Items yields (path, node) for every file, with the same error handling
// as Entries.
func (m *Manifest) Items() iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		for e, err := range m.Entries() {
			if !yield(Item{Path: e.Path, Node: e.Node}, err) {
				return
			}
		}
	}
}

func newTextWriter(format Format) *flat.Writer {
	if format != FormatV2 {
		format = FormatV1
	}
	return flat.NewWriter(format)
}

// sortPaths sorts full paths. Plain byte order on full paths equals the
// canonical tree order.
func sortPaths(paths []string) {
	slices.Sort(paths)
}
