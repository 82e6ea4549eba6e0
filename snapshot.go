package treemanifest

import (
	"errors"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"
)

// ContentFunc returns the bytes of the file revision f at path. Manifests
// only hold node ids, so file content comes from the caller.
type ContentFunc func(path string, f File) ([]byte, error)

// Snapshot is a read-only io/fs view of a manifest at one point in time.
// Later changes to the manifest it was taken from are not visible. It is safe
// for concurrent use.
type Snapshot struct {
	m       *Manifest
	content ContentFunc
}

var (
	_ fs.ReadDirFS = (*Snapshot)(nil)
	_ fs.StatFS    = (*Snapshot)(nil)
)

// Snapshot returns an fs.FS over m's files. content may be nil, in which
// case every file reads as empty.
func (m *Manifest) Snapshot(content ContentFunc) *Snapshot {
	return &Snapshot{m: m.Copy(), content: content}
}

// Manifest returns the snapshot's manifest. Modifying the result does not
// affect the snapshot.
func (s *Snapshot) Manifest() *Manifest {
	return s.m.Copy()
}

func (s *Snapshot) Open(name string) (fs.File, error) {
	info, err := s.stat("open", name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return &dirFile{snap: s, info: info, path: name}, nil
	}

	var data []byte
	if s.content != nil {
		data, err = s.content(name, info.file)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
	}
	return newFile(info, data), nil
}

func (s *Snapshot) Stat(name string) (fs.FileInfo, error) {
	info, err := s.stat("stat", name)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (s *Snapshot) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	d, err := s.m.findDir(manifestPath(name))
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fsError(err)}
	}

	entries := make([]fs.DirEntry, 0, len(d.entries))
	for i := range d.entries {
		e := &d.entries[i]
		entries = append(entries, fs.FileInfoToDirEntry(&fileInfo{name: e.name, dir: e.isDir(), file: e.file}))
	}
	// io/fs wants name order, which differs from canonical order around '/'.
	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return entries, nil
}

func (s *Snapshot) stat(op, name string) (*fileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		return &fileInfo{name: ".", dir: true}, nil
	}

	f, err := s.m.find(name)
	if err == nil {
		return &fileInfo{name: path.Base(name), file: f}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, &fs.PathError{Op: op, Path: name, Err: fsError(err)}
	}
	if _, err := s.m.findDir(name); err != nil {
		return nil, &fs.PathError{Op: op, Path: name, Err: fsError(err)}
	}
	return &fileInfo{name: path.Base(name), dir: true}, nil
}

func manifestPath(name string) string {
	if name == "." {
		return ""
	}
	return name
}

func fsError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fs.ErrNotExist
	case errors.Is(err, ErrInvalidArgument):
		return fs.ErrInvalid
	}
	return err
}

// fileInfo describes a manifest entry. Modes are derived from the flag.
type fileInfo struct {
	name string
	dir  bool
	file File
	size int64
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return fi.size }
func (fi *fileInfo) ModTime() time.Time { return time.Time{} }
func (fi *fileInfo) IsDir() bool        { return fi.dir }

// Sys returns the entry's File; directories return the zero File.
func (fi *fileInfo) Sys() any { return fi.file }

func (fi *fileInfo) Mode() fs.FileMode {
	switch {
	case fi.dir:
		return fs.ModeDir | 0o755
	case fi.file.Flag == FlagSymlink:
		return fs.ModeSymlink | 0o777
	case fi.file.Flag == FlagExec:
		return 0o755
	}
	return 0o644
}
