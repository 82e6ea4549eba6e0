package treemanifest

import (
	"bytes"
	"io"
	"io/fs"
)

// file is an open regular file of a Snapshot.
type file struct {
	*bytes.Reader
	info *fileInfo
}

func newFile(info *fileInfo, data []byte) *file {
	fi := *info
	fi.size = int64(len(data))
	return &file{Reader: bytes.NewReader(data), info: &fi}
}

func (f *file) Stat() (fs.FileInfo, error) {
	return f.info, nil
}

func (f *file) Close() error {
	return nil
}

// dirFile is an open directory of a Snapshot.
type dirFile struct {
	snap    *Snapshot
	info    *fileInfo
	path    string
	entries []fs.DirEntry
	offset  int
	read    bool
}

func (d *dirFile) Stat() (fs.FileInfo, error) {
	return d.info, nil
}

func (d *dirFile) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.path, Err: fs.ErrInvalid}
}

func (d *dirFile) Close() error {
	return nil
}

func (d *dirFile) ReadDir(n int) ([]fs.DirEntry, error) {
	if !d.read {
		entries, err := d.snap.ReadDir(d.path)
		if err != nil {
			return nil, err
		}
		d.entries, d.read = entries, true
	}

	rest := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	n = min(n, len(rest))
	d.offset += n
	return rest[:n], nil
}
