package treemanifest

import (
	"errors"
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotWalk(t *testing.T) {
	m := build(t, map[string]Flag{
		"a-":       "",
		"a/b":      "x",
		"a/c/d.go": "",
		"link":     "l",
	})
	snap := m.Snapshot(nil)

	var walked []string
	err := fs.WalkDir(snap, ".", func(p string, d fs.DirEntry, err error) error {
		require.NoError(t, err)
		walked = append(walked, p)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{".", "a", "a/b", "a/c", "a/c/d.go", "a-", "link"}, walked)

	matches, err := fs.Glob(snap, "a/*/*.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/c/d.go"}, matches)
}

func TestSnapshotStat(t *testing.T) {
	m := build(t, map[string]Flag{"bin/tool": "x", "bin/link": "l", "doc.txt": ""})
	snap := m.Snapshot(nil)

	info, err := fs.Stat(snap, "bin/tool")
	require.NoError(t, err)
	assert.Equal(t, "tool", info.Name())
	assert.Equal(t, fs.FileMode(0o755), info.Mode())
	assert.Equal(t, File{Node: testNode("bin/tool"), Flag: FlagExec}, info.Sys())

	info, err = fs.Stat(snap, "bin/link")
	require.NoError(t, err)
	assert.Equal(t, fs.ModeSymlink, info.Mode().Type())

	info, err = fs.Stat(snap, "bin")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	info, err = fs.Stat(snap, ".")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = fs.Stat(snap, "missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	_, err = fs.Stat(snap, "/abs")
	assert.ErrorIs(t, err, fs.ErrInvalid)
	_, err = fs.ReadDir(snap, "doc.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestSnapshotReadFile(t *testing.T) {
	m := build(t, map[string]Flag{"a/b": "", "c": ""})
	content := func(p string, f File) ([]byte, error) {
		if p == "c" {
			return nil, errors.New("no revision")
		}
		return []byte(p + "@" + f.Node.Short()), nil
	}
	snap := m.Snapshot(content)

	data, err := fs.ReadFile(snap, "a/b")
	require.NoError(t, err)
	assert.Equal(t, "a/b@"+testNode("a/b").Short(), string(data))

	_, err = fs.ReadFile(snap, "c")
	assert.ErrorContains(t, err, "no revision")

	f, err := snap.Open("a")
	require.NoError(t, err)
	_, err = f.Read(make([]byte, 1))
	assert.ErrorIs(t, err, fs.ErrInvalid)

	rd := f.(fs.ReadDirFile)
	first, err := rd.ReadDir(1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "b", first[0].Name())
	_, err = rd.ReadDir(1)
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, f.Close())
}

func TestSnapshotIsolated(t *testing.T) {
	m := build(t, map[string]Flag{"a": ""})
	snap := m.Snapshot(nil)

	require.NoError(t, m.Set("b", testNode("b"), FlagNone))
	require.NoError(t, m.Remove("a"))

	_, err := fs.Stat(snap, "a")
	require.NoError(t, err)
	_, err = fs.Stat(snap, "b")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	keys, err := snap.Manifest().Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys)
}
