package treemanifest

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CuylerR/Meta-sapling-OS/flat"
	"github.com/CuylerR/Meta-sapling-OS/internal/node"
)

func testNode(s string) Node {
	return node.Sum("blob", []byte(s))
}

func entriesOf(t *testing.T, m *Manifest) []Entry {
	t.Helper()
	var out []Entry
	for e, err := range m.Entries() {
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

func keysOf(t *testing.T, m *Manifest) []string {
	t.Helper()
	keys, err := m.Keys()
	require.NoError(t, err)
	return keys
}

func build(t *testing.T, files map[string]Flag) *Manifest {
	t.Helper()
	m := New(nil)
	for path, flag := range files {
		require.NoError(t, m.Set(path, testNode(path), flag))
	}
	return m
}

func TestSetFind(t *testing.T) {
	m := New(nil)
	require.NoError(t, m.Set("a/b/c", testNode("c"), FlagExec))
	require.NoError(t, m.Set("a/d", testNode("d"), FlagNone))

	id, flag, err := m.Find("a/b/c")
	require.NoError(t, err)
	assert.Equal(t, testNode("c"), id)
	assert.Equal(t, FlagExec, flag)

	got, ok := m.Get("a/d")
	assert.True(t, ok)
	assert.Equal(t, testNode("d"), got)

	_, ok = m.Get("a/zz")
	assert.False(t, ok)

	// Directories are not files.
	_, _, err = m.Find("a/b")
	assert.ErrorIs(t, err, ErrNotFound)
	_, ok = m.Get("a")
	assert.False(t, ok)

	// Resolving past a file fails.
	_, _, err = m.Find("a/d/e")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIterationOrder(t *testing.T) {
	t.Run("directory sorts with trailing slash", func(t *testing.T) {
		for _, order := range [][]string{
			{"abc/def/ghi", "abc/def.ghi"},
			{"abc/def.ghi", "abc/def/ghi"},
		} {
			m := New(nil)
			for _, p := range order {
				require.NoError(t, m.Set(p, testNode(p), FlagNone))
			}
			assert.Equal(t, []string{"abc/def.ghi", "abc/def/ghi"}, keysOf(t, m))
		}
	})

	t.Run("unsigned bytes", func(t *testing.T) {
		for _, order := range [][]string{
			{"abc/def/\xe6\xe9", "abc/def/gh"},
			{"abc/def/gh", "abc/def/\xe6\xe9"},
		} {
			m := New(nil)
			for _, p := range order {
				require.NoError(t, m.Set(p, testNode(p), FlagNone))
			}
			assert.Equal(t, []string{"abc/def/gh", "abc/def/\xe6\xe9"}, keysOf(t, m))
		}
	})

	t.Run("neighbours of a directory name", func(t *testing.T) {
		m := build(t, map[string]Flag{"a0": "", "a/b": "", "a-": ""})
		assert.Equal(t, []string{"a-", "a/b", "a0"}, keysOf(t, m))
	})
}

func TestFileDirReplacement(t *testing.T) {
	m := New(nil)
	require.NoError(t, m.Set("a", testNode("file"), FlagNone))
	require.NoError(t, m.Set("a/b", testNode("nested"), FlagNone))

	assert.False(t, m.Contains("a"))
	assert.True(t, m.HasDir("a"))
	_, _, err := m.Find("a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"a/b"}, keysOf(t, m))

	require.NoError(t, m.Set("a", testNode("file again"), FlagSymlink))
	assert.True(t, m.Contains("a"))
	assert.False(t, m.HasDir("a"))
	assert.False(t, m.Contains("a/b"))
	assert.Equal(t, []string{"a"}, keysOf(t, m))
}

func TestCleanupAfterRemove(t *testing.T) {
	m := New(nil)
	require.NoError(t, m.Set("a/b/c", testNode("c"), FlagNone))
	require.NoError(t, m.Remove("a/b/c"))

	assert.False(t, m.HasDir("a/b"))
	assert.False(t, m.HasDir("a"))
	empty, err := m.Empty()
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, m.Set("a/b", testNode("b"), FlagNone))
	assert.Equal(t, []string{"a/b"}, keysOf(t, m))
	assert.False(t, m.HasDir("a/b"))

	dirs, err := m.Dirs()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, dirs)
}

func TestRemoveKeepsSiblings(t *testing.T) {
	m := build(t, map[string]Flag{"a/b/c": "", "a/b/d": "", "a/e": ""})
	require.NoError(t, m.Remove("a/b/c"))
	assert.Equal(t, []string{"a/b/d", "a/e"}, keysOf(t, m))

	require.NoError(t, m.Remove("a/b/d"))
	assert.Equal(t, []string{"a/e"}, keysOf(t, m))
	assert.False(t, m.HasDir("a/b"))
	assert.True(t, m.HasDir("a"))
}

func TestFlagRoundTrip(t *testing.T) {
	m := New(nil)
	for _, flag := range []Flag{FlagNone, FlagExec, "\x00", FlagSymlink, FlagNone} {
		require.NoError(t, m.Set("dir/file", testNode("f"), flag))

		_, got, err := m.Find("dir/file")
		require.NoError(t, err)
		assert.Equal(t, flag, got)
		assert.Equal(t, flag, m.Flags("dir/file", "z"))
	}

	assert.Equal(t, Flag("z"), m.Flags("missing", "z"))
	assert.Equal(t, FlagNone, m.Flags("dir", FlagNone))
}

func TestDeleteThenFind(t *testing.T) {
	m := build(t, map[string]Flag{"a/b": "", "c": "x"})
	require.NoError(t, m.Remove("c"))

	_, _, err := m.Find("c")
	assert.ErrorIs(t, err, ErrNotFound)

	// Absent paths and directories are left alone.
	require.NoError(t, m.Remove("c"))
	require.NoError(t, m.Remove("nope/deeper"))
	require.NoError(t, m.Remove("a"))
	require.NoError(t, m.Set("a/zz", NullID, FlagNone))
	assert.Equal(t, []string{"a/b"}, keysOf(t, m))
}

func TestInvalidArguments(t *testing.T) {
	m := New(nil)
	id := testNode("x")

	for _, flag := range []Flag{"xl", "t", "\n"} {
		err := m.Set("f", id, flag)
		assert.ErrorIs(t, err, ErrInvalidArgument, "flag %q", flag)
	}
	assert.ErrorContains(t, m.Set("f", id, "\n"), "cannot be encoded")

	assert.ErrorIs(t, m.Set("f", NullID, FlagExec), ErrInvalidArgument)

	for _, path := range []string{"", "/a", "a//b", "a/", "a\x00b", "a\nb"} {
		assert.ErrorIs(t, m.Set(path, id, FlagNone), ErrInvalidArgument, "path %q", path)
	}

	keys := keysOf(t, m)
	assert.Empty(t, keys)
}

func TestSetFlag(t *testing.T) {
	m := New(nil)
	assert.ErrorIs(t, m.SetFlag("missing", FlagExec), ErrNotFound)

	require.NoError(t, m.Set("a/b", testNode("b"), FlagNone))
	require.NoError(t, m.SetFlag("a/b", FlagExec))

	id, flag, err := m.Find("a/b")
	require.NoError(t, err)
	assert.Equal(t, testNode("b"), id)
	assert.Equal(t, FlagExec, flag)

	assert.ErrorIs(t, m.SetFlag("a", FlagExec), ErrNotFound)
	assert.ErrorIs(t, m.SetFlag("a/b", "t"), ErrInvalidArgument)
}

func TestSetNode(t *testing.T) {
	m := New(nil)
	require.NoError(t, m.Set("a", testNode("1"), FlagSymlink))
	require.NoError(t, m.SetNode("a", testNode("2")))

	id, flag, err := m.Find("a")
	require.NoError(t, err)
	assert.Equal(t, testNode("2"), id)
	assert.Equal(t, FlagSymlink, flag)

	require.NoError(t, m.SetNode("b", testNode("3")))
	_, flag, err = m.Find("b")
	require.NoError(t, err)
	assert.Equal(t, FlagNone, flag)
}

func TestDirsHasDirContains(t *testing.T) {
	m := build(t, map[string]Flag{"a/b/c": "", "a/d": "", "e": "", "a.txt": ""})

	dirs, err := m.Dirs()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a/b"}, dirs)

	assert.True(t, m.HasDir("a"))
	assert.True(t, m.HasDir("a/b"))
	assert.False(t, m.HasDir("a/d"))
	assert.False(t, m.HasDir("e"))
	assert.False(t, m.HasDir(""))
	assert.False(t, m.HasDir("zz"))

	assert.True(t, m.Contains("a/d"))
	assert.True(t, m.Contains("a/b/c"))
	assert.False(t, m.Contains("a"))
	assert.False(t, m.Contains("a/b"))
}

func TestListDir(t *testing.T) {
	m := build(t, map[string]Flag{"a/b/c": "", "a/d": "", "e": "", "a-b": ""})

	names, err := m.ListDir("")
	require.NoError(t, err)
	assert.Equal(t, []string{"a-b", "a/", "e"}, names)

	names, err = m.ListDir("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b/", "d"}, names)

	_, err = m.ListDir("e")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.ListDir("zz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeysItemsEntries(t *testing.T) {
	m := New(nil)
	require.NoError(t, m.Set("b", testNode("b"), FlagExec))
	require.NoError(t, m.Set("a/c", testNode("c"), FlagNone))

	assert.Equal(t, []string{"a/c", "b"}, keysOf(t, m))

	var items []Item
	for it, err := range m.Items() {
		require.NoError(t, err)
		items = append(items, it)
	}
	assert.Equal(t, []Item{
		{Path: "a/c", Node: testNode("c")},
		{Path: "b", Node: testNode("b")},
	}, items)

	assert.Equal(t, []Entry{
		{Path: "a/c", Node: testNode("c"), Flag: FlagNone},
		{Path: "b", Node: testNode("b"), Flag: FlagExec},
	}, entriesOf(t, m))

	n, err := m.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Stopping early is fine.
	for e, err := range m.Entries() {
		require.NoError(t, err)
		assert.Equal(t, "a/c", e.Path)
		break
	}
}

func TestCopyIndependence(t *testing.T) {
	m := build(t, map[string]Flag{"a/b": "", "a/c": "", "d": ""})
	c := m.Copy()

	require.NoError(t, c.Set("a/new", testNode("new"), FlagNone))
	require.NoError(t, c.Remove("d"))
	require.NoError(t, m.Set("a/b", testNode("changed"), FlagExec))
	require.NoError(t, m.Remove("a/c"))

	assert.Equal(t, []string{"a/b", "d"}, keysOf(t, m))
	assert.Equal(t, []string{"a/b", "a/c", "a/new"}, keysOf(t, c))

	id, flag, err := c.Find("a/b")
	require.NoError(t, err)
	assert.Equal(t, testNode("a/b"), id)
	assert.Equal(t, FlagNone, flag)

	// A copy of a copy is independent too.
	cc := c.Copy()
	require.NoError(t, cc.Remove("a/b"))
	assert.True(t, c.Contains("a/b"))
	assert.False(t, cc.Contains("a/b"))
}

func TestBushyTree(t *testing.T) {
	m := New(nil)
	for i := 0; i < 300; i++ {
		require.NoError(t, m.Set(fmt.Sprintf("d/f%03d", i), testNode(fmt.Sprint(i)), FlagNone))
		require.NoError(t, m.Set(fmt.Sprintf("d/sub%03d/x", i), testNode(fmt.Sprint(i)), FlagNone))
	}

	keys := keysOf(t, m)
	assert.Len(t, keys, 600)
	assert.True(t, slices.IsSorted(keys))

	names, err := m.ListDir("d")
	require.NoError(t, err)
	assert.Len(t, names, 600)
}

func textFixture() map[string]Flag {
	long := strings.Repeat("p", 300)
	return map[string]Flag{
		"abc/def.ghi":       FlagExec,
		"abc/def/ghi":       FlagNone,
		"abc/def/gh":        FlagSymlink,
		"abc/def/\xe6\xe9":  "\x00",
		"a-":                FlagNone,
		"a/b":               FlagNone,
		"a0":                FlagExec,
		long + "/one":       FlagNone,
		long + "/two":       FlagNone,
		"z/y/x/w/v/u":       FlagNone,
		"with space/file.c": FlagNone,
	}
}

func TestTextMatchesFlat(t *testing.T) {
	files := textFixture()
	m := build(t, files)
	fm := flat.New()
	for path, flag := range files {
		fm.Set(path, testNode(path), string(flag))
	}

	for _, format := range []Format{FormatV1, FormatV2} {
		t.Run(format.String(), func(t *testing.T) {
			text, err := m.Text(format)
			require.NoError(t, err)
			assert.Equal(t, fm.Text(format), text)

			parsed, err := flat.Parse(text)
			require.NoError(t, err)
			assert.Equal(t, len(files), parsed.Len())
		})
	}
}

func TestTextEmpty(t *testing.T) {
	m := New(nil)
	for _, format := range []Format{FormatV1, FormatV2} {
		text, err := m.Text(format)
		require.NoError(t, err)
		assert.Equal(t, flat.New().Text(format), text)
	}
}

func TestMatches(t *testing.T) {
	m := build(t, textFixture())
	pred := func(path string) bool { return strings.HasPrefix(path, "abc/") }

	filtered, err := m.Matches(pred)
	require.NoError(t, err)

	var want []Entry
	for _, e := range entriesOf(t, m) {
		if pred(e.Path) {
			want = append(want, e)
		}
	}
	assert.Len(t, want, 4)
	assert.Equal(t, want, entriesOf(t, filtered))

	// The source is untouched and the result is independent.
	require.NoError(t, filtered.Remove("abc/def.ghi"))
	assert.True(t, m.Contains("abc/def.ghi"))

	none, err := m.Matches(func(string) bool { return false })
	require.NoError(t, err)
	empty, err := none.Empty()
	require.NoError(t, err)
	assert.True(t, empty)
}
