package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	treemanifest "github.com/CuylerR/Meta-sapling-OS"
	"github.com/CuylerR/Meta-sapling-OS/flat"
	"github.com/CuylerR/Meta-sapling-OS/internal/node"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	// Flag values outlive a single Execute.
	for _, f := range []string{"base", "ref"} {
		require.NoError(t, importCmd.Flags().Set(f, ""))
	}
	require.NoError(t, importCmd.Flags().Set("no-deltas", "false"))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func writeFlat(t *testing.T, m *flat.Manifest) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest")
	require.NoError(t, os.WriteFile(path, m.Text(flat.V1), 0o644))
	return path
}

func TestImportCatDiff(t *testing.T) {
	for _, backend := range []string{"local", "badger"} {
		t.Run(backend, func(t *testing.T) {
			viper.Set("store.dir", t.TempDir())
			viper.Set("store.backend", backend)
			t.Cleanup(viper.Reset)

			fm := flat.New()
			fm.Set("README", node.Sum("blob", []byte("readme")), "")
			fm.Set("src/main.go", node.Sum("blob", []byte("main")), "")
			fm.Set("src/run.sh", node.Sum("blob", []byte("run")), "x")

			root := strings.TrimSpace(run(t, "import", writeFlat(t, fm), "--ref", "main"))
			assert.Len(t, root, 40)

			assert.Equal(t, string(fm.Text(flat.V1)), run(t, "cat", "main"))
			assert.Equal(t, string(fm.Text(flat.V1)), run(t, "cat", root))

			fm.Set("src/new.go", node.Sum("blob", []byte("new")), "")
			fm.Delete("README")
			run(t, "import", writeFlat(t, fm), "--base", "main", "--ref", "next")

			assert.Equal(t, "R README\nA src/new.go\n", run(t, "diff", "main", "next"))
			assert.Equal(t, "main.go\nnew.go\nrun.sh\n", run(t, "list", "next", "src"))
		})
	}
}

func TestEnvConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("TREEMANIFEST_STORE_BACKEND", "badger")
	t.Setenv("TREEMANIFEST_STORE_DIR", t.TempDir())
	t.Setenv("TREEMANIFEST_STORE_CACHE_SIZE", "7")
	t.Setenv("TREEMANIFEST_MANIFEST_FORMAT", "v2")

	initConfig()

	assert.Equal(t, "badger", viper.GetString("store.backend"))
	assert.Equal(t, "v2", viper.GetString("manifest.format"))
	assert.Equal(t, 7, storeOptions().CacheSize)

	s, err := openStore()
	require.NoError(t, err)
	assert.IsType(t, &treemanifest.BadgerStore{}, s)
	require.NoError(t, s.Close())
}
