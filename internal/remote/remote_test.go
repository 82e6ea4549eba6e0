package remote

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CuylerR/Meta-sapling-OS/internal/node"
)

func sampleObjects(n int) map[string][]byte {
	objects := make(map[string][]byte, n)
	for i := 0; i < n; i++ {
		data := []byte(fmt.Sprintf("dir%03d\x00%040d\n", i, i))
		objects[ObjectKey(fmt.Sprintf("dir%03d", i), node.Sum("tree", data))] = data
	}
	return objects
}

func TestObjectKey(t *testing.T) {
	id := node.Sum("tree", []byte("x"))

	for _, path := range []string{"", "a", "a/b:c"} {
		key := ObjectKey(path, id)
		assert.Equal(t, id.Hex(), key[:40])

		gotPath, gotID, err := ParseObjectKey(key)
		require.NoError(t, err)
		assert.Equal(t, path, gotPath)
		assert.Equal(t, id, gotID)
	}

	_, _, err := ParseObjectKey("nocolon")
	assert.Error(t, err)
	_, _, err = ParseObjectKey("zz:path")
	assert.Error(t, err)
}

func TestPackUnpackLayer(t *testing.T) {
	objects := sampleObjects(50)
	objects[ObjectKey("empty", node.Sum("tree", nil))] = []byte{}

	packed := PackLayer(objects)
	unpacked, err := UnpackLayer(packed)
	require.NoError(t, err)
	assert.Equal(t, objects, unpacked)

	// Deterministic regardless of map order.
	assert.Equal(t, packed, PackLayer(unpacked))
}

func TestUnpackLayerEmpty(t *testing.T) {
	unpacked, err := UnpackLayer(nil)
	require.NoError(t, err)
	assert.Empty(t, unpacked)
}

func TestUnpackLayerTruncated(t *testing.T) {
	packed := PackLayer(sampleObjects(3))

	for _, cut := range []int{1, 10, len(packed) - 1} {
		_, err := UnpackLayer(packed[:cut])
		assert.Error(t, err, "cut at %d", cut)
	}
}

func TestGroupByPrefix(t *testing.T) {
	objects := sampleObjects(100)
	groups := GroupByPrefix(objects)

	total := 0
	for prefix, group := range groups {
		assert.Len(t, prefix, 2)
		for key := range group {
			assert.Equal(t, prefix, key[:2])
		}
		total += len(group)
	}
	assert.Equal(t, len(objects), total)
}

func TestBuildLayerPlan(t *testing.T) {
	t.Run("small prefixes share a layer", func(t *testing.T) {
		plan := BuildLayerPlan(map[string]int64{"00": 100, "01": 200, "ff": 300})
		assert.Equal(t, [][]string{{"00", "01", "ff"}}, plan)
	})

	t.Run("splits at soft max", func(t *testing.T) {
		plan := BuildLayerPlan(map[string]int64{
			"00": LayerSoftMax - 10,
			"01": LayerSoftMax - 10,
			"02": 5,
		})
		assert.Equal(t, [][]string{{"00"}, {"01", "02"}}, plan)
	})

	t.Run("small layer absorbs a large prefix", func(t *testing.T) {
		plan := BuildLayerPlan(map[string]int64{
			"00": LayerMinSize - 1,
			"01": LayerSoftMax,
		})
		assert.Equal(t, [][]string{{"00", "01"}}, plan)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, BuildLayerPlan(nil))
	})
}

func TestImageRoundTrip(t *testing.T) {
	objects := sampleObjects(20)
	root := node.Sum("tree", []byte("root"))

	img, err := buildImage(BuildLayers(objects), root, len(objects))
	require.NoError(t, err)

	cfg, err := img.ConfigFile()
	require.NoError(t, err)
	assert.Equal(t, root.Hex(), cfg.Config.Labels[RootLabel])
	assert.Equal(t, "20", cfg.Config.Labels[CountLabel])

	gotRoot, gotObjects, err := ReadImage(context.Background(), img, 2)
	require.NoError(t, err)
	assert.Equal(t, root, gotRoot)
	assert.Equal(t, objects, gotObjects)
}

func TestReadImageMissingRoot(t *testing.T) {
	_, _, err := ReadImage(context.Background(), empty.Image, 1)
	assert.ErrorContains(t, err, RootLabel)
}

func TestNewOCIRemote(t *testing.T) {
	r, err := NewOCIRemote("registry.example.com/repo/manifests", StaticAuthenticator{})
	require.NoError(t, err)
	assert.Equal(t, "registry.example.com", r.Registry())
	assert.Equal(t, "latest", r.Tag())

	tagged, err := r.WithTag("main")
	require.NoError(t, err)
	assert.Equal(t, "main", tagged.Tag())

	_, err = NewOCIRemote("Not A Ref!", nil)
	assert.Error(t, err)
}

func TestStaticAuthenticator(t *testing.T) {
	a, err := StaticAuthenticator{}.Authenticate("example.com")
	require.NoError(t, err)
	cfg, err := a.Authorization()
	require.NoError(t, err)
	assert.Empty(t, cfg.Username)

	a, err = StaticAuthenticator{Username: "u", Password: "p"}.Authenticate("example.com")
	require.NoError(t, err)
	cfg, err = a.Authorization()
	require.NoError(t, err)
	assert.Equal(t, "u", cfg.Username)
	assert.Equal(t, "p", cfg.Password)
}
