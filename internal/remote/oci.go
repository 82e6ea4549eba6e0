package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/CuylerR/Meta-sapling-OS/internal/node"
)

const (
	DefaultConcurrency = 4

	// RootLabel carries the manifest root id in the image config.
	RootLabel = "dev.treemanifest.root"
	// CountLabel carries the number of packed objects.
	CountLabel = "dev.treemanifest.objects"
)

type OCIRemote struct {
	ref         name.Reference
	auth        Authenticator
	concurrency int
	log         logrus.FieldLogger
}

// NewOCIRemote creates a remote from a standard Docker ref (e.g., "ttl.sh/repo/manifests:main")
func NewOCIRemote(imageRef string, auth Authenticator) (*OCIRemote, error) {
	ref, err := name.ParseReference(imageRef, name.WithDefaultTag("latest"))
	if err != nil {
		return nil, fmt.Errorf("invalid image ref %q: %w", imageRef, err)
	}
	return &OCIRemote{
		ref:         ref,
		auth:        auth,
		concurrency: DefaultConcurrency,
		log:         logrus.WithField("remote", ref.String()),
	}, nil
}

// SetConcurrency sets the number of parallel operations for push/pull
func (r *OCIRemote) SetConcurrency(n int) {
	if n > 0 {
		r.concurrency = n
	}
}

// SetLogger replaces the progress logger.
func (r *OCIRemote) SetLogger(l logrus.FieldLogger) {
	if l != nil {
		r.log = l.WithField("remote", r.ref.String())
	}
}

func (r *OCIRemote) String() string   { return r.ref.String() }
func (r *OCIRemote) Registry() string { return r.ref.Context().RegistryStr() }
func (r *OCIRemote) Tag() string      { return r.ref.Identifier() }

// WithTag returns a new OCIRemote with a different tag
func (r *OCIRemote) WithTag(tag string) (*OCIRemote, error) {
	newRef, err := name.NewTag(r.ref.Context().String()+":"+tag, name.WithDefaultTag("latest"))
	if err != nil {
		return nil, err
	}
	return &OCIRemote{ref: newRef, auth: r.auth, concurrency: r.concurrency, log: r.log}, nil
}

// objectLayer implements v1.Layer with zstd compression for remote transfer
type objectLayer struct {
	compressed   []byte
	uncompressed []byte
}

var zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))

func newObjectLayer(data []byte) *objectLayer {
	return &objectLayer{
		compressed:   zstdEncoder.EncodeAll(data, nil),
		uncompressed: data,
	}
}

func (l *objectLayer) Digest() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.compressed))
	return h, err
}

func (l *objectLayer) DiffID() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.uncompressed))
	return h, err
}

func (l *objectLayer) Compressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.compressed)), nil
}
func (l *objectLayer) Uncompressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.uncompressed)), nil
}
func (l *objectLayer) Size() (int64, error)                { return int64(len(l.compressed)), nil }
func (l *objectLayer) MediaType() (types.MediaType, error) { return types.OCILayerZStd, nil }

// BuildLayers packs objects into zstd layers following BuildLayerPlan.
func BuildLayers(objects map[string][]byte) []v1.Layer {
	byPrefix := GroupByPrefix(objects)
	plan := BuildLayerPlan(CalculatePrefixSizes(byPrefix))

	layers := make([]v1.Layer, 0, len(plan))
	for _, prefixGroup := range plan {
		layers = append(layers, newObjectLayer(PackLayer(CollectPrefixObjects(prefixGroup, byPrefix))))
	}
	return layers
}

// Push uploads all objects and records root in the image config.
func (r *OCIRemote) Push(ctx context.Context, root node.ID, objects map[string][]byte) error {
	layers := BuildLayers(objects)

	var totalRaw, totalCompressed int64
	for _, l := range layers {
		ol := l.(*objectLayer)
		totalRaw += int64(len(ol.uncompressed))
		totalCompressed += int64(len(ol.compressed))
	}
	r.log.WithFields(logrus.Fields{
		"objects":    len(objects),
		"layers":     len(layers),
		"raw":        totalRaw,
		"compressed": totalCompressed,
	}).Info("Uploading layers")

	img, err := buildImage(layers, root, len(objects))
	if err != nil {
		return fmt.Errorf("build image: %w", err)
	}

	if err := r.pushImage(ctx, img); err != nil {
		return fmt.Errorf("push image: %w", err)
	}

	r.log.WithField("root", root.Short()).Debug("Push done")
	return nil
}

func buildImage(layers []v1.Layer, root node.ID, count int) (v1.Image, error) {
	img := empty.Image

	if len(layers) > 0 {
		var err error
		img, err = mutate.AppendLayers(img, layers...)
		if err != nil {
			return nil, err
		}
	}

	cfg, err := img.ConfigFile()
	if err != nil {
		return nil, err
	}

	cfg.Config.Labels = map[string]string{
		RootLabel:  root.Hex(),
		CountLabel: fmt.Sprint(count),
	}

	return mutate.ConfigFile(img, cfg)
}

// ReadImage extracts the root id and objects of an image built by Push.
func ReadImage(ctx context.Context, img v1.Image, concurrency int) (node.ID, map[string][]byte, error) {
	cfg, err := img.ConfigFile()
	if err != nil {
		return node.Null, nil, fmt.Errorf("get config: %w", err)
	}

	label := cfg.Config.Labels[RootLabel]
	if label == "" {
		return node.Null, nil, fmt.Errorf("missing %s label", RootLabel)
	}
	root, err := node.FromHex(label)
	if err != nil {
		return node.Null, nil, fmt.Errorf("%s label: %w", RootLabel, err)
	}

	layers, err := img.Layers()
	if err != nil {
		return node.Null, nil, fmt.Errorf("get layers: %w", err)
	}

	// Download in parallel using conc pool
	var mu sync.Mutex
	objects := make(map[string][]byte)

	p := pool.New().WithMaxGoroutines(max(concurrency, 1)).WithContext(ctx).WithCancelOnError()

	for _, layer := range layers {
		p.Go(func(ctx context.Context) error {
			rc, err := layer.Uncompressed()
			if err != nil {
				return fmt.Errorf("read layer: %w", err)
			}
			data, err := io.ReadAll(rc)
			if cerr := rc.Close(); cerr != nil {
				return fmt.Errorf("close layer: %w", cerr)
			}
			if err != nil {
				return fmt.Errorf("read layer: %w", err)
			}

			unpacked, err := UnpackLayer(data)
			if err != nil {
				return fmt.Errorf("unpack layer: %w", err)
			}

			mu.Lock()
			for k, v := range unpacked {
				objects[k] = v
			}
			mu.Unlock()
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return node.Null, nil, err
	}
	return root, objects, nil
}

func (r *OCIRemote) pushImage(ctx context.Context, img v1.Image) error {
	options := r.remoteOptions(ctx)
	options = append(options, remote.WithJobs(r.concurrency))
	_, err := retry(ctx, 3, func() (struct{}, error) {
		return struct{}{}, remote.Write(r.ref, img, options...)
	})
	return err
}

// Pull downloads the image and unpacks all of its layers.
func (r *OCIRemote) Pull(ctx context.Context) (node.ID, map[string][]byte, error) {
	img, err := retry(ctx, 3, func() (v1.Image, error) {
		return remote.Image(r.ref, r.remoteOptions(ctx)...)
	})
	if err != nil {
		return node.Null, nil, fmt.Errorf("fetch image: %w", err)
	}

	root, objects, err := ReadImage(ctx, img, r.concurrency)
	if err != nil {
		return node.Null, nil, err
	}

	r.log.WithFields(logrus.Fields{
		"root":    root.Short(),
		"objects": len(objects),
	}).Debug("Pull done")
	return root, objects, nil
}

func (r *OCIRemote) remoteOptions(ctx context.Context) []remote.Option {
	options := []remote.Option{remote.WithContext(ctx)}
	if r.auth != nil {
		a, err := r.auth.Authenticate(r.Registry())
		if err == nil {
			return append(options, remote.WithAuth(a))
		}
		r.log.WithError(err).Warn("Authentication failed, falling back to keychain")
	}
	return append(options, remote.WithAuthFromKeychain(authn.DefaultKeychain))
}

func retry[T any](ctx context.Context, maxAttempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := range maxAttempts {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i < maxAttempts-1 {
			delay := time.Duration(1<<i) * 500 * time.Millisecond // 500ms, 1s, 2s, 4s...
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return zero, lastErr
}
