// Package remote replicates directory objects through an OCI registry.
//
// Based on go-containerregistry patterns:
// - Authentication via keychain or static credentials
// - Objects packed into zstd layers, grouped by id prefix
// - Root id carried as an image config label
package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/CuylerR/Meta-sapling-OS/internal/node"
)

// Remote moves a set of directory objects and their root id.
type Remote interface {
	// Push uploads objects keyed by ObjectKey and records root.
	Push(ctx context.Context, root node.ID, objects map[string][]byte) error

	// Pull downloads the last pushed root and its objects.
	Pull(ctx context.Context) (root node.ID, objects map[string][]byte, err error)
}

// ObjectKey names a directory object for transfer: 40 hex digits, ':', then
// the directory path. Keys of the same id share the leading hex prefix.
func ObjectKey(path string, id node.ID) string {
	return id.Hex() + ":" + path
}

// ParseObjectKey reverses ObjectKey.
func ParseObjectKey(key string) (string, node.ID, error) {
	hexID, path, ok := strings.Cut(key, ":")
	if !ok {
		return "", node.Null, fmt.Errorf("object key %q: missing separator", key)
	}
	id, err := node.FromHex(hexID)
	if err != nil {
		return "", node.Null, fmt.Errorf("object key %q: %w", key, err)
	}
	return path, id, nil
}
