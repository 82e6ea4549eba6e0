package treemanifest

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("treemanifest: not found")
	ErrInvalidArgument = errors.New("treemanifest: invalid argument")
	ErrCorrupt         = errors.New("treemanifest: corrupt directory object")
	ErrUnwritten       = errors.New("treemanifest: manifest has unwritten changes")
	ErrNoRemote        = errors.New("treemanifest: no remote configured")
)

// StoreError reports a failed Store call. It is fatal to the operation that
// issued it; nothing is retried.
type StoreError struct {
	Op   string // "get" or "add"
	Path string
	Node Node
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("treemanifest: store %s %q@%s: %v", e.Op, e.Path, e.Node.Short(), e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func notFound(path string) error {
	return fmt.Errorf("%w: %q", ErrNotFound, path)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
