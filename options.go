package treemanifest

import (
	"github.com/sirupsen/logrus"

	"github.com/CuylerR/Meta-sapling-OS/flat"
)

// Format selects the directory and text encoding.
type Format = flat.Format

const (
	FormatV1 = flat.V1
	FormatV2 = flat.V2
)

// Options configures a Manifest.
type Options struct {
	Format Format
	Logger logrus.FieldLogger
}

// Option is a functional option for configuring New and Load.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Format: FormatV1,
		Logger: logrus.StandardLogger(),
	}
}

// WithFormat sets the encoding used for directories written by Write.
func WithFormat(f Format) Option {
	return func(o *Options) {
		if f == FormatV1 || f == FormatV2 {
			o.Format = f
		}
	}
}

// WithLogger sets the logger used for write diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

type writeOptions struct {
	base   *Manifest
	deltas bool
}

// WriteOption configures Write.
type WriteOption func(*writeOptions)

// WithBase makes directories identical to base's reuse base's stored
// objects, and changed ones delta against base's version.
func WithBase(base *Manifest) WriteOption {
	return func(o *writeOptions) { o.base = base }
}

// WithoutDeltas stores every written directory as a full object.
func WithoutDeltas() WriteOption {
	return func(o *writeOptions) { o.deltas = false }
}
