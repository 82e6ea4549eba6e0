package store

// DefaultMaxDeltaChain bounds how many deltas are resolved to rebuild one
// fulltext before a full record is written instead.
const DefaultMaxDeltaChain = 32

// Options configures the persistent stores.
type Options struct {
	CompressionLevel int // 1 fastest .. 4 best
	Compression      bool
	CacheSize        int
	MaxDeltaChain    int
}

// DefaultOptions returns compression on at the default level.
func DefaultOptions() Options {
	return Options{
		CompressionLevel: 2,
		Compression:      true,
		CacheSize:        DefaultCacheSize,
		MaxDeltaChain:    DefaultMaxDeltaChain,
	}
}
