package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/CuylerR/Meta-sapling-OS/internal/compression"
	"github.com/CuylerR/Meta-sapling-OS/internal/node"
)

// Record kinds.
// Format: {kind:1byte}{chain:2bytes}[{base:20bytes} if delta]{payload}
const (
	recordRaw   byte = 'r'
	recordZstd  byte = 'z'
	recordDelta byte = 'd'

	recordHeaderLen = 3
)

// backend is the raw key/value medium behind an objectStore.
type backend interface {
	read(path string, id node.ID) ([]byte, error)
	write(path string, id node.ID, data []byte) error
	has(path string, id node.ID) (bool, error)
}

type record struct {
	kind    byte
	chain   int
	base    node.ID
	payload []byte
}

func decodeRecord(data []byte) (record, error) {
	var r record
	if len(data) < recordHeaderLen {
		return r, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	r.kind = data[0]
	r.chain = int(binary.BigEndian.Uint16(data[1:3]))
	rest := data[recordHeaderLen:]

	switch r.kind {
	case recordRaw, recordZstd:
	case recordDelta:
		if len(rest) < node.Size {
			return r, fmt.Errorf("%w: short delta base", ErrCorrupt)
		}
		copy(r.base[:], rest[:node.Size])
		rest = rest[node.Size:]
	default:
		return r, fmt.Errorf("%w: unknown kind %q", ErrCorrupt, r.kind)
	}
	r.payload = rest
	return r, nil
}

func (r record) encode() []byte {
	var buf bytes.Buffer
	buf.Grow(recordHeaderLen + node.Size + len(r.payload))
	buf.WriteByte(r.kind)
	binary.Write(&buf, binary.BigEndian, uint16(r.chain))
	if r.kind == recordDelta {
		buf.Write(r.base[:])
	}
	buf.Write(r.payload)
	return buf.Bytes()
}

// objectStore implements Store over a backend with compression, deltas and
// a fulltext cache.
type objectStore struct {
	backend  backend
	comp     *compression.Compressor
	cache    Cache
	maxChain int
	log      logrus.FieldLogger
}

func newObjectStore(b backend, opts Options, log logrus.FieldLogger) (*objectStore, error) {
	comp, err := compression.NewCompressor(opts.CompressionLevel, opts.Compression)
	if err != nil {
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}
	maxChain := opts.MaxDeltaChain
	if maxChain <= 0 {
		maxChain = DefaultMaxDeltaChain
	}
	return &objectStore{
		backend:  b,
		comp:     comp,
		cache:    NewLRUCache(opts.CacheSize),
		maxChain: maxChain,
		log:      log,
	}, nil
}

// Get retrieves and, if needed, reconstructs the fulltext of (path, id).
func (s *objectStore) Get(ctx context.Context, path string, id node.ID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.fulltext(path, id, 0)
}

func (s *objectStore) fulltext(path string, id node.ID, depth int) ([]byte, error) {
	key := objectKey(path, id)

	// 1. Check memory cache
	if data, ok := s.cache.Get(key); ok {
		return bytes.Clone(data), nil
	}

	// 2. Read and decode the record
	raw, err := s.backend.read(path, id)
	if err != nil {
		return nil, err
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("%q@%s: %w", path, id.Short(), err)
	}

	var data []byte
	switch rec.kind {
	case recordRaw:
		data = rec.payload
	case recordZstd:
		if data, err = s.comp.Decompress(rec.payload); err != nil {
			return nil, fmt.Errorf("%w: %q@%s: %v", ErrCorrupt, path, id.Short(), err)
		}
	case recordDelta:
		if depth > s.maxChain || rec.base == id {
			return nil, fmt.Errorf("%w: %q@%s: delta chain too long", ErrCorrupt, path, id.Short())
		}
		base, err := s.fulltext(path, rec.base, depth+1)
		if err != nil {
			return nil, fmt.Errorf("resolve delta base %s: %w", rec.base.Short(), err)
		}
		if data, err = s.comp.DecompressDelta(rec.payload, base); err != nil {
			return nil, fmt.Errorf("%w: %q@%s: %v", ErrCorrupt, path, id.Short(), err)
		}
	}

	// 3. Cache and return
	s.cache.Add(key, data)
	return bytes.Clone(data), nil
}

// Add stores data, as a delta against deltaBase when that is possible and
// smaller than the full record.
func (s *objectStore) Add(ctx context.Context, path string, id, deltaBase node.ID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := objectKey(path, id)
	exists, err := s.backend.has(path, id)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	rec := s.fullRecord(data)
	if !deltaBase.IsNull() && deltaBase != id && s.comp.Enabled() {
		if delta, ok := s.deltaRecord(path, deltaBase, data); ok && len(delta.payload)+node.Size < len(rec.payload) {
			rec = delta
		}
	}

	if err := s.backend.write(path, id, rec.encode()); err != nil {
		return err
	}

	s.cache.Add(key, bytes.Clone(data))
	return nil
}

func (s *objectStore) fullRecord(data []byte) record {
	payload, compressed := s.comp.Compress(data)
	if compressed {
		return record{kind: recordZstd, payload: payload}
	}
	return record{kind: recordRaw, payload: data}
}

func (s *objectStore) deltaRecord(path string, base node.ID, data []byte) (record, bool) {
	logger := s.log.WithFields(logrus.Fields{"path": path, "base": base.Short()})

	raw, err := s.backend.read(path, base)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.WithError(err).Warn("Failed to read delta base, storing full text")
		} else {
			logger.Debug("Delta base not in store, storing full text")
		}
		return record{}, false
	}
	baseRec, err := decodeRecord(raw)
	if err != nil {
		logger.WithError(err).Warn("Unreadable delta base, storing full text")
		return record{}, false
	}
	chain := 1
	if baseRec.kind == recordDelta {
		chain = baseRec.chain + 1
	}
	if chain > s.maxChain {
		logger.WithField("chain", chain).Debug("Delta chain limit reached, storing full text")
		return record{}, false
	}

	baseText, err := s.fulltext(path, base, 0)
	if err != nil {
		logger.WithError(err).Warn("Failed to rebuild delta base, storing full text")
		return record{}, false
	}
	if len(baseText) == 0 {
		return record{}, false
	}
	payload, err := s.comp.CompressDelta(data, baseText)
	if err != nil {
		logger.WithError(err).Warn("Delta compression failed, storing full text")
		return record{}, false
	}
	return record{kind: recordDelta, chain: chain, base: base, payload: payload}, true
}

// RecordKind reports how (path, id) is stored: "raw", "zstd" or "delta".
func (s *objectStore) RecordKind(path string, id node.ID) (string, error) {
	raw, err := s.backend.read(path, id)
	if err != nil {
		return "", err
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return "", err
	}
	switch rec.kind {
	case recordRaw:
		return "raw", nil
	case recordZstd:
		return "zstd", nil
	default:
		return "delta", nil
	}
}

// Evict removes an object from cache (not from the backend).
func (s *objectStore) Evict(path string, id node.ID) {
	s.cache.Remove(objectKey(path, id))
}

// ClearCache clears the in-memory cache.
func (s *objectStore) ClearCache() {
	s.cache.Clear()
}
