package compression

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// dictID tags frames compressed against a delta base.
const dictID = 1

// MinSize is the smallest payload worth compressing.
const MinSize = 128

type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	level   zstd.EncoderLevel
	enabled bool
}

func NewCompressor(level int, enabled bool) (*Compressor, error) {
	if !enabled {
		return &Compressor{enabled: false}, nil
	}

	encoderLevel := encoderLevel(level)

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encoderLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, err
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	return &Compressor{
		encoder: encoder,
		decoder: decoder,
		level:   encoderLevel,
		enabled: true,
	}, nil
}

func encoderLevel(level int) zstd.EncoderLevel {
	switch level {
	case 1:
		return zstd.SpeedFastest
	case 2:
		return zstd.SpeedDefault
	case 3:
		return zstd.SpeedBetterCompression
	case 4:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

// Enabled reports whether the compressor does anything.
func (c *Compressor) Enabled() bool {
	return c.enabled
}

// Compress returns the compressed form of data and whether compression was
// applied. Small or incompressible payloads are returned unchanged.
func (c *Compressor) Compress(data []byte) ([]byte, bool) {
	if !c.enabled || len(data) < MinSize {
		return data, false
	}

	compressed := c.encoder.EncodeAll(data, make([]byte, 0, len(data)))

	if len(compressed) >= len(data) {
		return data, false
	}

	return compressed, true
}

func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	if !c.enabled {
		return nil, fmt.Errorf("decompress: compression disabled")
	}
	return c.decoder.DecodeAll(data, nil)
}

// CompressDelta compresses data using base as a raw dictionary, so content
// shared with base costs only back-references.
func (c *Compressor) CompressDelta(data, base []byte) ([]byte, error) {
	if !c.enabled {
		return nil, fmt.Errorf("delta: compression disabled")
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(c.level),
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderDictRaw(dictID, base),
	)
	if err != nil {
		return nil, fmt.Errorf("delta encoder: %w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// DecompressDelta reverses CompressDelta given the same base.
func (c *Compressor) DecompressDelta(data, base []byte) ([]byte, error) {
	if !c.enabled {
		return nil, fmt.Errorf("delta: compression disabled")
	}

	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderDictRaw(dictID, base),
	)
	if err != nil {
		return nil, fmt.Errorf("delta decoder: %w", err)
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}

func (c *Compressor) Close() error {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return nil
}
