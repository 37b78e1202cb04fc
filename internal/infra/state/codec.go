package state

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

const (
	defaultCompressThreshold = 4 << 10

	encodingRaw  byte = 0
	encodingZstd byte = 1
)

// valueCodec frames cache values with a one-byte encoding tag and
// compresses large values with zstd. Encoder and decoder are safe for
// concurrent use.
type valueCodec struct {
	threshold int
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
}

func newValueCodec(threshold int) *valueCodec {
	if threshold == 0 {
		threshold = defaultCompressThreshold
	}
	codec := &valueCodec{threshold: threshold}
	if threshold < 0 {
		return codec
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		codec.threshold = -1
		return codec
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		codec.threshold = -1
		return codec
	}
	codec.encoder = encoder
	codec.decoder = decoder
	return codec
}

func (c *valueCodec) encode(value []byte) []byte {
	if c.threshold > 0 && len(value) > c.threshold && c.encoder != nil {
		compressed := c.encoder.EncodeAll(value, make([]byte, 1, len(value)/2+1))
		if len(compressed) < len(value) {
			compressed[0] = encodingZstd
			return compressed
		}
	}
	out := make([]byte, 0, len(value)+1)
	out = append(out, encodingRaw)
	return append(out, value...)
}

func (c *valueCodec) decode(framed []byte) ([]byte, error) {
	if len(framed) == 0 {
		return nil, errors.New("empty cache value")
	}
	switch framed[0] {
	case encodingRaw:
		return append([]byte(nil), framed[1:]...), nil
	case encodingZstd:
		if c.decoder == nil {
			decoder, err := zstd.NewReader(nil)
			if err != nil {
				return nil, fmt.Errorf("zstd decoder: %w", err)
			}
			defer decoder.Close()
			return decoder.DecodeAll(framed[1:], nil)
		}
		return c.decoder.DecodeAll(framed[1:], nil)
	default:
		return nil, fmt.Errorf("unknown cache value encoding %d", framed[0])
	}
}
