package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies the algorithm a dataset block was stored with.
type Type uint8

const (
	// None stores the block verbatim.
	None Type = 0
	// LZ4 stores the block LZ4-compressed (fast).
	LZ4 Type = 1
	// ZSTD stores the block zstd-compressed (better ratio).
	ZSTD Type = 2
)

// HeaderSize is the size of the block header: raw size then stored size.
const HeaderSize = 8

// MaxBlockSize is the largest raw payload a single block can carry.
const MaxBlockSize = math.MaxUint32

var (
	// ErrUnknownType is returned for an unrecognised compression type.
	ErrUnknownType = errors.New("compress: unknown compression type")
	// ErrCorruptBlock is returned when a block header or payload is inconsistent.
	ErrCorruptBlock = errors.New("compress: corrupt block")
	// ErrBlockTooLarge is returned when a payload exceeds MaxBlockSize.
	ErrBlockTooLarge = errors.New("compress: block too large")
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Valid reports whether t is a known compression type.
func (t Type) Valid() bool { return t <= ZSTD }

// ParseType maps a configuration name ("none", "lz4", "zstd") to a Type.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Encode produces a block (header + payload) for data.
// Incompressible data (ratio above 0.9) is stored uncompressed, signalled by a
// stored size of zero, so decoding never depends on the requested Type.
func Encode(data []byte, t Type) ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
	if uint64(len(data)) > MaxBlockSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBlockTooLarge, len(data))
	}

	var compressed []byte
	switch t {
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n]
	case ZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		block := make([]byte, HeaderSize+len(data))
		binary.LittleEndian.PutUint32(block[0:], uint32(len(data)))
		copy(block[HeaderSize:], data)
		return block, nil
	}

	block := make([]byte, HeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(block[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(block[4:], uint32(len(compressed)))
	copy(block[HeaderSize:], compressed)
	return block, nil
}

// Decode returns the raw payload of a block written by Encode with type t.
func Decode(block []byte, t Type) ([]byte, error) {
	if len(block) < HeaderSize {
		return nil, fmt.Errorf("%w: block shorter than header", ErrCorruptBlock)
	}
	rawSize := binary.LittleEndian.Uint32(block[0:])
	storedSize := binary.LittleEndian.Uint32(block[4:])
	body := block[HeaderSize:]

	if storedSize == 0 {
		if uint64(len(body)) < uint64(rawSize) {
			return nil, fmt.Errorf("%w: truncated raw block", ErrCorruptBlock)
		}
		return body[:rawSize], nil
	}
	if uint64(len(body)) < uint64(storedSize) {
		return nil, fmt.Errorf("%w: truncated compressed block", ErrCorruptBlock)
	}
	body = body[:storedSize]

	switch t {
	case LZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
		}
		if uint32(n) != rawSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptBlock)
		}
		return out, nil
	case ZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(body, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
		}
		if uint32(len(out)) != rawSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptBlock)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, t)
	}
}
