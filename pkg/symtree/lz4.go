package symtree

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// ErrCorruptBlock is returned when a hibernated block cannot be decoded.
var ErrCorruptBlock = errors.New("corrupt hibernated block")

// uint32ByteSize is the number of bytes in a uint32.
const uint32ByteSize = 4

// Block markers. LZ4 refuses to compress short or high-entropy input, such
// blocks are stored verbatim.
const (
	blockRaw byte = iota
	blockLZ4
)

// CompressBytes compresses data with LZ4. The result is prefixed with a one
// byte marker telling DecompressBytes how the payload is stored.
func CompressBytes(data []byte) []byte {
	compressed := make([]byte, 1+lz4.CompressBlockBound(len(data)))

	written, err := lz4.CompressBlock(data, compressed[1:], nil)
	if err != nil || written == 0 || written >= len(data) {
		raw := make([]byte, 1+len(data))
		raw[0] = blockRaw
		copy(raw[1:], data)

		return raw
	}

	compressed[0] = blockLZ4

	return compressed[:1+written]
}

// DecompressBytes restores a block produced by CompressBytes. size is the
// length of the original data.
func DecompressBytes(data []byte, size int) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty block", ErrCorruptBlock)
	}

	switch data[0] {
	case blockRaw:
		if len(data)-1 != size {
			return nil, fmt.Errorf("%w: raw block has %d bytes, expected %d", ErrCorruptBlock, len(data)-1, size)
		}

		return bytes.Clone(data[1:]), nil
	case blockLZ4:
		decompressed := make([]byte, size)

		read, err := lz4.UncompressBlock(data[1:], decompressed)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
		}

		if read != size {
			return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrCorruptBlock, read, size)
		}

		return decompressed, nil
	default:
		return nil, fmt.Errorf("%w: unknown marker %d", ErrCorruptBlock, data[0])
	}
}

// CompressUInt32Slice compresses a slice of uint32-s with LZ4.
func CompressUInt32Slice(data []uint32) []byte {
	buf := make([]byte, len(data)*uint32ByteSize)

	for idx, value := range data {
		binary.LittleEndian.PutUint32(buf[idx*uint32ByteSize:], value)
	}

	return CompressBytes(buf)
}

// DecompressUInt32Slice decompresses a slice of uint32-s previously compressed with LZ4.
// `result` must be preallocated.
func DecompressUInt32Slice(data []byte, result []uint32) error {
	decompressed, err := DecompressBytes(data, len(result)*uint32ByteSize)
	if err != nil {
		return err
	}

	for idx := range result {
		result[idx] = binary.LittleEndian.Uint32(decompressed[idx*uint32ByteSize:])
	}

	return nil
}
