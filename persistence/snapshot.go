package persistence

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unsafe"
)

// payloadBlockSize is the uncompressed chunk size for compressed payloads.
const payloadBlockSize = 1 << 20

// WriteVectors writes a dense vector snapshot: header, payload (raw or
// block-compressed float32 rows, little-endian), CRC32 trailer. data must
// hold exactly count*dimension values.
func WriteVectors(w io.Writer, dimension uint32, count uint64, data []float32, compression CompressionType) error {
	if uint64(len(data)) != count*uint64(dimension) {
		return fmt.Errorf("payload size %d does not match %d vectors of dimension %d", len(data), count, dimension)
	}

	cw := NewChecksumWriter(w)

	header := FileHeader{
		Magic:       MagicNumber,
		Version:     FormatVersion,
		Kind:        uint8(KindVectors),
		Compression: uint8(compression),
		Dimension:   dimension,
		Count:       count,
	}
	if err := binary.Write(cw, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	payload := float32SliceBytes(data)
	if compression == CompressionNone {
		if _, err := cw.Write(payload); err != nil {
			return fmt.Errorf("write payload: %w", err)
		}
	} else if err := writeCompressedPayload(cw, payload, compression); err != nil {
		return err
	}

	// Trailer goes to the underlying writer so it is excluded from the sum.
	if err := binary.Write(w, binary.LittleEndian, cw.Sum()); err != nil {
		return fmt.Errorf("write checksum: %w", err)
	}
	return nil
}

func writeCompressedPayload(w io.Writer, payload []byte, compression CompressionType) error {
	blockCount := uint32((len(payload) + payloadBlockSize - 1) / payloadBlockSize)
	if err := binary.Write(w, binary.LittleEndian, blockCount); err != nil {
		return fmt.Errorf("write block count: %w", err)
	}

	for off := 0; off < len(payload); off += payloadBlockSize {
		end := off + payloadBlockSize
		if end > len(payload) {
			end = len(payload)
		}

		framed, err := compressBlock(payload[off:end], compression)
		if err != nil {
			return fmt.Errorf("compress block: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(framed))); err != nil {
			return fmt.Errorf("write block size: %w", err)
		}
		if _, err := w.Write(framed); err != nil {
			return fmt.Errorf("write block: %w", err)
		}
	}
	return nil
}

// ReadVectors reads a snapshot written by WriteVectors and returns the
// dimension and the row-major vector payload. Any structural defect
// (bad magic or version, truncation, checksum mismatch) is an error.
func ReadVectors(r io.Reader) (uint32, []float32, error) {
	cr := NewChecksumReader(r)

	var header FileHeader
	if err := binary.Read(cr, binary.LittleEndian, &header); err != nil {
		return 0, nil, fmt.Errorf("read header: %w", err)
	}
	if err := header.Validate(); err != nil {
		return 0, nil, err
	}

	if header.Count > 0 && header.Dimension == 0 {
		return 0, nil, fmt.Errorf("%w: %d vectors with zero dimension", ErrTruncated, header.Count)
	}
	// Bound the count before multiplying so a corrupt header cannot wrap the
	// product into a small allocation.
	if header.Dimension > 0 && header.Count > math.MaxInt32/uint64(header.Dimension) {
		return 0, nil, fmt.Errorf("snapshot too large: %d vectors of dimension %d", header.Count, header.Dimension)
	}
	total := header.Count * uint64(header.Dimension)

	data := make([]float32, total)
	payload := float32SliceBytes(data)

	if CompressionType(header.Compression) == CompressionNone {
		if _, err := io.ReadFull(cr, payload); err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrTruncated, err)
		}
	} else if err := readCompressedPayload(cr, payload, CompressionType(header.Compression)); err != nil {
		return 0, nil, err
	}

	var expected uint32
	if err := binary.Read(r, binary.LittleEndian, &expected); err != nil {
		return 0, nil, fmt.Errorf("%w: missing checksum", ErrTruncated)
	}
	if err := cr.Verify(expected); err != nil {
		return 0, nil, err
	}

	return header.Dimension, data, nil
}

func readCompressedPayload(r io.Reader, payload []byte, compression CompressionType) error {
	var blockCount uint32
	if err := binary.Read(r, binary.LittleEndian, &blockCount); err != nil {
		return fmt.Errorf("%w: missing block count", ErrTruncated)
	}

	off := 0
	for i := uint32(0); i < blockCount; i++ {
		var framedLen uint32
		if err := binary.Read(r, binary.LittleEndian, &framedLen); err != nil {
			return fmt.Errorf("%w: missing block size", ErrTruncated)
		}

		framed := make([]byte, framedLen)
		if _, err := io.ReadFull(r, framed); err != nil {
			return fmt.Errorf("%w: %v", ErrTruncated, err)
		}

		block, err := decompressBlock(framed, compression)
		if err != nil {
			return fmt.Errorf("decompress block: %w", err)
		}
		if off+len(block) > len(payload) {
			return fmt.Errorf("%w: payload overflow", ErrTruncated)
		}
		copy(payload[off:], block)
		off += len(block)
	}

	if off != len(payload) {
		return fmt.Errorf("%w: got %d payload bytes, want %d", ErrTruncated, off, len(payload))
	}
	return nil
}

// float32SliceBytes views a float32 slice as raw little-endian bytes.
// float32 allocations are 4-byte aligned, so the view is always valid on the
// supported little-endian platforms.
func float32SliceBytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}
