// Package persistence provides the binary snapshot format for vector
// artifacts: a fixed header, an optionally compressed float32 payload, and a
// CRC32 trailer for corruption detection.
package persistence

import "errors"

const (
	// MagicNumber identifies recall snapshot files (ASCII: "RCL1").
	MagicNumber = 0x52434c31
	// FormatVersion is the current snapshot format version.
	FormatVersion = 0x00010000
)

// ArtifactKind identifies what a snapshot file contains.
type ArtifactKind uint8

const (
	// KindVectors is a dense vector-store snapshot.
	KindVectors ArtifactKind = 1
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported format version")
	ErrInvalidKind    = errors.New("unknown artifact kind")
	ErrTruncated      = errors.New("truncated snapshot")
)

// FileHeader is the fixed-size header at the start of every snapshot file.
// Encoded little-endian via encoding/binary; field order is the wire layout.
type FileHeader struct {
	Magic       uint32
	Version     uint32
	Kind        uint8
	Compression uint8 // CompressionType of the payload blocks
	Padding     [2]byte
	Dimension   uint32
	Count       uint64 // number of vectors in the payload
	Reserved    [16]byte
}

// Validate checks the self-describing header fields.
func (h *FileHeader) Validate() error {
	if h.Magic != MagicNumber {
		return ErrInvalidMagic
	}
	if h.Version != FormatVersion {
		return ErrInvalidVersion
	}
	if ArtifactKind(h.Kind) != KindVectors {
		return ErrInvalidKind
	}
	return nil
}
