package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeVectors(count, dim int) []float32 {
	data := make([]float32, count*dim)
	for i := range data {
		data[i] = float32(i%97) * 0.25
	}
	return data
}

func TestWriteReadVectorsRoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		count       int
		dim         int
		compression CompressionType
	}{
		{name: "empty none", count: 0, dim: 8, compression: CompressionNone},
		{name: "single none", count: 1, dim: 4, compression: CompressionNone},
		{name: "many none", count: 100, dim: 32, compression: CompressionNone},
		{name: "many lz4", count: 100, dim: 32, compression: CompressionLZ4},
		{name: "many zstd", count: 100, dim: 32, compression: CompressionZSTD},
		{name: "multi block zstd", count: 3000, dim: 128, compression: CompressionZSTD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := makeVectors(tt.count, tt.dim)

			var buf bytes.Buffer
			require.NoError(t, WriteVectors(&buf, uint32(tt.dim), uint64(tt.count), data, tt.compression))

			dim, got, err := ReadVectors(&buf)
			require.NoError(t, err)
			assert.Equal(t, uint32(tt.dim), dim)
			assert.Equal(t, data, got)
		})
	}
}

func TestWriteVectorsSizeMismatch(t *testing.T) {
	var buf bytes.Buffer
	err := WriteVectors(&buf, 4, 2, make([]float32, 7), CompressionNone)
	assert.Error(t, err)
}

func TestReadVectorsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVectors(&buf, 4, 2, makeVectors(2, 4), CompressionNone))

	raw := buf.Bytes()
	raw[0] ^= 0xFF

	_, _, err := ReadVectors(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestReadVectorsCorruptPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVectors(&buf, 8, 16, makeVectors(16, 8), CompressionNone))

	raw := buf.Bytes()
	raw[len(raw)-10] ^= 0xFF // inside the payload, before the trailer

	_, _, err := ReadVectors(bytes.NewReader(raw))

	var mismatch *ChecksumMismatchError
	assert.True(t, errors.As(err, &mismatch), "expected checksum mismatch, got %v", err)
}

func TestReadVectorsTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVectors(&buf, 8, 16, makeVectors(16, 8), CompressionNone))

	raw := buf.Bytes()

	_, _, err := ReadVectors(bytes.NewReader(raw[:len(raw)/2]))
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestReadVectorsGarbage(t *testing.T) {
	_, _, err := ReadVectors(bytes.NewReader([]byte("definitely not a snapshot")))
	assert.Error(t, err)
}

func TestCompressionByName(t *testing.T) {
	tests := []struct {
		in   string
		want CompressionType
		ok   bool
	}{
		{in: "", want: CompressionNone, ok: true},
		{in: "none", want: CompressionNone, ok: true},
		{in: "lz4", want: CompressionLZ4, ok: true},
		{in: "zstd", want: CompressionZSTD, ok: true},
		{in: "gzip", ok: false},
	}

	for _, tt := range tests {
		got, ok := CompressionByName(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if ok {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
}

func TestCompressBlockRoundTrip(t *testing.T) {
	for _, compression := range []CompressionType{CompressionLZ4, CompressionZSTD} {
		t.Run(compression.String(), func(t *testing.T) {
			// Repetitive payload: must actually compress.
			data := bytes.Repeat([]byte("recall"), 4096)

			framed, err := compressBlock(data, compression)
			require.NoError(t, err)
			assert.Less(t, len(framed), len(data))

			got, err := decompressBlock(framed, compression)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestDecompressBlockOversizedClaim(t *testing.T) {
	// A block header claiming more than a writer can ever produce must be
	// rejected up front, before anything is allocated for it.
	framed := make([]byte, blockHeaderSize)
	binary.LittleEndian.PutUint32(framed[0:], payloadBlockSize+1)
	binary.LittleEndian.PutUint32(framed[4:], 0)

	_, err := decompressBlock(framed, CompressionZSTD)
	assert.Error(t, err)
}

func TestCompressBlockIncompressible(t *testing.T) {
	// High-entropy payload falls back to the raw-block framing.
	data := make([]byte, 1024)
	state := uint32(2463534242)
	for i := range data {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		data[i] = byte(state)
	}

	framed, err := compressBlock(data, CompressionLZ4)
	require.NoError(t, err)

	got, err := decompressBlock(framed, CompressionLZ4)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
