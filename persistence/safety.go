package persistence

import (
	"unsafe"
)

// The snapshot payload is written through an unsafe little-endian view of the
// float32 data, so refuse to start on big-endian platforms rather than write
// artifacts other machines cannot read.
func init() {
	if !isLittleEndian() {
		panic("recall/persistence: big-endian platforms are not supported")
	}
}

func isLittleEndian() bool {
	var test uint16 = 0x0001
	return *(*byte)(unsafe.Pointer(&test)) == 1
}
