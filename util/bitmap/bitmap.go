// Package bitmap provides read-only views over on-disk allocation bitmaps.
package bitmap

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bitset"
)

// Bitmap is a read-only view of an on-disk allocation bitmap. Bit i of the
// bitmap tracks entry i of its block group, in little-endian bit order within
// each byte, i.e. bit i lives in byte i/8 at position i%8.
type Bitmap struct {
	bits  *bitset.BitSet
	nbits uint
}

// FromBytes create a bitmap view from the raw on-disk bytes
func FromBytes(b []byte) *Bitmap {
	// pack the bytes into little-endian 64-bit words; that ordering makes
	// word bit k line up with on-disk bit k of the same 8-byte chunk
	words := make([]uint64, (len(b)+7)/8)
	for i := range words {
		var chunk [8]byte
		copy(chunk[:], b[i*8:])
		words[i] = binary.LittleEndian.Uint64(chunk[:])
	}
	return &Bitmap{
		bits:  bitset.From(words),
		nbits: uint(len(b) * 8),
	}
}

// IsSet whether entry index is marked allocated. Out-of-range indexes are
// reported as not allocated.
func (bm *Bitmap) IsSet(index uint) bool {
	return index < bm.nbits && bm.bits.Test(index)
}

// Len how many entries the bitmap can address
func (bm *Bitmap) Len() uint {
	return bm.nbits
}

// SetCount how many entries are marked allocated
func (bm *Bitmap) SetCount() uint {
	return bm.bits.Count()
}

// NextSet the first allocated entry at or after index, and whether one exists
func (bm *Bitmap) NextSet(index uint) (uint, bool) {
	next, found := bm.bits.NextSet(index)
	if !found || next >= bm.nbits {
		return 0, false
	}
	return next, true
}
