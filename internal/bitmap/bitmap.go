// Package bitmap provides a simple, memory-efficient bitmap used as a row
// mask: bit i set means "keep row i". Filters build a mask in one pass and the
// dataset package materializes the kept rows in order.
package bitmap

import "math/bits"

// Bitmap represents a bitset backed by a slice of uint64 words.
// Each bit corresponds to a row position in [0, Len()).
type Bitmap struct {
	data []uint64
	n    int
}

// New allocates an empty mask for n rows.
//
// If n <= 0, no backing storage is allocated and the bitmap behaves as
// an empty set.
func New(n int) *Bitmap {
	if n <= 0 {
		return &Bitmap{}
	}
	return &Bitmap{
		data: make([]uint64, (n+63)/64),
		n:    n,
	}
}

// Full returns a mask of n rows with every bit set.
func Full(n int) *Bitmap {
	b := New(n)
	for i := 0; i < n; i++ {
		b.Add(i)
	}
	return b
}

// Len returns the number of addressable rows.
func (b *Bitmap) Len() int { return b.n }

// Add sets the bit for row id. Out-of-range ids are ignored.
func (b *Bitmap) Add(id int) {
	if id < 0 || id >= b.n {
		return
	}
	b.data[id/64] |= 1 << uint(id%64)
}

// Remove clears the bit for row id. Out-of-range ids are ignored.
func (b *Bitmap) Remove(id int) {
	if id < 0 || id >= b.n {
		return
	}
	b.data[id/64] &^= 1 << uint(id%64)
}

// Has reports whether the bit for row id is set.
func (b *Bitmap) Has(id int) bool {
	if id < 0 || id >= b.n {
		return false
	}
	return b.data[id/64]&(1<<uint(id%64)) != 0
}

// Count returns the number of set bits.
func (b *Bitmap) Count() int {
	c := 0
	for _, w := range b.data {
		c += bits.OnesCount64(w)
	}
	return c
}

// Rows returns the set positions in ascending order.
func (b *Bitmap) Rows() []int {
	out := make([]int, 0, b.Count())
	for wi, w := range b.data {
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			out = append(out, wi*64+tz)
			w &= w - 1
		}
	}
	return out
}
