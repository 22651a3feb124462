package dataset

import (
	"encoding/binary"
	"math"

	"github.com/zeebo/xxh3"
)

// Fingerprint returns a 64-bit xxh3 digest of the column names, kinds and
// cells. Two datasets that are Equal have the same fingerprint. Sessions use
// it to detect no-op filters and the panel runner logs it per output file.
func (d *Dataset) Fingerprint() uint64 {
	h := xxh3.New()
	var buf [9]byte
	for _, c := range d.cols {
		_, _ = h.WriteString(c.name)
		buf[0] = 0
		buf[1] = byte(c.kind)
		_, _ = h.Write(buf[:2])
		for _, v := range c.values {
			switch t := v.(type) {
			case nil:
				buf[0] = 'n'
				_, _ = h.Write(buf[:1])
			case int64:
				buf[0] = 'i'
				binary.LittleEndian.PutUint64(buf[1:], uint64(t))
				_, _ = h.Write(buf[:9])
			case float64:
				buf[0] = 'f'
				binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(t))
				_, _ = h.Write(buf[:9])
			case string:
				buf[0] = 's'
				binary.LittleEndian.PutUint64(buf[1:], uint64(len(t)))
				_, _ = h.Write(buf[:9])
				_, _ = h.WriteString(t)
			}
		}
	}
	return h.Sum64()
}
