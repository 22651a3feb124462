package dta

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var errShort = errors.New("unexpected end of file")

// reader is a cursor over an in-memory file. The first failure is sticky:
// later calls return zero values and err reports the original problem.
type reader struct {
	b     []byte
	off   int
	order binary.ByteOrder
	err   error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.b) {
		r.fail(fmt.Errorf("offset %d: %w", r.off, errShort))
		return nil
	}
	p := r.b[r.off : r.off+n]
	r.off += n
	return p
}

func (r *reader) skip(n int) { r.take(n) }

func (r *reader) seek(off uint64) {
	if r.err != nil {
		return
	}
	if off > uint64(len(r.b)) {
		r.fail(fmt.Errorf("seek to %d beyond end of file: %w", off, errShort))
		return
	}
	r.off = int(off)
}

func (r *reader) peek(tag string) bool {
	return r.err == nil && bytes.HasPrefix(r.b[r.off:], []byte(tag))
}

func (r *reader) expect(tag string) {
	at := r.off
	p := r.take(len(tag))
	if r.err == nil && string(p) != tag {
		r.fail(fmt.Errorf("offset %d: expected %q", at, tag))
	}
}

func (r *reader) u8() uint8 {
	p := r.take(1)
	if p == nil {
		return 0
	}
	return p[0]
}

func (r *reader) u16() uint16 {
	p := r.take(2)
	if p == nil {
		return 0
	}
	return r.order.Uint16(p)
}

func (r *reader) u32() uint32 {
	p := r.take(4)
	if p == nil {
		return 0
	}
	return r.order.Uint32(p)
}

func (r *reader) u64() uint64 {
	p := r.take(8)
	if p == nil {
		return 0
	}
	return r.order.Uint64(p)
}

// text reads a fixed-width, NUL-padded string field.
func (r *reader) text(n int) string {
	p := r.take(n)
	if p == nil {
		return ""
	}
	return decodeText(p)
}
