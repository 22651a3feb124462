package dta

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
)

// now is replaced in tests.
var now = time.Now

const (
	maxNameRunes = 32
	nameLen118   = 129
	fmtLen118    = 57
	labelLen118  = 321
)

type varSpec struct {
	col    *dataset.Column
	name   string
	typ    uint16
	width  int
	format string
	vlabel string
	levels []string
	codes  map[string]int64
}

// Encode renders ds as a release 118 file image.
func Encode(ctx context.Context, ds *dataset.Dataset) ([]byte, error) {
	k := ds.NumCols()
	if k > math.MaxUint16 {
		return nil, fmt.Errorf("too many variables: %d", k)
	}
	names := SanitizeNames(ds.Names())
	specs := make([]varSpec, k)
	for j := 0; j < k; j++ {
		s, err := plan(ds.ColumnAt(j), names[j])
		if err != nil {
			return nil, err
		}
		specs[j] = s
	}

	le := binary.LittleEndian
	var b bytes.Buffer
	var offs [14]uint64
	u8 := func(v uint8) { b.WriteByte(v) }
	u16 := func(v uint16) { var t [2]byte; le.PutUint16(t[:], v); b.Write(t[:]) }
	u32 := func(v uint32) { var t [4]byte; le.PutUint32(t[:], v); b.Write(t[:]) }
	u64 := func(v uint64) { var t [8]byte; le.PutUint64(t[:], v); b.Write(t[:]) }
	mark := func(i int, tag string) { offs[i] = uint64(b.Len()); b.WriteString(tag) }

	mark(0, "<stata_dta>")
	b.WriteString("<header><release>118</release><byteorder>LSF</byteorder><K>")
	u16(uint16(k))
	b.WriteString("</K><N>")
	u64(uint64(ds.NumRows()))
	b.WriteString("</N><label>")
	u16(0)
	b.WriteString("</label><timestamp>")
	ts := now().Format("02 Jan 2006 15:04")
	u8(uint8(len(ts)))
	b.WriteString(ts)
	b.WriteString("</timestamp></header>")

	mark(1, "<map>")
	mapAt := b.Len()
	for range offs {
		u64(0)
	}
	b.WriteString("</map>")

	mark(2, "<variable_types>")
	for _, s := range specs {
		u16(s.typ)
	}
	b.WriteString("</variable_types>")

	mark(3, "<varnames>")
	for _, s := range specs {
		fixed(&b, s.name, nameLen118)
	}
	b.WriteString("</varnames>")

	mark(4, "<sortlist>")
	for i := 0; i <= k; i++ {
		u16(0)
	}
	b.WriteString("</sortlist>")

	mark(5, "<formats>")
	for _, s := range specs {
		fixed(&b, s.format, fmtLen118)
	}
	b.WriteString("</formats>")

	mark(6, "<value_label_names>")
	for _, s := range specs {
		fixed(&b, s.vlabel, nameLen118)
	}
	b.WriteString("</value_label_names>")

	mark(7, "<variable_labels>")
	for _, s := range specs {
		fixed(&b, s.col.Label(), labelLen118)
	}
	b.WriteString("</variable_labels>")

	mark(8, "<characteristics></characteristics>")

	mark(9, "<data>")
	type gso struct {
		v, o uint64
		s    string
	}
	var strls []gso
	for i := 0; i < ds.NumRows(); i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for j, s := range specs {
			x := s.col.Value(i)
			switch s.typ {
			case typeByte:
				if x == nil {
					u8(missByte)
				} else {
					u8(uint8(int8(s.intValue(x))))
				}
			case typeInt:
				if x == nil {
					u16(missInt)
				} else {
					u16(uint16(int16(s.intValue(x))))
				}
			case typeLong:
				if x == nil {
					u32(missLong)
				} else {
					u32(uint32(int32(s.intValue(x))))
				}
			case typeDouble:
				if x == nil {
					u64(missDoubleBits)
				} else if f, ok := x.(float64); ok {
					u64(math.Float64bits(f))
				} else {
					u64(math.Float64bits(float64(x.(int64))))
				}
			case typeStrL:
				str, _ := x.(string)
				if str == "" {
					u64(0)
					continue
				}
				v, o := uint64(j+1), uint64(i+1)
				u64(o<<16 | v)
				strls = append(strls, gso{v: v, o: o, s: str})
			default:
				str, _ := x.(string)
				padded(&b, str, s.width)
			}
		}
	}
	b.WriteString("</data>")

	mark(10, "<strls>")
	for _, g := range strls {
		b.WriteString("GSO")
		u32(uint32(g.v))
		u64(g.o)
		u8(130)
		u32(uint32(len(g.s) + 1))
		b.WriteString(g.s)
		u8(0)
	}
	b.WriteString("</strls>")

	mark(11, "<value_labels>")
	for _, s := range specs {
		if s.vlabel == "" {
			continue
		}
		table := labelTable(s.levels)
		b.WriteString("<lbl>")
		u32(uint32(len(table)))
		fixed(&b, s.vlabel, nameLen118)
		b.Write([]byte{0, 0, 0})
		b.Write(table)
		b.WriteString("</lbl>")
	}
	b.WriteString("</value_labels>")

	mark(12, "</stata_data>")
	offs[13] = uint64(b.Len())

	out := b.Bytes()
	for i, o := range offs {
		le.PutUint64(out[mapAt+8*i:], o)
	}
	return out, nil
}

// plan picks the storage type for a column.
func plan(c *dataset.Column, name string) (varSpec, error) {
	s := varSpec{col: c, name: name}
	switch c.Kind() {
	case dataset.KindInt:
		var lo, hi int64
		first := true
		for _, v := range c.Values() {
			if v == nil {
				continue
			}
			n := v.(int64)
			if first || n < lo {
				lo = n
			}
			if first || n > hi {
				hi = n
			}
			first = false
		}
		s.typ, s.format = intType(lo, hi)
	case dataset.KindFloat:
		s.typ, s.format = typeDouble, "%10.0g"
	case dataset.KindText:
		w := 1
		for _, v := range c.Values() {
			if str, ok := v.(string); ok && len(str) > w {
				w = len(str)
			}
		}
		if w > maxStrN {
			s.typ, s.format = typeStrL, "%9s"
		} else {
			s.typ, s.format, s.width = uint16(w), fmt.Sprintf("%%%ds", w), w
		}
	case dataset.KindCategorical:
		levels := c.Levels()
		seen := make(map[string]bool, len(levels))
		for _, l := range levels {
			seen[l] = true
		}
		for _, v := range c.Distinct() {
			if str := v.(string); !seen[str] {
				seen[str] = true
				levels = append(levels, str)
			}
		}
		s.levels = levels
		s.codes = make(map[string]int64, len(levels))
		for i, l := range levels {
			s.codes[l] = int64(i)
		}
		s.typ, s.format = intType(0, int64(len(levels)-1))
		if len(levels) > 0 {
			s.vlabel = name
		}
	default:
		return s, fmt.Errorf("variable %q: unsupported kind %v", name, c.Kind())
	}
	return s, nil
}

func (s varSpec) intValue(x any) int64 {
	if str, ok := x.(string); ok {
		return s.codes[str]
	}
	return x.(int64)
}

// intType returns the narrowest integer storage type holding [lo, hi].
// Values outside the long range fall back to double.
func intType(lo, hi int64) (uint16, string) {
	switch {
	case lo >= -127 && hi <= maxByte:
		return typeByte, "%8.0g"
	case lo >= -32767 && hi <= maxInt:
		return typeInt, "%8.0g"
	case lo >= -2147483647 && hi <= maxLong:
		return typeLong, "%12.0g"
	}
	return typeDouble, "%10.0g"
}

func labelTable(levels []string) []byte {
	le := binary.LittleEndian
	n := len(levels)
	var txt bytes.Buffer
	offs := make([]uint32, n)
	for i, l := range levels {
		offs[i] = uint32(txt.Len())
		txt.WriteString(l)
		txt.WriteByte(0)
	}
	out := make([]byte, 8+8*n+txt.Len())
	le.PutUint32(out[0:], uint32(n))
	le.PutUint32(out[4:], uint32(txt.Len()))
	for i := 0; i < n; i++ {
		le.PutUint32(out[8+4*i:], offs[i])
		le.PutUint32(out[8+4*n+4*i:], uint32(i))
	}
	copy(out[8+8*n:], txt.Bytes())
	return out
}

// fixed writes s NUL-padded to n bytes, truncating on a rune boundary so at
// least one terminating NUL remains.
func fixed(b *bytes.Buffer, s string, n int) {
	if len(s) > n-1 && n > 1 {
		s = s[:n-1]
		for !utf8.ValidString(s) {
			s = s[:len(s)-1]
		}
	}
	b.WriteString(s)
	for i := len(s); i < n; i++ {
		b.WriteByte(0)
	}
}

// padded writes s NUL-padded to n bytes. str# cells need no terminator, so a
// value exactly n bytes long is written whole.
func padded(b *bytes.Buffer, s string, n int) {
	if len(s) > n {
		s = s[:n]
		for !utf8.ValidString(s) {
			s = s[:len(s)-1]
		}
	}
	b.WriteString(s)
	for i := len(s); i < n; i++ {
		b.WriteByte(0)
	}
}

// SanitizeNames turns arbitrary column names into valid, unique Stata
// variable names: characters other than letters, digits and underscore
// become "_", a leading digit gets a "_" prefix, names are cut to 32
// characters and clashes get a numeric suffix.
func SanitizeNames(names []string) []string {
	out := make([]string, len(names))
	used := make(map[string]bool, len(names))
	for i, name := range names {
		var sb strings.Builder
		for _, r := range name {
			if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
				sb.WriteRune(r)
			} else {
				sb.WriteRune('_')
			}
		}
		s := sb.String()
		if s == "" {
			s = fmt.Sprintf("var%d", i+1)
		}
		if r, _ := utf8.DecodeRuneInString(s); unicode.IsDigit(r) {
			s = "_" + s
		}
		s = truncateRunes(s, maxNameRunes)
		for n, base := 1, s; used[s]; n++ {
			suffix := fmt.Sprintf("_%d", n)
			s = truncateRunes(base, maxNameRunes-len(suffix)) + suffix
		}
		used[s] = true
		if s != name {
			log.Printf("dta: renamed variable %q to %q", name, s)
		}
		out[i] = s
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
