package dta

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
)

type variable struct {
	name   string
	typ    uint16
	width  int
	label  string
	vlabel string
}

type labelEntry struct {
	value int32
	text  string
}

// file is the decoded layout shared by all releases.
type file struct {
	release int
	order   binary.ByteOrder
	vars    []variable
	nobs    int
	data    []byte
	strls   map[[2]uint64]string
	labels  map[string][]labelEntry
}

// Decode parses a complete .dta file image.
func Decode(ctx context.Context, b []byte) (*dataset.Dataset, error) {
	var (
		f   *file
		err error
	)
	switch {
	case bytes0(b, "<stata_dta>"):
		f, err = parseTagged(b)
	case len(b) > 0 && (b[0] == 114 || b[0] == 115):
		f, err = parseLegacy(b)
	case len(b) == 0:
		return nil, errShort
	default:
		return nil, fmt.Errorf("unsupported dta release byte %d", b[0])
	}
	if err != nil {
		return nil, err
	}
	return f.dataset(ctx)
}

func bytes0(b []byte, prefix string) bool {
	return len(b) >= len(prefix) && string(b[:len(prefix)]) == prefix
}

// parseTagged handles releases 117, 118 and 119.
func parseTagged(b []byte) (*file, error) {
	r := &reader{b: b, order: binary.LittleEndian}
	r.expect("<stata_dta><header><release>")
	rel, err := strconv.Atoi(string(r.take(3)))
	if r.err != nil {
		return nil, r.err
	}
	if err != nil || rel < 117 || rel > 119 {
		return nil, fmt.Errorf("unsupported dta release %q", b[len("<stata_dta><header><release>"):][:3])
	}
	r.expect("</release><byteorder>")
	switch string(r.take(3)) {
	case "LSF":
		r.order = binary.LittleEndian
	case "MSF":
		r.order = binary.BigEndian
	default:
		r.fail(fmt.Errorf("invalid byteorder"))
	}
	r.expect("</byteorder><K>")
	var k int
	if rel == 119 {
		k = int(r.u32())
	} else {
		k = int(r.u16())
	}
	r.expect("</K><N>")
	var n uint64
	if rel == 117 {
		n = uint64(r.u32())
	} else {
		n = r.u64()
	}
	r.expect("</N><label>")
	if rel == 117 {
		r.skip(int(r.u8()))
	} else {
		r.skip(int(r.u16()))
	}
	r.expect("</label><timestamp>")
	r.skip(int(r.u8()))
	r.expect("</timestamp></header>")

	r.expect("<map>")
	var offs [14]uint64
	for i := range offs {
		offs[i] = r.u64()
	}
	r.expect("</map>")
	if r.err != nil {
		return nil, r.err
	}

	nameLen, fmtLen, lblLen := 129, 57, 321
	if rel == 117 {
		nameLen, fmtLen, lblLen = 33, 49, 81
	}
	f := &file{release: rel, order: r.order, vars: make([]variable, k), nobs: int(n)}

	r.expect("<variable_types>")
	for i := range f.vars {
		f.vars[i].typ = r.u16()
	}
	r.expect("</variable_types>")
	r.expect("<varnames>")
	for i := range f.vars {
		f.vars[i].name = r.text(nameLen)
	}
	r.expect("</varnames>")
	r.expect("<sortlist>")
	if rel == 119 {
		r.skip(4 * (k + 1))
	} else {
		r.skip(2 * (k + 1))
	}
	r.expect("</sortlist>")
	r.expect("<formats>")
	r.skip(fmtLen * k)
	r.expect("</formats>")
	r.expect("<value_label_names>")
	for i := range f.vars {
		f.vars[i].vlabel = r.text(nameLen)
	}
	r.expect("</value_label_names>")
	r.expect("<variable_labels>")
	for i := range f.vars {
		f.vars[i].label = r.text(lblLen)
	}
	r.expect("</variable_labels>")
	if r.err != nil {
		return nil, r.err
	}

	rowWidth, err := f.layout()
	if err != nil {
		return nil, err
	}

	r.seek(offs[9])
	r.expect("<data>")
	f.data = r.take(rowWidth * f.nobs)
	r.expect("</data>")

	r.seek(offs[10])
	r.expect("<strls>")
	f.strls = make(map[[2]uint64]string)
	for r.err == nil && !r.peek("</strls>") {
		r.expect("GSO")
		v := uint64(r.u32())
		var o uint64
		if rel == 117 {
			o = uint64(r.u32())
		} else {
			o = r.u64()
		}
		t := r.u8()
		p := r.take(int(r.u32()))
		if t == 130 && len(p) > 0 && p[len(p)-1] == 0 {
			p = p[:len(p)-1]
		}
		f.strls[[2]uint64{v, o}] = decodeText(p)
	}
	r.expect("</strls>")

	r.seek(offs[11])
	r.expect("<value_labels>")
	f.labels = make(map[string][]labelEntry)
	for r.err == nil && r.peek("<lbl>") {
		r.expect("<lbl>")
		size := int(int32(r.u32()))
		name := r.text(nameLen)
		r.skip(3)
		table := r.take(size)
		r.expect("</lbl>")
		if r.err == nil {
			entries, err := parseLabelTable(table, r.order)
			if err != nil {
				return nil, fmt.Errorf("value label %q: %w", name, err)
			}
			f.labels[name] = entries
		}
	}
	r.expect("</value_labels>")
	if r.err != nil {
		return nil, r.err
	}
	return f, nil
}

// parseLegacy handles releases 114 and 115.
func parseLegacy(b []byte) (*file, error) {
	if len(b) < 2 {
		return nil, errShort
	}
	r := &reader{b: b}
	rel := int(b[0])
	switch b[1] {
	case 1:
		r.order = binary.BigEndian
	case 2:
		r.order = binary.LittleEndian
	default:
		return nil, fmt.Errorf("invalid byteorder %d", b[1])
	}
	r.skip(4)
	k := int(r.u16())
	n := int(r.u32())
	r.skip(81 + 18)

	f := &file{release: rel, order: r.order, vars: make([]variable, k), nobs: n}
	for i := range f.vars {
		t := r.u8()
		switch {
		case t >= 1 && t <= 244:
			f.vars[i].typ = uint16(t)
		case t == 251:
			f.vars[i].typ = typeByte
		case t == 252:
			f.vars[i].typ = typeInt
		case t == 253:
			f.vars[i].typ = typeLong
		case t == 254:
			f.vars[i].typ = typeFloat
		case t == 255:
			f.vars[i].typ = typeDouble
		default:
			r.fail(fmt.Errorf("unknown legacy type code %d", t))
		}
	}
	for i := range f.vars {
		f.vars[i].name = r.text(33)
	}
	r.skip(2 * (k + 1))
	r.skip(49 * k)
	for i := range f.vars {
		f.vars[i].vlabel = r.text(33)
	}
	for i := range f.vars {
		f.vars[i].label = r.text(81)
	}
	// Expansion fields end with a zero type and zero length.
	for r.err == nil {
		t := r.u8()
		size := int(int32(r.u32()))
		if t == 0 && size == 0 {
			break
		}
		r.skip(size)
	}
	if r.err != nil {
		return nil, r.err
	}

	rowWidth, err := f.layout()
	if err != nil {
		return nil, err
	}
	f.data = r.take(rowWidth * n)

	f.labels = make(map[string][]labelEntry)
	for r.err == nil && r.off < len(r.b) {
		size := int(int32(r.u32()))
		name := r.text(33)
		r.skip(3)
		table := r.take(size)
		if r.err != nil {
			break
		}
		entries, err := parseLabelTable(table, r.order)
		if err != nil {
			return nil, fmt.Errorf("value label %q: %w", name, err)
		}
		f.labels[name] = entries
	}
	if r.err != nil {
		return nil, r.err
	}
	return f, nil
}

// layout fills in variable widths and returns the row width.
func (f *file) layout() (int, error) {
	w := 0
	for i := range f.vars {
		vw, err := typeWidth(f.vars[i].typ)
		if err != nil {
			return 0, fmt.Errorf("variable %q: %w", f.vars[i].name, err)
		}
		f.vars[i].width = vw
		w += vw
	}
	return w, nil
}

func parseLabelTable(t []byte, order binary.ByteOrder) ([]labelEntry, error) {
	if len(t) < 8 {
		return nil, errShort
	}
	n := int(int32(order.Uint32(t[0:4])))
	txtLen := int(int32(order.Uint32(t[4:8])))
	if n < 0 || txtLen < 0 || 8+8*n+txtLen > len(t) {
		return nil, fmt.Errorf("corrupt table (n=%d txtlen=%d size=%d)", n, txtLen, len(t))
	}
	offs := t[8 : 8+4*n]
	vals := t[8+4*n : 8+8*n]
	txt := t[8+8*n : 8+8*n+txtLen]
	out := make([]labelEntry, n)
	for i := 0; i < n; i++ {
		off := int(int32(order.Uint32(offs[4*i:])))
		if off < 0 || off > len(txt) {
			return nil, fmt.Errorf("label offset %d out of range", off)
		}
		out[i] = labelEntry{
			value: int32(order.Uint32(vals[4*i:])),
			text:  decodeText(txt[off:]),
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].value < out[b].value })
	return out, nil
}

// dataset converts the decoded rows into columns.
func (f *file) dataset(ctx context.Context) (*dataset.Dataset, error) {
	values := make([][]any, len(f.vars))
	for j := range values {
		values[j] = make([]any, f.nobs)
	}
	pos := 0
	for i := 0; i < f.nobs; i++ {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for j, v := range f.vars {
			cell := f.data[pos : pos+v.width]
			pos += v.width
			val, err := f.cell(v.typ, cell)
			if err != nil {
				return nil, fmt.Errorf("row %d variable %q: %w", i+1, v.name, err)
			}
			values[j][i] = val
		}
	}

	cols := make([]*dataset.Column, len(f.vars))
	for j, v := range f.vars {
		col, err := f.column(v, values[j])
		if err != nil {
			return nil, err
		}
		cols[j] = col
	}
	return dataset.New(cols...)
}

func (f *file) column(v variable, vals []any) (*dataset.Column, error) {
	var kind dataset.Kind
	switch v.typ {
	case typeByte, typeInt, typeLong:
		kind = dataset.KindInt
	case typeFloat, typeDouble:
		kind = dataset.KindFloat
	default:
		kind = dataset.KindText
	}

	entries, labeled := f.labels[v.vlabel]
	if kind == dataset.KindInt && v.vlabel != "" && labeled {
		byValue := make(map[int64]string, len(entries))
		levels := make([]string, 0, len(entries))
		for _, e := range entries {
			byValue[int64(e.value)] = e.text
			levels = append(levels, e.text)
		}
		for i, x := range vals {
			if x == nil {
				continue
			}
			n := x.(int64)
			if s, ok := byValue[n]; ok {
				vals[i] = s
			} else {
				vals[i] = strconv.FormatInt(n, 10)
			}
		}
		col, err := dataset.NewColumn(v.name, dataset.KindCategorical, vals)
		if err != nil {
			return nil, err
		}
		return col.WithLevels(levels).WithLabel(v.label), nil
	}

	col, err := dataset.NewColumn(v.name, kind, vals)
	if err != nil {
		return nil, err
	}
	return col.WithLabel(v.label), nil
}

func (f *file) cell(typ uint16, p []byte) (any, error) {
	switch typ {
	case typeByte:
		x := int8(p[0])
		if x > maxByte {
			return nil, nil
		}
		return int64(x), nil
	case typeInt:
		x := int16(f.order.Uint16(p))
		if x > maxInt {
			return nil, nil
		}
		return int64(x), nil
	case typeLong:
		x := int32(f.order.Uint32(p))
		if x > maxLong {
			return nil, nil
		}
		return int64(x), nil
	case typeFloat:
		x := math.Float32frombits(f.order.Uint32(p))
		if math.IsNaN(float64(x)) || x >= missFloat {
			return nil, nil
		}
		return float64(x), nil
	case typeDouble:
		x := math.Float64frombits(f.order.Uint64(p))
		if math.IsNaN(x) || x >= missDouble {
			return nil, nil
		}
		return x, nil
	case typeStrL:
		v, o := f.strlRef(p)
		if v == 0 && o == 0 {
			return "", nil
		}
		s, ok := f.strls[[2]uint64{v, o}]
		if !ok {
			return nil, fmt.Errorf("strL (%d,%d) not found", v, o)
		}
		return s, nil
	default:
		return decodeText(p), nil
	}
}

// strlRef unpacks the (variable, observation) key stored in a strL cell.
func (f *file) strlRef(p []byte) (v, o uint64) {
	switch f.release {
	case 117:
		return uint64(f.order.Uint32(p[0:4])), uint64(f.order.Uint32(p[4:8]))
	case 118:
		if f.order == binary.LittleEndian {
			x := binary.LittleEndian.Uint64(p)
			return x & 0xffff, x >> 16
		}
		x := binary.BigEndian.Uint64(p)
		return x >> 48, x & (1<<48 - 1)
	default:
		if f.order == binary.LittleEndian {
			x := binary.LittleEndian.Uint64(p)
			return x & 0xffffff, x >> 24
		}
		x := binary.BigEndian.Uint64(p)
		return x >> 40, x & (1<<40 - 1)
	}
}
