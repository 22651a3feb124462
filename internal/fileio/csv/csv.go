// Package csv is the delimited-text codec.
//
// Reading infers a kind per column the way spreadsheet users expect: a column
// whose non-missing cells all parse as integers is int, otherwise float when
// they all parse as numbers, otherwise text. The usual NA tokens ("", "NA",
// "NaN", "NULL", "n/a", ...) are read as missing. Duplicate headers are
// disambiguated as a, a.1, a.2 and blank headers become "Unnamed: <i>".
//
// Files ending in .gz are transparently (de)compressed. Non-UTF-8 input can be
// decoded by setting Options.Encoding.
package csv

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
	"github.com/RC-CHN/CHARLS-FILTER/internal/fileio"
)

func init() {
	fileio.Register(".csv", New(Options{}))
	fileio.Register(".csv.gz", New(Options{Gzip: true}))
	fileio.Register(".tsv", New(Options{Comma: '\t'}))
}

// Options configures the codec. The zero value reads and writes
// comma-separated UTF-8.
type Options struct {
	// Comma is the field delimiter; ',' when zero.
	Comma rune
	// Encoding names the byte encoding: "utf-8" (default), "gbk", "gb18030",
	// "latin1" or "windows-1252".
	Encoding string
	// Gzip wraps the file in gzip compression.
	Gzip bool
	// NATokens replaces the default set of cell values read as missing.
	NATokens []string
}

// Codec implements fileio.Codec for delimited text.
type Codec struct {
	opt Options
	na  map[string]struct{}
}

// New returns a codec for opt.
func New(opt Options) *Codec {
	if opt.Comma == 0 {
		opt.Comma = ','
	}
	tokens := opt.NATokens
	if tokens == nil {
		tokens = DefaultNATokens
	}
	na := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		na[t] = struct{}{}
	}
	return &Codec{opt: opt, na: na}
}

// DefaultNATokens are the cell values read as missing.
var DefaultNATokens = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

const utf8BOM = "\uFEFF"

// LookupEncoding resolves an encoding name. The empty string and "utf-8"
// return nil, meaning no transcoding.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "gbk", "cp936":
		return simplifiedchinese.GBK, nil
	case "gb18030":
		return simplifiedchinese.GB18030, nil
	case "latin1", "latin-1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	}
	return nil, fmt.Errorf("unsupported csv encoding %q", name)
}

// Read parses the file at path.
func (c *Codec) Read(ctx context.Context, path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = bufio.NewReaderSize(f, 64*1024)
	if c.opt.Gzip {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, &fileio.ParseError{Path: path, Err: err}
		}
		defer gz.Close()
		r = gz
	}
	enc, err := LookupEncoding(c.opt.Encoding)
	if err != nil {
		return nil, err
	}
	if enc != nil {
		r = transform.NewReader(r, enc.NewDecoder())
	}

	ds, err := c.parse(ctx, r)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &fileio.ParseError{Path: path, Err: err}
	}
	return ds, nil
}

func (c *Codec) parse(ctx context.Context, r io.Reader) (*dataset.Dataset, error) {
	cr := csv.NewReader(r)
	cr.Comma = c.opt.Comma
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty file: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for _, h := range header {
		if !utf8.ValidString(h) {
			return nil, errors.New("invalid UTF-8 in header (set an encoding such as gbk)")
		}
	}
	names := normalizeHeaders(header)

	cells := make([][]string, len(names))
	missing := make([][]bool, len(names))
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line++
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if len(rec) > len(names) {
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, len(names), len(rec))
		}
		for i := range names {
			var v string
			isNA := true
			if i < len(rec) {
				v = rec[i]
				if !utf8.ValidString(v) {
					return nil, fmt.Errorf("line %d: invalid UTF-8 in column %q (set an encoding such as gbk)", line, names[i])
				}
				_, isNA = c.na[v]
			}
			cells[i] = append(cells[i], v)
			missing[i] = append(missing[i], isNA)
		}
	}

	cols := make([]*dataset.Column, len(names))
	for i, name := range names {
		col, err := inferColumn(name, cells[i], missing[i])
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return dataset.New(cols...)
}

// normalizeHeaders strips a BOM, trims and NFC-normalises names, names blank
// headers positionally and mangles duplicates.
func normalizeHeaders(h []string) []string {
	out := make([]string, len(h))
	counts := make(map[string]int, len(h))
	for i, name := range h {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		name = norm.NFC.String(strings.TrimSpace(name))
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		cur := counts[name]
		for cur > 0 {
			counts[name] = cur + 1
			name = fmt.Sprintf("%s.%d", name, cur)
			cur = counts[name]
		}
		counts[name] = cur + 1
		out[i] = name
	}
	return out
}

func inferColumn(name string, cells []string, missing []bool) (*dataset.Column, error) {
	kind := dataset.KindInt
	for i, s := range cells {
		if missing[i] {
			continue
		}
		t := strings.TrimSpace(s)
		if kind == dataset.KindInt {
			if _, err := strconv.ParseInt(t, 10, 64); err == nil {
				continue
			}
			kind = dataset.KindFloat
		}
		if _, err := strconv.ParseFloat(t, 64); err != nil {
			kind = dataset.KindText
			break
		}
	}

	vals := make([]any, len(cells))
	for i, s := range cells {
		if missing[i] {
			continue
		}
		switch kind {
		case dataset.KindInt:
			vals[i], _ = strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		case dataset.KindFloat:
			vals[i], _ = strconv.ParseFloat(strings.TrimSpace(s), 64)
		default:
			vals[i] = s
		}
	}
	return dataset.NewColumn(name, kind, vals)
}

// Write stores ds as delimited text. Missing cells are written empty and
// integral floats keep a ".0" suffix so the column reads back as float.
func (c *Codec) Write(ctx context.Context, ds *dataset.Dataset, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriterSize(f, 64*1024)
	var w io.Writer = bw
	var gz *gzip.Writer
	if c.opt.Gzip {
		gz = gzip.NewWriter(bw)
		w = gz
	}
	enc, err := LookupEncoding(c.opt.Encoding)
	if err != nil {
		return err
	}
	var tw io.WriteCloser
	if enc != nil {
		tw = transform.NewWriter(w, enc.NewEncoder())
		w = tw
	}

	cw := csv.NewWriter(w)
	cw.Comma = c.opt.Comma
	if err := cw.Write(ds.Names()); err != nil {
		return err
	}
	rec := make([]string, ds.NumCols())
	for r := 0; r < ds.NumRows(); r++ {
		if r%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j := range rec {
			rec[j] = formatCell(ds.ColumnAt(j).Value(r))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	if tw != nil {
		if err := tw.Close(); err != nil {
			return err
		}
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func formatCell(v any) string {
	if f, ok := v.(float64); ok {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eIN") {
			s += ".0"
		}
		return s
	}
	return dataset.FormatValue(v)
}
