// Package dta reads and writes Stata .dta files.
//
// Supported releases for reading are 114 and 115 (Stata 10-12, fixed binary
// header) and 117, 118 and 119 (Stata 13+, tagged sections). Files are always
// written as release 118, little-endian.
//
// Decoding rules:
//   - byte/int/long become int columns, float/double become float columns and
//     str#/strL become text columns.
//   - Stata missing values (. and .a through .z) decode as missing.
//   - An integer variable with an attached value label decodes as a
//     categorical column whose cells are the label texts. Values without a
//     label keep their number rendered as text. Levels follow label value
//     order.
//   - Strings are UTF-8; bytes that are not valid UTF-8 are decoded as
//     Windows-1252, which is what older releases used.
//
// Encoding mirrors this: categorical columns are written as integer codes
// 0..n-1 with a value label named after the variable, and text cells longer
// than 2045 bytes switch the variable to strL. Stata has no missing string,
// so missing text is written as the empty string.
package dta

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
	"github.com/RC-CHN/CHARLS-FILTER/internal/fileio"
)

func init() {
	fileio.Register(".dta", Codec{})
}

// Codec implements fileio.Codec for Stata files.
type Codec struct{}

// Read decodes the file at path.
func (Codec) Read(ctx context.Context, path string) (*dataset.Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ds, err := Decode(ctx, b)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &fileio.ParseError{Path: path, Err: err}
	}
	return ds, nil
}

// Write encodes ds as release 118 and writes it to path.
func (Codec) Write(ctx context.Context, ds *dataset.Dataset, path string) error {
	b, err := Encode(ctx, ds)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, b, 0o644)
}

// Type codes, in the numbering used by releases 117+. Codes 1..2045 are str#.
const (
	typeStrL   = 32768
	typeDouble = 65526
	typeFloat  = 65527
	typeLong   = 65528
	typeInt    = 65529
	typeByte   = 65530

	maxStrN = 2045
)

// Largest non-missing values and the system missing value "." per type.
const (
	maxByte = 100
	maxInt  = 32740
	maxLong = 2147483620

	missByte = 101
	missInt  = 32741
	missLong = 2147483621

	missFloatBits  = 0x7f000000
	missDoubleBits = 0x7fe0000000000000
)

var (
	missFloat  = math.Float32frombits(missFloatBits)
	missDouble = math.Float64frombits(missDoubleBits)
)

func typeWidth(t uint16) (int, error) {
	switch {
	case t >= 1 && t <= maxStrN:
		return int(t), nil
	case t == typeStrL, t == typeDouble:
		return 8, nil
	case t == typeFloat, t == typeLong:
		return 4, nil
	case t == typeInt:
		return 2, nil
	case t == typeByte:
		return 1, nil
	}
	return 0, fmt.Errorf("unknown variable type code %d", t)
}

// decodeText converts raw string bytes, cut at the first NUL, to UTF-8.
func decodeText(p []byte) string {
	for i, c := range p {
		if c == 0 {
			p = p[:i]
			break
		}
	}
	if utf8.Valid(p) {
		return string(p)
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(p)
	if err != nil {
		return string(p)
	}
	return string(out)
}
