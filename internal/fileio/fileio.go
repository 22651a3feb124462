// Package fileio is the file reader/writer registry. Codecs register
// themselves by extension from init functions (see fileio/all), and callers
// read and write by path; the extension selects the codec.
//
// Errors:
//   - ErrUnsupportedFileType when no codec handles the extension.
//   - *ParseError when the content is malformed. Codecs wrap their decoding
//     failures in ParseError so callers can tell bad input from I/O failures.
package fileio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
)

// ErrUnsupportedFileType is returned for unrecognised extensions.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// ParseError reports malformed file content.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.Path, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Codec reads and writes one file format.
type Codec interface {
	Read(ctx context.Context, path string) (*dataset.Dataset, error)
	Write(ctx context.Context, ds *dataset.Dataset, path string) error
}

var (
	mu     sync.RWMutex
	codecs = map[string]Codec{}
)

// Register associates a codec with an extension such as ".csv" or ".csv.gz".
// Registering an extension again replaces the previous codec.
func Register(ext string, c Codec) {
	mu.Lock()
	defer mu.Unlock()
	codecs[strings.ToLower(ext)] = c
}

// Extensions lists the registered extensions, sorted.
func Extensions() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(codecs))
	for ext := range codecs {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the codec for path. The longest registered extension that
// suffixes the lower-cased base name wins, so ".csv.gz" beats ".gz".
func Lookup(path string) (Codec, error) {
	base := strings.ToLower(filepath.Base(path))
	mu.RLock()
	defer mu.RUnlock()
	var (
		best    Codec
		bestLen int
	)
	for ext, c := range codecs {
		if strings.HasSuffix(base, ext) && len(ext) > bestLen {
			best, bestLen = c, len(ext)
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, filepath.Ext(path))
	}
	return best, nil
}

// Read loads path with the codec registered for its extension.
func Read(ctx context.Context, path string) (*dataset.Dataset, error) {
	c, err := Lookup(path)
	if err != nil {
		return nil, err
	}
	return c.Read(ctx, path)
}

// Write stores ds at path with the codec registered for its extension.
func Write(ctx context.Context, ds *dataset.Dataset, path string) error {
	c, err := Lookup(path)
	if err != nil {
		return err
	}
	return c.Write(ctx, ds, path)
}
