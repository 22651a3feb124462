// Package parquetfile is the Parquet codec. Datasets are written as a flat
// schema of optional columns (int64, double or UTF-8 string). Parquet groups
// sort their fields by name, so the original column order and the
// text/categorical distinction are kept in the file's key/value metadata.
package parquetfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/RC-CHN/CHARLS-FILTER/internal/dataset"
	"github.com/RC-CHN/CHARLS-FILTER/internal/fileio"
)

func init() {
	fileio.Register(".parquet", Codec{})
}

const (
	metaColumns = "charls.columns"
	metaKinds   = "charls.kinds"

	batchRows = 1024
)

// Codec implements fileio.Codec for Parquet.
type Codec struct{}

// Write stores ds at path.
func (Codec) Write(ctx context.Context, ds *dataset.Dataset, path string) (err error) {
	names := ds.Names()
	kinds := make(map[string]string, len(names))
	group := make(parquet.Group, len(names))
	for _, c := range ds.Columns() {
		kinds[c.Name()] = c.Kind().String()
		switch c.Kind() {
		case dataset.KindInt:
			group[c.Name()] = parquet.Optional(parquet.Leaf(parquet.Int64Type))
		case dataset.KindFloat:
			group[c.Name()] = parquet.Optional(parquet.Leaf(parquet.DoubleType))
		default:
			group[c.Name()] = parquet.Optional(parquet.String())
		}
	}
	schema := parquet.NewSchema("dataset", group)
	colsJSON, _ := json.Marshal(names)
	kindsJSON, _ := json.Marshal(kinds)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := parquet.NewWriter(f, schema,
		parquet.KeyValueMetadata(metaColumns, string(colsJSON)),
		parquet.KeyValueMetadata(metaKinds, string(kindsJSON)),
	)

	// Leaf i of the schema is the i-th name in sorted order.
	leaves := append([]string(nil), names...)
	sort.Strings(leaves)
	cols := make([]*dataset.Column, len(leaves))
	for i, n := range leaves {
		cols[i], _ = ds.Column(n)
	}

	batch := make([]parquet.Row, 0, batchRows)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := w.WriteRows(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}
	for r := 0; r < ds.NumRows(); r++ {
		row := make(parquet.Row, len(cols))
		for i, c := range cols {
			row[i] = toValue(c.Value(r)).Level(0, defLevel(c.Value(r)), i)
		}
		batch = append(batch, row)
		if len(batch) == batchRows {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := flush(); err != nil {
				return fmt.Errorf("write rows: %w", err)
			}
		}
	}
	if err := flush(); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return w.Close()
}

func defLevel(v any) int {
	if v == nil {
		return 0
	}
	return 1
}

func toValue(v any) parquet.Value {
	switch t := v.(type) {
	case int64:
		return parquet.Int64Value(t)
	case float64:
		return parquet.DoubleValue(t)
	case string:
		return parquet.ByteArrayValue([]byte(t))
	}
	return parquet.NullValue()
}

// Read loads the file at path.
func (Codec) Read(ctx context.Context, path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, &fileio.ParseError{Path: path, Err: err}
	}
	ds, err := decode(ctx, pf)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &fileio.ParseError{Path: path, Err: err}
	}
	return ds, nil
}

func decode(ctx context.Context, pf *parquet.File) (*dataset.Dataset, error) {
	fields := pf.Schema().Fields()
	kinds := make([]dataset.Kind, len(fields))
	declared := map[string]string{}
	if s, ok := pf.Lookup(metaKinds); ok {
		_ = json.Unmarshal([]byte(s), &declared)
	}
	for i, fld := range fields {
		if !fld.Leaf() {
			return nil, fmt.Errorf("nested field %q is not supported", fld.Name())
		}
		if k, err := dataset.ParseKind(declared[fld.Name()]); err == nil {
			kinds[i] = k
			continue
		}
		switch fld.Type().Kind() {
		case parquet.Int32, parquet.Int64:
			kinds[i] = dataset.KindInt
		case parquet.Float, parquet.Double:
			kinds[i] = dataset.KindFloat
		default:
			kinds[i] = dataset.KindText
		}
	}

	values := make([][]any, len(fields))
	r := parquet.NewReader(pf)
	defer r.Close()
	buf := make([]parquet.Row, batchRows)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.ReadRows(buf)
		for _, row := range buf[:n] {
			cells := make([]any, len(fields))
			for _, v := range row {
				i := v.Column()
				if i < 0 || i >= len(fields) || v.IsNull() {
					continue
				}
				cells[i] = fromValue(v, kinds[i])
			}
			for i := range fields {
				values[i] = append(values[i], cells[i])
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
	}

	byName := make(map[string]*dataset.Column, len(fields))
	leafOrder := make([]string, len(fields))
	for i, fld := range fields {
		c, err := dataset.NewColumn(fld.Name(), kinds[i], values[i])
		if err != nil {
			return nil, err
		}
		byName[fld.Name()] = c
		leafOrder[i] = fld.Name()
	}

	order := leafOrder
	if s, ok := pf.Lookup(metaColumns); ok {
		var names []string
		if err := json.Unmarshal([]byte(s), &names); err == nil && len(names) == len(fields) {
			order = names
		}
	}
	cols := make([]*dataset.Column, 0, len(order))
	for _, n := range order {
		c, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("metadata lists unknown column %q", n)
		}
		cols = append(cols, c)
	}
	return dataset.New(cols...)
}

func fromValue(v parquet.Value, kind dataset.Kind) any {
	switch v.Kind() {
	case parquet.Int32:
		return coerce(int64(v.Int32()), kind)
	case parquet.Int64:
		return coerce(v.Int64(), kind)
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.Boolean:
		if kind == dataset.KindInt {
			if v.Boolean() {
				return int64(1)
			}
			return int64(0)
		}
		return strconv.FormatBool(v.Boolean())
	default:
		return string(v.ByteArray())
	}
}

func coerce(n int64, kind dataset.Kind) any {
	if kind == dataset.KindFloat {
		return float64(n)
	}
	if kind.Textual() {
		return strconv.FormatInt(n, 10)
	}
	return n
}
