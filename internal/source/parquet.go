package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/codebook/internal/model"
	"github.com/gyeh/codebook/internal/normalize"
)

const parquetBatch = 256

// openParquet opens a flat Parquet file. Every leaf column becomes a record
// key; null cells become nil values and other cells their string form.
func openParquet(path string, clean normalize.Cleaner) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	columns, err := flatColumns(pf.Schema())
	if err != nil {
		f.Close()
		return nil, err
	}

	r := &Reader{
		Total:   pf.NumRows(),
		Columns: columns,
		closers: []func() error{f.Close},
	}
	r.Records = func(yield func(model.RawRecord, error) bool) {
		pr := parquet.NewReader(pf)
		defer pr.Close()

		rows := make([]parquet.Row, parquetBatch)
		for {
			n, err := pr.ReadRows(rows)
			for _, row := range rows[:n] {
				if !yield(rowRecord(row, columns, clean), nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(model.RawRecord{}, fmt.Errorf("read parquet rows: %w", err))
				return
			}
		}
	}
	return r, nil
}

func flatColumns(schema *parquet.Schema) ([]string, error) {
	paths := schema.Columns()
	columns := make([]string, len(paths))
	for i, p := range paths {
		if len(p) != 1 {
			return nil, fmt.Errorf("parquet column %s: nested columns are not supported", strings.Join(p, "."))
		}
		columns[i] = p[0]
	}
	if err := CheckColumns(columns); err != nil {
		return nil, err
	}
	return columns, nil
}

func rowRecord(row parquet.Row, columns []string, clean normalize.Cleaner) model.RawRecord {
	fields := make([]model.RawField, len(columns))
	for i, c := range columns {
		fields[i].Key = c
	}
	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= len(columns) || v.IsNull() {
			continue
		}
		fields[col].Value = clean.CleanString(v.String())
	}
	return model.NewRawRecord(fields...)
}

// WriteParquet writes records as a flat Parquet file with one optional string
// column per entry of columns. Keys a record lacks are written as nulls.
// Parquet orders group fields by name, so the file's columns come back sorted.
func WriteParquet(w io.Writer, columns []string, records []model.RawRecord) error {
	group := parquet.Group{}
	for _, c := range columns {
		group[c] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("record", group)

	leaves := schema.Columns()
	pw := parquet.NewWriter(w, schema)

	rows := make([]parquet.Row, 0, parquetBatch)
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		if _, err := pw.WriteRows(rows); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
		rows = rows[:0]
		return nil
	}

	for _, rec := range records {
		row := make(parquet.Row, len(leaves))
		for i, p := range leaves {
			v, _ := rec.Get(p[0])
			if v == nil {
				row[i] = parquet.NullValue().Level(0, 0, i)
				continue
			}
			row[i] = parquet.ValueOf(*v).Level(0, 1, i)
		}
		rows = append(rows, row)
		if len(rows) == parquetBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}
