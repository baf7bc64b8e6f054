package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gyeh/codebook/internal/model"
	"github.com/gyeh/codebook/internal/normalize"
)

func openCSV(path string, gz bool, clean normalize.Cleaner) (*Reader, error) {
	stream, closers, err := openStream(path, gz)
	if err != nil {
		return nil, err
	}
	r := &Reader{closers: closers}

	cr := csv.NewReader(stream)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		r.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read csv header: file is empty")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = trimBOM(h, i)
	}
	if err := CheckColumns(columns); err != nil {
		r.Close()
		return nil, err
	}
	r.Columns = columns

	r.Records = func(yield func(model.RawRecord, error) bool) {
		for {
			row, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(model.RawRecord{}, fmt.Errorf("read csv row: %w", err))
				return
			}
			if len(row) > len(columns) {
				line, _ := cr.FieldPos(0)
				yield(model.RawRecord{}, fmt.Errorf("csv line %d: %d cells for %d columns", line, len(row), len(columns)))
				return
			}

			// Short rows leave trailing columns absent rather than null.
			fields := make([]model.RawField, len(row))
			for i, cell := range row {
				fields[i] = model.RawField{Key: columns[i], Value: clean.CleanString(cell)}
			}
			if !yield(model.NewRawRecord(fields...), nil) {
				return
			}
		}
	}
	return r, nil
}

func trimBOM(s string, i int) string {
	if i == 0 {
		return strings.TrimPrefix(s, "\ufeff")
	}
	return s
}
