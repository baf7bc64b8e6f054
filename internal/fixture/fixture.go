// Package fixture generates deterministic synthetic records from a dictionary
// and writes them in any supported record format.
package fixture

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"github.com/klauspost/pgzip"

	"github.com/gyeh/codebook/internal/dictionary"
	"github.com/gyeh/codebook/internal/model"
	"github.com/gyeh/codebook/internal/source"
)

// Options controls record generation.
type Options struct {
	Rows int
	Seed uint64
	// NullRate and UnknownRate are per-cell probabilities. Unknown codes are
	// only injected into enumerated fields.
	NullRate    float64
	UnknownRate float64
	// ExtraFields are appended to every record with a value the dictionary
	// does not define, so they decode as unknown fields.
	ExtraFields []string
}

// Generate returns the column order and the records. The same dictionary and
// options always produce the same records.
func Generate(d *dictionary.Dictionary, opts Options) ([]string, []model.RawRecord) {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	keys := d.Keys()
	columns := append(append([]string(nil), keys...), opts.ExtraFields...)

	records := make([]model.RawRecord, opts.Rows)
	for i := range records {
		fields := make([]model.RawField, 0, len(columns))
		for _, key := range keys {
			def, _ := d.Lookup(key)
			fields = append(fields, model.RawField{Key: key, Value: cell(rng, def, opts)})
		}
		for _, key := range opts.ExtraFields {
			fields = append(fields, model.RawField{Key: key, Value: model.String(fmt.Sprintf("x%d", i+1))})
		}
		records[i] = model.NewRawRecord(fields...)
	}
	return columns, records
}

func cell(rng *rand.Rand, def *dictionary.FieldDefinition, opts Options) *string {
	if rng.Float64() < opts.NullRate {
		return nil
	}
	if def.FreeForm() {
		return model.String(fmt.Sprintf("%06d", rng.IntN(1_000_000)))
	}
	if rng.Float64() < opts.UnknownRate {
		return model.String(unknownCode(def))
	}
	codes := def.Codes()
	return model.String(codes[rng.IntN(len(codes))])
}

// unknownCode returns a code the field does not define.
func unknownCode(def *dictionary.FieldDefinition) string {
	for _, c := range []string{"ZZ", "~", "??", "-1"} {
		if _, _, ok := def.Match(c); !ok {
			return c
		}
	}
	return strings.Repeat("Z", 8)
}

// WriteFile writes records to path in the format its extension names.
// Nulls are written as empty cells in CSV and as JSON null otherwise.
func WriteFile(path string, columns []string, records []model.RawRecord) error {
	format, gz, err := source.DetectFormat(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create fixture: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var zw *pgzip.Writer
	if gz {
		zw = pgzip.NewWriter(f)
		w = zw
	}

	switch format {
	case source.FormatParquet:
		err = source.WriteParquet(w, columns, records)
	case source.FormatCSV:
		err = writeCSV(w, columns, records)
	case source.FormatJSONL:
		err = writeJSONL(w, records)
	}
	if err != nil {
		return err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return fmt.Errorf("close gzip: %w", err)
		}
	}
	return f.Close()
}

func writeCSV(w io.Writer, columns []string, records []model.RawRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	row := make([]string, len(columns))
	for _, rec := range records {
		for i, c := range columns {
			row[i] = ""
			if v, _ := rec.Get(c); v != nil {
				row[i] = *v
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSONL(w io.Writer, records []model.RawRecord) error {
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	return nil
}
