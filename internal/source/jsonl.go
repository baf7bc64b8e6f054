package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gyeh/codebook/internal/batch"
	"github.com/gyeh/codebook/internal/model"
	"github.com/gyeh/codebook/internal/normalize"
)

const maxLine = 16 << 20

func openJSONL(path string, gz bool, clean normalize.Cleaner) (*Reader, error) {
	stream, closers, err := openStream(path, gz)
	if err != nil {
		return nil, err
	}
	return &Reader{closers: closers, Records: JSONLRecords(stream, clean)}, nil
}

// JSONLRecords reads one JSON object per line from r. Blank lines are skipped;
// a malformed line ends the stream with an error naming the line.
func JSONLRecords(r io.Reader, clean normalize.Cleaner) batch.Source {
	return func(yield func(model.RawRecord, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), maxLine)
		line := 0
		for sc.Scan() {
			line++
			b := bytes.TrimSpace(sc.Bytes())
			if len(b) == 0 {
				continue
			}
			rec, err := parseObject(b, clean)
			if err != nil {
				yield(model.RawRecord{}, fmt.Errorf("jsonl line %d: %w", line, err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(model.RawRecord{}, fmt.Errorf("read jsonl: %w", err))
		}
	}
}

// parseObject decodes one JSON object into a RawRecord, keeping key order.
// Strings are cleaned; numbers keep their literal text and booleans become
// "true" or "false". Nested values are rejected.
func parseObject(b []byte, clean normalize.Cleaner) (model.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return model.RawRecord{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return model.RawRecord{}, fmt.Errorf("expected an object")
	}

	var rec model.RawRecord
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return model.RawRecord{}, err
		}
		key := tok.(string)

		tok, err = dec.Token()
		if err != nil {
			return model.RawRecord{}, err
		}
		switch v := tok.(type) {
		case nil:
			rec.Set(key, nil)
		case string:
			rec.Set(key, clean.CleanString(v))
		case json.Number:
			rec.Set(key, clean.CleanString(v.String()))
		case bool:
			rec.Set(key, clean.CleanString(fmt.Sprint(v)))
		default:
			return model.RawRecord{}, fmt.Errorf("field %q: nested values are not supported", key)
		}
	}
	if _, err := dec.Token(); err != nil {
		return model.RawRecord{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return model.RawRecord{}, fmt.Errorf("trailing data after object")
	}
	return rec, nil
}
