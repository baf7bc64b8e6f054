package model

import (
	"bytes"
	"encoding/json"
	"iter"
)

// DecodedField pairs a field's raw input with its resolution.
type DecodedField struct {
	Key    string  `json:"key"`
	Raw    *string `json:"raw"`
	Result Result  `json:"result"`
}

// DecodedRecord holds one Result per input field, in input order.
// Seq is the record's 1-based position within its shard (0 when decoded standalone).
type DecodedRecord struct {
	Seq    int64
	fields []DecodedField
	index  map[string]int
}

// NewDecodedRecord takes ownership of fields; callers must not modify the slice afterwards.
func NewDecodedRecord(seq int64, fields []DecodedField) DecodedRecord {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[f.Key] = i
	}
	return DecodedRecord{Seq: seq, fields: fields, index: index}
}

// Get returns the result for key.
func (d DecodedRecord) Get(key string) (Result, bool) {
	i, ok := d.index[key]
	if !ok {
		return Result{}, false
	}
	return d.fields[i].Result, true
}

// Len returns the number of decoded fields.
func (d DecodedRecord) Len() int {
	return len(d.fields)
}

// Fields returns a copy of the decoded fields in order.
func (d DecodedRecord) Fields() []DecodedField {
	out := make([]DecodedField, len(d.fields))
	copy(out, d.fields)
	return out
}

// All iterates over decoded fields in order.
func (d DecodedRecord) All() iter.Seq2[string, Result] {
	return func(yield func(string, Result) bool) {
		for _, f := range d.fields {
			if !yield(f.Key, f.Result) {
				return
			}
		}
	}
}

// Anomalies returns the fields whose result is an unknown code or unknown field.
func (d DecodedRecord) Anomalies() []DecodedField {
	var out []DecodedField
	for _, f := range d.fields {
		if f.Result.Kind.Anomaly() {
			out = append(out, f)
		}
	}
	return out
}

// Equal compares two records field by field.
func (d DecodedRecord) Equal(o DecodedRecord) bool {
	if d.Seq != o.Seq || len(d.fields) != len(o.fields) {
		return false
	}
	for i := range d.fields {
		a, b := d.fields[i], o.fields[i]
		if a.Key != b.Key || !a.Result.Equal(b.Result) {
			return false
		}
		if (a.Raw == nil) != (b.Raw == nil) || (a.Raw != nil && *a.Raw != *b.Raw) {
			return false
		}
	}
	return true
}

// FieldJSON is the encoding of one decoded field inside a record's "fields" object.
// Raw is null when the input value was null.
type FieldJSON struct {
	Raw    *string `json:"raw"`
	Result Result  `json:"result"`
}

// MarshalJSON encodes {"seq": n, "fields": {key: {"raw": ..., "result": ...}, ...}}
// preserving field order.
func (d DecodedRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"seq":`)
	seq, _ := json.Marshal(d.Seq)
	buf.Write(seq)
	buf.WriteString(`,"fields":{`)
	for i, f := range d.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, f.Key); err != nil {
			return nil, err
		}
		v, err := json.Marshal(FieldJSON{Raw: f.Raw, Result: f.Result})
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}
