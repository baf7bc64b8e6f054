package model

import (
	"bytes"
	"encoding/json"
	"iter"
)

// RawField is one key/value pair of a source record. A nil Value is a null.
type RawField struct {
	Key   string
	Value *string
}

// RawRecord is an ordered mapping from field key to raw code value, as read
// from a record source. Setting an existing key replaces its value in place.
type RawRecord struct {
	fields []RawField
	index  map[string]int
}

// NewRawRecord builds a record from fields in order.
func NewRawRecord(fields ...RawField) RawRecord {
	r := RawRecord{
		fields: make([]RawField, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
	return r
}

// Set assigns key's value, appending the key if it is new.
func (r *RawRecord) Set(key string, v *string) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[key]; ok {
		r.fields[i].Value = v
		return
	}
	r.index[key] = len(r.fields)
	r.fields = append(r.fields, RawField{Key: key, Value: v})
}

// Get returns the raw value for key and whether the key is present at all.
// A present key may still hold a nil (null) value.
func (r RawRecord) Get(key string) (*string, bool) {
	i, ok := r.index[key]
	if !ok {
		return nil, false
	}
	return r.fields[i].Value, true
}

// Has reports whether key is present in the record.
func (r RawRecord) Has(key string) bool {
	_, ok := r.index[key]
	return ok
}

// Len returns the number of fields.
func (r RawRecord) Len() int {
	return len(r.fields)
}

// Keys returns the field keys in record order.
func (r RawRecord) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Key
	}
	return keys
}

// All iterates over fields in record order.
func (r RawRecord) All() iter.Seq2[string, *string] {
	return func(yield func(string, *string) bool) {
		for _, f := range r.fields {
			if !yield(f.Key, f.Value) {
				return
			}
		}
	}
}

// Clone returns a deep copy safe to retain after the source reuses buffers.
func (r RawRecord) Clone() RawRecord {
	out := RawRecord{
		fields: make([]RawField, len(r.fields)),
		index:  make(map[string]int, len(r.fields)),
	}
	for i, f := range r.fields {
		out.fields[i] = RawField{Key: f.Key, Value: cloneString(f.Value)}
		out.index[f.Key] = i
	}
	return out
}

// MarshalJSON encodes the record as a JSON object preserving field order.
func (r RawRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, f.Key); err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// String returns a pointer to s, for building records in code and tests.
func String(s string) *string {
	return &s
}

func writeKey(buf *bytes.Buffer, key string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	return nil
}
