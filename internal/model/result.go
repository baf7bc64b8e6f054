package model

import (
	"encoding/json"
	"fmt"
)

// Kind tags which outcome a Result holds.
type Kind uint8

const (
	KindDecoded Kind = iota + 1
	KindUnknownCode
	KindNullValue
	KindUnknownField
	KindNotApplicable
)

// AllKinds lists every resolution kind in canonical report order.
var AllKinds = []Kind{KindDecoded, KindUnknownCode, KindNullValue, KindUnknownField, KindNotApplicable}

// String returns the snake_case name used in reports and sinks.
func (k Kind) String() string {
	switch k {
	case KindDecoded:
		return "decoded"
	case KindUnknownCode:
		return "unknown_code"
	case KindNullValue:
		return "null_value"
	case KindUnknownField:
		return "unknown_field"
	case KindNotApplicable:
		return "not_applicable"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Anomaly reports whether results of this kind count against data quality.
func (k Kind) Anomaly() bool {
	return k == KindUnknownCode || k == KindUnknownField
}

// KindByName returns the Kind for its String() name, or ok=false.
func KindByName(name string) (Kind, bool) {
	for _, k := range AllKinds {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// Result is the outcome of resolving one raw value against one field.
//
// Label is set for KindDecoded, and for KindNullValue when HasLabel is true.
// Raw carries the unresolved input for KindUnknownCode and KindUnknownField.
type Result struct {
	Kind     Kind
	Label    string
	HasLabel bool
	Raw      *string
}

// Decoded returns a successful resolution.
func Decoded(label string) Result {
	return Result{Kind: KindDecoded, Label: label, HasLabel: true}
}

// UnknownCode returns a result for a raw value absent from the field's table.
func UnknownCode(raw string) Result {
	return Result{Kind: KindUnknownCode, Raw: &raw}
}

// NullValue returns a result for a null raw value. ok is false when the field
// defines no null label.
func NullValue(label string, ok bool) Result {
	if !ok {
		return Result{Kind: KindNullValue}
	}
	return Result{Kind: KindNullValue, Label: label, HasLabel: true}
}

// UnknownField returns a result for a key the dictionary does not define.
func UnknownField(raw *string) Result {
	return Result{Kind: KindUnknownField, Raw: cloneString(raw)}
}

// NotApplicable is the placeholder for a monthly slot with no member or no value.
func NotApplicable() Result {
	return Result{Kind: KindNotApplicable}
}

// Equal compares two results by value, including the raw string contents.
func (r Result) Equal(o Result) bool {
	if r.Kind != o.Kind || r.Label != o.Label || r.HasLabel != o.HasLabel {
		return false
	}
	if (r.Raw == nil) != (o.Raw == nil) {
		return false
	}
	return r.Raw == nil || *r.Raw == *o.Raw
}

func (r Result) String() string {
	switch r.Kind {
	case KindDecoded:
		return fmt.Sprintf("Decoded{%q}", r.Label)
	case KindNullValue:
		if r.HasLabel {
			return fmt.Sprintf("NullValue{%q}", r.Label)
		}
		return "NullValue{none}"
	case KindUnknownCode, KindUnknownField:
		name := "UnknownCode"
		if r.Kind == KindUnknownField {
			name = "UnknownField"
		}
		if r.Raw == nil {
			return name + "{null}"
		}
		return fmt.Sprintf("%s{%q}", name, *r.Raw)
	case KindNotApplicable:
		return "NotApplicable"
	}
	return r.Kind.String()
}

type resultJSON struct {
	Kind  string  `json:"kind"`
	Label *string `json:"label,omitempty"`
	Raw   *string `json:"raw,omitempty"`
}

// MarshalJSON encodes the result as {"kind": ..., "label": ..., "raw": ...}.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{Kind: r.Kind.String(), Raw: r.Raw}
	if r.HasLabel {
		label := r.Label
		out.Label = &label
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var in resultJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	k, ok := KindByName(in.Kind)
	if !ok {
		return fmt.Errorf("unknown result kind %q", in.Kind)
	}
	*r = Result{Kind: k, Raw: in.Raw}
	if in.Label != nil {
		r.Label = *in.Label
		r.HasLabel = true
	}
	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
