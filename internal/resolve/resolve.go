// Package resolve maps one raw code to a Result using a field's value table.
package resolve

import (
	"github.com/gyeh/codebook/internal/dictionary"
	"github.com/gyeh/codebook/internal/model"
)

// Field resolves raw against the field named key. It is a pure function of
// its inputs; d is only read.
func Field(d *dictionary.Dictionary, key string, raw *string) model.Result {
	def, ok := d.Lookup(key)
	if !ok {
		return model.UnknownField(raw)
	}
	return Definition(def, raw)
}

// Definition resolves raw against a known field definition.
//
// Null raw values resolve to the field's null label when it defines one.
// Non-null values of a free-form field decode to themselves. Otherwise the
// value must match a code under the field's case policy.
func Definition(def *dictionary.FieldDefinition, raw *string) model.Result {
	if raw == nil {
		label, ok := def.NullLabel()
		return model.NullValue(label, ok)
	}
	if def.FreeForm() {
		return model.Decoded(*raw)
	}
	_, label, ok := def.Match(*raw)
	if !ok {
		return model.UnknownCode(*raw)
	}
	return model.Decoded(label)
}
