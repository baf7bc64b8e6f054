package resolve_test

import (
	"testing"

	"github.com/gyeh/codebook/internal/dictionary"
	"github.com/gyeh/codebook/internal/model"
	"github.com/gyeh/codebook/internal/resolve"
)

func bsfab(t *testing.T, opts dictionary.LoadOptions) *dictionary.Dictionary {
	t.Helper()
	d, err := dictionary.Builtin("bsfab", opts)
	if err != nil {
		t.Fatalf("load bsfab: %v", err)
	}
	return d
}

func TestField(t *testing.T) {
	d := bsfab(t, dictionary.LoadOptions{})
	tests := []struct {
		name string
		key  string
		raw  *string
		want model.Result
	}{
		{"known code", "sex", model.String("1"), model.Decoded("Male")},
		{"unknown code", "sex", model.String("9"), model.UnknownCode("9")},
		{"null without sentinel", "sex", nil, model.NullValue("", false)},
		{"null with sentinel", "efivepct", nil, model.NullValue("Not included in enhanced 5% sample", true)},
		{"sentinel spelled Null", "v_dod_sw", nil, model.NullValue("Default; death date not verified", true)},
		{"sentinel text is not a code", "efivepct", model.String("NULL"), model.UnknownCode("NULL")},
		{"unknown field", "unexpected_field", model.String("x"), model.UnknownField(model.String("x"))},
		{"unknown field null", "unexpected_field", nil, model.UnknownField(nil)},
		{"free-form", "crnt_bic", model.String("A1"), model.Decoded("A1")},
		{"free-form null", "sample_group", nil, model.NullValue("", false)},
		{"codes are opaque", "state_cd", model.String("1"), model.UnknownCode("1")},
		{"zero-padded code", "state_cd", model.String("01"), model.Decoded("Alabama")},
		{"punctuation code", "dual_stus_cd_01", model.String("**"), model.Decoded("Enrolled in Medicare A and/or B, but no Part D enrollment data for the beneficiary")},
		{"case-sensitive by default", "esrd_ind", model.String("y"), model.UnknownCode("y")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolve.Field(d, tt.key, tt.raw)
			if !got.Equal(tt.want) {
				t.Errorf("Field(%s, %v) = %v, want %v", tt.key, tt.raw, got, tt.want)
			}
		})
	}
}

func TestField_CaseInsensitiveOverride(t *testing.T) {
	d := bsfab(t, dictionary.LoadOptions{Case: dictionary.CasePolicy{FoldFields: map[string]bool{"esrd_ind": true}}})
	if got := resolve.Field(d, "esrd_ind", model.String("y")); !got.Equal(model.Decoded("The beneficiary has ESRD")) {
		t.Errorf("got %v", got)
	}
	if got := resolve.Field(d, "efivepct", model.String("y")); got.Kind != model.KindUnknownCode {
		t.Errorf("efivepct should stay case-sensitive, got %v", got)
	}
}

// Every code of every table decodes to its own label.
func TestField_RoundTripsEveryTable(t *testing.T) {
	d := bsfab(t, dictionary.LoadOptions{})
	for _, key := range d.Keys() {
		def, _ := d.Lookup(key)
		labels := def.Labels()
		for _, code := range def.Codes() {
			got := resolve.Field(d, key, model.String(code))
			if !got.Equal(model.Decoded(labels[code])) {
				t.Errorf("%s[%q] = %v, want Decoded{%q}", key, code, got, labels[code])
			}
		}
	}
}

func TestField_UnknownCodesNeverDecode(t *testing.T) {
	d := bsfab(t, dictionary.LoadOptions{})
	for _, key := range d.Keys() {
		def, _ := d.Lookup(key)
		if def.FreeForm() {
			continue
		}
		for _, raw := range []string{"", " ", "ZZZ", "Male", "NULL"} {
			if _, _, ok := def.Match(raw); ok {
				continue
			}
			if got := resolve.Field(d, key, model.String(raw)); got.Kind != model.KindUnknownCode {
				t.Errorf("%s[%q] = %v, want UnknownCode", key, raw, got)
			}
		}
	}
}
