package fixture_test

import (
	"slices"
	"testing"

	"github.com/gyeh/codebook/internal/decode"
	"github.com/gyeh/codebook/internal/dictionary"
	"github.com/gyeh/codebook/internal/fixture"
	"github.com/gyeh/codebook/internal/model"
)

func TestGenerate_Deterministic(t *testing.T) {
	d, err := dictionary.Builtin("bsfab", dictionary.LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	opts := fixture.Options{Rows: 40, Seed: 42, NullRate: 0.2, UnknownRate: 0.1, ExtraFields: []string{"extra"}}

	cols1, recs1 := fixture.Generate(d, opts)
	cols2, recs2 := fixture.Generate(d, opts)
	if !slices.Equal(cols1, cols2) || cols1[len(cols1)-1] != "extra" {
		t.Fatalf("columns differ or extra not last: %v", cols1[len(cols1)-3:])
	}
	for i := range recs1 {
		for key, v := range recs1[i].All() {
			w, _ := recs2[i].Get(key)
			if (v == nil) != (w == nil) || (v != nil && *v != *w) {
				t.Fatalf("record %d %s differs between runs", i+1, key)
			}
		}
	}

	opts.Seed = 43
	_, other := fixture.Generate(d, opts)
	if other[0].Len() != recs1[0].Len() {
		t.Fatal("seed should not change the shape")
	}
}

func TestGenerate_Outcomes(t *testing.T) {
	d, err := dictionary.Builtin("bsfab", dictionary.LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	dec := decode.New(d, d.MonthlyFamilies())

	_, clean := fixture.Generate(d, fixture.Options{Rows: 20, Seed: 1})
	for _, raw := range clean {
		for _, f := range dec.Decode(raw).Fields() {
			if f.Result.Kind != model.KindDecoded {
				t.Fatalf("%s = %v, want every generated code to decode", f.Key, f.Result)
			}
		}
	}

	_, dirty := fixture.Generate(d, fixture.Options{Rows: 20, Seed: 1, UnknownRate: 1, ExtraFields: []string{"extra"}})
	for _, raw := range dirty {
		for _, f := range dec.Decode(raw).Fields() {
			def, ok := d.Lookup(f.Key)
			switch {
			case !ok:
				if f.Result.Kind != model.KindUnknownField {
					t.Fatalf("%s = %v", f.Key, f.Result)
				}
			case def.FreeForm():
				if f.Result.Kind != model.KindDecoded {
					t.Fatalf("free-form %s = %v", f.Key, f.Result)
				}
			default:
				if f.Result.Kind != model.KindUnknownCode {
					t.Fatalf("%s = %v, want an unknown code", f.Key, f.Result)
				}
			}
		}
	}
}
