package decode_test

import (
	"slices"
	"testing"

	"github.com/gyeh/codebook/internal/decode"
	"github.com/gyeh/codebook/internal/dictionary"
	"github.com/gyeh/codebook/internal/model"
	"github.com/gyeh/codebook/internal/resolve"
)

func newDecoder(t *testing.T) *decode.Decoder {
	t.Helper()
	d, err := dictionary.Builtin("bsfab", dictionary.LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	return decode.New(d, d.MonthlyFamilies())
}

func TestDecode_Scenario(t *testing.T) {
	dec := newDecoder(t)
	raw := model.NewRawRecord(
		model.RawField{Key: "sex", Value: model.String("1")},
		model.RawField{Key: "unexpected_field", Value: model.String("x")},
		model.RawField{Key: "mdcr_stus_cd_01", Value: model.String("10")},
		model.RawField{Key: "mdcr_stus_cd_02", Value: nil},
		model.RawField{Key: "efivepct", Value: nil},
		model.RawField{Key: "state_cd", Value: model.String("00")},
	)

	rec := dec.Decode(raw)

	var keys []string
	for k := range rec.All() {
		keys = append(keys, k)
	}
	if !slices.Equal(keys, raw.Keys()) {
		t.Fatalf("keys = %v, want input order %v", keys, raw.Keys())
	}

	want := map[string]model.Result{
		"sex":              model.Decoded("Male"),
		"unexpected_field": model.UnknownField(model.String("x")),
		"mdcr_stus_cd_01":  model.Decoded("Aged without ESRD"),
		"mdcr_stus_cd_02":  model.NullValue("", false),
		"efivepct":         model.NullValue("Not included in enhanced 5% sample", true),
		"state_cd":         model.UnknownCode("00"),
	}
	for k, w := range want {
		got, ok := rec.Get(k)
		if !ok || !got.Equal(w) {
			t.Errorf("%s = %v, want %v", k, got, w)
		}
	}
	if _, ok := rec.Get("mdcr_stus_cd_03"); ok {
		t.Error("absent family members must not appear in the output")
	}
	if len(rec.Anomalies()) != 2 {
		t.Errorf("anomalies = %v", rec.Anomalies())
	}
}

// Family members decode exactly as they would on their own.
func TestDecode_FamiliesAgreeWithFieldResolution(t *testing.T) {
	dec := newDecoder(t)
	d := dec.Dictionary()

	var raw model.RawRecord
	codes := []string{"0", "1", "2", "3", "A", "B", "C", "Z", "", "c", "3", "C"}
	for i, c := range codes {
		raw.Set(d.MonthlyFamilies()[0].Members[i], model.String(c))
	}
	raw.Set("hmoind04", nil)

	rec := dec.Decode(raw)
	for key, v := range raw.All() {
		got, _ := rec.Get(key)
		if want := resolve.Field(d, key, v); !got.Equal(want) {
			t.Errorf("%s = %v, want %v", key, got, want)
		}
	}
}

func TestDecode_Deterministic(t *testing.T) {
	dec := newDecoder(t)
	raw := model.NewRawRecord(
		model.RawField{Key: "buyin05", Value: model.String("C")},
		model.RawField{Key: "race", Value: model.String("7")},
		model.RawField{Key: "bene_id", Value: model.String("100001")},
	)
	first := dec.DecodeSeq(4, raw)
	for i := 0; i < 10; i++ {
		if again := dec.DecodeSeq(4, raw); !again.Equal(first) {
			t.Fatalf("decode %d differs", i)
		}
	}
	if first.Seq != 4 {
		t.Errorf("Seq = %d", first.Seq)
	}
}

func TestDecode_WithoutFamilies(t *testing.T) {
	d, err := dictionary.Builtin("bsfab", dictionary.LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	dec := decode.New(d, nil)
	rec := dec.Decode(model.NewRawRecord(model.RawField{Key: "buyin01", Value: model.String("C")}))
	if got, _ := rec.Get("buyin01"); !got.Equal(model.Decoded("Part A and Part B state buy-in")) {
		t.Errorf("buyin01 = %v", got)
	}
	if dec.Families() != nil {
		t.Error("Families should be nil")
	}
}

func TestDecode_EmptyRecord(t *testing.T) {
	rec := newDecoder(t).Decode(model.NewRawRecord())
	if rec.Len() != 0 {
		t.Errorf("Len = %d", rec.Len())
	}
}
