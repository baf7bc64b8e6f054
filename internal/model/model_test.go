package model

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestRawRecordOrderAndNulls(t *testing.T) {
	r := NewRawRecord(
		RawField{Key: "sex", Value: String("1")},
		RawField{Key: "efivepct", Value: nil},
		RawField{Key: "race", Value: String("2")},
	)
	r.Set("sex", String("2"))
	r.Set("crnt_bic", String("A"))

	if got := r.Keys(); !slices.Equal(got, []string{"sex", "efivepct", "race", "crnt_bic"}) {
		t.Errorf("Keys = %v", got)
	}
	if v, ok := r.Get("sex"); !ok || *v != "2" {
		t.Errorf("Set should replace in place, got %v", v)
	}
	if v, ok := r.Get("efivepct"); !ok || v != nil {
		t.Errorf("efivepct = %v, %v; want present null", v, ok)
	}
	if _, ok := r.Get("absent"); ok {
		t.Error("absent key reported present")
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"sex":"2","efivepct":null,"race":"2","crnt_bic":"A"}`
	if string(b) != want {
		t.Errorf("json = %s, want %s", b, want)
	}
}

func TestRawRecordClone(t *testing.T) {
	v := "1"
	r := NewRawRecord(RawField{Key: "sex", Value: &v})
	c := r.Clone()
	v = "9"
	if got, _ := c.Get("sex"); *got != "1" {
		t.Errorf("clone shares value storage: %q", *got)
	}
}

func TestResultString(t *testing.T) {
	tests := []struct {
		r    Result
		want string
	}{
		{Decoded("Male"), `Decoded{"Male"}`},
		{UnknownCode("9"), `UnknownCode{"9"}`},
		{NullValue("", false), `NullValue{none}`},
		{NullValue("Not included", true), `NullValue{"Not included"}`},
		{UnknownField(String("x")), `UnknownField{"x"}`},
		{UnknownField(nil), `UnknownField{null}`},
		{NotApplicable(), `NotApplicable`},
	}
	for _, tt := range tests {
		if got := tt.r.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}
	}
}

func TestResultJSON(t *testing.T) {
	for _, r := range []Result{
		Decoded("Male"),
		UnknownCode("9"),
		NullValue("", false),
		NullValue("", true),
		UnknownField(nil),
		NotApplicable(),
	} {
		b, err := json.Marshal(r)
		if err != nil {
			t.Fatal(err)
		}
		var back Result
		if err := json.Unmarshal(b, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if !back.Equal(r) {
			t.Errorf("%s decoded to %v, want %v", b, back, r)
		}
	}

	var r Result
	if err := json.Unmarshal([]byte(`{"kind":"bogus"}`), &r); err == nil {
		t.Error("unknown kind should fail")
	}
}

func TestKindByName(t *testing.T) {
	for _, k := range AllKinds {
		got, ok := KindByName(k.String())
		if !ok || got != k {
			t.Errorf("KindByName(%s) = %v, %v", k, got, ok)
		}
	}
	if KindDecoded.Anomaly() || KindNullValue.Anomaly() || KindNotApplicable.Anomaly() {
		t.Error("only unknown codes and fields are anomalies")
	}
	if !KindUnknownCode.Anomaly() || !KindUnknownField.Anomaly() {
		t.Error("unknown codes and fields are anomalies")
	}
}

func TestDecodedRecordJSONAndRows(t *testing.T) {
	rec := NewDecodedRecord(3, []DecodedField{
		{Key: "sex", Raw: String("1"), Result: Decoded("Male")},
		{Key: "unexpected_field", Raw: String("x"), Result: UnknownField(String("x"))},
		{Key: "efivepct", Raw: nil, Result: NullValue("Not included", true)},
	})

	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"seq":3,"fields":{"sex":{"raw":"1","result":{"kind":"decoded","label":"Male"}},` +
		`"unexpected_field":{"raw":"x","result":{"kind":"unknown_field","raw":"x"}},` +
		`"efivepct":{"raw":null,"result":{"kind":"null_value","label":"Not included"}}}}`
	if string(b) != want {
		t.Errorf("json =\n%s\nwant\n%s", b, want)
	}

	if a := rec.Anomalies(); len(a) != 1 || a[0].Key != "unexpected_field" {
		t.Errorf("Anomalies = %v", a)
	}

	rows := FieldRows([16]byte{1}, "part-1", rec)
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].Kind != "decoded" || *rows[0].Label != "Male" || *rows[0].RawValue != "1" || rows[0].RecordSeq != 3 {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Label != nil {
		t.Errorf("unknown field row should have no label")
	}
	if rows[2].RawValue != nil || *rows[2].Label != "Not included" {
		t.Errorf("row 2 = %+v", rows[2])
	}
	if got := len(rows[0].CopyValues()); got != len(FieldRowColumns()) {
		t.Errorf("CopyValues has %d values for %d columns", got, len(FieldRowColumns()))
	}
}
