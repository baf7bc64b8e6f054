package normalize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gyeh/codebook/internal/model"
)

func TestCleaner(t *testing.T) {
	c := NewCleaner(true, []string{"", " NA "})
	tests := []struct {
		in   *string
		want *string
	}{
		{nil, nil},
		{model.String(""), nil},
		{model.String("   "), nil},
		{model.String("NA"), nil},
		{model.String(" 1 "), model.String("1")},
		{model.String("na"), model.String("na")},
	}
	for _, tt := range tests {
		got := c.Clean(tt.in)
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Errorf("Clean(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	raw := NewCleaner(false, nil)
	if got := raw.CleanString(" 1 "); *got != " 1 " {
		t.Errorf("untrimmed cleaner changed %q", *got)
	}
	if got := raw.CleanString(""); got == nil {
		t.Error("empty string is a value when not a null token")
	}
}

func TestFoldLabel(t *testing.T) {
	if got := FoldLabel("  Black   (or  African-American) "); got != "black (or african-american)" {
		t.Errorf("FoldLabel = %q", got)
	}
	if FoldLabel("   ") != "" {
		t.Error("blank label should fold to empty")
	}
}

func TestHashes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.json")
	data := []byte(`{"sex":{}}`)
	os.WriteFile(path, data, 0644)

	fh, err := FileHash(path)
	if err != nil {
		t.Fatal(err)
	}
	if fh != BytesHash(data) || len(fh) != 64 {
		t.Errorf("FileHash = %s, BytesHash = %s", fh, BytesHash(data))
	}

	a := model.NewRawRecord(model.RawField{Key: "sex", Value: model.String("1")}, model.RawField{Key: "race", Value: nil})
	b := model.NewRawRecord(model.RawField{Key: "sex", Value: model.String("1")}, model.RawField{Key: "race", Value: model.String("")})
	if RecordHash(a) == RecordHash(b) {
		t.Error("null and empty string must hash differently")
	}
	if RecordHash(a) != RecordHash(a.Clone()) || len(RecordHash(a)) != 16 {
		t.Errorf("RecordHash = %s", RecordHash(a))
	}
}
