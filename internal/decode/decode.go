// Package decode turns a RawRecord into a DecodedRecord.
package decode

import (
	"time"

	"github.com/gyeh/codebook/internal/dictionary"
	"github.com/gyeh/codebook/internal/model"
	"github.com/gyeh/codebook/internal/monthly"
	"github.com/gyeh/codebook/internal/resolve"
)

// Decoder applies field and family resolution across whole records. It holds
// no mutable state and may be shared between goroutines.
type Decoder struct {
	dict     *dictionary.Dictionary
	families []dictionary.Family
	memberOf map[string]int
}

// New builds a Decoder over dict. families usually comes from
// dict.MonthlyFamilies(); pass nil to resolve every key on its own.
func New(dict *dictionary.Dictionary, families []dictionary.Family) *Decoder {
	d := &Decoder{
		dict:     dict,
		families: families,
		memberOf: make(map[string]int),
	}
	for i, fam := range families {
		for _, key := range fam.Members {
			if key != "" {
				d.memberOf[key] = i
			}
		}
	}
	return d
}

// Dictionary returns the dictionary the decoder resolves against.
func (d *Decoder) Dictionary() *dictionary.Dictionary {
	return d.dict
}

// Families returns the families the decoder groups.
func (d *Decoder) Families() []dictionary.Family {
	return d.families
}

// Decode resolves every field of raw. The output has exactly one entry per
// input key, in input order.
func (d *Decoder) Decode(raw model.RawRecord) model.DecodedRecord {
	return d.DecodeSeq(0, raw)
}

// DecodeSeq is Decode stamping the record's position in its stream.
func (d *Decoder) DecodeSeq(seq int64, raw model.RawRecord) model.DecodedRecord {
	byKey := d.resolveFamilies(raw)

	fields := make([]model.DecodedField, 0, raw.Len())
	for key, v := range raw.All() {
		res, ok := byKey[key]
		if !ok {
			res = resolve.Field(d.dict, key, v)
		}
		fields = append(fields, model.DecodedField{Key: key, Raw: v, Result: res})
	}
	return model.NewDecodedRecord(seq, fields)
}

// resolveFamilies resolves each family the record touches exactly once and
// fans the monthly results out to the member keys present in the record.
func (d *Decoder) resolveFamilies(raw model.RawRecord) map[string]model.Result {
	var touched map[int]bool
	for key := range raw.All() {
		if i, ok := d.memberOf[key]; ok {
			if touched == nil {
				touched = make(map[int]bool)
			}
			touched[i] = true
		}
	}
	if len(touched) == 0 {
		return nil
	}

	out := make(map[string]model.Result)
	for i := range touched {
		fam := d.families[i]
		for m, res := range monthly.Resolve(d.dict, fam, raw) {
			if key, ok := memberIn(fam, m, raw); ok {
				out[key] = res
			}
		}
	}
	return out
}

func memberIn(fam dictionary.Family, m time.Month, raw model.RawRecord) (string, bool) {
	key, ok := fam.Member(m)
	if !ok || !raw.Has(key) {
		return "", false
	}
	return key, true
}
