// Package monthly resolves field families that repeat once per calendar month.
package monthly

import (
	"iter"
	"slices"
	"time"

	"github.com/gyeh/codebook/internal/dictionary"
	"github.com/gyeh/codebook/internal/model"
	"github.com/gyeh/codebook/internal/resolve"
)

// Resolve yields one Result per month, January through December. A month is
// NotApplicable when the family has no member for it or the record does not
// carry the member key; otherwise the member's raw value is resolved on its
// own. Months are resolved only as the consumer pulls them, and the sequence
// may be ranged over again.
func Resolve(d *dictionary.Dictionary, fam dictionary.Family, rec model.RawRecord) iter.Seq2[time.Month, model.Result] {
	return func(yield func(time.Month, model.Result) bool) {
		for m := time.January; m <= time.December; m++ {
			if !yield(m, month(d, fam, rec, m)) {
				return
			}
		}
	}
}

func month(d *dictionary.Dictionary, fam dictionary.Family, rec model.RawRecord, m time.Month) model.Result {
	key, ok := fam.Member(m)
	if !ok {
		return model.NotApplicable()
	}
	raw, ok := rec.Get(key)
	if !ok {
		return model.NotApplicable()
	}
	return resolve.Field(d, key, raw)
}

// Collect drains seq into a fixed array indexed by month-1.
func Collect(seq iter.Seq2[time.Month, model.Result]) [12]model.Result {
	var out [12]model.Result
	for i := range out {
		out[i] = model.NotApplicable()
	}
	for m, r := range seq {
		out[m-1] = r
	}
	return out
}

// Touches reports whether rec carries any member key of fam.
func Touches(fam dictionary.Family, rec model.RawRecord) bool {
	for _, key := range fam.Members {
		if key != "" && rec.Has(key) {
			return true
		}
	}
	return false
}

// AllIn reports whether every applicable month of fam in rec holds one of the
// allowed codes, e.g. a state buy-in in every month of the year. Months that
// are NotApplicable are skipped; null, unknown and free-form values that are
// not listed fail the check. A record with no applicable month does not match.
func AllIn(d *dictionary.Dictionary, fam dictionary.Family, rec model.RawRecord, allowed ...string) bool {
	seen := false
	for m, r := range Resolve(d, fam, rec) {
		if r.Kind == model.KindNotApplicable {
			continue
		}
		if r.Kind != model.KindDecoded {
			return false
		}
		key, _ := fam.Member(m)
		raw, _ := rec.Get(key)
		if !matchesAny(d, key, *raw, allowed) {
			return false
		}
		seen = true
	}
	return seen
}

func matchesAny(d *dictionary.Dictionary, key, raw string, allowed []string) bool {
	def, ok := d.Lookup(key)
	if !ok {
		return false
	}
	code, _, ok := def.Match(raw)
	if !ok {
		code = raw
	}
	return slices.Contains(allowed, code)
}
