package pipeline

import (
	"fmt"
	"sort"

	"github.com/gyeh/codebook/internal/batch"
	"github.com/gyeh/codebook/internal/dictionary"
	"github.com/gyeh/codebook/internal/model"
	"github.com/gyeh/codebook/internal/monthly"
)

// RequireFilter keeps records in which every required family holds one of
// its allowed codes in every applicable month. Families are named as
// Family.Name reports them, e.g. "buyin" for buyin01..buyin12. It returns a
// nil filter when require is empty.
func RequireFilter(d *dictionary.Dictionary, require map[string][]string) (batch.Filter, error) {
	if len(require) == 0 {
		return nil, nil
	}

	byName := make(map[string]dictionary.Family)
	for _, fam := range d.MonthlyFamilies() {
		byName[fam.Name()] = fam
	}

	type rule struct {
		fam     dictionary.Family
		allowed []string
	}
	names := make([]string, 0, len(require))
	for name := range require {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := make([]rule, 0, len(names))
	for _, name := range names {
		fam, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("no monthly family named %q", name)
		}
		rules = append(rules, rule{fam: fam, allowed: require[name]})
	}

	return func(raw model.RawRecord, _ model.DecodedRecord) bool {
		for _, r := range rules {
			if !monthly.AllIn(d, r.fam, raw, r.allowed...) {
				return false
			}
		}
		return true
	}, nil
}
