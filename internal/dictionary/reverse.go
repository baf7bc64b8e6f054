package dictionary

import (
	"strings"

	"github.com/gyeh/codebook/internal/normalize"
)

// CodesFor returns the codes whose label matches label, ignoring case and
// extra whitespace. Exact label matches win; otherwise codes whose label starts
// with label as whole words are returned ("black" finds "Black (or
// African-American)"). Codes are returned in source order.
func (f *FieldDefinition) CodesFor(label string) []string {
	want := normalize.FoldLabel(label)
	if want == "" {
		return nil
	}

	var exact, prefix []string
	for _, code := range f.codes {
		got := normalize.FoldLabel(f.labels[code])
		switch {
		case got == want:
			exact = append(exact, code)
		case strings.HasPrefix(got, want) && wordBoundary(got, len(want)):
			prefix = append(prefix, code)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return prefix
}

func wordBoundary(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9')
}
