package normalize

import (
	"regexp"
	"strings"
)

var multiSpace = regexp.MustCompile(`\s+`)

// FoldLabel lowercases, collapses whitespace, and trims a code label so that
// labels can be compared loosely.
func FoldLabel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return multiSpace.ReplaceAllString(strings.ToLower(s), " ")
}
