package normalize

import "strings"

// Cleaner turns source cells into raw code values. Codes stay opaque: the
// only rewrites are optional whitespace trimming and mapping configured null
// tokens (e.g. "" or "NA" in a CSV export) to nil.
type Cleaner struct {
	trim       bool
	nullTokens map[string]bool
}

// NewCleaner builds a Cleaner. Null tokens are compared after trimming.
func NewCleaner(trim bool, nullTokens []string) Cleaner {
	c := Cleaner{trim: trim, nullTokens: make(map[string]bool, len(nullTokens))}
	for _, t := range nullTokens {
		if trim {
			t = strings.TrimSpace(t)
		}
		c.nullTokens[t] = true
	}
	return c
}

// Clean returns nil for nil input or a null token, and the (trimmed) value otherwise.
func (c Cleaner) Clean(v *string) *string {
	if v == nil {
		return nil
	}
	return c.CleanString(*v)
}

// CleanString is Clean for a non-null cell.
func (c Cleaner) CleanString(s string) *string {
	if c.trim {
		s = strings.TrimSpace(s)
	}
	if c.nullTokens[s] {
		return nil
	}
	return &s
}
