package dictionary

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is matched by every *MalformedError via errors.Is.
var ErrMalformed = errors.New("malformed dictionary")

// ErrFieldNotFound is returned by Dictionary.Field for unknown keys.
var ErrFieldNotFound = errors.New("field not found")

// Rule names a structural invariant a dictionary can violate.
type Rule string

const (
	RuleSyntax             Rule = "syntax"
	RuleDuplicateField     Rule = "duplicate_field"
	RuleMissingName        Rule = "missing_name"
	RuleAmbiguousCodes     Rule = "ambiguous_codes"
	RuleConflictingNull    Rule = "conflicting_null"
	RuleInconsistentFamily Rule = "inconsistent_family"
)

// Violation is one broken invariant, attributed to a field key when possible.
type Violation struct {
	Field  string
	Rule   Rule
	Detail string
}

func (v Violation) String() string {
	if v.Field == "" {
		return fmt.Sprintf("%s: %s", v.Rule, v.Detail)
	}
	return fmt.Sprintf("field %q: %s: %s", v.Field, v.Rule, v.Detail)
}

// MalformedError reports every violation found while loading a dictionary.
type MalformedError struct {
	Violations []Violation
}

func (e *MalformedError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s: %s", ErrMalformed, strings.Join(parts, "; "))
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

// Has reports whether any violation matches rule.
func (e *MalformedError) Has(rule Rule) bool {
	for _, v := range e.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}
