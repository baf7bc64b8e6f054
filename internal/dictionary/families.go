package dictionary

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultPattern is the naming convention of monthly families: a base token
// immediately followed by a two-digit month, e.g. "buyin01" or "mdcr_stus_cd_01".
const DefaultPattern = "<base><MM>"

const (
	baseToken  = "<base>"
	monthToken = "<MM>"
)

// NamingPattern matches field keys that belong to a monthly family.
// The zero value behaves as DefaultPattern.
type NamingPattern struct {
	raw        string
	re         *regexp.Regexp
	baseGroup  int
	monthGroup int
}

// ParseNamingPattern compiles a pattern containing exactly one <base> and one
// <MM> token. Everything else is matched literally.
func ParseNamingPattern(s string) (NamingPattern, error) {
	if strings.Count(s, baseToken) != 1 || strings.Count(s, monthToken) != 1 {
		return NamingPattern{}, fmt.Errorf("naming pattern %q: need exactly one %s and one %s", s, baseToken, monthToken)
	}
	bi := strings.Index(s, baseToken)
	mi := strings.Index(s, monthToken)

	var expr strings.Builder
	expr.WriteString("^")
	rest := s
	for rest != "" {
		switch {
		case strings.HasPrefix(rest, baseToken):
			expr.WriteString("(.+?)")
			rest = rest[len(baseToken):]
		case strings.HasPrefix(rest, monthToken):
			expr.WriteString("(0[1-9]|1[0-2])")
			rest = rest[len(monthToken):]
		default:
			next := len(rest)
			if i := strings.Index(rest, "<"); i > 0 {
				next = i
			} else if i == 0 {
				next = 1
			}
			expr.WriteString(regexp.QuoteMeta(rest[:next]))
			rest = rest[next:]
		}
	}
	expr.WriteString("$")

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return NamingPattern{}, fmt.Errorf("naming pattern %q: %w", s, err)
	}
	p := NamingPattern{raw: s, re: re, baseGroup: 1, monthGroup: 2}
	if mi < bi {
		p.baseGroup, p.monthGroup = 2, 1
	}
	return p, nil
}

// MustNamingPattern is ParseNamingPattern that panics; for package-level patterns.
func MustNamingPattern(s string) NamingPattern {
	p, err := ParseNamingPattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

var defaultPattern = MustNamingPattern(DefaultPattern)

func (p NamingPattern) compiled() NamingPattern {
	if p.re == nil {
		return defaultPattern
	}
	return p
}

// String returns the pattern source.
func (p NamingPattern) String() string {
	return p.compiled().raw
}

// Match splits key into its family base and month.
func (p NamingPattern) Match(key string) (base string, month time.Month, ok bool) {
	p = p.compiled()
	m := p.re.FindStringSubmatch(key)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[p.monthGroup])
	if err != nil {
		return "", 0, false
	}
	return m[p.baseGroup], time.Month(n), true
}

// Key renders the member key for base and month.
func (p NamingPattern) Key(base string, month time.Month) string {
	p = p.compiled()
	s := strings.Replace(p.raw, baseToken, base, 1)
	return strings.Replace(s, monthToken, fmt.Sprintf("%02d", int(month)), 1)
}

// Family is a field repeated once per calendar month. Members is indexed by
// month-1; an empty entry means the dictionary defines no field for that month.
type Family struct {
	Base    string
	Members [12]string
}

// Name returns the base with trailing separators trimmed, e.g. "mdcr_stus_cd".
func (f Family) Name() string {
	return strings.TrimRight(f.Base, "_-.")
}

// Member returns the field key for month.
func (f Family) Member(month time.Month) (string, bool) {
	if month < time.January || month > time.December {
		return "", false
	}
	key := f.Members[month-1]
	return key, key != ""
}

// Present returns the number of months with a member.
func (f Family) Present() int {
	n := 0
	for _, k := range f.Members {
		if k != "" {
			n++
		}
	}
	return n
}

// Complete reports whether all twelve months have a member.
func (f Family) Complete() bool {
	return f.Present() == 12
}

// Missing returns the months without a member.
func (f Family) Missing() []time.Month {
	var out []time.Month
	for i, k := range f.Members {
		if k == "" {
			out = append(out, time.Month(i+1))
		}
	}
	return out
}

// First returns the earliest present member key.
func (f Family) First() string {
	for _, k := range f.Members {
		if k != "" {
			return k
		}
	}
	return ""
}

// DetectMonthlyFamilies groups the dictionary's keys into families using p.
// Families with fewer than twelve members are returned; use Complete to tell.
func (d *Dictionary) DetectMonthlyFamilies(p NamingPattern) []Family {
	return detectFamilies(d.keys, p)
}

func detectFamilies(keys []string, p NamingPattern) []Family {
	byBase := make(map[string]*Family)
	for _, key := range keys {
		base, month, ok := p.Match(key)
		if !ok {
			continue
		}
		fam, ok := byBase[base]
		if !ok {
			fam = &Family{Base: base}
			byBase[base] = fam
		}
		fam.Members[month-1] = key
	}

	out := make([]Family, 0, len(byBase))
	for _, fam := range byBase {
		out = append(out, *fam)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Base < out[j].Base })
	return out
}

// checkFamilies flags families whose present members disagree on their
// tables or on case folding.
func checkFamilies(fields map[string]*FieldDefinition, families []Family) []Violation {
	var out []Violation
	for _, fam := range families {
		first := fam.First()
		ref := fields[first]
		if ref == nil {
			continue
		}
		for _, key := range fam.Members {
			if key == "" || key == first || fields[key] == nil {
				continue
			}
			if !fields[key].sameTable(ref) {
				out = append(out, Violation{
					Field:  key,
					Rule:   RuleInconsistentFamily,
					Detail: fmt.Sprintf("value table differs from %s in family %q", first, fam.Name()),
				})
			}
			if fields[key].foldCase != ref.foldCase {
				out = append(out, Violation{
					Field:  key,
					Rule:   RuleInconsistentFamily,
					Detail: fmt.Sprintf("case policy differs from %s in family %q", first, fam.Name()),
				})
			}
		}
	}
	return out
}
