package numbering

import (
	"fmt"
	"sort"
	"strings"

	"github.com/turtacn/QuestionBank/pkg/errors"
)

// Number is a canonical question number with the printed form retained.
type Number struct {
	Section   string `json:"section"`
	Canonical int    `json:"canonical"`
	Raw       int    `json:"raw"`
	Original  string `json:"original"`
}

// ItemError is a per-input failure of NormalizeBatch.
type ItemError struct {
	Index int    `json:"index"`
	Raw   string `json:"raw"`
	Err   error  `json:"-"`
}

func (e ItemError) Error() string { return fmt.Sprintf("item %d (%q): %v", e.Index, e.Raw, e.Err) }
func (e ItemError) Unwrap() error { return e.Err }

// Normalizer applies per (school, section) rules. Sections without a rule use
// the identity mapping. It is immutable and safe for concurrent use.
type Normalizer struct {
	rules map[ruleKey]Rule
}

// NewNormalizer validates rules and indexes them. Two rules for the same
// (school, section) are rejected.
func NewNormalizer(rules []Rule) (*Normalizer, error) {
	n := &Normalizer{rules: make(map[ruleKey]Rule, len(rules))}
	for _, r := range rules {
		if err := r.validate(); err != nil {
			return nil, err
		}
		k := r.key()
		if _, dup := n.rules[k]; dup {
			return nil, errors.New(errors.CodeInvalidNumberingRule, "duplicate numbering rule").
				WithDetailf("school=%q section=%s", k.school, k.section)
		}
		n.rules[k] = r
	}
	return n, nil
}

// Rule returns the rule in effect for school and section: the school's own
// rule, else the section default, else identity.
func (n *Normalizer) Rule(school, section string) Rule {
	section = CanonicalSection(section)
	if r, ok := n.rules[ruleKey{school: canonicalSchool(school), section: section}]; ok {
		return r
	}
	if r, ok := n.rules[ruleKey{section: section}]; ok {
		return r
	}
	return Rule{School: school, Section: section}
}

// Rules returns every configured rule sorted by section then school.
func (n *Normalizer) Rules() []Rule {
	out := make([]Rule, 0, len(n.rules))
	for _, r := range n.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		ki, kj := out[i].key(), out[j].key()
		if ki.section != kj.section {
			return ki.section < kj.section
		}
		return ki.school < kj.school
	})
	return out
}

// Normalize maps one printed number. Zero, missing, non-numeric and numbers
// that fall to zero or below after the offset are CodeInvalidQuestionNumber.
func (n *Normalizer) Normalize(school, section, raw string) (Number, error) {
	section = CanonicalSection(section)
	if section == "" {
		return Number{}, errors.New(errors.CodeInvalidQuestionNumber, "section is missing").
			WithDetailf("raw=%q", raw)
	}
	value, err := ParseRaw(raw)
	if err != nil {
		return Number{}, err
	}
	rule := n.Rule(school, section)
	canonical := rule.apply(value)
	if canonical < 1 {
		return Number{}, errors.New(errors.CodeInvalidQuestionNumber, "question number below section offset").
			WithDetailf("school=%q section=%s raw=%d offset=%d", school, section, value, rule.Offset)
	}
	return Number{Section: section, Canonical: canonical, Raw: value, Original: strings.TrimSpace(raw)}, nil
}

// NormalizeBatch normalizes raws of one (school, section) and enforces that
// distinct inputs never share a canonical number. Every input taking part in
// a collision is reported as CodeAmbiguousNumbering and left out of the
// result; the caller decides how to resolve it. Results keep input order.
func (n *Normalizer) NormalizeBatch(school, section string, raws []string) ([]Number, []ItemError) {
	type slot struct {
		index int
		num   Number
	}
	var (
		ok      []slot
		failed  []ItemError
		byValue = make(map[int][]int)
	)
	for i, raw := range raws {
		num, err := n.Normalize(school, section, raw)
		if err != nil {
			failed = append(failed, ItemError{Index: i, Raw: raw, Err: err})
			continue
		}
		byValue[num.Canonical] = append(byValue[num.Canonical], len(ok))
		ok = append(ok, slot{index: i, num: num})
	}

	ambiguous := make(map[int]bool)
	for canonical, slots := range byValue {
		if len(slots) < 2 {
			continue
		}
		originals := make([]string, len(slots))
		for j, s := range slots {
			originals[j] = ok[s].num.Original
		}
		for _, s := range slots {
			ambiguous[s] = true
			failed = append(failed, ItemError{
				Index: ok[s].index,
				Raw:   raws[ok[s].index],
				Err: errors.New(errors.CodeAmbiguousNumbering, "distinct question numbers normalize to the same canonical number").
					WithDetailf("school=%q section=%s canonical=%d inputs=%q", school, CanonicalSection(section), canonical, originals),
			})
		}
	}

	numbers := make([]Number, 0, len(ok))
	for i, s := range ok {
		if !ambiguous[i] {
			numbers = append(numbers, s.num)
		}
	}
	sort.SliceStable(failed, func(i, j int) bool { return failed[i].Index < failed[j].Index })
	return numbers, failed
}

//Personal.AI order the ending
