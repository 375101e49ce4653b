// Package numbering maps the question numbers printed in a school's PDF to
// the canonical per-section numbering used for storage.
package numbering

import (
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/QuestionBank/pkg/errors"
)

// Rule describes how one school numbers one section. A Rule with an empty
// School is the default for its section.
//
// Mapping entries take precedence over Offset; any raw number without a
// mapping entry has Offset subtracted. A mapping target must not also be
// reachable through the offset from an unmapped raw number.
type Rule struct {
	School  string      `json:"school" yaml:"school"`
	Section string      `json:"section" yaml:"section"`
	Offset  int         `json:"offset" yaml:"offset"`
	Mapping map[int]int `json:"mapping,omitempty" yaml:"mapping,omitempty"`
}

type ruleKey struct {
	school  string
	section string
}

// CanonicalSection upper-cases and trims a section identifier ("p1b " -> "P1B").
func CanonicalSection(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func canonicalSchool(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (r Rule) key() ruleKey {
	return ruleKey{school: canonicalSchool(r.School), section: CanonicalSection(r.Section)}
}

func (r Rule) validate() error {
	if CanonicalSection(r.Section) == "" {
		return errors.New(errors.CodeInvalidNumberingRule, "numbering rule needs a section").
			WithDetailf("school=%q", r.School)
	}
	if r.Offset < 0 {
		return errors.New(errors.CodeInvalidNumberingRule, "numbering offset must not be negative").
			WithDetailf("school=%q section=%s offset=%d", r.School, r.Section, r.Offset)
	}

	raws := make([]int, 0, len(r.Mapping))
	for raw := range r.Mapping {
		raws = append(raws, raw)
	}
	sort.Ints(raws)

	seen := make(map[int]int, len(r.Mapping))
	for _, raw := range raws {
		canonical := r.Mapping[raw]
		if raw < 1 || canonical < 1 {
			return errors.New(errors.CodeInvalidNumberingRule, "mapping numbers must be positive").
				WithDetailf("section=%s %d->%d", r.Section, raw, canonical)
		}
		if other, dup := seen[canonical]; dup {
			return errors.New(errors.CodeAmbiguousNumbering, "numbering mapping is not injective").
				WithDetailf("school=%q section=%s raw %d and %d both map to %d",
					r.School, r.Section, other, raw, canonical)
		}
		seen[canonical] = raw
	}
	for _, raw := range raws {
		canonical := r.Mapping[raw]
		if shadow := canonical + r.Offset; shadow != raw {
			if _, mapped := r.Mapping[shadow]; !mapped {
				return errors.New(errors.CodeAmbiguousNumbering, "numbering mapping collides with offset").
					WithDetailf("school=%q section=%s raw %d maps to %d, raw %d reaches it by offset %d",
						r.School, r.Section, raw, canonical, shadow, r.Offset)
			}
		}
	}
	return nil
}

func (r Rule) apply(raw int) int {
	if c, ok := r.Mapping[raw]; ok {
		return c
	}
	return raw - r.Offset
}

// ParseRaw extracts the integer from a printed question number. Accepted
// forms are "21", "Q21", "q 21", "21.", "21)", "(21)" and "No. 21".
func ParseRaw(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errors.New(errors.CodeInvalidQuestionNumber, "question number is missing")
	}
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimRight(s, ".)")
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "no."):
		s = s[3:]
	case strings.HasPrefix(lower, "q"):
		s = s[1:]
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, errors.New(errors.CodeInvalidQuestionNumber, "question number is not numeric").
			WithDetailf("raw=%q", raw)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeInvalidQuestionNumber, "question number out of range").
			WithDetailf("raw=%q", raw)
	}
	if n == 0 {
		return 0, errors.New(errors.CodeInvalidQuestionNumber, "question number is zero").
			WithDetailf("raw=%q", raw)
	}
	return n, nil
}

//Personal.AI order the ending
