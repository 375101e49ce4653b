// Package paper describes the expected layout of each exam section and checks
// extracted questions against it.
package paper

import (
	"sort"

	"github.com/turtacn/QuestionBank/internal/domain/numbering"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// QuestionKind is the answer style of a question range.
type QuestionKind string

const (
	KindMCQ         QuestionKind = "mcq"
	KindShortAnswer QuestionKind = "short_answer"
	KindLongAnswer  QuestionKind = "long_answer"
)

// MarkRange is a contiguous run of canonical question numbers sharing a mark
// expectation. Marks == 0 means the value varies between MinMarks and
// MaxMarks.
type MarkRange struct {
	Start    int          `json:"start" yaml:"start" mapstructure:"start"`
	End      int          `json:"end" yaml:"end" mapstructure:"end"`
	Marks    int          `json:"marks,omitempty" yaml:"marks,omitempty" mapstructure:"marks"`
	MinMarks int          `json:"min_marks,omitempty" yaml:"min_marks,omitempty" mapstructure:"min_marks"`
	MaxMarks int          `json:"max_marks,omitempty" yaml:"max_marks,omitempty" mapstructure:"max_marks"`
	Kind     QuestionKind `json:"kind" yaml:"kind" mapstructure:"kind"`
}

// Variable reports whether the range has no fixed mark value.
func (r MarkRange) Variable() bool { return r.Marks == 0 }

// Accepts reports whether marks is allowed for a question in the range.
func (r MarkRange) Accepts(marks int) bool {
	if !r.Variable() {
		return marks == r.Marks
	}
	return marks >= r.MinMarks && marks <= r.MaxMarks
}

// Structure is one section of a paper.
type Structure struct {
	Section        string      `json:"section" yaml:"section" mapstructure:"section"`
	Name           string      `json:"name" yaml:"name" mapstructure:"name"`
	TotalMarks     int         `json:"total_marks" yaml:"total_marks" mapstructure:"total_marks"`
	TotalQuestions int         `json:"total_questions" yaml:"total_questions" mapstructure:"total_questions"`
	PDFStartOffset int         `json:"pdf_start_offset,omitempty" yaml:"pdf_start_offset,omitempty" mapstructure:"pdf_start_offset"`
	Ranges         []MarkRange `json:"ranges" yaml:"ranges" mapstructure:"ranges"`
}

// RangeFor returns the range containing canonical question number num.
func (s Structure) RangeFor(num int) (MarkRange, bool) {
	for _, r := range s.Ranges {
		if num >= r.Start && num <= r.End {
			return r, true
		}
	}
	return MarkRange{}, false
}

// IsMCQ reports whether question num is multiple choice.
func (s Structure) IsMCQ(num int) bool {
	r, ok := s.RangeFor(num)
	return ok && r.Kind == KindMCQ
}

func (s Structure) validate() error {
	detail := func(format string, args ...interface{}) error {
		return errors.New(errors.CodeStructureViolation, "invalid paper structure").
			WithDetailf("section=%s: "+format, append([]interface{}{s.Section}, args...)...)
	}
	if numbering.CanonicalSection(s.Section) == "" {
		return errors.New(errors.CodeStructureViolation, "paper structure needs a section")
	}
	if s.TotalQuestions < 1 {
		return detail("total_questions must be positive")
	}
	if s.PDFStartOffset < 0 {
		return detail("pdf_start_offset must not be negative")
	}
	ranges := append([]MarkRange(nil), s.Ranges...)
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })
	next := 1
	for _, r := range ranges {
		if r.Start != next || r.End < r.Start {
			return detail("ranges must cover 1..%d without gaps or overlap (at %d-%d)", s.TotalQuestions, r.Start, r.End)
		}
		if r.Variable() && (r.MinMarks < 1 || r.MaxMarks < r.MinMarks) {
			return detail("variable range %d-%d needs 1 <= min_marks <= max_marks", r.Start, r.End)
		}
		next = r.End + 1
	}
	if len(ranges) > 0 && next != s.TotalQuestions+1 {
		return detail("ranges end at %d, expected %d", next-1, s.TotalQuestions)
	}
	return nil
}

// DefaultStructures is the Singapore P6 preliminary paper: P1A (20 marks),
// P1B (25 marks) and P2 (55 marks). P1B is printed as Q16-Q30.
func DefaultStructures() []Structure {
	return []Structure{
		{
			Section: "P1A", Name: "Paper 1 Booklet A", TotalMarks: 20, TotalQuestions: 15,
			Ranges: []MarkRange{{Start: 1, End: 15, MinMarks: 1, MaxMarks: 2, Kind: KindMCQ}},
		},
		{
			Section: "P1B", Name: "Paper 1 Booklet B", TotalMarks: 25, TotalQuestions: 15, PDFStartOffset: 15,
			Ranges: []MarkRange{
				{Start: 1, End: 5, Marks: 1, Kind: KindShortAnswer},
				{Start: 6, End: 15, Marks: 2, Kind: KindShortAnswer},
			},
		},
		{
			Section: "P2", Name: "Paper 2", TotalMarks: 55, TotalQuestions: 17,
			Ranges: []MarkRange{
				{Start: 1, End: 5, Marks: 2, Kind: KindShortAnswer},
				{Start: 6, End: 17, MinMarks: 3, MaxMarks: 5, Kind: KindLongAnswer},
			},
		},
	}
}

// Catalog indexes section structures. It is immutable after construction.
type Catalog struct {
	bySection map[string]Structure
	order     []string
}

// NewCatalog validates structures. An empty slice yields DefaultStructures.
func NewCatalog(structures []Structure) (*Catalog, error) {
	if len(structures) == 0 {
		structures = DefaultStructures()
	}
	c := &Catalog{bySection: make(map[string]Structure, len(structures))}
	for _, s := range structures {
		if err := s.validate(); err != nil {
			return nil, err
		}
		s.Section = numbering.CanonicalSection(s.Section)
		if _, dup := c.bySection[s.Section]; dup {
			return nil, errors.New(errors.CodeStructureViolation, "duplicate paper section").
				WithDetailf("section=%s", s.Section)
		}
		c.bySection[s.Section] = s
		c.order = append(c.order, s.Section)
	}
	return c, nil
}

// Lookup returns the structure of section or CodeUnknownSection.
func (c *Catalog) Lookup(section string) (Structure, error) {
	s, ok := c.bySection[numbering.CanonicalSection(section)]
	if !ok {
		return Structure{}, errors.New(errors.CodeUnknownSection, "unknown paper section").
			WithDetailf("section=%q", section)
	}
	return s, nil
}

// Sections lists the configured sections in declaration order.
func (c *Catalog) Sections() []string {
	return append([]string(nil), c.order...)
}

// NumberingRules derives section-default numbering rules from the printed
// start offsets, e.g. P1B printed as Q16-Q30 gives offset 15.
func (c *Catalog) NumberingRules() []numbering.Rule {
	var rules []numbering.Rule
	for _, section := range c.order {
		if s := c.bySection[section]; s.PDFStartOffset > 0 {
			rules = append(rules, numbering.Rule{Section: section, Offset: s.PDFStartOffset})
		}
	}
	return rules
}

//Personal.AI order the ending
