package paper

import (
	"fmt"
	"sort"
	"strings"

	"github.com/turtacn/QuestionBank/internal/domain/numbering"
)

// Severity grades a Finding. Issues make a report invalid; warnings do not.
type Severity string

const (
	SeverityIssue   Severity = "issue"
	SeverityWarning Severity = "warning"
)

// Finding is one problem discovered while checking a paper.
type Finding struct {
	Severity    Severity `json:"severity"`
	Section     string   `json:"section"`
	QuestionNum int      `json:"question_num,omitempty"`
	Message     string   `json:"message"`
}

func (f Finding) String() string {
	if f.QuestionNum > 0 {
		return fmt.Sprintf("%s Q%d: %s", f.Section, f.QuestionNum, f.Message)
	}
	if f.Section != "" {
		return fmt.Sprintf("%s: %s", f.Section, f.Message)
	}
	return f.Message
}

// QuestionSummary is the per-question view the validator needs. Marks is the
// sum over all parts of the question.
type QuestionSummary struct {
	Section     string
	QuestionNum int
	Marks       int
	HasText     bool
	HasAnswer   bool
}

// SectionCount is the number of distinct questions found against the
// expected count.
type SectionCount struct {
	Section  string `json:"section"`
	Found    int    `json:"found"`
	Expected int    `json:"expected"`
}

// Report is the outcome of Validate.
type Report struct {
	Sections []SectionCount `json:"sections"`
	Issues   []Finding      `json:"issues"`
	Warnings []Finding      `json:"warnings"`
}

// Valid reports whether no issue was found.
func (r Report) Valid() bool { return len(r.Issues) == 0 }

func (r *Report) add(f Finding) {
	if f.Severity == SeverityIssue {
		r.Issues = append(r.Issues, f)
	} else {
		r.Warnings = append(r.Warnings, f)
	}
}

// ValidateOptions toggles the optional checks.
type ValidateOptions struct {
	// RequireAllSections reports configured sections with no questions.
	RequireAllSections bool
	// CheckAnswers reports questions without an answer.
	CheckAnswers bool
}

// Validate checks question counts, marks per range, missing text and,
// optionally, answer coverage. Questions of unknown sections are issues.
func (c *Catalog) Validate(questions []QuestionSummary, opts ValidateOptions) Report {
	var report Report

	bySection := make(map[string]map[int]QuestionSummary)
	for _, q := range questions {
		section := numbering.CanonicalSection(q.Section)
		if bySection[section] == nil {
			bySection[section] = make(map[int]QuestionSummary)
		}
		prev, seen := bySection[section][q.QuestionNum]
		if seen {
			q.Marks += prev.Marks
			q.HasText = q.HasText || prev.HasText
			q.HasAnswer = q.HasAnswer && prev.HasAnswer
		}
		bySection[section][q.QuestionNum] = q
	}

	sections := make([]string, 0, len(bySection))
	for s := range bySection {
		sections = append(sections, s)
	}
	sort.Strings(sections)

	for _, section := range sections {
		found := bySection[section]
		structure, err := c.Lookup(section)
		if err != nil {
			report.add(Finding{Severity: SeverityIssue, Section: section, Message: "unknown section"})
			continue
		}
		report.Sections = append(report.Sections, SectionCount{Section: section, Found: len(found), Expected: structure.TotalQuestions})
		c.checkSection(&report, structure, found, opts)
	}

	if opts.RequireAllSections {
		for _, section := range c.order {
			if _, ok := bySection[section]; !ok {
				report.add(Finding{Severity: SeverityIssue, Section: section, Message: "section missing"})
			}
		}
	}
	return report
}

func (c *Catalog) checkSection(report *Report, s Structure, found map[int]QuestionSummary, opts ValidateOptions) {
	var missing, extra []string
	for n := 1; n <= s.TotalQuestions; n++ {
		if _, ok := found[n]; !ok {
			missing = append(missing, fmt.Sprintf("Q%d", n))
		}
	}
	nums := make([]int, 0, len(found))
	for n := range found {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	total := 0
	for _, n := range nums {
		q := found[n]
		total += q.Marks
		if n < 1 || n > s.TotalQuestions {
			extra = append(extra, fmt.Sprintf("Q%d", n))
			continue
		}
		if !q.HasText {
			report.add(Finding{Severity: SeverityIssue, Section: s.Section, QuestionNum: n, Message: "missing question text"})
		}
		if r, ok := s.RangeFor(n); ok && q.Marks > 0 && !r.Accepts(q.Marks) {
			report.add(Finding{Severity: SeverityWarning, Section: s.Section, QuestionNum: n, Message: marksMessage(r, q.Marks)})
		}
		if opts.CheckAnswers && !q.HasAnswer {
			report.add(Finding{Severity: SeverityWarning, Section: s.Section, QuestionNum: n, Message: "missing answer"})
		}
	}

	if len(missing) > 0 {
		report.add(Finding{Severity: SeverityIssue, Section: s.Section,
			Message: fmt.Sprintf("expected %d questions, missing %s", s.TotalQuestions, strings.Join(missing, ", "))})
	}
	if len(extra) > 0 {
		report.add(Finding{Severity: SeverityIssue, Section: s.Section,
			Message: fmt.Sprintf("expected %d questions, extra %s", s.TotalQuestions, strings.Join(extra, ", "))})
	}
	if len(missing) == 0 && len(extra) == 0 && s.TotalMarks > 0 && total > 0 && total != s.TotalMarks {
		report.add(Finding{Severity: SeverityWarning, Section: s.Section,
			Message: fmt.Sprintf("marks add up to %d, expected %d", total, s.TotalMarks)})
	}
}

func marksMessage(r MarkRange, marks int) string {
	if r.Variable() {
		return fmt.Sprintf("%d marks, expected %d-%d", marks, r.MinMarks, r.MaxMarks)
	}
	return fmt.Sprintf("%d marks, expected %d", marks, r.Marks)
}

//Personal.AI order the ending
