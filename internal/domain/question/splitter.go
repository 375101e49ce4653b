package question

import (
	"fmt"
	"strings"

	"github.com/turtacn/QuestionBank/internal/domain/numbering"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// PartInput is one lettered sub-question as detected by extraction.
type PartInput struct {
	Letter         string `json:"letter"`
	Text           string `json:"text"`
	Answer         string `json:"answer"`
	WorkedSolution string `json:"worked_solution,omitempty"`
	Marks          *int   `json:"marks"`
}

// Payload is a raw extracted question. Parts is empty for a question without
// sub-parts, in which case MarksTotal is its mark value.
type Payload struct {
	School            string      `json:"school"`
	Year              int         `json:"year"`
	Section           string      `json:"section"`
	RawQuestionNumber string      `json:"raw_question_number"`
	SourcePage        int         `json:"source_page,omitempty"`
	StemText          string      `json:"stem_text"`
	MarksTotal        *int        `json:"marks_total"`
	Answer            string      `json:"answer,omitempty"`
	WorkedSolution    string      `json:"worked_solution,omitempty"`
	Parts             []PartInput `json:"parts,omitempty"`
}

// Ref is a short human reference used in diagnostics.
func (p Payload) Ref() string {
	return fmt.Sprintf("%s/%d/%s/Q%s", p.School, p.Year, p.Section, strings.TrimSpace(p.RawQuestionNumber))
}

// RecordError is a per-record failure of a batch operation.
type RecordError struct {
	Index int    `json:"index"`
	Ref   string `json:"ref"`
	Err   error  `json:"-"`
}

func (e RecordError) Error() string { return fmt.Sprintf("record %d (%s): %v", e.Index, e.Ref, e.Err) }
func (e RecordError) Unwrap() error { return e.Err }

// Splitter turns payloads into parts, assigning canonical numbers.
type Splitter struct {
	numbers *numbering.Normalizer
}

// NewSplitter returns a Splitter using numbers for canonical numbering.
func NewSplitter(numbers *numbering.Normalizer) *Splitter {
	return &Splitter{numbers: numbers}
}

// Split converts one payload into its parts in input order.
//
// A payload with parts needs shared stem text and explicit marks on every
// part; when MarksTotal is also given the part marks must add up to it. A
// payload without parts yields one part with PartLetter "".
func (s *Splitter) Split(p Payload) ([]Part, error) {
	if strings.TrimSpace(p.School) == "" || p.Year <= 0 {
		return nil, errors.New(errors.CodeValidation, "payload needs school and year").WithDetail(p.Ref())
	}
	num, err := s.numbers.Normalize(p.School, p.Section, p.RawQuestionNumber)
	if err != nil {
		return nil, err
	}
	key := canonicalKey(p.School, p.Year, num.Section, num.Canonical)
	base := Part{
		Identity:          Identity{Key: key},
		SourceQuestionNum: num.Original,
		SourcePage:        p.SourcePage,
	}

	if len(p.Parts) == 0 {
		if p.MarksTotal == nil {
			return nil, errors.New(errors.CodeMissingPartMarks, "marks missing for question").WithDetail(p.Ref())
		}
		if *p.MarksTotal < 0 {
			return nil, errors.New(errors.CodeMissingPartMarks, "marks must not be negative").WithDetail(p.Ref())
		}
		part := base
		part.Marks = *p.MarksTotal
		part.Text = strings.TrimSpace(p.StemText)
		part.Answer = strings.TrimSpace(p.Answer)
		part.WorkedSolution = strings.TrimSpace(p.WorkedSolution)
		return []Part{part}, nil
	}

	context := mainContext(p.StemText, p.Parts)
	if context == "" {
		return nil, errors.New(errors.CodeMissingMainContext, "multi-part question has no shared stem").WithDetail(p.Ref())
	}

	parts := make([]Part, 0, len(p.Parts))
	seen := make(map[string]bool, len(p.Parts))
	sum := 0
	for _, in := range p.Parts {
		letter, err := NormalizeLetter(in.Letter)
		if err != nil {
			return nil, err
		}
		if letter == "" {
			return nil, errors.New(errors.CodeInvalidPartLetter, "sub-part without a letter").WithDetail(p.Ref())
		}
		if seen[letter] {
			return nil, errors.New(errors.CodeDuplicatePart, "duplicate part letter").
				WithDetailf("%s part %s", p.Ref(), letter)
		}
		seen[letter] = true
		if in.Marks == nil {
			return nil, errors.New(errors.CodeMissingPartMarks, "marks missing for question part").
				WithDetailf("%s part %s", p.Ref(), letter)
		}
		if *in.Marks < 0 {
			return nil, errors.New(errors.CodeMissingPartMarks, "marks must not be negative").
				WithDetailf("%s part %s", p.Ref(), letter)
		}
		sum += *in.Marks

		part := base
		part.PartLetter = letter
		part.Marks = *in.Marks
		part.Text = strings.TrimSpace(in.Text)
		part.MainContext = context
		part.Answer = strings.TrimSpace(in.Answer)
		part.WorkedSolution = strings.TrimSpace(in.WorkedSolution)
		parts = append(parts, part)
	}
	if p.MarksTotal != nil && *p.MarksTotal != sum {
		return nil, errors.New(errors.CodeMarksMismatch, "part marks do not add up to question total").
			WithDetailf("%s parts=%d total=%d", p.Ref(), sum, *p.MarksTotal)
	}
	return parts, nil
}

// SplitBatch splits every payload, collecting per-record errors. Payloads
// that resolve to the same question are all rejected as ambiguous.
func (s *Splitter) SplitBatch(payloads []Payload) ([]Part, []RecordError) {
	var failed []RecordError
	split := make([][]Part, len(payloads))
	owners := make(map[Key][]int)
	for i, p := range payloads {
		parts, err := s.Split(p)
		if err != nil {
			failed = append(failed, RecordError{Index: i, Ref: p.Ref(), Err: err})
			continue
		}
		split[i] = parts
		owners[parts[0].Key] = append(owners[parts[0].Key], i)
	}

	for key, idx := range owners {
		if len(idx) < 2 {
			continue
		}
		raws := make([]string, len(idx))
		for j, i := range idx {
			raws[j] = strings.TrimSpace(payloads[i].RawQuestionNumber)
		}
		for _, i := range idx {
			failed = append(failed, RecordError{
				Index: i,
				Ref:   payloads[i].Ref(),
				Err: errors.New(errors.CodeAmbiguousNumbering, "payloads normalize to the same question").
					WithDetailf("question=%s raw=%q", key, raws),
			})
			split[i] = nil
		}
	}

	var out []Part
	for _, parts := range split {
		out = append(out, parts...)
	}
	sortRecordErrors(failed)
	return out, failed
}

// PayloadFromPart rebuilds the single-part payload a stored part came from.
// Splitting the result yields the same part identity and content.
func PayloadFromPart(p Part) Payload {
	marks := p.Marks
	payload := Payload{
		School:            p.School,
		Year:              p.Year,
		Section:           p.Section,
		RawQuestionNumber: p.SourceQuestionNum,
		SourcePage:        p.SourcePage,
		MarksTotal:        &marks,
	}
	if p.PartLetter == "" {
		payload.StemText = p.Text
		payload.Answer = p.Answer
		payload.WorkedSolution = p.WorkedSolution
		return payload
	}
	payload.StemText = p.MainContext
	if p.Text != "" {
		payload.StemText += "\n" + p.Text
	}
	payload.Parts = []PartInput{{
		Letter:         p.PartLetter,
		Text:           p.Text,
		Answer:         p.Answer,
		WorkedSolution: p.WorkedSolution,
		Marks:          &marks,
	}}
	return payload
}

// mainContext removes part-specific text from the stem and tidies blank
// lines. Part text follows the shared stem, so the last occurrence is the
// one removed; a stem that repeats the sentence keeps its earlier copy.
func mainContext(stem string, parts []PartInput) string {
	for _, in := range parts {
		if t := strings.TrimSpace(in.Text); t != "" {
			if i := strings.LastIndex(stem, t); i >= 0 {
				stem = stem[:i] + stem[i+len(t):]
			}
		}
	}
	lines := strings.Split(stem, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimRight(l, " \t\r"); strings.TrimSpace(l) != "" {
			kept = append(kept, l)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

//Personal.AI order the ending
