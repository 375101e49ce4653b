package answerkey

import (
	"strconv"

	"github.com/turtacn/QuestionBank/internal/domain/numbering"
	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// MatchKind classifies the binding found for a part.
type MatchKind string

const (
	MatchExact       MatchKind = "exact"
	MatchPartial     MatchKind = "partial"
	MatchNoCandidate MatchKind = "no_candidate"
)

// Result is the binding of one part. Candidate and CandidateIndex are set
// unless Kind is MatchNoCandidate.
type Result struct {
	Part           question.Identity `json:"part"`
	Kind           MatchKind         `json:"kind"`
	Candidate      *Candidate        `json:"candidate,omitempty"`
	CandidateIndex int               `json:"candidate_index"`
	Key            *Key              `json:"key,omitempty"`
}

// PartialMatch reports whether the binding ignored the part letter.
func (r Result) PartialMatch() bool { return r.Kind == MatchPartial }

// Unparsable is a candidate whose key could not be decomposed. It is kept for
// manual review.
type Unparsable struct {
	Index     int       `json:"index"`
	Candidate Candidate `json:"candidate"`
	Err       error     `json:"-"`
	Reason    string    `json:"reason"`
}

// Report is the outcome of Match. Results has one entry per input part in
// input order. Unused lists indexes of parsed candidates that bound nothing.
type Report struct {
	Results    []Result     `json:"results"`
	Unparsable []Unparsable `json:"unparsable"`
	Unused     []int        `json:"unused"`
}

// Counts returns the number of exact, partial and unmatched results.
func (r Report) Counts() (exact, partial, none int) {
	for _, res := range r.Results {
		switch res.Kind {
		case MatchExact:
			exact++
		case MatchPartial:
			partial++
		default:
			none++
		}
	}
	return exact, partial, none
}

// Err returns CodeNoCandidate for a result without candidate, else nil.
func (r Result) Err() error {
	if r.Kind != MatchNoCandidate {
		return nil
	}
	return errors.New(errors.CodeNoCandidate, "no answer key candidate for question part").
		WithDetailf("part=%s", r.Part)
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithPrintedNumbers treats key numbers as printed in the school's paper and
// maps them through the numbering rules of school before matching.
func WithPrintedNumbers(n *numbering.Normalizer, school string) Option {
	return func(m *Matcher) {
		m.numbers = n
		m.school = school
	}
}

// Matcher binds candidates to parts. It holds no mutable state.
type Matcher struct {
	numbers *numbering.Normalizer
	school  string
}

// NewMatcher returns a Matcher. By default key numbers are canonical.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type questionRef struct {
	section string
	number  int
}

// Match binds every part to at most one candidate. An exact
// (section, number, letter) hit wins; otherwise a candidate for the same
// question is a partial match: a letterless candidate (a combined answer)
// for a lettered part, or the earliest lettered candidate for a letterless
// part. A lettered part never borrows a sibling's answer. The first of
// several candidates with the same key wins. A candidate may serve several
// partial matches.
func (m *Matcher) Match(candidates []Candidate, parts []question.Part) Report {
	report := Report{Results: make([]Result, 0, len(parts))}

	keys := make([]Key, len(candidates))
	exact := make(map[Key]int)
	byQuestion := make(map[questionRef][]int)
	parsed := make([]bool, len(candidates))
	for i, c := range candidates {
		k, err := m.parse(c.RawKey)
		if err != nil {
			report.Unparsable = append(report.Unparsable, Unparsable{Index: i, Candidate: c, Err: err, Reason: err.Error()})
			continue
		}
		keys[i] = k
		parsed[i] = true
		if _, dup := exact[k]; !dup {
			exact[k] = i
		}
		ref := questionRef{section: k.Section, number: k.Number}
		byQuestion[ref] = append(byQuestion[ref], i)
	}

	used := make([]bool, len(candidates))
	for _, p := range parts {
		res := Result{Part: p.Identity, Kind: MatchNoCandidate, CandidateIndex: -1}
		section := numbering.CanonicalSection(p.Section)
		want := Key{Section: section, Number: p.QuestionNum, Letter: p.PartLetter}

		if i, ok := exact[want]; ok {
			res.Kind, res.CandidateIndex = MatchExact, i
		} else if i, ok := pickPartial(keys, byQuestion[questionRef{section: section, number: p.QuestionNum}], p.PartLetter); ok {
			res.Kind, res.CandidateIndex = MatchPartial, i
		}
		if res.CandidateIndex >= 0 {
			c := candidates[res.CandidateIndex]
			k := keys[res.CandidateIndex]
			res.Candidate, res.Key = &c, &k
			used[res.CandidateIndex] = true
		}
		report.Results = append(report.Results, res)
	}

	for i := range candidates {
		if parsed[i] && !used[i] {
			report.Unused = append(report.Unused, i)
		}
	}
	return report
}

func pickPartial(keys []Key, indexes []int, letter string) (int, bool) {
	for _, i := range indexes {
		if keys[i].Letter == "" {
			return i, true
		}
	}
	if letter == "" && len(indexes) > 0 {
		return indexes[0], true
	}
	return 0, false
}

func (m *Matcher) parse(raw string) (Key, error) {
	k, err := ParseKey(raw)
	if err != nil || m.numbers == nil {
		return k, err
	}
	num, err := m.numbers.Normalize(m.school, k.Section, strconv.Itoa(k.Number))
	if err != nil {
		return Key{}, errors.Wrap(err, errors.CodeUnparsableKey, "answer key number has no canonical form").
			WithDetailf("raw=%q", raw)
	}
	k.Number = num.Canonical
	return k, nil
}

//Personal.AI order the ending
