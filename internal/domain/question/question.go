// Package question models the stored unit of the bank, the QuestionPart, and
// the conversion between raw extraction payloads and parts.
package question

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/QuestionBank/internal/domain/numbering"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// Limits on classification tags per part.
const (
	MaxTopics     = 2
	MaxHeuristics = 3
)

// Key identifies a question regardless of its parts.
type Key struct {
	School      string `json:"school"`
	Year        int    `json:"year"`
	Section     string `json:"section"`
	QuestionNum int    `json:"question_num"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d/%s/%d", k.School, k.Year, k.Section, k.QuestionNum)
}

// Less orders keys by school, year, section, then number.
func (k Key) Less(o Key) bool {
	if k.School != o.School {
		return k.School < o.School
	}
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	if k.Section != o.Section {
		return k.Section < o.Section
	}
	return k.QuestionNum < o.QuestionNum
}

// Identity is the unique key of a part. PartLetter is "" for a question
// without sub-parts.
type Identity struct {
	Key
	PartLetter string `json:"part_letter"`
}

func (id Identity) String() string {
	return id.Key.String() + id.PartLetter
}

// Tags is the validated classification of a part.
type Tags struct {
	Topics      []string `json:"topics"`
	Heuristics  []string `json:"heuristics"`
	Confidence  float64  `json:"confidence"`
	NeedsReview bool     `json:"needs_review"`
}

// Part is one stored question part.
type Part struct {
	ID uuid.UUID `json:"id"`
	Identity

	SourceQuestionNum string `json:"source_question_num"`
	SourcePage        int    `json:"source_page,omitempty"`
	Marks             int    `json:"marks"`
	Text              string `json:"text"`
	MainContext       string `json:"main_context,omitempty"`
	Answer            string `json:"answer"`
	WorkedSolution    string `json:"worked_solution,omitempty"`

	Tags

	ManuallyEdited bool      `json:"manually_edited"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// Validate checks the stored-record invariants.
func (p Part) Validate() error {
	if _, err := NormalizeLetter(p.PartLetter); err != nil {
		return err
	}
	if p.PartLetter != "" && strings.TrimSpace(p.MainContext) == "" {
		return errors.New(errors.CodeMissingMainContext, "lettered part has no main context").
			WithDetailf("part=%s", p.Identity)
	}
	if len(p.Topics) > MaxTopics || len(p.Heuristics) > MaxHeuristics {
		return errors.New(errors.CodeValidation, "too many classification tags").
			WithDetailf("part=%s topics=%d heuristics=%d", p.Identity, len(p.Topics), len(p.Heuristics))
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return errors.New(errors.CodeValidation, "confidence outside [0,1]").
			WithDetailf("part=%s confidence=%g", p.Identity, p.Confidence)
	}
	return nil
}

// NormalizeLetter accepts "a", "A", "(a)", "a)" and "a." and returns the lower
// case letter. The empty string is a valid "no part" letter.
func NormalizeLetter(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimRight(s, ").")
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		if strings.TrimSpace(raw) != "" {
			return "", errors.New(errors.CodeInvalidPartLetter, "invalid part letter").WithDetailf("raw=%q", raw)
		}
		return "", nil
	}
	if len(s) != 1 || s[0] < 'a' || s[0] > 'z' {
		return "", errors.New(errors.CodeInvalidPartLetter, "invalid part letter").WithDetailf("raw=%q", raw)
	}
	return s, nil
}

func canonicalKey(school string, year int, section string, num int) Key {
	return Key{
		School:      strings.Join(strings.Fields(school), " "),
		Year:        year,
		Section:     numbering.CanonicalSection(section),
		QuestionNum: num,
	}
}

//Personal.AI order the ending
