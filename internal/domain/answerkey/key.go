// Package answerkey binds answer-key entries to stored question parts.
package answerkey

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/turtacn/QuestionBank/internal/domain/numbering"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// Candidate is an answer-key entry before binding.
type Candidate struct {
	RawKey         string `json:"raw_key"`
	Value          string `json:"value"`
	WorkedSolution string `json:"worked_solution,omitempty"`
	SourcePage     int    `json:"source_page,omitempty"`
}

// Key is a parsed candidate key. Letter is "" when the key names the whole
// question.
type Key struct {
	Section string `json:"section"`
	Number  int    `json:"number"`
	Letter  string `json:"letter,omitempty"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s_%d%s", k.Section, k.Number, strings.ToUpper(k.Letter))
}

// keyPattern accepts "P2_6A", "P2-6(a)", "p2 Q6 b", "P1B:21".
var keyPattern = regexp.MustCompile(`(?i)^\s*([a-z][a-z0-9]*?)\s*[_\-:\s]\s*q?\s*(\d+)\s*(?:\(?([a-z])\)?)?\s*$`)

// ParseKey decomposes a raw key into section, number and optional letter.
func ParseKey(raw string) (Key, error) {
	m := keyPattern.FindStringSubmatch(raw)
	if m == nil {
		return Key{}, errors.New(errors.CodeUnparsableKey, "answer key entry could not be parsed").
			WithDetailf("raw=%q", raw)
	}
	n, err := strconv.Atoi(m[2])
	if err != nil || n < 1 {
		return Key{}, errors.New(errors.CodeUnparsableKey, "answer key number is not positive").
			WithDetailf("raw=%q", raw)
	}
	return Key{
		Section: numbering.CanonicalSection(m[1]),
		Number:  n,
		Letter:  strings.ToLower(m[3]),
	}, nil
}

// FormatKey renders the canonical raw key for a section, number and letter.
func FormatKey(section string, number int, letter string) string {
	return Key{Section: numbering.CanonicalSection(section), Number: number, Letter: letter}.String()
}

//Personal.AI order the ending
