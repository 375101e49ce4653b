package answerkey

import (
	"regexp"
	"strings"
)

// AnswerType is the detected shape of an answer value.
type AnswerType string

const (
	TypeMoney      AnswerType = "money"
	TypeRatio      AnswerType = "ratio"
	TypePercentage AnswerType = "percentage"
	TypeFraction   AnswerType = "fraction"
	TypeTime       AnswerType = "time"
	TypeDecimal    AnswerType = "decimal"
	TypeInteger    AnswerType = "integer"
	TypeChoice     AnswerType = "choice"
	TypeText       AnswerType = "text"
)

// Checked in order; the first hit wins.
var typePatterns = []struct {
	kind AnswerType
	re   *regexp.Regexp
}{
	{TypeMoney, regexp.MustCompile(`\$[\d,]+\.?\d*`)},
	{TypeRatio, regexp.MustCompile(`\d+\s*:\s*\d+`)},
	{TypePercentage, regexp.MustCompile(`\d+\.?\d*\s*%`)},
	{TypeFraction, regexp.MustCompile(`\d+/\d+`)},
	{TypeTime, regexp.MustCompile(`\d+\s*(h|hr|hour|min|minute|s|sec)\b`)},
	{TypeDecimal, regexp.MustCompile(`\d+\.\d+`)},
	{TypeInteger, regexp.MustCompile(`^\d+$`)},
}

var mcqPattern = regexp.MustCompile(`^[\(\[]?([A-D1-4])[\)\]]?$`)

// DetectType classifies value. Empty values are TypeText.
func DetectType(value string) AnswerType {
	v := strings.TrimSpace(value)
	if v == "" {
		return TypeText
	}
	for _, p := range typePatterns {
		if p.re.MatchString(v) {
			return p.kind
		}
	}
	if _, ok := NormalizeMCQ(v); ok {
		return TypeChoice
	}
	return TypeText
}

// NormalizeMCQ maps "(B)", "b)", "[c]" and the option numbers "1".."4" to a
// single option letter A-D.
func NormalizeMCQ(value string) (string, bool) {
	m := mcqPattern.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(value)))
	if m == nil {
		return value, false
	}
	switch m[1] {
	case "1":
		return "A", true
	case "2":
		return "B", true
	case "3":
		return "C", true
	case "4":
		return "D", true
	}
	return m[1], true
}

//Personal.AI order the ending
