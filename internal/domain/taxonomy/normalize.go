package taxonomy

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// normalizeLabel produces the comparison key of a label: NFKC, case folded,
// trimmed, inner whitespace collapsed to single spaces.
//
// A cases.Caser is stateful, so a fresh one is built per call.
func normalizeLabel(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

//Personal.AI order the ending
