package taxonomy

import (
	"strings"

	"github.com/turtacn/QuestionBank/pkg/errors"
)

// SimilarityMetric names a string similarity algorithm.
type SimilarityMetric string

const (
	// MetricRatcliff is the matching-blocks ratio 2*M/T (Ratcliff/Obershelp).
	MetricRatcliff SimilarityMetric = "ratcliff"
	// MetricLevenshtein is 1 - editDistance/max(len(a), len(b)).
	MetricLevenshtein SimilarityMetric = "levenshtein"
	// MetricJaccard is word-token overlap |A∩B| / |A∪B|.
	MetricJaccard SimilarityMetric = "jaccard"
)

// DefaultMetric is used when no metric is configured.
const DefaultMetric = MetricRatcliff

func (m SimilarityMetric) IsValid() bool {
	switch m {
	case MetricRatcliff, MetricLevenshtein, MetricJaccard:
		return true
	}
	return false
}

func (m SimilarityMetric) String() string { return string(m) }

// ParseSimilarityMetric parses s; the empty string yields DefaultMetric.
func ParseSimilarityMetric(s string) (SimilarityMetric, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultMetric, nil
	}
	m := SimilarityMetric(strings.ToLower(strings.TrimSpace(s)))
	if m.IsValid() {
		return m, nil
	}
	return "", errors.New(errors.CodeValidation, "unsupported similarity metric").WithDetail(s)
}

// Similarity scores two normalized labels in [0, 1]; 1 means identical.
// Implementations must be pure and safe for concurrent use. Scores need not
// be symmetric: the registry always passes the input label as a and the
// vocabulary label as b.
type Similarity interface {
	Score(a, b string) float64
	Metric() SimilarityMetric
}

// NewSimilarity returns the built-in implementation for m.
func NewSimilarity(m SimilarityMetric) (Similarity, error) {
	switch m {
	case MetricRatcliff:
		return RatcliffSimilarity{}, nil
	case MetricLevenshtein:
		return LevenshteinSimilarity{}, nil
	case MetricJaccard:
		return JaccardSimilarity{}, nil
	}
	return nil, errors.New(errors.CodeValidation, "unsupported similarity metric").WithDetail(string(m))
}

// ─────────────────────────────────────────────────────────────────────────────
// Ratcliff/Obershelp
// ─────────────────────────────────────────────────────────────────────────────

// RatcliffSimilarity counts characters in recursively found longest common
// substrings.
type RatcliffSimilarity struct{}

func (RatcliffSimilarity) Metric() SimilarityMetric { return MetricRatcliff }

func (RatcliffSimilarity) Score(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingChars(ra, rb)) / float64(total)
}

func matchingChars(a, b []rune) int {
	i, j, size := longestCommon(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingChars(a[:i], b[:j]) +
		matchingChars(a[i+size:], b[j+size:])
}

// longestCommon returns the earliest longest common substring of a and b as
// (start in a, start in b, length).
func longestCommon(a, b []rune) (int, int, int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	bestI, bestJ, best := 0, 0, 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > best {
					best = curr[j]
					bestI, bestJ = i-best, j-best
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return bestI, bestJ, best
}

// ─────────────────────────────────────────────────────────────────────────────
// Levenshtein
// ─────────────────────────────────────────────────────────────────────────────

// LevenshteinSimilarity normalizes the edit distance by the longer input.
type LevenshteinSimilarity struct{}

func (LevenshteinSimilarity) Metric() SimilarityMetric { return MetricLevenshtein }

func (LevenshteinSimilarity) Score(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(editDistance(ra, rb))/float64(longest)
}

func editDistance(a, b []rune) int {
	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			next := min3(row[j]+1, row[j-1]+1, diag+cost)
			diag = row[j]
			row[j] = next
		}
	}
	return row[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// Jaccard
// ─────────────────────────────────────────────────────────────────────────────

// JaccardSimilarity compares the sets of whitespace separated tokens.
type JaccardSimilarity struct{}

func (JaccardSimilarity) Metric() SimilarityMetric { return MetricJaccard }

func (JaccardSimilarity) Score(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}
	inter := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '&' || r == '(' || r == ')' || r == '-' || r == ',' || r == '/'
	}) {
		out[t] = struct{}{}
	}
	return out
}

//Personal.AI order the ending
