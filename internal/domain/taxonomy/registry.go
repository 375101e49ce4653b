package taxonomy

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/turtacn/QuestionBank/pkg/errors"
)

// DefaultThreshold is the minimum similarity FuzzyMatch accepts.
const DefaultThreshold = 0.8

// scoreEpsilon treats scores this close as a tie.
const scoreEpsilon = 1e-9

// MatchKind records how a raw label was resolved.
type MatchKind string

const (
	MatchExact MatchKind = "exact"
	MatchAlias MatchKind = "alias"
	MatchFuzzy MatchKind = "fuzzy"
)

// Match is a successful lookup.
type Match struct {
	Entry Entry     `json:"entry"`
	Kind  MatchKind `json:"kind"`
	Score float64   `json:"score"`
}

type indexedEntry struct {
	Entry
	key string
}

type registryOptions struct {
	similarity Similarity
	threshold  float64
	aliases    map[Category]map[string]string
}

// Option customizes a Registry.
type Option func(*registryOptions)

// WithSimilarity replaces the default Ratcliff/Obershelp scorer.
func WithSimilarity(s Similarity) Option {
	return func(o *registryOptions) {
		if s != nil {
			o.similarity = s
		}
	}
}

// WithThreshold sets the fuzzy acceptance threshold.
func WithThreshold(t float64) Option {
	return func(o *registryOptions) { o.threshold = t }
}

// WithAliases maps legacy or alternative labels onto canonical labels of
// category. Alias targets must exist in the vocabulary.
func WithAliases(category Category, aliases map[string]string) Option {
	return func(o *registryOptions) {
		if o.aliases == nil {
			o.aliases = make(map[Category]map[string]string)
		}
		if o.aliases[category] == nil {
			o.aliases[category] = make(map[string]string)
		}
		for from, to := range aliases {
			o.aliases[category][from] = to
		}
	}
}

// Registry is an immutable vocabulary. All methods are safe for concurrent use.
type Registry struct {
	entries    map[Category][]indexedEntry
	index      map[Category]map[string]Entry
	aliases    map[Category]map[string]Entry
	similarity Similarity
	threshold  float64
}

// NewRegistry builds a Registry from entries. Labels must be non-empty and
// unique per category after normalization.
func NewRegistry(entries []Entry, opts ...Option) (*Registry, error) {
	o := registryOptions{similarity: RatcliffSimilarity{}, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	if math.IsNaN(o.threshold) || o.threshold <= 0 || o.threshold > 1 {
		return nil, errors.New(errors.CodeValidation, "fuzzy threshold must be in (0, 1]").
			WithDetailf("threshold=%v", o.threshold)
	}

	r := &Registry{
		entries:    make(map[Category][]indexedEntry),
		index:      make(map[Category]map[string]Entry),
		aliases:    make(map[Category]map[string]Entry),
		similarity: o.similarity,
		threshold:  o.threshold,
	}
	for _, c := range Categories {
		r.index[c] = make(map[string]Entry)
		r.aliases[c] = make(map[string]Entry)
	}

	for i, e := range entries {
		if !e.Category.IsValid() {
			return nil, errors.New(errors.CodeUnknownCategory, "unknown taxonomy category").
				WithDetailf("entry %d: %q", i, e.Category)
		}
		key := normalizeLabel(e.Label)
		if key == "" {
			return nil, errors.New(errors.CodeInvalidTaxonomyEntry, "empty taxonomy label").
				WithDetailf("entry %d", i)
		}
		if prev, dup := r.index[e.Category][key]; dup {
			return nil, errors.New(errors.CodeInvalidTaxonomyEntry, "duplicate taxonomy label").
				WithDetailf("%s %q collides with %q", e.Category, e.Label, prev.Label)
		}
		r.index[e.Category][key] = e
		r.entries[e.Category] = append(r.entries[e.Category], indexedEntry{Entry: e, key: key})
	}

	for category, table := range o.aliases {
		if !category.IsValid() {
			return nil, errors.New(errors.CodeUnknownCategory, "unknown alias category").
				WithDetail(string(category))
		}
		for from, to := range table {
			target, ok := r.index[category][normalizeLabel(to)]
			if !ok {
				return nil, errors.New(errors.CodeInvalidTaxonomyEntry, "alias target not in taxonomy").
					WithDetailf("%s alias %q -> %q", category, from, to)
			}
			r.aliases[category][normalizeLabel(from)] = target
		}
	}
	return r, nil
}

// Validate returns the entry whose label equals label case-insensitively.
func (r *Registry) Validate(label string, category Category) (Entry, error) {
	if !category.IsValid() {
		return Entry{}, errors.New(errors.CodeUnknownCategory, "unknown taxonomy category").
			WithDetail(string(category))
	}
	if e, ok := r.index[category][normalizeLabel(label)]; ok {
		return e, nil
	}
	return Entry{}, errors.New(errors.CodeLabelNotFound, "label not in taxonomy").
		WithDetailf("%s %q", category, label)
}

// FuzzyMatch returns the closest entry of category scoring at least the
// threshold. Equal scores prefer the shorter label, then the
// lexicographically smaller one. Below threshold the error has code
// CodeNoMatch.
func (r *Registry) FuzzyMatch(label string, category Category) (Match, error) {
	if !category.IsValid() {
		return Match{}, errors.New(errors.CodeUnknownCategory, "unknown taxonomy category").
			WithDetail(string(category))
	}
	key := normalizeLabel(label)
	if key == "" {
		return Match{}, errors.New(errors.CodeNoMatch, "empty label").WithDetail(string(category))
	}

	var best indexedEntry
	bestScore := -1.0
	for _, candidate := range r.entries[category] {
		score := r.similarity.Score(key, candidate.key)
		if bestScore < 0 || score > bestScore+scoreEpsilon ||
			(math.Abs(score-bestScore) <= scoreEpsilon && preferLabel(candidate.Label, best.Label)) {
			best, bestScore = candidate, score
		}
	}

	if bestScore < r.threshold-scoreEpsilon {
		detail := fmt.Sprintf("%s %q", category, label)
		if bestScore >= 0 {
			detail += fmt.Sprintf(" (closest %q at %.3f)", best.Label, bestScore)
		}
		return Match{}, errors.New(errors.CodeNoMatch, "no taxonomy label above similarity threshold").
			WithDetail(detail)
	}

	kind := MatchFuzzy
	if best.key == key {
		kind = MatchExact
	}
	return Match{Entry: best.Entry, Kind: kind, Score: bestScore}, nil
}

// Resolve tries exact validation, then the alias table, then fuzzy matching.
func (r *Registry) Resolve(label string, category Category) (Match, error) {
	if e, err := r.Validate(label, category); err == nil {
		return Match{Entry: e, Kind: MatchExact, Score: 1}, nil
	} else if errors.IsCode(err, errors.CodeUnknownCategory) {
		return Match{}, err
	}
	if e, ok := r.aliases[category][normalizeLabel(label)]; ok {
		return Match{Entry: e, Kind: MatchAlias, Score: 1}, nil
	}
	return r.FuzzyMatch(label, category)
}

// Entries returns the vocabulary of category in load order.
func (r *Registry) Entries(category Category) []Entry {
	src := r.entries[category]
	out := make([]Entry, len(src))
	for i, e := range src {
		out[i] = e.Entry
	}
	return out
}

// Labels returns the canonical labels of category in load order.
func (r *Registry) Labels(category Category) []string {
	src := r.entries[category]
	out := make([]string, len(src))
	for i, e := range src {
		out[i] = e.Label
	}
	return out
}

// Size returns the number of entries in category.
func (r *Registry) Size(category Category) int { return len(r.entries[category]) }

// Threshold returns the fuzzy acceptance threshold.
func (r *Registry) Threshold() float64 { return r.threshold }

// Metric returns the similarity metric in use.
func (r *Registry) Metric() SimilarityMetric { return r.similarity.Metric() }

func preferLabel(candidate, current string) bool {
	lc, lb := utf8.RuneCountInString(candidate), utf8.RuneCountInString(current)
	if lc != lb {
		return lc < lb
	}
	return candidate < current
}

//Personal.AI order the ending
