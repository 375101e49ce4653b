// Package classification validates the topic and heuristic labels proposed
// by an external classifier against the taxonomy.
package classification

import (
	"math"
	"strings"

	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/domain/taxonomy"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// Defaults for Config.
const (
	DefaultReviewThreshold = 0.7
	DefaultMaxTopics       = question.MaxTopics
	DefaultMaxHeuristics   = question.MaxHeuristics
)

// Reasons recorded on a Result.
const (
	ReasonMissingConfidence = "missing_confidence"
	ReasonLowConfidence     = "low_confidence"
	ReasonDroppedLabels     = "dropped_labels"
	ReasonNoTopics          = "no_topics"
)

// DropReason explains why a proposed label was not kept.
type DropReason string

const (
	DropUnmatched DropReason = "unmatched"
	DropOverLimit DropReason = "over_limit"
	DropEmpty     DropReason = "empty"
)

// Proposal is the raw output of the classifier for one part. A nil
// Confidence means the classifier gave none.
type Proposal struct {
	Topics     []string `json:"proposed_topics"`
	Heuristics []string `json:"proposed_heuristics"`
	Confidence *float64 `json:"confidence"`
}

// Accepted is a proposed label resolved to a canonical one.
type Accepted struct {
	Category taxonomy.Category  `json:"category"`
	Raw      string             `json:"raw"`
	Label    string             `json:"label"`
	Kind     taxonomy.MatchKind `json:"kind"`
	Score    float64            `json:"score"`
}

// Corrected reports whether the raw label differed from the canonical one.
func (a Accepted) Corrected() bool { return a.Kind != taxonomy.MatchExact }

// Dropped is a proposed label that did not make it into the tags.
type Dropped struct {
	Category taxonomy.Category `json:"category"`
	Raw      string            `json:"raw"`
	Reason   DropReason        `json:"reason"`
	Detail   string            `json:"detail,omitempty"`
}

// Result is the validated classification plus its audit trail. Duplicates
// of an already accepted label are folded silently.
type Result struct {
	question.Tags
	Accepted      []Accepted `json:"accepted"`
	Dropped       []Dropped  `json:"dropped"`
	ReviewReasons []string   `json:"review_reasons"`
}

// Config tunes the Reconciler.
type Config struct {
	ReviewThreshold float64 `mapstructure:"review_threshold" yaml:"review_threshold" json:"review_threshold"`
	MaxTopics       int     `mapstructure:"max_topics" yaml:"max_topics" json:"max_topics"`
	MaxHeuristics   int     `mapstructure:"max_heuristics" yaml:"max_heuristics" json:"max_heuristics"`
}

// DefaultConfig returns the reference settings: review below 0.7, keep two
// topics and three heuristics.
func DefaultConfig() Config {
	return Config{
		ReviewThreshold: DefaultReviewThreshold,
		MaxTopics:       DefaultMaxTopics,
		MaxHeuristics:   DefaultMaxHeuristics,
	}
}

// Validate checks the limits against what a part can store.
func (c Config) Validate() error {
	if c.ReviewThreshold < 0 || c.ReviewThreshold > 1 || math.IsNaN(c.ReviewThreshold) {
		return errors.New(errors.CodeValidation, "review threshold must be within [0,1]").
			WithDetailf("review_threshold=%g", c.ReviewThreshold)
	}
	if c.MaxTopics < 1 || c.MaxTopics > question.MaxTopics {
		return errors.New(errors.CodeValidation, "max_topics out of range").
			WithDetailf("max_topics=%d limit=%d", c.MaxTopics, question.MaxTopics)
	}
	if c.MaxHeuristics < 0 || c.MaxHeuristics > question.MaxHeuristics {
		return errors.New(errors.CodeValidation, "max_heuristics out of range").
			WithDetailf("max_heuristics=%d limit=%d", c.MaxHeuristics, question.MaxHeuristics)
	}
	return nil
}

// Reconciler is a pure post-processor of classifier output. It is safe for
// concurrent use.
type Reconciler struct {
	registry *taxonomy.Registry
	cfg      Config
}

// NewReconciler binds registry and cfg.
func NewReconciler(registry *taxonomy.Registry, cfg Config) (*Reconciler, error) {
	if registry == nil {
		return nil, errors.New(errors.CodeValidation, "reconciler needs a taxonomy registry")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Reconciler{registry: registry, cfg: cfg}, nil
}

// Config returns the settings in effect.
func (r *Reconciler) Config() Config { return r.cfg }

// Reconcile resolves each proposed label (exact, alias, then fuzzy), folds
// duplicates, keeps labels up to the limits in the given order and derives
// NeedsReview. Confidence is clamped to [0,1]; a missing or NaN value is 0.
func (r *Reconciler) Reconcile(p Proposal) Result {
	var res Result
	res.Topics = r.resolve(&res, taxonomy.CategoryTopic, p.Topics, r.cfg.MaxTopics)
	res.Heuristics = r.resolve(&res, taxonomy.CategoryHeuristic, p.Heuristics, r.cfg.MaxHeuristics)

	if p.Confidence == nil || math.IsNaN(*p.Confidence) {
		res.Confidence = 0
		res.ReviewReasons = append(res.ReviewReasons, ReasonMissingConfidence)
	} else {
		res.Confidence = math.Min(1, math.Max(0, *p.Confidence))
	}
	if res.Confidence < r.cfg.ReviewThreshold {
		res.ReviewReasons = append(res.ReviewReasons, ReasonLowConfidence)
	}
	if len(res.Dropped) > 0 {
		res.ReviewReasons = append(res.ReviewReasons, ReasonDroppedLabels)
	}
	if len(res.Topics) == 0 {
		res.ReviewReasons = append(res.ReviewReasons, ReasonNoTopics)
	}
	res.NeedsReview = len(res.ReviewReasons) > 0
	return res
}

// ReconcileAll reconciles proposals independently, in order.
func (r *Reconciler) ReconcileAll(proposals []Proposal) []Result {
	out := make([]Result, len(proposals))
	for i, p := range proposals {
		out[i] = r.Reconcile(p)
	}
	return out
}

func (r *Reconciler) resolve(res *Result, category taxonomy.Category, raws []string, limit int) []string {
	labels := make([]string, 0, limit)
	seen := make(map[string]bool, len(raws))
	for _, raw := range raws {
		if strings.TrimSpace(raw) == "" {
			res.Dropped = append(res.Dropped, Dropped{Category: category, Raw: raw, Reason: DropEmpty})
			continue
		}
		m, err := r.registry.Resolve(raw, category)
		if err != nil {
			d := Dropped{Category: category, Raw: raw, Reason: DropUnmatched}
			var ae *errors.AppError
			if errors.As(err, &ae) {
				d.Detail = ae.Detail
			}
			res.Dropped = append(res.Dropped, d)
			continue
		}
		if seen[m.Entry.Label] {
			continue
		}
		seen[m.Entry.Label] = true
		if len(labels) >= limit {
			res.Dropped = append(res.Dropped, Dropped{Category: category, Raw: raw, Reason: DropOverLimit,
				Detail: m.Entry.Label})
			continue
		}
		labels = append(labels, m.Entry.Label)
		res.Accepted = append(res.Accepted, Accepted{Category: category, Raw: raw, Label: m.Entry.Label, Kind: m.Kind, Score: m.Score})
	}
	return labels
}

//Personal.AI order the ending
