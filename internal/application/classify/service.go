// Package classify applies classifier proposals to stored question parts.
package classify

import (
	"context"

	"github.com/turtacn/QuestionBank/internal/application/events"
	"github.com/turtacn/QuestionBank/internal/domain/classification"
	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// Outcomes counted in classifications_total.
const (
	OutcomeStored    = "stored"
	OutcomeReview    = "review"
	OutcomeSkipped   = "skipped"
	OutcomeNotFound  = "not_found"
	OutcomeMalformed = "malformed"
)

// Item is a proposal for one stored part.
type Item struct {
	Identity question.Identity       `json:"identity"`
	Proposal classification.Proposal `json:"proposal"`
}

// Outcome reports one applied item. Stored is false when the part was
// edited by hand or does not exist.
type Outcome struct {
	Identity question.Identity     `json:"identity"`
	Result   classification.Result `json:"result"`
	Stored   bool                  `json:"stored"`
	Err      error                 `json:"-"`
}

// Invalidator drops cached question groups.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...question.Key) error
}

type Service struct {
	repo       question.Repository
	reconciler *classification.Reconciler
	cache      Invalidator
	events     events.Publisher
	metrics    *prometheus.QBankMetrics
	logger     logging.Logger
}

type Option func(*Service)

func WithCache(c Invalidator) Option { return func(s *Service) { s.cache = c } }

func WithEvents(p events.Publisher) Option { return func(s *Service) { s.events = p } }

func WithMetrics(m *prometheus.QBankMetrics) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(l logging.Logger) Option { return func(s *Service) { s.logger = l } }

// NewService returns a service that writes tags through repo. A nil repo
// limits it to Reconcile.
func NewService(repo question.Repository, reconciler *classification.Reconciler, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		reconciler: reconciler,
		events:     events.Nop(),
		metrics:    prometheus.NewNopMetrics(),
		logger:     logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.Named("classify")
	return s
}

// Reconcile validates one proposal without storing it.
func (s *Service) Reconcile(p classification.Proposal) classification.Result {
	res := s.reconciler.Reconcile(p)
	for _, a := range res.Accepted {
		if a.Corrected() {
			s.metrics.LabelCorrectionsTotal.WithLabelValues(string(a.Category), string(a.Kind)).Inc()
		}
	}
	for _, d := range res.Dropped {
		s.metrics.LabelsDroppedTotal.WithLabelValues(string(d.Category), string(d.Reason)).Inc()
	}
	return res
}

// ReconcileAll validates proposals independently, in order.
func (s *Service) ReconcileAll(ps []classification.Proposal) []classification.Result {
	out := make([]classification.Result, len(ps))
	for i, p := range ps {
		out[i] = s.Reconcile(p)
	}
	return out
}

// ApplyOne reconciles and stores one item. A missing part is reported in
// the outcome; only storage failures are returned as errors. Safe for
// concurrent use.
func (s *Service) ApplyOne(ctx context.Context, it Item) (Outcome, error) {
	out := Outcome{Identity: it.Identity, Result: s.Reconcile(it.Proposal)}
	if s.repo == nil {
		return out, errors.New(errors.ErrCodeServiceUnavailable, "question store is not configured")
	}

	stored, err := s.repo.UpdateTags(ctx, it.Identity, out.Result.Tags)
	if err != nil {
		return out, err
	}
	out.Stored = stored

	if !stored {
		// Unchanged rows are either edited by hand or absent.
		if _, err := s.repo.Get(ctx, it.Identity); errors.IsNotFound(err) {
			out.Err = err
			s.metrics.ClassificationsTotal.WithLabelValues(OutcomeNotFound).Inc()
			s.logger.Warn("classified part not found", logging.String("part", it.Identity.String()))
			return out, nil
		} else if err != nil {
			return out, err
		}
		s.metrics.ClassificationsTotal.WithLabelValues(OutcomeSkipped).Inc()
		return out, nil
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, it.Identity.Key); err != nil {
			s.logger.Warn("cache invalidation failed", logging.Err(err))
		}
	}
	if out.Result.NeedsReview {
		s.metrics.ClassificationsTotal.WithLabelValues(OutcomeReview).Inc()
		events.PublishBestEffort(ctx, s.events, s.logger,
			question.NewReviewRequiredEvent(it.Identity, out.Result.Confidence, out.Result.ReviewReasons))
	} else {
		s.metrics.ClassificationsTotal.WithLabelValues(OutcomeStored).Inc()
	}
	s.logger.Debug("tags stored",
		logging.String("part", it.Identity.String()),
		logging.Strings("topics", out.Result.Topics),
		logging.Bool("needs_review", out.Result.NeedsReview))
	return out, nil
}

// Apply stores items in order and stops at the first storage failure.
func (s *Service) Apply(ctx context.Context, items []Item) ([]Outcome, error) {
	outs := make([]Outcome, 0, len(items))
	for _, it := range items {
		out, err := s.ApplyOne(ctx, it)
		if err != nil {
			return outs, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

//Personal.AI order the ending
