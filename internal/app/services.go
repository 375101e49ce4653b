package app

import (
	"context"

	"github.com/turtacn/QuestionBank/internal/application/answers"
	"github.com/turtacn/QuestionBank/internal/application/classify"
	"github.com/turtacn/QuestionBank/internal/application/events"
	"github.com/turtacn/QuestionBank/internal/application/ingest"
	"github.com/turtacn/QuestionBank/internal/application/query"
	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/QuestionBank/internal/infrastructure/pdf"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// Services are the application services over one Core. Without
// infrastructure they still split, normalize, match and reconcile, but
// every call that needs the question store fails.
type Services struct {
	Ingest   *ingest.Service
	Query    *query.Service
	Answers  *answers.Service
	Classify *classify.Service
}

// NewServices wires the services. infra may be nil.
func NewServices(core *Core, infra *Infrastructure, logger logging.Logger) *Services {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	cfg := core.Config

	var (
		repo    question.Repository  = noStore{}
		groups  question.GroupReader = noStore{}
		metrics = prometheus.NewNopMetrics()
		pub     = events.Nop()
	)
	ingestOpts := []ingest.Option{ingest.WithLogger(logger), ingest.WithConcurrency(cfg.Pipeline.Concurrency)}
	answerOpts := []answers.Option{answers.WithLogger(logger), answers.WithExtractor(pdf.NewExtractor(logger))}
	classifyOpts := []classify.Option{classify.WithLogger(logger)}

	if infra != nil {
		repo, groups = infra.Repository(), infra.Repository()
		metrics = infra.Metrics
		pub = infra.Events(cfg.Pipeline.PublishEvents)

		if cache := infra.GroupCache(); cache != nil {
			groups = cache
			ingestOpts = append(ingestOpts, ingest.WithCache(cache))
			answerOpts = append(answerOpts, answers.WithCache(cache))
			classifyOpts = append(classifyOpts, classify.WithCache(cache))
		}
		if locks := infra.Locks(); locks != nil {
			ingestOpts = append(ingestOpts, ingest.WithLocker(locks))
		}
		if sources := infra.Sources(); sources != nil {
			answerOpts = append(answerOpts, answers.WithSourceStore(sources))
		}
	}
	ingestOpts = append(ingestOpts, ingest.WithMetrics(metrics), ingest.WithEvents(pub))
	answerOpts = append(answerOpts, answers.WithMetrics(metrics), answers.WithEvents(pub))
	classifyOpts = append(classifyOpts, classify.WithMetrics(metrics), classify.WithEvents(pub))

	return &Services{
		Ingest: ingest.NewService(repo, core.Splitter, ingestOpts...),
		Query:  query.NewService(repo, groups, core.Catalog, core.Registry, logger),
		Answers: answers.NewService(repo, core.Numbers, core.Catalog, answers.Config{
			Overwrite:    cfg.Pipeline.OverwriteAnswers,
			KeyNumbering: cfg.Pipeline.KeyNumbering,
		}, answerOpts...),
		Classify: classify.NewService(repo, core.Reconciler, classifyOpts...),
	}
}

// noStore answers every storage call with ServiceUnavailable.
type noStore struct{}

func errNoStore() error {
	return errors.New(errors.ErrCodeServiceUnavailable, "question store is not configured")
}

func (noStore) Upsert(context.Context, []question.Part) (question.UpsertResult, error) {
	return question.UpsertResult{}, errNoStore()
}
func (noStore) Get(context.Context, question.Identity) (*question.Part, error) {
	return nil, errNoStore()
}
func (noStore) ListByQuestion(context.Context, question.Key) ([]question.Part, error) {
	return nil, errNoStore()
}
func (noStore) List(context.Context, question.Filter) ([]question.Part, error) {
	return nil, errNoStore()
}
func (noStore) UpdateAnswer(context.Context, question.Identity, string, string, bool) (bool, error) {
	return false, errNoStore()
}
func (noStore) UpdateTags(context.Context, question.Identity, question.Tags) (bool, error) {
	return false, errNoStore()
}
func (noStore) GetGroup(context.Context, question.Key) (question.Group, error) {
	return question.Group{}, errNoStore()
}

//Personal.AI order the ending
