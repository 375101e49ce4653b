// Package ingest turns extracted question payloads into stored parts.
package ingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/QuestionBank/internal/application/events"
	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/infrastructure/database/redis"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/QuestionBank/pkg/errors"
	"github.com/turtacn/QuestionBank/pkg/types/common"
)

// Locker hands out one mutex per paper. The redis LockFactory implements it.
type Locker interface {
	NewMutex(name string, opts ...redis.LockOption) redis.Mutex
}

// Invalidator drops cached question groups.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...question.Key) error
}

// Result reports one Ingest call.
type Result struct {
	question.UpsertResult
	Parts    int                    `json:"parts"`
	Rejected []question.RecordError `json:"-"`
}

// Service splits payloads and upserts the parts paper by paper.
type Service struct {
	repo     question.Repository
	splitter *question.Splitter
	locks    Locker
	cache    Invalidator
	events   events.Publisher
	metrics  *prometheus.QBankMetrics
	logger   logging.Logger

	concurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithLocker serializes concurrent imports of the same paper.
func WithLocker(l Locker) Option { return func(s *Service) { s.locks = l } }

// WithCache invalidates cached groups after writes.
func WithCache(c Invalidator) Option { return func(s *Service) { s.cache = c } }

func WithEvents(p events.Publisher) Option { return func(s *Service) { s.events = p } }

func WithMetrics(m *prometheus.QBankMetrics) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(l logging.Logger) Option { return func(s *Service) { s.logger = l } }

// WithConcurrency stores up to n papers at once. Parts of one paper are
// always written by a single call.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func NewService(repo question.Repository, splitter *question.Splitter, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		splitter: splitter,
		events:   events.Nop(),
		metrics:  prometheus.NewNopMetrics(),
		logger:   logging.NewNopLogger(),

		concurrency: 1,
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.Named("ingest")
	return s
}

// Split converts payloads without storing anything.
func (s *Service) Split(payloads []question.Payload) ([]question.Part, []question.RecordError) {
	return s.splitter.SplitBatch(payloads)
}

// Ingest splits payloads, stores the accepted parts and reports rejected
// records next to the counts. Rejected payloads never block the others; a
// storage failure aborts the papers not yet started.
func (s *Service) Ingest(ctx context.Context, payloads []question.Payload) (*Result, error) {
	parts, rejected := s.splitter.SplitBatch(payloads)
	res := &Result{Parts: len(parts), Rejected: rejected}
	for _, re := range rejected {
		s.metrics.NumberingErrorsTotal.WithLabelValues(errors.GetCode(re.Err).String()).Inc()
		s.logger.Warn("payload rejected", logging.Int("index", re.Index), logging.String("ref", re.Ref), logging.Err(re.Err))
	}

	batches := byPaper(parts)
	results := make([]question.UpsertResult, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			ur, err := s.upsertPaper(gctx, batch)
			if err != nil {
				return err
			}
			s.metrics.IngestDuration.WithLabelValues(batch.section).Observe(time.Since(start).Seconds())
			results[i] = ur
			return nil
		})
	}
	err := g.Wait()

	var written []question.Part
	for i, ur := range results {
		res.Inserted += ur.Inserted
		res.Updated += ur.Updated
		res.Skipped += ur.Skipped
		if ur != (question.UpsertResult{}) {
			written = append(written, batches[i].parts...)
		}
	}
	s.metrics.RecordIngest(res.Inserted, res.Updated, res.Skipped, len(rejected))

	// Papers stored before a failure are committed; their cached groups are
	// stale either way.
	s.invalidate(ctx, written)
	evs := make([]common.DomainEvent, 0, len(written))
	for _, p := range written {
		evs = append(evs, question.NewPartUpsertedEvent(p))
	}
	events.PublishBestEffort(ctx, s.events, s.logger, evs...)
	if err != nil {
		return res, err
	}

	s.logger.Info("ingest finished",
		logging.Int("payloads", len(payloads)),
		logging.Int("inserted", res.Inserted),
		logging.Int("updated", res.Updated),
		logging.Int("skipped", res.Skipped),
		logging.Int("rejected", len(rejected)))
	return res, nil
}

type paperBatch struct {
	school  string
	year    int
	section string
	parts   []question.Part
}

func (b paperBatch) lockName() string {
	return fmt.Sprintf("ingest:%s:%d:%s", b.school, b.year, b.section)
}

// byPaper groups parts by (school, year, section), sorted, keeping part order
// within a paper.
func byPaper(parts []question.Part) []paperBatch {
	index := make(map[[3]string]int)
	var out []paperBatch
	for _, p := range parts {
		k := [3]string{p.School, fmt.Sprint(p.Year), p.Section}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, paperBatch{school: p.School, year: p.Year, section: p.Section})
		}
		out[i].parts = append(out[i].parts, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.school != b.school {
			return a.school < b.school
		}
		if a.year != b.year {
			return a.year < b.year
		}
		return a.section < b.section
	})
	return out
}

func (s *Service) upsertPaper(ctx context.Context, b paperBatch) (question.UpsertResult, error) {
	if s.locks != nil {
		mu := s.locks.NewMutex(b.lockName())
		if err := mu.Lock(ctx); err != nil {
			return question.UpsertResult{}, errors.Wrap(err, errors.CodeConflict, "paper is being ingested elsewhere").
				WithDetail(b.lockName())
		}
		defer func() {
			if err := mu.Unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("unlock failed", logging.String("lock", b.lockName()), logging.Err(err))
			}
		}()
	}
	ur, err := s.repo.Upsert(ctx, b.parts)
	if err != nil {
		return question.UpsertResult{}, err
	}
	s.logger.Debug("paper stored",
		logging.String("school", b.school),
		logging.Int("year", b.year),
		logging.String("section", b.section),
		logging.Int("parts", len(b.parts)))
	return ur, nil
}

func (s *Service) invalidate(ctx context.Context, parts []question.Part) {
	if s.cache == nil || len(parts) == 0 {
		return
	}
	keys := make([]question.Key, 0, len(parts))
	for _, p := range parts {
		keys = append(keys, p.Key)
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidation failed", logging.Int("keys", len(keys)), logging.Err(err))
	}
}

//Personal.AI order the ending
