// Package answers binds answer-key entries to stored question parts and
// imports answer keys from PDF scans.
package answers

import (
	"bytes"
	"context"
	"io"
	"strconv"

	"github.com/turtacn/QuestionBank/internal/application/events"
	"github.com/turtacn/QuestionBank/internal/domain/answerkey"
	"github.com/turtacn/QuestionBank/internal/domain/numbering"
	"github.com/turtacn/QuestionBank/internal/domain/paper"
	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/QuestionBank/internal/infrastructure/storage/minio"
	"github.com/turtacn/QuestionBank/pkg/errors"
	"github.com/turtacn/QuestionBank/pkg/types/common"
)

// Key numbering modes.
const (
	NumberingCanonical = "canonical"
	NumberingPrinted   = "printed"
)

// Extractor turns PDF bytes into page text.
type Extractor interface {
	Extract(data []byte) ([]answerkey.Page, error)
}

// SourceStore keeps the uploaded scans.
type SourceStore interface {
	Put(ctx context.Context, meta minio.SourceMeta, r io.Reader) (minio.SourceObject, error)
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Invalidator drops cached question groups.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...question.Key) error
}

// Config is the binding policy.
type Config struct {
	// Overwrite replaces existing answers. By default only empty answers
	// are filled.
	Overwrite bool
	// KeyNumbering is NumberingCanonical or NumberingPrinted.
	KeyNumbering string
}

// BindRequest binds candidates to the stored parts of one paper. Section
// narrows the parts; empty means every section of the year.
type BindRequest struct {
	School     string                `json:"school"`
	Year       int                   `json:"year"`
	Section    string                `json:"section,omitempty"`
	Candidates []answerkey.Candidate `json:"candidates"`
	Overwrite  *bool                 `json:"overwrite,omitempty"`
}

// BindResult reports a Bind call.
type BindResult struct {
	Report    answerkey.Report    `json:"report"`
	Updated   int                 `json:"updated"`
	Unchanged int                 `json:"unchanged"`
	Missing   []question.Identity `json:"missing"`
}

// ImportRequest names a scan by object key or carries its bytes. Store
// uploads carried bytes to the source store first.
type ImportRequest struct {
	School         string
	Year           int
	DefaultSection string
	SourceKey      string
	Data           []byte
	Filename       string
	Store          bool
	Overwrite      *bool
}

// ImportResult reports an Import call.
type ImportResult struct {
	BindResult
	Source     *minio.SourceObject   `json:"source,omitempty"`
	Pages      int                   `json:"pages"`
	Candidates []answerkey.Candidate `json:"candidates"`
}

type Service struct {
	repo      question.Repository
	numbers   *numbering.Normalizer
	catalog   *paper.Catalog
	cfg       Config
	extractor Extractor
	sources   SourceStore
	cache     Invalidator
	events    events.Publisher
	metrics   *prometheus.QBankMetrics
	logger    logging.Logger
}

type Option func(*Service)

func WithExtractor(e Extractor) Option { return func(s *Service) { s.extractor = e } }

func WithSourceStore(st SourceStore) Option { return func(s *Service) { s.sources = st } }

func WithCache(c Invalidator) Option { return func(s *Service) { s.cache = c } }

func WithEvents(p events.Publisher) Option { return func(s *Service) { s.events = p } }

func WithMetrics(m *prometheus.QBankMetrics) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(l logging.Logger) Option { return func(s *Service) { s.logger = l } }

func NewService(repo question.Repository, numbers *numbering.Normalizer, catalog *paper.Catalog, cfg Config, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		numbers: numbers,
		catalog: catalog,
		cfg:     cfg,
		events:  events.Nop(),
		metrics: prometheus.NewNopMetrics(),
		logger:  logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.Named("answers")
	return s
}

func (s *Service) matcher(school string) *answerkey.Matcher {
	if s.cfg.KeyNumbering == NumberingPrinted {
		return answerkey.NewMatcher(answerkey.WithPrintedNumbers(s.numbers, school))
	}
	return answerkey.NewMatcher()
}

// Match binds candidates to parts in memory.
func (s *Service) Match(school string, candidates []answerkey.Candidate, parts []question.Part) answerkey.Report {
	return s.matcher(school).Match(candidates, parts)
}

// Bind matches candidates against the stored parts of a paper and writes
// the answers. Parts without a candidate are reported and announced with an
// answer-missing event.
func (s *Service) Bind(ctx context.Context, req BindRequest) (*BindResult, error) {
	if req.School == "" || req.Year <= 0 {
		return nil, errors.InvalidParam("bind needs a school and a year")
	}
	parts, err := s.repo.List(ctx, question.Filter{
		School:  req.School,
		Year:    req.Year,
		Section: numbering.CanonicalSection(req.Section),
	})
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, errors.New(errors.CodeQuestionNotFound, "no stored parts for paper").
			WithDetailf("school=%s year=%d section=%s", req.School, req.Year, req.Section)
	}

	overwrite := s.cfg.Overwrite
	if req.Overwrite != nil {
		overwrite = *req.Overwrite
	}

	report := s.Match(req.School, req.Candidates, parts)
	res := &BindResult{Report: report}
	for _, u := range report.Unparsable {
		s.metrics.AnswerKeyRejectTotal.WithLabelValues(errors.GetCode(u.Err).String()).Inc()
		s.logger.Warn("answer key entry rejected", logging.String("raw_key", u.Candidate.RawKey), logging.Err(u.Err))
	}

	var (
		changed []question.Key
		evs     []common.DomainEvent
	)
	defer func() { s.invalidate(ctx, changed) }()
	for _, r := range report.Results {
		s.metrics.AnswerMatchesTotal.WithLabelValues(string(r.Kind)).Inc()
		if r.Candidate == nil {
			res.Missing = append(res.Missing, r.Part)
			evs = append(evs, question.NewAnswerMissingEvent(r.Part))
			continue
		}
		value := s.answerValue(r.Part, r.Candidate.Value)
		ok, err := s.repo.UpdateAnswer(ctx, r.Part, value, r.Candidate.WorkedSolution, overwrite)
		if err != nil {
			return res, err
		}
		if ok {
			res.Updated++
			changed = append(changed, r.Part.Key)
		} else {
			res.Unchanged++
		}
	}

	events.PublishBestEffort(ctx, s.events, s.logger, evs...)

	exact, partial, none := report.Counts()
	s.logger.Info("answers bound",
		logging.String("school", req.School),
		logging.Int("year", req.Year),
		logging.Int("exact", exact),
		logging.Int("partial", partial),
		logging.Int("missing", none),
		logging.Int("updated", res.Updated))
	return res, nil
}

// invalidate drops cached groups of parts whose answers were written, also
// when a later write failed.
func (s *Service) invalidate(ctx context.Context, keys []question.Key) {
	if s.cache == nil || len(keys) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Warn("cache invalidation failed", logging.Int("keys", len(keys)), logging.Err(err))
	}
}

// answerValue normalizes MCQ answers to an option letter.
func (s *Service) answerValue(id question.Identity, value string) string {
	if s.catalog == nil {
		return value
	}
	st, err := s.catalog.Lookup(id.Section)
	if err != nil || !st.IsMCQ(id.QuestionNum) {
		return value
	}
	if v, ok := answerkey.NormalizeMCQ(value); ok {
		return v
	}
	return value
}

// Import extracts an answer key PDF, parses its entries and binds them.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	if s.extractor == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "pdf extraction is not configured")
	}
	res := &ImportResult{}
	data, err := s.loadSource(ctx, req, res)
	if err != nil {
		return nil, err
	}

	pages, err := s.extractor.Extract(data)
	if err != nil {
		return nil, err
	}
	res.Pages = len(pages)
	res.Candidates = answerkey.ParseText(pages, answerkey.ParseOptions{
		DefaultSection: numbering.CanonicalSection(req.DefaultSection),
		IsMCQ:          s.isMCQFunc(req.School),
	})
	if len(res.Candidates) == 0 {
		return res, errors.New(errors.CodePDFExtraction, "no answer entries found in answer key").
			WithDetailf("pages=%d", len(pages))
	}
	s.logger.Info("answer key parsed", logging.Int("pages", len(pages)), logging.Int("candidates", len(res.Candidates)))

	bound, err := s.Bind(ctx, BindRequest{
		School:     req.School,
		Year:       req.Year,
		Candidates: res.Candidates,
		Overwrite:  req.Overwrite,
	})
	if bound != nil {
		res.BindResult = *bound
	}
	return res, err
}

func (s *Service) loadSource(ctx context.Context, req ImportRequest, res *ImportResult) ([]byte, error) {
	switch {
	case len(req.Data) > 0:
		if req.Store {
			if s.sources == nil {
				return nil, errors.New(errors.ErrCodeServiceUnavailable, "object storage is not configured")
			}
			obj, err := s.sources.Put(ctx, minio.SourceMeta{
				School:   req.School,
				Year:     req.Year,
				Kind:     minio.KindAnswerKey,
				Filename: req.Filename,
			}, bytes.NewReader(req.Data))
			if err != nil {
				return nil, err
			}
			res.Source = &obj
		}
		return req.Data, nil
	case req.SourceKey != "":
		if s.sources == nil {
			return nil, errors.New(errors.ErrCodeServiceUnavailable, "object storage is not configured")
		}
		data, err := s.sources.Fetch(ctx, req.SourceKey)
		if err != nil {
			return nil, err
		}
		res.Source = &minio.SourceObject{Key: req.SourceKey, Size: int64(len(data))}
		return data, nil
	}
	return nil, errors.InvalidParam("answer key import needs a file or an object key")
}

// isMCQFunc answers ParseText's MCQ question for printed numbers.
func (s *Service) isMCQFunc(school string) func(section string, number int) bool {
	if s.catalog == nil {
		return nil
	}
	return func(section string, number int) bool {
		st, err := s.catalog.Lookup(section)
		if err != nil {
			return false
		}
		if s.cfg.KeyNumbering == NumberingPrinted && s.numbers != nil {
			num, err := s.numbers.Normalize(school, section, strconv.Itoa(number))
			if err != nil {
				return false
			}
			number = num.Canonical
		}
		return st.IsMCQ(number)
	}
}

//Personal.AI order the ending
