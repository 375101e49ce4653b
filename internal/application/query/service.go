// Package query serves read-side views of the bank: merged question groups,
// paper validation and the stored tag audit.
package query

import (
	"context"

	"github.com/turtacn/QuestionBank/internal/domain/numbering"
	"github.com/turtacn/QuestionBank/internal/domain/paper"
	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/domain/taxonomy"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// auditPageSize bounds each List call of a tag audit.
const auditPageSize = 500

type Service struct {
	repo     question.Repository
	groups   question.GroupReader
	catalog  *paper.Catalog
	registry *taxonomy.Registry
	logger   logging.Logger
}

// NewService reads groups through groups, which is usually the cache in
// front of the repository.
func NewService(repo question.Repository, groups question.GroupReader, catalog *paper.Catalog, registry *taxonomy.Registry, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{repo: repo, groups: groups, catalog: catalog, registry: registry, logger: logger.Named("query")}
}

// GetGroup returns every part of a question merged.
func (s *Service) GetGroup(ctx context.Context, key question.Key) (question.Group, error) {
	if key.School == "" || key.Year <= 0 || key.QuestionNum <= 0 {
		return question.Group{}, errors.InvalidParam("question key needs school, year and a positive number").
			WithDetail(key.String())
	}
	key.Section = numbering.CanonicalSection(key.Section)
	return s.groups.GetGroup(ctx, key)
}

func (s *Service) ListParts(ctx context.Context, f question.Filter) ([]question.Part, error) {
	f.Section = numbering.CanonicalSection(f.Section)
	return s.repo.List(ctx, f)
}

// Summaries folds parts into per-part summaries; the validator sums the
// marks of parts sharing a question.
func Summaries(parts []question.Part) []paper.QuestionSummary {
	out := make([]paper.QuestionSummary, 0, len(parts))
	for _, p := range parts {
		out = append(out, paper.QuestionSummary{
			Section:     p.Section,
			QuestionNum: p.QuestionNum,
			Marks:       p.Marks,
			HasText:     p.Text != "" || p.MainContext != "",
			HasAnswer:   p.Answer != "",
		})
	}
	return out
}

// ValidatePaper checks the stored questions of one school and year against
// the paper structures.
func (s *Service) ValidatePaper(ctx context.Context, school string, year int, opts paper.ValidateOptions) (paper.Report, error) {
	if school == "" || year <= 0 {
		return paper.Report{}, errors.InvalidParam("paper validation needs a school and a year")
	}
	parts, err := s.repo.List(ctx, question.Filter{School: school, Year: year})
	if err != nil {
		return paper.Report{}, err
	}
	if len(parts) == 0 {
		return paper.Report{}, errors.New(errors.CodeQuestionNotFound, "no stored parts for paper").
			WithDetailf("school=%s year=%d", school, year)
	}
	report := s.catalog.Validate(Summaries(parts), opts)
	s.logger.Info("paper validated",
		logging.String("school", school),
		logging.Int("year", year),
		logging.Int("issues", len(report.Issues)),
		logging.Int("warnings", len(report.Warnings)))
	return report, nil
}

// AuditTags re-checks the stored tags of the parts matching f against the
// current vocabulary. Limit and Offset of f are ignored; every match is read
// page by page.
func (s *Service) AuditTags(ctx context.Context, f question.Filter) (taxonomy.AuditReport, error) {
	f.Section = numbering.CanonicalSection(f.Section)
	f.Limit = auditPageSize
	var items []taxonomy.TaggedItem
	for f.Offset = 0; ; f.Offset += auditPageSize {
		parts, err := s.repo.List(ctx, f)
		if err != nil {
			return taxonomy.AuditReport{}, err
		}
		for _, p := range parts {
			items = append(items, taxonomy.TaggedItem{Ref: p.Identity.String(), Topics: p.Topics, Heuristics: p.Heuristics})
		}
		if len(parts) < auditPageSize {
			break
		}
	}
	report := s.registry.Audit(items)
	if len(report.Invalid) > 0 {
		s.logger.Warn("stored tags outside vocabulary", logging.Int("invalid", len(report.Invalid)))
	}
	return report, nil
}

//Personal.AI order the ending
