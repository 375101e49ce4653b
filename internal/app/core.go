// Package app assembles QuestionBank from configuration. The qbank CLI, the
// API server and the classification worker all start here.
package app

import (
	"strings"

	"github.com/turtacn/QuestionBank/internal/config"
	"github.com/turtacn/QuestionBank/internal/domain/classification"
	"github.com/turtacn/QuestionBank/internal/domain/numbering"
	"github.com/turtacn/QuestionBank/internal/domain/paper"
	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/domain/taxonomy"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// Core holds the pure domain objects. Building it touches only the taxonomy
// file; nothing here needs a network connection.
type Core struct {
	Config     *config.Config
	Registry   *taxonomy.Registry
	Numbers    *numbering.Normalizer
	Catalog    *paper.Catalog
	Splitter   *question.Splitter
	Reconciler *classification.Reconciler
}

// NewCore loads the vocabulary and builds the numbering, paper and
// classification objects described by cfg.
func NewCore(cfg *config.Config) (*Core, error) {
	reg, err := LoadRegistry(cfg.Taxonomy)
	if err != nil {
		return nil, err
	}
	return NewCoreWithRegistry(cfg, reg)
}

// NewCoreWithRegistry is NewCore with an already loaded vocabulary.
func NewCoreWithRegistry(cfg *config.Config, reg *taxonomy.Registry) (*Core, error) {
	structures := cfg.Papers.Sections
	if len(structures) == 0 {
		structures = paper.DefaultStructures()
	}
	catalog, err := paper.NewCatalog(structures)
	if err != nil {
		return nil, err
	}

	configured, err := cfg.NumberingRules()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidNumberingRule, "invalid numbering rules")
	}
	numbers, err := numbering.NewNormalizer(MergeRules(catalog.NumberingRules(), configured))
	if err != nil {
		return nil, err
	}

	reconciler, err := classification.NewReconciler(reg, cfg.Classification)
	if err != nil {
		return nil, err
	}

	return &Core{
		Config:     cfg,
		Registry:   reg,
		Numbers:    numbers,
		Catalog:    catalog,
		Splitter:   question.NewSplitter(numbers),
		Reconciler: reconciler,
	}, nil
}

// LoadRegistry reads the vocabulary file with the configured matcher.
func LoadRegistry(cfg config.TaxonomyConfig) (*taxonomy.Registry, error) {
	metric, err := taxonomy.ParseSimilarityMetric(cfg.Similarity)
	if err != nil {
		return nil, err
	}
	sim, err := taxonomy.NewSimilarity(metric)
	if err != nil {
		return nil, err
	}
	opts := []taxonomy.Option{taxonomy.WithSimilarity(sim)}
	if cfg.FuzzyThreshold > 0 {
		opts = append(opts, taxonomy.WithThreshold(cfg.FuzzyThreshold))
	}
	return taxonomy.LoadFile(cfg.Path, opts...)
}

// MergeRules lays configured rules over the section defaults. A configured
// rule replaces the default with the same school and section.
func MergeRules(defaults, configured []numbering.Rule) []numbering.Rule {
	type key struct{ school, section string }
	keyOf := func(r numbering.Rule) key {
		return key{school: strings.Join(strings.Fields(r.School), " "), section: numbering.CanonicalSection(r.Section)}
	}

	seen := make(map[key]bool, len(configured))
	for _, r := range configured {
		seen[keyOf(r)] = true
	}
	out := make([]numbering.Rule, 0, len(defaults)+len(configured))
	for _, r := range defaults {
		if !seen[keyOf(r)] {
			out = append(out, r)
		}
	}
	return append(out, configured...)
}

//Personal.AI order the ending
