package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/QuestionBank/internal/config"
	"github.com/turtacn/QuestionBank/internal/domain/classification"
	"github.com/turtacn/QuestionBank/internal/domain/numbering"
	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/domain/taxonomy"
	apperrors "github.com/turtacn/QuestionBank/pkg/errors"
)

const vocabulary = `
topics: [Fractions, Ratio]
heuristics: [Supposition, Before-After]
aliases:
  heuristic:
    "Guess & Check": Supposition
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(vocabulary), 0o600))

	cfg := &config.Config{}
	cfg.Taxonomy.Path = path
	config.ApplyDefaults(cfg)
	return cfg
}

func TestNewCore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Numbering.Rules = []config.NumberingRuleConfig{
		{School: "Nanyang", Section: "P2", Mapping: map[string]int{"1": 21, "21": 1}},
	}

	core, err := NewCore(cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, core.Registry.Size(taxonomy.CategoryTopic))
	m, err := core.Registry.Resolve("Guess & Check", taxonomy.CategoryHeuristic)
	require.NoError(t, err)
	assert.Equal(t, "Supposition", m.Entry.Label)

	n, err := core.Numbers.Normalize("Nanyang", "p2", "1")
	require.NoError(t, err)
	assert.Equal(t, 21, n.Canonical)

	// P1B keeps its printed offset from the built-in paper structures.
	n, err = core.Numbers.Normalize("Rosyth", "P1B", "Q16")
	require.NoError(t, err)
	assert.Equal(t, 1, n.Canonical)

	assert.Equal(t, classification.DefaultConfig().ReviewThreshold, core.Reconciler.Config().ReviewThreshold)
	assert.NotNil(t, core.Splitter)
}

func TestNewCore_Errors(t *testing.T) {
	t.Run("missing vocabulary", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Taxonomy.Path = filepath.Join(t.TempDir(), "absent.yaml")
		_, err := NewCore(cfg)
		assert.True(t, apperrors.IsNotFound(err))
	})
	t.Run("bad similarity", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Taxonomy.Similarity = "cosine"
		_, err := NewCore(cfg)
		assert.Error(t, err)
	})
	t.Run("bad mapping key", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Numbering.Rules = []config.NumberingRuleConfig{{Section: "P2", Mapping: map[string]int{"one": 1}}}
		_, err := NewCore(cfg)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidNumberingRule))
	})
}

func TestMergeRules(t *testing.T) {
	defaults := []numbering.Rule{{Section: "P1B", Offset: 15}, {Section: "P2", Offset: 0}}
	configured := []numbering.Rule{
		{Section: "p1b ", Offset: 10},
		{School: "Nanyang", Section: "P1B", Offset: 20},
	}

	got := MergeRules(defaults, configured)
	assert.Equal(t, []numbering.Rule{
		{Section: "P2", Offset: 0},
		{Section: "p1b ", Offset: 10},
		{School: "Nanyang", Section: "P1B", Offset: 20},
	}, got)
}

func TestNewServices_WithoutInfrastructure(t *testing.T) {
	core, err := NewCore(testConfig(t))
	require.NoError(t, err)
	svc := NewServices(core, nil, nil)
	marks := 3

	parts, rejected := svc.Ingest.Split([]question.Payload{{
		School: "Nanyang", Year: 2024, Section: "P2", RawQuestionNumber: "6", StemText: "How many?", MarksTotal: &marks,
	}})
	require.Empty(t, rejected)
	require.Len(t, parts, 1)

	_, err = svc.Ingest.Ingest(context.Background(), []question.Payload{{
		School: "Nanyang", Year: 2024, Section: "P2", RawQuestionNumber: "6", StemText: "How many?", MarksTotal: &marks,
	}})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeServiceUnavailable))

	_, err = svc.Query.GetGroup(context.Background(), question.Key{School: "Nanyang", Year: 2024, Section: "P2", QuestionNum: 6})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeServiceUnavailable))

	res := svc.Classify.Reconcile(classification.Proposal{Topics: []string{"fractions"}})
	assert.Equal(t, []string{"Fractions"}, res.Topics)
}

func TestNewMetrics(t *testing.T) {
	collector, metrics, err := NewMetrics(config.MetricsConfig{}, nil)
	require.NoError(t, err)
	metrics.RecordIngest(1, 0, 0, 0)
	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	collector, metrics, err = NewMetrics(config.MetricsConfig{Enabled: true, Namespace: "qbtest"}, nil)
	require.NoError(t, err)
	metrics.RecordIngest(2, 1, 0, 1)
	rec = httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "qbtest_")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

//Personal.AI order the ending
