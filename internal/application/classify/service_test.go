package classify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/QuestionBank/internal/domain/classification"
	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/domain/taxonomy"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/QuestionBank/internal/testutil"
	apperrors "github.com/turtacn/QuestionBank/pkg/errors"
)

func newReconciler(t *testing.T) *classification.Reconciler {
	t.Helper()
	entries := []taxonomy.Entry{
		{Label: "Fractions", Category: taxonomy.CategoryTopic},
		{Label: "Ratio", Category: taxonomy.CategoryTopic},
		{Label: "Before-After", Category: taxonomy.CategoryHeuristic},
		{Label: "Supposition", Category: taxonomy.CategoryHeuristic},
	}
	reg, err := taxonomy.NewRegistry(entries,
		taxonomy.WithAliases(taxonomy.CategoryHeuristic, map[string]string{"Guess & Check": "Supposition"}))
	require.NoError(t, err)
	r, err := classification.NewReconciler(reg, classification.DefaultConfig())
	require.NoError(t, err)
	return r
}

func conf(v float64) *float64 { return &v }

var partID = question.Identity{
	Key:        question.Key{School: "Nanyang", Year: 2024, Section: "P2", QuestionNum: 6},
	PartLetter: "a",
}

func TestApplyOne_StoresConfidentResult(t *testing.T) {
	repo := &testutil.MockQuestionRepo{}
	repo.On("UpdateTags", mock.Anything, partID, question.Tags{
		Topics: []string{"Fractions"}, Heuristics: []string{"Supposition"}, Confidence: 0.9,
	}).Return(true, nil)
	pub := &testutil.RecordingPublisher{}
	svc := NewService(repo, newReconciler(t), WithEvents(pub))

	out, err := svc.ApplyOne(context.Background(), Item{Identity: partID, Proposal: classification.Proposal{
		Topics: []string{"fractions"}, Heuristics: []string{"Guess & Check"}, Confidence: conf(0.9),
	}})
	require.NoError(t, err)
	assert.True(t, out.Stored)
	assert.False(t, out.Result.NeedsReview)
	assert.Empty(t, pub.Events())
	repo.AssertExpectations(t)
}

func TestApplyOne_ReviewEvent(t *testing.T) {
	repo := &testutil.MockQuestionRepo{}
	repo.On("UpdateTags", mock.Anything, partID, mock.Anything).Return(true, nil)
	pub := &testutil.RecordingPublisher{}
	svc := NewService(repo, newReconciler(t), WithEvents(pub))

	out, err := svc.ApplyOne(context.Background(), Item{Identity: partID, Proposal: classification.Proposal{
		Topics: []string{"Astrophysics"},
	}})
	require.NoError(t, err)
	assert.True(t, out.Result.NeedsReview)

	evs := pub.OfType(question.EventReviewRequired)
	require.Len(t, evs, 1)
	ev := evs[0].(*question.ReviewRequiredEvent)
	assert.Equal(t, partID, ev.Identity)
	assert.Contains(t, ev.Reasons, classification.ReasonMissingConfidence)
	assert.Contains(t, ev.Reasons, classification.ReasonNoTopics)
}

func TestApplyOne_ManuallyEditedIsSkipped(t *testing.T) {
	repo := &testutil.MockQuestionRepo{}
	repo.On("UpdateTags", mock.Anything, partID, mock.Anything).Return(false, nil)
	repo.On("Get", mock.Anything, partID).Return(&question.Part{Identity: partID, ManuallyEdited: true}, nil)
	pub := &testutil.RecordingPublisher{}
	svc := NewService(repo, newReconciler(t), WithEvents(pub))

	out, err := svc.ApplyOne(context.Background(), Item{Identity: partID, Proposal: classification.Proposal{
		Topics: []string{"Ratio"},
	}})
	require.NoError(t, err)
	assert.False(t, out.Stored)
	assert.NoError(t, out.Err)
	assert.Empty(t, pub.Events(), "skipped rows raise no review event")
}

func TestApplyOne_MissingPart(t *testing.T) {
	repo := &testutil.MockQuestionRepo{}
	repo.On("UpdateTags", mock.Anything, partID, mock.Anything).Return(false, nil)
	repo.On("Get", mock.Anything, partID).Return(nil, apperrors.New(apperrors.CodeQuestionNotFound, "question part not found"))
	svc := NewService(repo, newReconciler(t))

	out, err := svc.ApplyOne(context.Background(), Item{Identity: partID})
	require.NoError(t, err)
	assert.False(t, out.Stored)
	assert.True(t, apperrors.IsNotFound(out.Err))
}

func TestApply_StopsAtStorageFailure(t *testing.T) {
	repo := &testutil.MockQuestionRepo{}
	other := partID
	other.PartLetter = "b"
	repo.On("UpdateTags", mock.Anything, partID, mock.Anything).Return(true, nil)
	repo.On("UpdateTags", mock.Anything, other, mock.Anything).
		Return(false, apperrors.New(apperrors.CodeDatabaseError, "down"))
	svc := NewService(repo, newReconciler(t))

	outs, err := svc.Apply(context.Background(), []Item{{Identity: partID}, {Identity: other}, {Identity: partID}})
	require.Error(t, err)
	assert.Len(t, outs, 1)
	repo.AssertNumberOfCalls(t, "UpdateTags", 2)
}

func TestApplyOne_NoRepository(t *testing.T) {
	svc := NewService(nil, newReconciler(t))
	_, err := svc.ApplyOne(context.Background(), Item{Identity: partID})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeServiceUnavailable))
}

func TestReconcile_RecordsLabelMetrics(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, nil)
	require.NoError(t, err)
	svc := NewService(nil, newReconciler(t), WithMetrics(prometheus.NewQBankMetrics(collector)))

	results := svc.ReconcileAll([]classification.Proposal{
		{Topics: []string{"Ratio", "Astrophysics"}, Heuristics: []string{"Guess & Check"}, Confidence: conf(0.95)},
		{Topics: []string{"Fractions"}, Confidence: conf(0.8)},
	})
	require.Len(t, results, 2)
	assert.True(t, results[0].NeedsReview)
	assert.False(t, results[1].NeedsReview)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `test_label_corrections_total{category="heuristic",kind="alias"} 1`)
	assert.Contains(t, body, `test_labels_dropped_total{category="topic",reason="unmatched"} 1`)
}

//Personal.AI order the ending
