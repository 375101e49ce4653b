package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/turtacn/QuestionBank/internal/application/classify"
	"github.com/turtacn/QuestionBank/internal/config"
	"github.com/turtacn/QuestionBank/internal/domain/classification"
	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/prometheus"
	apperrors "github.com/turtacn/QuestionBank/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeApplier struct {
	mu       sync.Mutex
	seen     []question.Identity
	fail     map[string]error
	missing  map[string]bool
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeApplier) ApplyOne(_ context.Context, it classify.Item) (classify.Outcome, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	f.mu.Lock()
	f.seen = append(f.seen, it.Identity)
	f.mu.Unlock()

	if err := f.fail[it.Identity.String()]; err != nil {
		return classify.Outcome{}, err
	}
	out := classify.Outcome{Identity: it.Identity, Stored: true}
	if f.missing[it.Identity.String()] {
		out.Stored = false
		out.Err = apperrors.NotFound("question part")
	}
	return out, nil
}

func (f *fakeApplier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

type fakeConsumer struct {
	topic   string
	handler kafka.Handler
	queue   []*kafka.Message
	errs    []error
}

func (c *fakeConsumer) Subscribe(topic string, h kafka.Handler) {
	c.topic = topic
	c.handler = h
}

func (c *fakeConsumer) Run(ctx context.Context) error {
	for _, m := range c.queue {
		c.errs = append(c.errs, c.handler(ctx, m))
	}
	<-ctx.Done()
	return nil
}

func id(num int, letter string) question.Identity {
	return question.Identity{
		Key:        question.Key{School: "Nanyang", Year: 2024, Section: "P2", QuestionNum: num},
		PartLetter: letter,
	}
}

func proposalMessage(t *testing.T, payload interface{}) *kafka.Message {
	t.Helper()
	env, err := kafka.NewEnvelope(kafka.TopicClassificationProposed, payload)
	require.NoError(t, err)
	msg, err := env.ToMessage(kafka.TopicClassificationProposed)
	require.NoError(t, err)
	return msg
}

func batchOf(n int) ProposalBatch {
	var b ProposalBatch
	for i := 1; i <= n; i++ {
		b.Items = append(b.Items, classify.Item{Identity: id(i, ""), Proposal: classification.Proposal{Topics: []string{"Ratio"}}})
	}
	return b
}

func TestHandle_SingleItem(t *testing.T) {
	app := &fakeApplier{}
	w := New(&fakeConsumer{}, app, "", config.WorkerConfig{}, nil, nil)

	item := classify.Item{Identity: id(6, "a")}
	item.Identity.Section = "p2"
	item.Identity.PartLetter = "(A)"
	require.NoError(t, w.Handle(context.Background(), proposalMessage(t, item)))
	require.Equal(t, 1, app.calls())
	assert.Equal(t, id(6, "a"), app.seen[0], "section and letter are canonicalized")
}

func TestHandle_BatchRespectsConcurrency(t *testing.T) {
	app := &fakeApplier{}
	w := New(&fakeConsumer{}, app, "", config.WorkerConfig{Concurrency: 3, BatchSize: 4, HandlerTimeout: time.Second}, nil, nil)

	require.NoError(t, w.Handle(context.Background(), proposalMessage(t, batchOf(10))))
	assert.Equal(t, 10, app.calls())
	assert.LessOrEqual(t, app.peak.Load(), int32(3))
}

func TestHandle_StorageFailureIsReturned(t *testing.T) {
	app := &fakeApplier{fail: map[string]error{
		id(2, "").String(): apperrors.New(apperrors.CodeDatabaseError, "down"),
	}}
	w := New(&fakeConsumer{}, app, "", config.WorkerConfig{Concurrency: 1, BatchSize: 2}, nil, nil)

	err := w.Handle(context.Background(), proposalMessage(t, batchOf(6)))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeDatabaseError))
	assert.Equal(t, 2, app.calls(), "later batches are not started")
}

func TestHandle_MissingPartIsNotAnError(t *testing.T) {
	app := &fakeApplier{missing: map[string]bool{id(1, "").String(): true}}
	w := New(&fakeConsumer{}, app, "", config.WorkerConfig{}, nil, nil)
	assert.NoError(t, w.Handle(context.Background(), proposalMessage(t, batchOf(2))))
}

func TestHandle_MalformedEnvelope(t *testing.T) {
	tests := []struct {
		name string
		msg  *kafka.Message
	}{
		{name: "empty value", msg: &kafka.Message{Topic: kafka.TopicClassificationProposed}},
		{name: "not json", msg: &kafka.Message{Topic: kafka.TopicClassificationProposed, Value: []byte("{")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &fakeApplier{}
			w := New(&fakeConsumer{}, app, "", config.WorkerConfig{}, nil, nil)
			assert.Error(t, w.Handle(context.Background(), tt.msg))
			assert.Zero(t, app.calls())
		})
	}
}

func TestProcess_BadItemsDoNotBlockSiblings(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, nil)
	require.NoError(t, err)
	app := &fakeApplier{}
	w := New(&fakeConsumer{}, app, "", config.WorkerConfig{Concurrency: 2}, prometheus.NewQBankMetrics(collector), nil)

	batch := ProposalBatch{Items: []classify.Item{
		{Identity: id(1, "")},
		{},
		{Identity: id(2, "B")},
		{Identity: id(3, "ab")},
	}}
	outcomes, err := w.Process(context.Background(), proposalMessage(t, batch))
	require.NoError(t, err)
	require.Len(t, outcomes, 4)

	assert.Equal(t, 2, app.calls())
	assert.True(t, outcomes[0].Stored)
	assert.Equal(t, id(1, ""), outcomes[0].Identity)
	assert.True(t, outcomes[2].Stored)
	assert.Equal(t, id(2, "b"), outcomes[2].Identity)

	assert.False(t, outcomes[1].Stored)
	assert.True(t, apperrors.IsCode(outcomes[1].Err, apperrors.CodeValidation))
	assert.False(t, outcomes[3].Stored)
	assert.True(t, apperrors.IsCode(outcomes[3].Err, apperrors.CodeInvalidPartLetter))

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `test_classifications_total{outcome="malformed"} 2`)
	assert.Contains(t, body, `test_worker_messages_total{status="ok",topic="qbank.classification.proposed"} 1`)
}

func TestHandle_OnlyMalformedItemsIsNotRetried(t *testing.T) {
	app := &fakeApplier{}
	w := New(&fakeConsumer{}, app, "", config.WorkerConfig{}, nil, nil)

	assert.NoError(t, w.Handle(context.Background(), proposalMessage(t, classify.Item{})))
	assert.Zero(t, app.calls())
}

func TestRun_SubscribesAndStopsOnCancel(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test"}, nil)
	require.NoError(t, err)
	app := &fakeApplier{}
	consumer := &fakeConsumer{queue: []*kafka.Message{proposalMessage(t, batchOf(3))}}
	w := New(consumer, app, "custom.proposals", config.WorkerConfig{Concurrency: 2}, prometheus.NewQBankMetrics(collector), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	require.Eventually(t, func() bool { return app.calls() == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, "custom.proposals", consumer.topic)
	require.Len(t, consumer.errs, 1)
	assert.NoError(t, consumer.errs[0])

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `test_worker_messages_total{status="ok",topic="qbank.classification.proposed"} 1`)
}

//Personal.AI order the ending
