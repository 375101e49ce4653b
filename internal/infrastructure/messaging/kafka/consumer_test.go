package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/QuestionBank/internal/config"
)

// mockReader serves queued messages, then blocks until ctx is done.
type mockReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
}

func (r *mockReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *mockReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *mockReader) Close() error { return nil }

func (r *mockReader) commitCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func runConsumer(t *testing.T, c *Consumer, until func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, until, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestNewConsumer_Validation(t *testing.T) {
	_, err := NewConsumer(config.KafkaConfig{}, []string{"t"}, nil, nil)
	assert.Error(t, err)
	_, err = NewConsumer(config.KafkaConfig{Brokers: []string{"b:9092"}}, []string{"t"}, nil, nil)
	assert.Error(t, err)
	_, err = NewConsumer(config.KafkaConfig{Brokers: []string{"b:9092"}, GroupID: "g"}, nil, nil, nil)
	assert.Error(t, err)
}

func TestConsumer_DispatchesAndCommits(t *testing.T) {
	r := &mockReader{queue: []kafka.Message{
		{Topic: TopicClassificationProposed, Offset: 1, Value: []byte("a"), Headers: []kafka.Header{{Key: "event_type", Value: []byte("x")}}},
		{Topic: "unknown.topic", Offset: 2, Value: []byte("b")},
	}}
	c := NewConsumerWithReader(r, nil, RetryPolicy{}, nil)

	var got atomic.Value
	c.Subscribe(TopicClassificationProposed, func(_ context.Context, msg *Message) error {
		got.Store(msg)
		return nil
	})

	runConsumer(t, c, func() bool { return r.commitCount() == 2 })

	msg := got.Load().(*Message)
	assert.Equal(t, "a", string(msg.Value))
	assert.Equal(t, "x", msg.Headers["event_type"])
	processed, dropped := c.Counts()
	assert.Equal(t, int64(1), processed)
	assert.Zero(t, dropped)
}

func TestConsumer_RetriesThenDeadLetters(t *testing.T) {
	r := &mockReader{queue: []kafka.Message{{Topic: "t", Offset: 7, Key: []byte("k"), Value: []byte("bad")}}}
	w := &mockWriter{}
	c := NewConsumerWithReader(r, NewProducerWithWriter(w, nil), RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond}, nil)

	var calls atomic.Int32
	c.Subscribe("t", func(context.Context, *Message) error {
		calls.Add(1)
		return errors.New("unparsable proposal")
	})

	runConsumer(t, c, func() bool { return r.commitCount() == 1 })

	assert.Equal(t, int32(3), calls.Load())
	dl := w.messages()
	require.Len(t, dl, 1)
	assert.Equal(t, TopicDeadLetter, dl[0].Topic)
	headers := map[string]string{}
	for _, h := range dl[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "t", headers["original_topic"])
	assert.Equal(t, "unparsable proposal", headers["error_message"])
	_, dropped := c.Counts()
	assert.Equal(t, int64(1), dropped)
}

func TestConsumer_RetrySucceeds(t *testing.T) {
	r := &mockReader{queue: []kafka.Message{{Topic: "t", Value: []byte("v")}}}
	c := NewConsumerWithReader(r, nil, RetryPolicy{MaxRetries: 3, Backoff: time.Millisecond}, nil)

	var calls atomic.Int32
	c.Subscribe("t", func(context.Context, *Message) error {
		if calls.Add(1) < 2 {
			return errors.New("transient")
		}
		return nil
	})

	runConsumer(t, c, func() bool { return r.commitCount() == 1 })
	processed, _ := c.Counts()
	assert.Equal(t, int64(1), processed)
}

func TestConsumer_AlreadyRunning(t *testing.T) {
	c := NewConsumerWithReader(&mockReader{}, nil, RetryPolicy{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return c.running.Load() }, time.Second, time.Millisecond)
	assert.ErrorIs(t, c.Run(ctx), ErrAlreadyRunning)
	cancel()
	require.NoError(t, <-done)
}

//Personal.AI order the ending
