package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/QuestionBank/internal/config"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

var ErrAlreadyRunning = errors.New(errors.CodeConflict, "consumer already running")

// Handler processes one message. A returned error triggers retries.
type Handler func(ctx context.Context, msg *Message) error

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RetryPolicy bounds handler retries before a message is dead-lettered.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// Consumer reads a consumer group and dispatches messages by topic. Offsets
// are committed after the handler succeeds or the message is dead-lettered.
type Consumer struct {
	reader     ReaderInterface
	deadLetter *Producer
	retry      RetryPolicy
	logger     logging.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
	running  atomic.Bool

	processed atomic.Int64
	dropped   atomic.Int64
}

// NewConsumer joins cfg.GroupID on topics.
func NewConsumer(cfg config.KafkaConfig, topics []string, deadLetter *Producer, logger logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.CodeValidation, "kafka brokers required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New(errors.CodeValidation, "kafka group_id required")
	}
	if len(topics) == 0 {
		return nil, errors.New(errors.CodeValidation, "at least one topic required")
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: topics,
		MinBytes:    1,
		MaxBytes:    10 << 20,
		MaxWait:     orDuration(cfg.BatchTimeout, time.Second),
		StartOffset: kafka.FirstOffset,
		Dialer:      &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true, ClientID: cfg.ClientID},
	})
	policy := RetryPolicy{MaxRetries: cfg.MaxRetries, Backoff: cfg.RetryBackoff}
	return NewConsumerWithReader(r, deadLetter, policy, logger), nil
}

func NewConsumerWithReader(r ReaderInterface, deadLetter *Producer, policy RetryPolicy, logger logging.Logger) *Consumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if policy.Backoff <= 0 {
		policy.Backoff = time.Second
	}
	if policy.MaxBackoff <= 0 {
		policy.MaxBackoff = 30 * time.Second
	}
	return &Consumer{
		reader:     r,
		deadLetter: deadLetter,
		retry:      policy,
		logger:     logger,
		handlers:   make(map[string]Handler),
	}
}

// Subscribe registers h for topic, replacing any previous handler.
func (c *Consumer) Subscribe(topic string, h Handler) {
	c.mu.Lock()
	c.handlers[topic] = h
	c.mu.Unlock()
	c.logger.Info("subscribed", logging.String("topic", topic))
}

// Run consumes until ctx is cancelled. It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("fetch failed", logging.Err(err))
			if !sleepCtx(ctx, c.retry.Backoff) {
				return nil
			}
			continue
		}

		msg := fromKafkaMessage(m)
		c.mu.RLock()
		h, ok := c.handlers[m.Topic]
		c.mu.RUnlock()

		if !ok {
			c.logger.Warn("no handler for topic", logging.String("topic", m.Topic))
		} else if err := c.process(ctx, msg, h); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.dropped.Add(1)
		} else {
			c.processed.Add(1)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed", logging.Err(err), logging.Int64("offset", m.Offset))
		}
	}
}

// process runs h with retries. It returns the last handler error once the
// message has been dead-lettered or dropped.
func (c *Consumer) process(ctx context.Context, msg *Message, h Handler) error {
	err := h(ctx, msg)
	backoff := c.retry.Backoff
	for i := 0; err != nil && i < c.retry.MaxRetries; i++ {
		if !sleepCtx(ctx, backoff) {
			return ctx.Err()
		}
		err = h(ctx, msg)
		backoff *= 2
		if backoff > c.retry.MaxBackoff {
			backoff = c.retry.MaxBackoff
		}
	}
	if err == nil {
		return nil
	}

	c.logger.Error("message failed after retries",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Err(err))

	if c.deadLetter != nil {
		dl := &Message{Topic: TopicDeadLetter, Key: msg.Key, Value: msg.Value, Headers: map[string]string{}}
		for k, v := range msg.Headers {
			dl.Headers[k] = v
		}
		dl.Headers["original_topic"] = msg.Topic
		dl.Headers["error_message"] = err.Error()
		if dlErr := c.deadLetter.Publish(ctx, dl); dlErr != nil {
			c.logger.Error("dead letter publish failed", logging.Err(dlErr))
		}
	}
	return err
}

// Counts returns the number of messages handled and dropped.
func (c *Consumer) Counts() (processed, dropped int64) {
	return c.processed.Load(), c.dropped.Load()
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

//Personal.AI order the ending
