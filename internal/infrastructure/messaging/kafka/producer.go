package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/QuestionBank/internal/config"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

var ErrProducerClosed = errors.New(errors.CodeMessagingError, "producer closed")

const maxMessageBytes = 1 << 20

// Message is a broker-neutral record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// BatchResult reports a PublishBatch call.
type BatchResult struct {
	Succeeded int
	Failed    int
	Errors    map[int]error
}

// Producer writes messages to Kafka.
type Producer struct {
	writer WriterInterface
	logger logging.Logger
	closed atomic.Bool
	sent   atomic.Int64
	failed atomic.Int64
}

// NewProducer builds a hash-balanced writer over cfg.Brokers. The topic is
// set per message.
func NewProducer(cfg config.KafkaConfig, logger logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.CodeValidation, "kafka brokers required")
	}
	if cfg.MaxRetries < 0 {
		return nil, errors.New(errors.CodeValidation, "kafka max_retries must be >= 0")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxRetries + 1,
		BatchSize:    orInt(cfg.BatchSize, 100),
		BatchTimeout: orDuration(cfg.BatchTimeout, time.Second),
		RequiredAcks: kafka.RequireOne,
		Transport: &kafka.Transport{
			DialTimeout: 10 * time.Second,
			ClientID:    cfg.ClientID,
		},
	}
	return NewProducerWithWriter(w, logger), nil
}

func NewProducerWithWriter(w WriterInterface, logger logging.Logger) *Producer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Producer{writer: w, logger: logger}
}

// Publish writes one message synchronously.
func (p *Producer) Publish(ctx context.Context, msg *Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if err := validateMessage(msg); err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, toKafkaMessage(msg)); err != nil {
		p.failed.Add(1)
		return errors.Wrap(err, errors.CodeMessagingError, "publish failed").WithDetail(msg.Topic)
	}
	p.sent.Add(1)
	p.logger.Debug("message published", logging.String("topic", msg.Topic), logging.Int("bytes", len(msg.Value)))
	return nil
}

// PublishBatch writes msgs in one call. Per-message failures are reported in
// the result; the error is reserved for invalid input or a closed producer.
func (p *Producer) PublishBatch(ctx context.Context, msgs []*Message) (*BatchResult, error) {
	if p.closed.Load() {
		return nil, ErrProducerClosed
	}
	if len(msgs) == 0 {
		return &BatchResult{}, nil
	}
	kms := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		if err := validateMessage(m); err != nil {
			return nil, err
		}
		kms[i] = toKafkaMessage(m)
	}

	res := &BatchResult{}
	err := p.writer.WriteMessages(ctx, kms...)
	switch we := err.(type) {
	case nil:
		res.Succeeded = len(msgs)
	case kafka.WriteErrors:
		for i, e := range we {
			if e != nil {
				res.Failed++
				if res.Errors == nil {
					res.Errors = make(map[int]error)
				}
				res.Errors[i] = e
			} else {
				res.Succeeded++
			}
		}
	default:
		res.Failed = len(msgs)
		res.Errors = map[int]error{-1: err}
	}
	p.sent.Add(int64(res.Succeeded))
	p.failed.Add(int64(res.Failed))
	if res.Failed > 0 {
		p.logger.Warn("batch partially failed", logging.Int("succeeded", res.Succeeded), logging.Int("failed", res.Failed))
	}
	return res, nil
}

// Counts returns the number of messages sent and failed so far.
func (p *Producer) Counts() (sent, failed int64) {
	return p.sent.Load(), p.failed.Load()
}

func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("kafka producer closed", logging.Int64("sent", p.sent.Load()))
	return err
}

func validateMessage(msg *Message) error {
	switch {
	case msg == nil || msg.Topic == "":
		return errors.New(errors.CodeValidation, "message topic required")
	case len(msg.Value) == 0:
		return errors.New(errors.CodeValidation, "message value required").WithDetail(msg.Topic)
	case len(msg.Value) > maxMessageBytes:
		return errors.New(errors.CodeValidation, "message too large").WithDetailf("bytes=%d", len(msg.Value))
	}
	return nil
}

func toKafkaMessage(msg *Message) kafka.Message {
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return kafka.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		Time:    ts,
	}
}

func fromKafkaMessage(m kafka.Message) *Message {
	msg := &Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

//Personal.AI order the ending
