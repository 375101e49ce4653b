// Package worker consumes classification proposals from Kafka and stores
// the reconciled tags.
package worker

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/QuestionBank/internal/application/classify"
	"github.com/turtacn/QuestionBank/internal/config"
	"github.com/turtacn/QuestionBank/internal/domain/numbering"
	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

// Message statuses counted in worker_messages_total.
const (
	StatusOK        = "ok"
	StatusFailed    = "failed"
	StatusMalformed = "malformed"
)

// Consumer is the subset of kafka.Consumer the worker drives.
type Consumer interface {
	Subscribe(topic string, h kafka.Handler)
	Run(ctx context.Context) error
}

// Applier stores one reconciled proposal. classify.Service implements it.
type Applier interface {
	ApplyOne(ctx context.Context, it classify.Item) (classify.Outcome, error)
}

// ProposalBatch is the payload of a multi-item proposal message.
type ProposalBatch struct {
	Items []classify.Item `json:"items"`
}

type Worker struct {
	consumer Consumer
	applier  Applier
	topic    string
	cfg      config.WorkerConfig
	metrics  *prometheus.QBankMetrics
	logger   logging.Logger
}

// New builds a worker for the proposal topic. A nil metrics or logger is
// replaced by a no-op.
func New(consumer Consumer, applier Applier, topic string, cfg config.WorkerConfig, metrics *prometheus.QBankMetrics, logger logging.Logger) *Worker {
	if topic == "" {
		topic = kafka.TopicClassificationProposed
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if metrics == nil {
		metrics = prometheus.NewNopMetrics()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Worker{
		consumer: consumer,
		applier:  applier,
		topic:    topic,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger.Named("worker"),
	}
}

// Run subscribes to the proposal topic and blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.consumer.Subscribe(w.topic, w.Handle)
	w.logger.Info("worker started",
		logging.String("topic", w.topic),
		logging.Int("concurrency", w.cfg.Concurrency),
		logging.Int("batch_size", w.cfg.BatchSize))
	err := w.consumer.Run(ctx)
	w.logger.Info("worker stopped")
	return err
}

// Handle applies every item of one message. Storage failures are returned so
// the consumer retries the message; applying the same proposal twice stores
// the same tags.
func (w *Worker) Handle(ctx context.Context, msg *kafka.Message) error {
	_, err := w.Process(ctx, msg)
	return err
}

// Process applies one message and returns an outcome per item in message
// order. An item without a usable identity gets an outcome carrying the
// reason and the rest of the message is still applied. Only an envelope that
// cannot be decoded, or a storage failure, is returned as an error.
func (w *Worker) Process(ctx context.Context, msg *kafka.Message) ([]classify.Outcome, error) {
	items, err := decodeItems(msg)
	if err != nil {
		w.metrics.WorkerMessagesTotal.WithLabelValues(msg.Topic, StatusMalformed).Inc()
		w.logger.Warn("malformed proposal",
			logging.String("topic", msg.Topic),
			logging.Int64("offset", msg.Offset),
			logging.Err(err))
		return nil, err
	}

	outcomes := make([]classify.Outcome, len(items))
	valid := make([]classify.Item, 0, len(items))
	index := make([]int, 0, len(items))
	for i := range items {
		if err := canonicalIdentity(&items[i].Identity); err != nil {
			outcomes[i] = classify.Outcome{Identity: items[i].Identity, Err: err}
			w.metrics.ClassificationsTotal.WithLabelValues(classify.OutcomeMalformed).Inc()
			w.logger.Warn("malformed proposal item",
				logging.String("topic", msg.Topic),
				logging.Int64("offset", msg.Offset),
				logging.Int("item", i),
				logging.Err(err))
			continue
		}
		valid = append(valid, items[i])
		index = append(index, i)
	}
	if len(valid) == 0 {
		w.metrics.WorkerMessagesTotal.WithLabelValues(msg.Topic, StatusMalformed).Inc()
		return outcomes, nil
	}

	if w.cfg.HandlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.HandlerTimeout)
		defer cancel()
	}

	var stored, notFound int
	for start := 0; start < len(valid); start += w.cfg.BatchSize {
		end := start + w.cfg.BatchSize
		if end > len(valid) {
			end = len(valid)
		}
		outs, err := w.applyBatch(ctx, msg.Topic, valid[start:end])
		if err != nil {
			w.metrics.WorkerMessagesTotal.WithLabelValues(msg.Topic, StatusFailed).Inc()
			return nil, err
		}
		for j, o := range outs {
			outcomes[index[start+j]] = o
			switch {
			case o.Stored:
				stored++
			case errors.IsNotFound(o.Err):
				notFound++
			}
		}
	}

	w.metrics.WorkerMessagesTotal.WithLabelValues(msg.Topic, StatusOK).Inc()
	w.logger.Debug("proposals applied",
		logging.Int64("offset", msg.Offset),
		logging.Int("items", len(items)),
		logging.Int("malformed", len(items)-len(valid)),
		logging.Int("stored", stored),
		logging.Int("not_found", notFound))
	return outcomes, nil
}

func (w *Worker) applyBatch(ctx context.Context, topic string, items []classify.Item) ([]classify.Outcome, error) {
	start := time.Now()
	defer func() {
		w.metrics.WorkerBatchDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	}()

	outs := make([]classify.Outcome, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := w.applier.ApplyOne(gctx, it)
			if err != nil {
				return err
			}
			outs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outs, nil
}

// decodeItems accepts an envelope whose payload is either one item or a
// ProposalBatch.
func decodeItems(msg *kafka.Message) ([]classify.Item, error) {
	env, err := kafka.DecodeEnvelope(msg)
	if err != nil {
		return nil, err
	}
	var payload struct {
		ProposalBatch
		classify.Item
	}
	if err := env.DecodePayload(&payload); err != nil {
		return nil, err
	}
	if len(payload.Items) > 0 {
		return payload.Items, nil
	}
	return []classify.Item{payload.Item}, nil
}

// canonicalIdentity puts the section and part letter into stored form and
// rejects identities that cannot name a stored part.
func canonicalIdentity(id *question.Identity) error {
	id.Section = numbering.CanonicalSection(id.Section)
	letter, err := question.NormalizeLetter(id.PartLetter)
	if err != nil {
		return err
	}
	id.PartLetter = letter
	if id.School == "" || id.Year <= 0 || id.QuestionNum <= 0 {
		return errors.New(errors.CodeValidation, "proposal has no valid part identity").
			WithDetail(id.String())
	}
	return nil
}

//Personal.AI order the ending
