package kafka

import (
	"context"

	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/pkg/errors"
	"github.com/turtacn/QuestionBank/pkg/types/common"
)

// EventPublisher sends domain events to the topic named by their type.
type EventPublisher struct {
	producer *Producer
	logger   logging.Logger
}

func NewEventPublisher(p *Producer, logger logging.Logger) *EventPublisher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &EventPublisher{producer: p, logger: logger.Named("events")}
}

// Publish sends events in one batch. The returned error carries the first
// failure; the other events are still attempted.
func (p *EventPublisher) Publish(ctx context.Context, events ...common.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]*Message, 0, len(events))
	for _, ev := range events {
		env, err := EnvelopeFor(ev)
		if err != nil {
			return err
		}
		msg, err := env.ToMessage(ev.EventType())
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	res, err := p.producer.PublishBatch(ctx, msgs)
	if err != nil {
		return err
	}
	if res.Failed == 0 {
		return nil
	}
	first := -1
	for i := range res.Errors {
		if first == -1 || (i >= 0 && i < first) {
			first = i
		}
	}
	cause := res.Errors[first]
	return errors.Wrap(cause, errors.CodeMessagingError, "failed to publish events").
		WithDetailf("failed=%d of %d", res.Failed, len(events))
}

func (p *EventPublisher) Close() error {
	return p.producer.Close()
}

//Personal.AI order the ending
