// Package events is the application-side port for domain events. Services
// publish through a Publisher; Kafka provides the production implementation.
package events

import (
	"context"

	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/QuestionBank/pkg/types/common"
)

// Publisher delivers domain events.
type Publisher interface {
	Publish(ctx context.Context, events ...common.DomainEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...common.DomainEvent) error { return nil }

// Nop returns a Publisher that drops every event.
func Nop() Publisher { return nopPublisher{} }

// Instrumented counts every event by type and outcome.
func Instrumented(next Publisher, metrics *prometheus.QBankMetrics) Publisher {
	if metrics == nil {
		return next
	}
	return &instrumented{next: next, metrics: metrics}
}

type instrumented struct {
	next    Publisher
	metrics *prometheus.QBankMetrics
}

func (p *instrumented) Publish(ctx context.Context, events ...common.DomainEvent) error {
	err := p.next.Publish(ctx, events...)
	for _, ev := range events {
		p.metrics.RecordEvent(ev.EventType(), err)
	}
	return err
}

// PublishBestEffort publishes events and logs a failure instead of returning
// it. The stored state is authoritative; events only notify.
func PublishBestEffort(ctx context.Context, p Publisher, logger logging.Logger, events ...common.DomainEvent) {
	if p == nil || len(events) == 0 {
		return
	}
	if err := p.Publish(ctx, events...); err != nil {
		logger.Warn("event publish failed",
			logging.Int("events", len(events)),
			logging.String("event_type", events[0].EventType()),
			logging.Err(err))
	}
}

//Personal.AI order the ending
