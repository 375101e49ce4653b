package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/pkg/types/common"
)

// MockQuestionRepo is a testify mock of question.Repository and
// question.GroupReader.
type MockQuestionRepo struct {
	mock.Mock
}

func (m *MockQuestionRepo) Upsert(ctx context.Context, parts []question.Part) (question.UpsertResult, error) {
	args := m.Called(ctx, parts)
	return args.Get(0).(question.UpsertResult), args.Error(1)
}

func (m *MockQuestionRepo) Get(ctx context.Context, id question.Identity) (*question.Part, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*question.Part), args.Error(1)
}

func (m *MockQuestionRepo) ListByQuestion(ctx context.Context, key question.Key) ([]question.Part, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]question.Part), args.Error(1)
}

func (m *MockQuestionRepo) List(ctx context.Context, f question.Filter) ([]question.Part, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]question.Part), args.Error(1)
}

func (m *MockQuestionRepo) UpdateAnswer(ctx context.Context, id question.Identity, answer, workedSolution string, overwrite bool) (bool, error) {
	args := m.Called(ctx, id, answer, workedSolution, overwrite)
	return args.Bool(0), args.Error(1)
}

func (m *MockQuestionRepo) UpdateTags(ctx context.Context, id question.Identity, tags question.Tags) (bool, error) {
	args := m.Called(ctx, id, tags)
	return args.Bool(0), args.Error(1)
}

func (m *MockQuestionRepo) GetGroup(ctx context.Context, key question.Key) (question.Group, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(question.Group), args.Error(1)
}

// RecordingPublisher keeps published events in memory. Err, when set, is
// returned from every Publish after recording.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []common.DomainEvent
	Err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, events ...common.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.Err
}

// Events returns the recorded events in publish order.
func (p *RecordingPublisher) Events() []common.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]common.DomainEvent(nil), p.events...)
}

// OfType returns the recorded events of one type.
func (p *RecordingPublisher) OfType(eventType string) []common.DomainEvent {
	var out []common.DomainEvent
	for _, ev := range p.Events() {
		if ev.EventType() == eventType {
			out = append(out, ev)
		}
	}
	return out
}

//Personal.AI order the ending
