package question

import (
	"github.com/turtacn/QuestionBank/pkg/types/common"
)

// Event types published for question parts.
const (
	EventPartUpserted   = "qbank.question.upserted"
	EventReviewRequired = "qbank.question.review_required"
	EventAnswerMissing  = "qbank.answer.missing"
)

// PartUpsertedEvent is emitted after a part was written.
type PartUpsertedEvent struct {
	common.BaseEvent
	Identity Identity `json:"identity"`
	Marks    int      `json:"marks"`
	Answered bool     `json:"answered"`
}

func NewPartUpsertedEvent(p Part) *PartUpsertedEvent {
	return &PartUpsertedEvent{
		BaseEvent: common.NewBaseEvent(EventPartUpserted, p.Key.String()),
		Identity:  p.Identity,
		Marks:     p.Marks,
		Answered:  p.Answer != "",
	}
}

// ReviewRequiredEvent is emitted when a part's classification needs a human.
type ReviewRequiredEvent struct {
	common.BaseEvent
	Identity   Identity `json:"identity"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

func NewReviewRequiredEvent(id Identity, confidence float64, reasons []string) *ReviewRequiredEvent {
	return &ReviewRequiredEvent{
		BaseEvent:  common.NewBaseEvent(EventReviewRequired, id.Key.String()),
		Identity:   id,
		Confidence: confidence,
		Reasons:    reasons,
	}
}

// AnswerMissingEvent is emitted when no answer-key entry matched a part, so a
// downstream solver can produce one.
type AnswerMissingEvent struct {
	common.BaseEvent
	Identity Identity `json:"identity"`
}

func NewAnswerMissingEvent(id Identity) *AnswerMissingEvent {
	return &AnswerMissingEvent{
		BaseEvent: common.NewBaseEvent(EventAnswerMissing, id.Key.String()),
		Identity:  id,
	}
}

//Personal.AI order the ending
