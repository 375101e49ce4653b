package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/QuestionBank/internal/domain/question"
	apperrors "github.com/turtacn/QuestionBank/pkg/errors"
)

type mockConn struct {
	existing map[string]bool
	created  []kafka.TopicConfig
	readErr  error
}

func (m *mockConn) CreateTopics(topics ...kafka.TopicConfig) error {
	m.created = append(m.created, topics...)
	return nil
}

func (m *mockConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	if len(topics) == 1 && m.existing[topics[0]] {
		return []kafka.Partition{{Topic: topics[0]}}, nil
	}
	return nil, kafka.UnknownTopicOrPartition
}

func (m *mockConn) Close() error { return nil }

func TestEnvelopeFor_KeepsEventIdentity(t *testing.T) {
	id := question.Identity{Key: question.Key{School: "Tao Nan", Year: 2024, Section: "P2", QuestionNum: 6}, PartLetter: "a"}
	ev := question.NewAnswerMissingEvent(id)

	env, err := EnvelopeFor(ev)
	require.NoError(t, err)
	assert.Equal(t, ev.EventID(), env.EventID)
	assert.Equal(t, question.EventAnswerMissing, env.EventType)
	assert.Equal(t, "Tao Nan/2024/P2/6", env.AggregateID)

	msg, err := env.ToMessage(TopicAnswerMissing)
	require.NoError(t, err)
	assert.Equal(t, "Tao Nan/2024/P2/6", string(msg.Key))
	assert.Equal(t, "v1", msg.Headers["schema_version"])

	back, err := DecodeEnvelope(msg)
	require.NoError(t, err)
	var decoded question.AnswerMissingEvent
	require.NoError(t, back.DecodePayload(&decoded))
	assert.Equal(t, id, decoded.Identity)
}

func TestDecodeEnvelope_Errors(t *testing.T) {
	_, err := DecodeEnvelope(&Message{})
	assert.True(t, apperrors.IsValidation(err))

	_, err = DecodeEnvelope(&Message{Value: []byte("{not json")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeSerialization))

	env := &Envelope{EventID: "e1", Payload: []byte("null")}
	assert.Error(t, env.DecodePayload(&struct{}{}))
}

func TestTopicManager_CreatesOnlyMissing(t *testing.T) {
	conn := &mockConn{existing: map[string]bool{TopicQuestionUpserted: true}}
	m := NewTopicManagerWithConn(conn, nil)

	require.NoError(t, m.EnsureTopics(context.Background(), DefaultTopics(1)))
	require.Len(t, conn.created, len(DefaultTopics(1))-1)
	for _, c := range conn.created {
		assert.NotEqual(t, TopicQuestionUpserted, c.Topic)
		assert.Equal(t, 1, c.ReplicationFactor)
	}
	assert.Equal(t, "retention.ms", conn.created[0].ConfigEntries[0].ConfigName)
	assert.Equal(t, "604800000", conn.created[len(conn.created)-2].ConfigEntries[0].ConfigValue)
}

func TestTopicManager_Validation(t *testing.T) {
	m := NewTopicManagerWithConn(&mockConn{}, nil)
	assert.Error(t, m.CreateTopic(context.Background(), TopicConfig{}))
	assert.Error(t, m.CreateTopic(context.Background(), TopicConfig{Name: "x"}))

	broken := NewTopicManagerWithConn(&mockConn{readErr: errors.New("conn reset")}, nil)
	assert.Error(t, broken.CreateTopic(context.Background(), TopicConfig{Name: "x", NumPartitions: 1, ReplicationFactor: 1}))
}

func TestDefaultTopics_RetentionDays(t *testing.T) {
	for _, tc := range DefaultTopics(3) {
		assert.Zero(t, tc.RetentionMs%int64(24*time.Hour/time.Millisecond), tc.Name)
	}
}

//Personal.AI order the ending
