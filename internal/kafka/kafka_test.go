package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockWriter) Close() error {
	return m.Called().Error(0)
}

func TestProducer_Publish(t *testing.T) {
	writer := &MockWriter{}
	p := newProducer([]string{"localhost:9092"}, writer, nil)
	ctx := context.Background()

	job := NewNotificationJob(JobDepartureChanged, 7, "chat", "moved")
	writer.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 || msgs[0].Topic != "flight-notifications" || string(msgs[0].Key) != job.ID {
			return false
		}
		decoded, err := DecodeNotificationJob(msgs[0])
		return err == nil && decoded.ID == job.ID && decoded.Text == "moved" && decoded.FlightID == 7
	})).Return(nil).Once()

	require.NoError(t, p.Publish(ctx, "flight-notifications", job.ID, job))
	writer.AssertExpectations(t)
}

func TestProducer_PublishError(t *testing.T) {
	writer := &MockWriter{}
	p := newProducer(nil, writer, nil)
	ctx := context.Background()

	writer.On("WriteMessages", ctx, mock.Anything).Return(errors.New("broker unavailable")).Once()

	err := p.Publish(ctx, "t", "k", map[string]string{"a": "b"})
	assert.ErrorContains(t, err, "broker unavailable")

	err = p.Publish(ctx, "t", "k", make(chan int))
	assert.ErrorContains(t, err, "failed to marshal payload")
}

func TestProducer_CheckConnectionWithoutBrokers(t *testing.T) {
	p := newProducer(nil, &MockWriter{}, nil)
	assert.Error(t, p.CheckConnection(context.Background()))
}

type fakeReader struct {
	messages  []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.messages) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumer_CommitsHandledMessages(t *testing.T) {
	payload, err := json.Marshal(NewNotificationJob(JobReminder, 1, "c", "tomorrow"))
	require.NoError(t, err)

	reader := &fakeReader{messages: []kafka.Message{{Value: payload}, {Value: payload}}}
	c := &Consumer{reader: reader}

	ctx, cancel := context.WithCancel(context.Background())
	handled := 0
	err = c.Consume(ctx, func(ctx context.Context, msg kafka.Message) error {
		job, err := DecodeNotificationJob(msg)
		require.NoError(t, err)
		assert.Equal(t, JobReminder, job.Kind)
		handled++
		if handled == 2 {
			cancel()
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, handled)
	assert.Len(t, reader.committed, 2)
}

func TestConsumer_HandlerErrorStops(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{{Value: []byte("{}")}}}
	c := &Consumer{reader: reader}

	err := c.Consume(context.Background(), func(context.Context, kafka.Message) error {
		return errors.New("sink down")
	})
	assert.EqualError(t, err, "sink down")
	assert.Empty(t, reader.committed)
}
