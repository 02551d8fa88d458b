package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	info, _ := args.Get(0).(*asynq.TaskInfo)
	return info, args.Error(1)
}

var queuedMsg = Message{
	To:       "alice@example.com",
	Subject:  "alice, please verify your email",
	Body:     "Hi alice,\n\ncode abc123",
	Template: TemplateVerification,
}

func TestQueuedMailer_RoundTripsThroughDelivery(t *testing.T) {
	q := &mockQueue{}
	var captured *asynq.Task
	q.On("EnqueueContext", mock.Anything, mock.AnythingOfType("*asynq.Task"), mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*asynq.Task) }).
		Return(&asynq.TaskInfo{ID: "task-1"}, nil).
		Once()

	require.NoError(t, (&QueuedMailer{queue: q}).Send(context.Background(), queuedMsg))
	q.AssertExpectations(t)
	require.NotNil(t, captured)
	assert.Equal(t, TaskSendEmail, captured.Type())

	backend := NewMemoryMailer()
	require.NoError(t, NewDeliveryHandler(backend).ProcessTask(context.Background(), captured))

	got, ok := backend.Last()
	require.True(t, ok)
	assert.Equal(t, queuedMsg, got)
}

func TestQueuedMailer_EnqueueError(t *testing.T) {
	q := &mockQueue{}
	q.On("EnqueueContext", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("redis down"))

	err := (&QueuedMailer{queue: q}).Send(context.Background(), queuedMsg)
	assert.ErrorContains(t, err, "redis down")
}

func TestDeliveryHandler_Failures(t *testing.T) {
	t.Run("bad payload is not retried", func(t *testing.T) {
		err := NewDeliveryHandler(NewMemoryMailer()).
			ProcessTask(context.Background(), asynq.NewTask(TaskSendEmail, []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("backend error is retried", func(t *testing.T) {
		backend := NewMemoryMailer()
		backend.Err = errors.New("relay refused")
		task, err := newSendTask(queuedMsg)
		require.NoError(t, err)

		err = NewDeliveryHandler(backend).ProcessTask(context.Background(), task)
		assert.ErrorIs(t, err, backend.Err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestRedisOpt(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "cache:6380", Password: "pw", DB: 3})
	t.Cleanup(func() { _ = rdb.Close() })

	assert.Equal(t, asynq.RedisClientOpt{Addr: "cache:6380", Password: "pw", DB: 3}, RedisOpt(rdb))
}
