package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*miniredis.Miniredis, *RedisQueue) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return s, NewRedisQueue(client, "test:notifications")
}

func TestRedisQueue_FIFO(t *testing.T) {
	_, q := newTestQueue(t)
	ctx := context.Background()
	debtID := uuid.New()

	require.NoError(t, q.Enqueue(ctx, &Task{DebtID: &debtID, Destination: "+51911111111", Message: "uno", Kind: KindDueReminder}))
	require.NoError(t, q.Enqueue(ctx, &Task{Destination: "+51922222222", Message: "dos", Kind: KindDueReminder}))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	first, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "uno", first.Message)
	assert.Equal(t, debtID, *first.DebtID)
	assert.Zero(t, first.Attempt)

	second, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "dos", second.Message)
	assert.Nil(t, second.DebtID)
}

func TestRedisQueue_DequeueTimeout(t *testing.T) {
	_, q := newTestQueue(t)

	task, err := q.Dequeue(context.Background(), time.Second)

	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestRedisQueue_EnqueueAt(t *testing.T) {
	s, q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.EnqueueAt(ctx, &Task{Message: "later", Attempt: 1}, time.Now().Add(time.Hour)))
	require.NoError(t, q.EnqueueAt(ctx, &Task{Message: "due", Attempt: 2}, time.Now().Add(-time.Second)))

	task, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "due", task.Message)
	assert.Equal(t, 2, task.Attempt)

	members, err := s.ZMembers("test:notifications:delayed")
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestRedisQueue_DefaultKey(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	q := NewRedisQueue(client, "")
	require.NoError(t, q.Enqueue(context.Background(), &Task{Message: "x"}))

	assert.True(t, s.Exists(DefaultQueueKey))
}

func TestRedisQueue_Errors(t *testing.T) {
	ctx := context.Background()
	redisErr := errors.New("connection refused")

	t.Run("enqueue", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		q := NewRedisQueue(client, "q")
		mock.Regexp().ExpectLPush("q", `.*`).SetErr(redisErr)

		err := q.Enqueue(ctx, &Task{Message: "x"})

		assert.ErrorIs(t, err, redisErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("promote", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		q := NewRedisQueue(client, "q")
		mock.Regexp().ExpectZRangeByScore("q:delayed", &redis.ZRangeBy{Min: "-inf", Max: `\d+`, Count: 100}).SetErr(redisErr)

		task, err := q.Dequeue(ctx, time.Second)

		assert.Nil(t, task)
		assert.ErrorIs(t, err, redisErr)
	})

	t.Run("malformed payload", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		q := NewRedisQueue(client, "q")
		mock.Regexp().ExpectZRangeByScore("q:delayed", &redis.ZRangeBy{Min: "-inf", Max: `\d+`, Count: 100}).SetVal([]string{})
		mock.ExpectBRPop(time.Second, "q").SetVal([]string{"q", "{not json"})

		task, err := q.Dequeue(ctx, time.Second)

		assert.Nil(t, task)
		assert.ErrorContains(t, err, "unmarshal task")
	})
}
