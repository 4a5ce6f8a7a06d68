package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueKey is the Redis list holding pending WhatsApp tasks.
const DefaultQueueKey = "notifications:whatsapp"

const (
	KindDueReminder = "due_reminder"
	KindGroup       = "group"
)

// Task is one message delivery job as stored on the queue.
type Task struct {
	NotificationID *uuid.UUID `json:"notification_id,omitempty"`
	DebtID         *uuid.UUID `json:"debt_id,omitempty"`
	UserID         uuid.UUID  `json:"user_id"`
	Destination    string     `json:"destination"`
	Message        string     `json:"message"`
	Attempt        int        `json:"attempt"`
	Kind           string     `json:"kind"`
}

// Queue is the task transport between the scanner and the workers.
type Queue interface {
	Enqueue(ctx context.Context, task *Task) error
	EnqueueAt(ctx context.Context, task *Task, at time.Time) error
	Dequeue(ctx context.Context, timeout time.Duration) (*Task, error)
}

// RedisQueue keeps ready tasks in a list (LPUSH/BRPOP) and delayed retries
// in a sorted set scored by their ready time.
type RedisQueue struct {
	client redis.Cmdable
	key    string
}

func NewRedisQueue(client redis.Cmdable, key string) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) delayedKey() string {
	return q.key + ":delayed"
}

func (q *RedisQueue) Enqueue(ctx context.Context, task *Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	return q.client.LPush(ctx, q.key, raw).Err()
}

// EnqueueAt parks task until at; Dequeue promotes it once due.
func (q *RedisQueue) EnqueueAt(ctx context.Context, task *Task, at time.Time) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	return q.client.ZAdd(ctx, q.delayedKey(), redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: raw,
	}).Err()
}

// Dequeue blocks up to timeout for the next task. It returns nil, nil when
// the timeout expires with nothing ready.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	if err := q.promoteDue(ctx, time.Now()); err != nil {
		return nil, err
	}

	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of %d elements", len(res))
	}

	var task Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &task, nil
}

// Len returns the number of ready tasks.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// promoteDue moves delayed tasks whose time has come onto the ready list.
// Only the caller whose ZREM wins pushes a member, so concurrent workers do
// not duplicate it.
func (q *RedisQueue) promoteDue(ctx context.Context, now time.Time) error {
	members, err := q.client.ZRangeByScore(ctx, q.delayedKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: 100,
	}).Result()
	if err != nil {
		return err
	}

	for _, m := range members {
		removed, err := q.client.ZRem(ctx, q.delayedKey(), m).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.key, m).Err(); err != nil {
			return err
		}
	}
	return nil
}
