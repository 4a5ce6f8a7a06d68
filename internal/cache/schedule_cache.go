package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultScheduleTTL is how long a loan schedule stays cached.
const DefaultScheduleTTL = 24 * time.Hour

// ScheduleKey builds the cache key of a loan's schedule.
func ScheduleKey(loanID uuid.UUID) string {
	return fmt.Sprintf("loan:%s:schedule", loanID)
}

// Schedules is the loan schedule cache used by the services.
type Schedules interface {
	Get(ctx context.Context, loanID uuid.UUID) ([]*domain.PaymentSchedule, bool, error)
	Set(ctx context.Context, loanID uuid.UUID, schedule []*domain.PaymentSchedule) error
	Invalidate(ctx context.Context, loanIDs ...uuid.UUID) error
}

// ScheduleCache stores loan schedules as JSON in Redis.
type ScheduleCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewScheduleCache(client redis.Cmdable, ttl time.Duration) *ScheduleCache {
	if ttl <= 0 {
		ttl = DefaultScheduleTTL
	}
	return &ScheduleCache{client: client, ttl: ttl}
}

// Get returns the cached schedule; found is false on a cache miss.
func (c *ScheduleCache) Get(ctx context.Context, loanID uuid.UUID) (schedule []*domain.PaymentSchedule, found bool, err error) {
	raw, err := c.client.Get(ctx, ScheduleKey(loanID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if err := json.Unmarshal(raw, &schedule); err != nil {
		return nil, false, err
	}
	return schedule, true, nil
}

func (c *ScheduleCache) Set(ctx context.Context, loanID uuid.UUID, schedule []*domain.PaymentSchedule) error {
	raw, err := json.Marshal(schedule)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, ScheduleKey(loanID), raw, c.ttl).Err()
}

// Invalidate drops the cached schedules of the given loans.
func (c *ScheduleCache) Invalidate(ctx context.Context, loanIDs ...uuid.UUID) error {
	if len(loanIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(loanIDs))
	for _, id := range loanIDs {
		keys = append(keys, ScheduleKey(id))
	}
	return c.client.Del(ctx, keys...).Err()
}
