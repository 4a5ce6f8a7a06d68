package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/logger"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxAttempts bounds deliveries per task.
const DefaultMaxAttempts = 3

type WorkerOptions struct {
	MaxAttempts  int
	RetryBackoff time.Duration
	PollTimeout  time.Duration
}

// Worker drains the queue, delivers each task and records the outcome.
type Worker struct {
	queue         Queue
	sender        Sender
	notifications repository.NotificationRepository
	opts          WorkerOptions
	now           func() time.Time
}

func NewWorker(queue Queue, sender Sender, notifications repository.NotificationRepository, opts WorkerOptions) *Worker {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 5 * time.Second
	}
	return &Worker{
		queue:         queue,
		sender:        sender,
		notifications: notifications,
		opts:          opts,
		now:           time.Now,
	}
}

// Run starts concurrency goroutines consuming the queue and blocks until ctx
// is cancelled and every goroutine has returned.
func (w *Worker) Run(ctx context.Context, concurrency int) {
	if concurrency <= 0 {
		concurrency = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context, id int) {
	logger.Info("notification worker started", zap.Int("worker", id))
	defer logger.Info("notification worker stopped", zap.Int("worker", id))

	for {
		if ctx.Err() != nil {
			return
		}

		task, err := w.queue.Dequeue(ctx, w.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("dequeue notification task failed", err, zap.Int("worker", id))
			sleep(ctx, time.Second)
			continue
		}
		if task == nil {
			continue
		}

		taskCtx := logger.WithRequestID(ctx, uuid.NewString())
		if err := w.Process(taskCtx, task); err != nil {
			logger.CtxError(taskCtx, "notification task abandoned", err,
				zap.String("destination", task.Destination),
				zap.Int("attempt", task.Attempt),
			)
		}
	}
}

// Process performs one delivery attempt. A failed attempt below the limit is
// re-queued after the backoff; the last failed attempt marks the notification
// failed and returns a delivery failure.
func (w *Worker) Process(ctx context.Context, task *Task) error {
	n, err := w.record(ctx, task)
	if err != nil {
		return err
	}

	task.Attempt++
	if w.deliver(ctx, task) {
		n.MarkSent(w.now())
		// The message is out; re-queueing would deliver it twice.
		if err := w.notifications.MarkSent(ctx, n); err != nil {
			logger.CtxError(ctx, "failed to record delivered notification", err,
				zap.String("notification_id", n.ID.String()),
			)
			return nil
		}
		logger.CtxInfo(ctx, "notification delivered",
			zap.String("notification_id", n.ID.String()),
			zap.Int("attempt", task.Attempt),
		)
		return nil
	}

	if task.Attempt >= w.opts.MaxAttempts {
		n.MarkFailed(fmt.Sprintf("delivery failed after %d attempts", task.Attempt), w.now())
		if err := w.notifications.MarkFailed(ctx, n); err != nil {
			return err
		}
		return customError.WrapDeliveryFailure(task.Destination, task.Attempt)
	}

	retryAt := w.now().Add(w.opts.RetryBackoff * time.Duration(task.Attempt))
	logger.CtxWarn(ctx, "notification delivery failed, retrying",
		zap.String("notification_id", n.ID.String()),
		zap.Int("attempt", task.Attempt),
		zap.Time("retry_at", retryAt),
	)
	return w.queue.EnqueueAt(ctx, task, retryAt)
}

// record returns the notification row for task, creating it as pending on
// the first attempt.
func (w *Worker) record(ctx context.Context, task *Task) (*domain.Notification, error) {
	if task.NotificationID != nil {
		return &domain.Notification{
			ID:          *task.NotificationID,
			UserID:      task.UserID,
			DebtID:      task.DebtID,
			Channel:     domain.ChannelWhatsApp,
			Status:      domain.NotificationStatusPending,
			Message:     task.Message,
			Destination: task.Destination,
		}, nil
	}

	now := w.now()
	n := &domain.Notification{
		ID:          uuid.New(),
		UserID:      task.UserID,
		DebtID:      task.DebtID,
		Channel:     domain.ChannelWhatsApp,
		Status:      domain.NotificationStatusPending,
		Message:     task.Message,
		Destination: task.Destination,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := w.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	task.NotificationID = &n.ID
	return n, nil
}

func (w *Worker) deliver(ctx context.Context, task *Task) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.CtxError(ctx, "sender panicked", fmt.Errorf("%v", r), zap.String("destination", task.Destination))
			ok = false
		}
	}()

	if task.Kind == KindGroup {
		return w.sender.SendToGroup(ctx, task.Destination, task.Message)
	}
	return w.sender.Send(ctx, task.Destination, task.Message)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
