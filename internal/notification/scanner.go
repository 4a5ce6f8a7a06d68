package notification

import (
	"context"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/logger"
	"github.com/segyhp/lending-engine/internal/repository"
	"github.com/segyhp/lending-engine/pkg/money"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultDaysAhead   = 3
	DefaultDedupWindow = 24 * time.Hour
)

type ScanOptions struct {
	DaysAhead   int
	DedupWindow time.Duration
	// AdminGroupID, when set, also receives a copy of every reminder.
	AdminGroupID string
	// Converter and BaseCurrency add the base-currency equivalent to
	// reminders of foreign-currency debts.
	Converter    *money.Converter
	BaseCurrency string
}

// ScanResult summarizes one vencimiento scan.
type ScanResult struct {
	Found    int `json:"found"`
	Enqueued int `json:"enqueued"`
	Skipped  int `json:"skipped"`
}

// Scanner selects debts falling due soon and enqueues one reminder per debt.
type Scanner struct {
	debts         repository.DebtRepository
	notifications repository.NotificationRepository
	queue         Queue
	opts          ScanOptions
	now           func() time.Time
}

func NewScanner(debts repository.DebtRepository, notifications repository.NotificationRepository, queue Queue, opts ScanOptions) *Scanner {
	if opts.DaysAhead < 0 {
		opts.DaysAhead = DefaultDaysAhead
	}
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = DefaultDedupWindow
	}
	return &Scanner{
		debts:         debts,
		notifications: notifications,
		queue:         queue,
		opts:          opts,
		now:           time.Now,
	}
}

// Scan runs the vencimiento check once. Debts are pre-selected in SQL and
// every candidate is re-checked with IsDueSoon before enqueueing.
func (s *Scanner) Scan(ctx context.Context) (ScanResult, error) {
	var result ScanResult
	now := s.now()
	from, until := DueWindow(now, s.opts.DaysAhead)
	since := now.Add(-s.opts.DedupWindow)

	debts, err := s.debts.FindDueSoon(ctx, from, until, since)
	if err != nil {
		return result, err
	}
	result.Found = len(debts)
	if len(debts) == 0 {
		logger.CtxInfo(ctx, "no debts due soon", zap.Int("days", s.opts.DaysAhead))
		return result, nil
	}

	ids := make([]uuid.UUID, 0, len(debts))
	for _, d := range debts {
		ids = append(ids, d.ID)
	}
	notices, err := s.notifications.ListRecentSent(ctx, ids, since)
	if err != nil {
		return result, err
	}

	for _, debt := range debts {
		if !IsDueSoon(debt, notices, now, s.opts.DaysAhead, s.opts.DedupWindow) {
			result.Skipped++
			continue
		}

		to := debt.Recipient()
		if to == "" {
			logger.CtxWarn(ctx, "debt has no reminder recipient",
				zap.String("debt_id", debt.ID.String()),
				zap.String("type", debt.Type),
			)
			result.Skipped++
			continue
		}

		if err := s.enqueue(ctx, debt, to); err != nil {
			return result, err
		}
		result.Enqueued++
	}

	logger.CtxInfo(ctx, "vencimiento scan finished",
		zap.Int("found", result.Found),
		zap.Int("enqueued", result.Enqueued),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *Scanner) enqueue(ctx context.Context, debt *domain.Debt, to string) error {
	debtID := debt.ID
	message := BuildConvertedDueReminder(debt, s.opts.Converter, s.opts.BaseCurrency)

	if err := s.queue.Enqueue(ctx, &Task{
		DebtID:      &debtID,
		UserID:      debt.UserID,
		Destination: to,
		Message:     message,
		Kind:        KindDueReminder,
	}); err != nil {
		return err
	}

	if s.opts.AdminGroupID != "" {
		return SendGroupNotification(ctx, s.queue, s.opts.AdminGroupID, message, debt)
	}
	return nil
}

// SendGroupNotification enqueues message for a WhatsApp group, attributed to
// debt's owner.
func SendGroupNotification(ctx context.Context, queue Queue, groupID, message string, debt *domain.Debt) error {
	debtID := debt.ID
	return queue.Enqueue(ctx, &Task{
		DebtID:      &debtID,
		UserID:      debt.UserID,
		Destination: groupID,
		Message:     message,
		Kind:        KindGroup,
	})
}
