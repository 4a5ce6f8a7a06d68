package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/money"
	"github.com/segyhp/lending-engine/pkg/utils"
)

const displayDateLayout = "02/01/2006"

// BuildDueReminder renders the Spanish due-date reminder for a debt.
func BuildDueReminder(debt *domain.Debt) string {
	return buildDueReminder(debt, "")
}

// BuildConvertedDueReminder is BuildDueReminder plus the pending amount in
// base currency when the debt is held in another one and a rate is known.
func BuildConvertedDueReminder(debt *domain.Debt, conv *money.Converter, base string) string {
	if conv == nil || base == "" || strings.EqualFold(debt.Currency, base) {
		return buildDueReminder(debt, "")
	}
	amount, ok := conv.Convert(debt.PendingAmount, debt.Currency, base)
	if !ok {
		return buildDueReminder(debt, "")
	}
	return buildDueReminder(debt, money.Format(amount, base))
}

func buildDueReminder(debt *domain.Debt, equivalent string) string {
	name := debt.DebtorName()
	if name == "" {
		name = "N/A"
	}

	due := "sin fecha"
	if debt.DueDate != nil {
		due = debt.DueDate.Format(displayDateLayout)
	}

	amount := money.Format(debt.PendingAmount, debt.Currency)
	if equivalent != "" {
		amount += " (aprox. " + equivalent + ")"
	}

	return fmt.Sprintf("Recordatorio de pago:\n\n"+
		"Tipo: %s\n"+
		"Deudor: %s\n"+
		"Descripcion: %s\n"+
		"Monto pendiente: %s\n"+
		"Fecha de vencimiento: %s\n\n"+
		"Por favor, realizar el pago a la brevedad posible.",
		debt.TypeLabel(), name, debt.Description, amount, due)
}

// DueWindow returns the closed calendar-date range [today, today+days] for now.
func DueWindow(now time.Time, days int) (from, until time.Time) {
	from = utils.DateOf(now)
	return from, from.AddDate(0, 0, days)
}

// IsDueSoon reports whether debt should get a reminder at now: it is active,
// has a positive pending amount, falls due within days, and none of notices is
// a WhatsApp message for it delivered inside dedupWindow.
func IsDueSoon(debt *domain.Debt, notices []*domain.Notification, now time.Time, days int, dedupWindow time.Duration) bool {
	if !debt.IsActive() || !debt.PendingAmount.IsPositive() || debt.DueDate == nil {
		return false
	}

	from, until := DueWindow(now, days)
	if !utils.WithinWindow(utils.DateOf(*debt.DueDate), from, until) {
		return false
	}

	since := now.Add(-dedupWindow)
	for _, n := range notices {
		if n.DebtID != nil && *n.DebtID == debt.ID && n.IsRecentWhatsAppSent(since) {
			return false
		}
	}
	return true
}
