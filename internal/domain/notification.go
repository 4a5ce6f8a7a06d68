package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
)

const (
	NotificationStatusPending = "pendiente"
	NotificationStatusSent    = "enviada"
	NotificationStatusFailed  = "fallida"
)

// Notification records one outbound message and its delivery outcome.
type Notification struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	DebtID      *uuid.UUID `json:"deuda_id,omitempty" db:"deuda_id"`
	Channel     string     `json:"canal" db:"canal"`
	Status      string     `json:"estado" db:"estado"`
	Message     string     `json:"mensaje" db:"mensaje"`
	Destination string     `json:"destinatario" db:"destinatario"`
	SentAt      *time.Time `json:"fecha_envio,omitempty" db:"fecha_envio"`
	Error       *string    `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

func (n *Notification) MarkSent(at time.Time) {
	n.Status = NotificationStatusSent
	n.SentAt = &at
	n.Error = nil
	n.UpdatedAt = at
}

func (n *Notification) MarkFailed(reason string, at time.Time) {
	n.Status = NotificationStatusFailed
	n.Error = &reason
	n.UpdatedAt = at
}

// IsRecentWhatsAppSent reports whether n is a delivered WhatsApp message
// created at or after since.
func (n *Notification) IsRecentWhatsAppSent(since time.Time) bool {
	return n.Channel == ChannelWhatsApp &&
		n.Status == NotificationStatusSent &&
		!n.CreatedAt.Before(since)
}
