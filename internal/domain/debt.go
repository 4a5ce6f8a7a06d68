package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DebtStatusActive    = "activa"
	DebtStatusPaid      = "pagada"
	DebtStatusOverdue   = "vencida"
	DebtStatusCancelled = "cancelada"
)

// Debt types decide who receives the due-date reminder.
const (
	DebtTypeParticular = "particular"
	DebtTypeEntity     = "entidad"
	DebtTypeRental     = "alquiler"
)

// Debt is a simple receivable tracked outside the amortized loan flow.
// Client and entity contact fields are filled by the repository join.
type Debt struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	ClientID        *uuid.UUID      `json:"cliente_id,omitempty" db:"cliente_id"`
	Description     string          `json:"descripcion" db:"descripcion"`
	TotalAmount     decimal.Decimal `json:"monto_total" db:"monto_total"`
	PendingAmount   decimal.Decimal `json:"monto_pendiente" db:"monto_pendiente"`
	InterestRate    decimal.Decimal `json:"tasa_interes" db:"tasa_interes"`
	StartDate       time.Time       `json:"fecha_inicio" db:"fecha_inicio"`
	DueDate         *time.Time      `json:"fecha_vencimiento,omitempty" db:"fecha_vencimiento"`
	Status          string          `json:"estado" db:"estado"`
	Type            string          `json:"tipo_deuda" db:"tipo_deuda"`
	Currency        string          `json:"moneda" db:"moneda"`
	ClientFirstName *string         `json:"-" db:"cliente_nombre"`
	ClientLastName  *string         `json:"-" db:"cliente_apellido"`
	ClientPhone     *string         `json:"-" db:"cliente_telefono"`
	EntityName      *string         `json:"-" db:"entidad_razon_social"`
	EntityPhone     *string         `json:"-" db:"entidad_telefono"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

func (d *Debt) IsActive() bool {
	return d.Status == DebtStatusActive
}

// Recipient returns the phone that should receive reminders for this debt,
// or "" when none is on file.
func (d *Debt) Recipient() string {
	switch d.Type {
	case DebtTypeParticular, DebtTypeRental:
		return deref(d.ClientPhone)
	case DebtTypeEntity:
		return deref(d.EntityPhone)
	}
	return ""
}

// DebtorName is the display name used in reminder messages.
func (d *Debt) DebtorName() string {
	if d.Type == DebtTypeEntity {
		return deref(d.EntityName)
	}
	return strings.TrimSpace(deref(d.ClientFirstName) + " " + deref(d.ClientLastName))
}

// TypeLabel is the label used for the debt type in reminder messages.
func (d *Debt) TypeLabel() string {
	switch d.Type {
	case DebtTypeParticular:
		return "prestamo"
	case DebtTypeEntity:
		return "deuda con entidad"
	case DebtTypeRental:
		return "alquiler"
	}
	return "deuda"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
