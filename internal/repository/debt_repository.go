package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// debtSelect joins the client and the first linked entity so reminders can
// be addressed without further lookups.
const debtSelect = `
		SELECT d.id, d.user_id, d.cliente_id, d.descripcion, d.monto_total, d.monto_pendiente, d.tasa_interes,
			d.fecha_inicio, d.fecha_vencimiento, d.estado, d.tipo_deuda, d.moneda, d.created_at, d.updated_at,
			c.nombre AS cliente_nombre, c.apellido AS cliente_apellido, c.telefono AS cliente_telefono,
			e.razon_social AS entidad_razon_social, e.contacto_telefono AS entidad_telefono
		FROM deudas d
		LEFT JOIN clientes c ON c.id = d.cliente_id
		LEFT JOIN LATERAL (
			SELECT en.razon_social, en.contacto_telefono
			FROM deuda_entidades de
			JOIN entidades en ON en.id = de.entidad_id
			WHERE de.deuda_id = d.id
			ORDER BY en.razon_social
			LIMIT 1
		) e ON TRUE
`

type debtRepository struct {
	db sqlx.ExtContext
}

func NewDebtRepository(db sqlx.ExtContext) DebtRepository {
	return &debtRepository{db: db}
}

func (r *debtRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Debt, error) {
	var debt domain.Debt
	err := sqlx.GetContext(ctx, r.db, &debt, debtSelect+` WHERE d.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDebtNotFound(id.String())
	}
	if err != nil {
		return nil, err
	}

	return &debt, nil
}

func (r *debtRepository) FindDueSoon(ctx context.Context, from, until, notifiedSince time.Time) ([]*domain.Debt, error) {
	query := debtSelect + `
		WHERE d.estado = 'activa'
			AND d.monto_pendiente > 0
			AND d.fecha_vencimiento IS NOT NULL
			AND d.fecha_vencimiento BETWEEN $1::date AND $2::date
			AND NOT EXISTS (
				SELECT 1 FROM notificaciones n
				WHERE n.deuda_id = d.id
					AND n.canal = 'whatsapp'
					AND n.estado = 'enviada'
					AND n.created_at >= $3
			)
		ORDER BY d.fecha_vencimiento, d.id
	`

	debts := []*domain.Debt{}
	err := sqlx.SelectContext(ctx, r.db, &debts, query, from, until, notifiedSince)
	if err != nil {
		return nil, err
	}

	return debts, nil
}
