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
	"github.com/lib/pq"
)

const notificationColumns = `id, user_id, deuda_id, canal, estado, mensaje, destinatario, fecha_envio, error,
		created_at, updated_at`

type notificationRepository struct {
	db sqlx.ExtContext
}

func NewNotificationRepository(db sqlx.ExtContext) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notificaciones (id, user_id, deuda_id, canal, estado, mensaje, destinatario, fecha_envio, error,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.DebtID,
		n.Channel,
		n.Status,
		n.Message,
		n.Destination,
		n.SentAt,
		n.Error,
		n.CreatedAt,
		n.UpdatedAt,
	)

	return err
}

func (r *notificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notificaciones WHERE id = $1`

	var n domain.Notification
	err := sqlx.GetContext(ctx, r.db, &n, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapNotFound("Notification")
	}
	if err != nil {
		return nil, err
	}

	return &n, nil
}

func (r *notificationRepository) MarkSent(ctx context.Context, n *domain.Notification) error {
	query := `
		UPDATE notificaciones
		SET estado = $2, fecha_envio = $3, error = NULL, updated_at = $4
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, n.ID, domain.NotificationStatusSent, n.SentAt, n.UpdatedAt)
	if err != nil {
		return err
	}

	return requireAffected(res, customError.WrapNotFound("Notification"))
}

func (r *notificationRepository) MarkFailed(ctx context.Context, n *domain.Notification) error {
	query := `
		UPDATE notificaciones
		SET estado = $2, error = $3, updated_at = $4
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, n.ID, domain.NotificationStatusFailed, n.Error, n.UpdatedAt)
	if err != nil {
		return err
	}

	return requireAffected(res, customError.WrapNotFound("Notification"))
}

func (r *notificationRepository) ListRecentSent(ctx context.Context, debtIDs []uuid.UUID, since time.Time) ([]*domain.Notification, error) {
	notifications := []*domain.Notification{}
	if len(debtIDs) == 0 {
		return notifications, nil
	}

	query := `
		SELECT ` + notificationColumns + `
		FROM notificaciones
		WHERE deuda_id = ANY($1) AND canal = 'whatsapp' AND estado = 'enviada' AND created_at >= $2
		ORDER BY created_at DESC
	`

	err := sqlx.SelectContext(ctx, r.db, &notifications, query, pq.Array(debtIDs), since)
	if err != nil {
		return nil, err
	}

	return notifications, nil
}
