package repositories

import (
	"context"
	"fmt"

	"inventoryflow/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error)
	DeleteAll(ctx context.Context, recipientID uuid.UUID) (int64, error)
}

type notificationRepo struct {
	db Database
}

func NewNotificationRepo(db Database) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Status == "" {
		n.Status = models.NotificationStatusPending
	}
	query := `
		INSERT INTO notifications (id, product_id, message, recipient_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err := r.db.Exec(ctx, query, n.ID, n.ProductID, n.Message, n.RecipientID, string(n.Status))
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func scanNotification(row pgx.Row, n *models.Notification) error {
	return row.Scan(&n.ID, &n.ProductID, &n.ProductName, &n.Message, &n.RecipientID, &n.Status, &n.SentAt, &n.CreatedAt)
}

func (r *notificationRepo) ListByRecipient(ctx context.Context, recipientID uuid.UUID) ([]*models.Notification, error) {
	query := `
		SELECT n.id, n.product_id, COALESCE(p.name, ''), n.message, n.recipient_id, n.status, n.sent_at, n.created_at
		FROM notifications n
		LEFT JOIN products p ON p.id = n.product_id
		WHERE n.recipient_id = $1
		ORDER BY n.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*models.Notification{}
	for rows.Next() {
		n := &models.Notification{}
		if err := scanNotification(rows, n); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *notificationRepo) MarkRead(ctx context.Context, id, recipientID uuid.UUID) (*models.Notification, error) {
	query := `
		WITH updated AS (
			UPDATE notifications
			SET status = $1, sent_at = NOW()
			WHERE id = $2 AND recipient_id = $3
			RETURNING id, product_id, message, recipient_id, status, sent_at, created_at
		)
		SELECT u.id, u.product_id, COALESCE(p.name, ''), u.message, u.recipient_id, u.status, u.sent_at, u.created_at
		FROM updated u
		LEFT JOIN products p ON p.id = u.product_id
	`
	n := &models.Notification{}
	if err := scanNotification(r.db.QueryRow(ctx, query, string(models.NotificationStatusSent), id, recipientID), n); err != nil {
		return nil, notFound(err)
	}
	return n, nil
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	query := `
		UPDATE notifications
		SET status = $1, sent_at = NOW()
		WHERE recipient_id = $2 AND status = $3
	`
	tag, err := r.db.Exec(ctx, query, string(models.NotificationStatusSent), recipientID, string(models.NotificationStatusPending))
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *notificationRepo) DeleteAll(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE recipient_id = $1`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}
