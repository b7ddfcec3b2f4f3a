package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/wsms/warehouse-backend/pkg/database"
)

// Notification types emitted by the ledger engine.
const (
	NotifTypeLowStock     = "low_stock"
	NotifTypeExpiringSoon = "expiring_soon"
	NotifTypeArchived     = "archived"
)

// Notification is an advisory row written when a batch crosses a threshold or
// is archived. Notifications never block the operation that produced them.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	NotifType string    `db:"notif_type" json:"notif_type"`
	BatchID   string    `db:"batch_id" json:"batch_id"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	ProductName string `db:"product_name" json:"product_name"`
}

// NotificationRepository handles notification persistence
type NotificationRepository struct {
	db *database.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationInsert = `
	INSERT INTO notifications (id, notif_type, batch_id, message)
	VALUES ($1, $2, $3, $4)
	RETURNING created_at
`

// Create writes a notification outside any transaction
func (r *NotificationRepository) Create(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return r.db.QueryRowxContext(ctx, notificationInsert,
		n.ID, n.NotifType, n.BatchID, n.Message,
	).Scan(&n.CreatedAt)
}

// CreateTx writes a notification inside the mutation's transaction, so the
// advisory row commits or rolls back together with the stock change.
func (r *NotificationRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return tx.QueryRowxContext(ctx, notificationInsert,
		n.ID, n.NotifType, n.BatchID, n.Message,
	).Scan(&n.CreatedAt)
}

// List lists notifications newest first, optionally filtered by type
func (r *NotificationRepository) List(ctx context.Context, notifType string, limit int) ([]*Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var notifications []*Notification
	query := `
		SELECT n.id, n.notif_type, n.batch_id, n.message, n.created_at, b.product_name
		FROM notifications n
		JOIN product_batches b ON b.id = n.batch_id
	`
	args := []interface{}{}
	if notifType != "" {
		query += ` WHERE n.notif_type = $1`
		args = append(args, notifType)
	}
	query += ` ORDER BY n.created_at DESC, n.id`

	if notifType != "" {
		query += ` LIMIT $2`
	} else {
		query += ` LIMIT $1`
	}
	args = append(args, limit)

	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, err
	}
	return notifications, nil
}
