package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationStatus tracks whether the recipient has seen an in-app notification.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
)

// Notification is the in-app counterpart of a low-stock email, one per
// administrator per flagged product.
type Notification struct {
	ID          uuid.UUID          `json:"id" db:"id"`
	ProductID   uuid.UUID          `json:"product_id" db:"product_id"`
	ProductName string             `json:"product_name,omitempty" db:"-"`
	Message     string             `json:"message" db:"message"`
	RecipientID uuid.UUID          `json:"recipient_id" db:"recipient_id"`
	Status      NotificationStatus `json:"status" db:"status"`
	SentAt      *time.Time         `json:"sent_at" db:"sent_at"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
}
