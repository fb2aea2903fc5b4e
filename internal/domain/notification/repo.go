package notification

import (
	"context"

	"github.com/google/uuid"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	Update(ctx context.Context, n *Notification) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Notification, int, error)
	// RecordDelivery writes send bookkeeping and returns the updated record.
	RecordDelivery(ctx context.Context, id uuid.UUID, d Delivery) (*Notification, error)
}
