package relay

import (
	"context"

	"github.com/google/uuid"
)

// RecipientDirectory stores chat bindings.
type RecipientDirectory interface {
	// ResolveByPatient returns the first active binding for the patient,
	// ordered by creation time, or ErrBindingNotFound.
	ResolveByPatient(ctx context.Context, patientID uuid.UUID) (*RecipientBinding, error)
	// UpsertByChat creates or reactivates the binding for chatID. An
	// existing patient link is preserved.
	UpsertByChat(ctx context.Context, chatID int64, username *string) (*RecipientBinding, error)
	Deactivate(ctx context.Context, chatID int64) error
	LinkPatient(ctx context.Context, chatID int64, patientID uuid.UUID) (*RecipientBinding, error)
	GetByChat(ctx context.Context, chatID int64) (*RecipientBinding, error)
	List(ctx context.Context, limit, offset int) ([]*RecipientBinding, int, error)
}

// AcknowledgmentStore is append-only.
type AcknowledgmentStore interface {
	// Record inserts rec. created is false when the notification was
	// already acknowledged; that is not an error.
	Record(ctx context.Context, rec *AcknowledgmentRecord) (created bool, err error)
	ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]*AcknowledgmentRecord, error)
}

// Store is a backend providing both relay tables.
type Store interface {
	RecipientDirectory
	AcknowledgmentStore
}
