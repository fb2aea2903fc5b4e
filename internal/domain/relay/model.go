package relay

import (
	"time"

	"github.com/google/uuid"
)

// Kind selects the acknowledgment button wording.
type Kind string

const (
	KindMedication  Kind = "medication"
	KindAppointment Kind = "appointment"
)

func (k Kind) Valid() bool {
	return k == KindMedication || k == KindAppointment
}

// ButtonLabel is the text of the single acknowledgment button.
func (k Kind) ButtonLabel() string {
	if k == KindMedication {
		return "Принято ✓"
	}
	return "Получено ✓"
}

// NotificationJob is one request to deliver a notification record.
type NotificationJob struct {
	NotificationID uuid.UUID
	PatientID      uuid.UUID
	Message        string
	Kind           Kind
}

// DispatchResult identifies the delivered chat message.
type DispatchResult struct {
	NotificationID uuid.UUID `json:"notification_id"`
	ChatID         int64     `json:"chat_id"`
	MessageID      int       `json:"message_id"`
}

// RecipientBinding maps a patient to a Telegram chat. Rows are keyed by
// chat id; patient_id is unique when set and is assigned by staff.
type RecipientBinding struct {
	ID        uuid.UUID  `json:"id"`
	ChatID    int64      `json:"chat_id"`
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
	Username  *string    `json:"username,omitempty"`
	Active    bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// AcknowledgmentRecord is written once per acknowledged notification and
// never updated.
type AcknowledgmentRecord struct {
	ID             uuid.UUID `json:"id"`
	NotificationID uuid.UUID `json:"notification_id"`
	ChatID         int64     `json:"chat_id"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
}

// StartEvent is a /start or /stop command from a chat.
type StartEvent struct {
	ChatID   int64
	Username string
}

// CallbackEvent is a button press on a relayed message.
type CallbackEvent struct {
	CallbackID string
	ChatID     int64
	MessageID  int
	Data       string
}
