package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/krauzhul/VoyagMED/internal/domain/relay"
)

const (
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
	StatusSent      = "sent"
	StatusFailed    = "failed"
)

// Notification is a message scheduled for a patient. Periodicity and
// next_notification_time are stored for the UI; sending is on demand.
type Notification struct {
	ID                   uuid.UUID  `json:"id"`
	PatientID            uuid.UUID  `json:"patient_id"`
	Status               string     `json:"status"`
	RecipientType        *string    `json:"recipient_type,omitempty"`
	Subject              *string    `json:"subject,omitempty"`
	Name                 string     `json:"name"`
	ScheduleFromSource   *string    `json:"schedule_from_source,omitempty"`
	Periodicity          *string    `json:"periodicity,omitempty"`
	MessageSchedule      *string    `json:"message_schedule,omitempty"`
	AdditionalInfo       *string    `json:"additional_info,omitempty"`
	TextConstructor      *string    `json:"text_constructor,omitempty"`
	MessageText          string     `json:"message_text"`
	NextNotificationTime *time.Time `json:"next_notification_time,omitempty"`
	CreatedBy            *string    `json:"created_by,omitempty"`
	LastError            *string    `json:"last_error,omitempty"`
	SentAt               *time.Time `json:"sent_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Kind maps the subject onto the relay button wording. Anything other than
// an appointment is treated as medication.
func (n *Notification) Kind() relay.Kind {
	if n.Subject != nil && relay.Kind(*n.Subject) == relay.KindAppointment {
		return relay.KindAppointment
	}
	return relay.KindMedication
}

// Job builds the relay request for this record.
func (n *Notification) Job() relay.NotificationJob {
	return relay.NotificationJob{
		NotificationID: n.ID,
		PatientID:      n.PatientID,
		Message:        n.MessageText,
		Kind:           n.Kind(),
	}
}

// Delivery is the bookkeeping written after a send.
type Delivery struct {
	Status    string
	LastError *string
	SentAt    *time.Time
}

// SendResult is returned by POST /notifications/:id/send.
type SendResult struct {
	Notification *Notification        `json:"notification"`
	Delivery     *relay.DispatchResult `json:"delivery,omitempty"`
	Attempts     int                   `json:"attempts"`
}

type ListFilter struct {
	PatientID *uuid.UUID
	Status    string
	Search    string
	Sort      string
}
