package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Entry is one event in a patient's care journal: a call, a visit, a
// consultation.
type Entry struct {
	ID             uuid.UUID   `json:"id"`
	PatientID      uuid.UUID   `json:"patient_id"`
	Status         string      `json:"status"`
	EventDate      pgtype.Date `json:"event_date"`
	EventTime      *string     `json:"event_time,omitempty"`
	Mode           *string     `json:"mode,omitempty"`
	Name           string      `json:"name"`
	Agenda         *string     `json:"agenda,omitempty"`
	Outcomes       *string     `json:"outcomes,omitempty"`
	AdditionalInfo *string     `json:"additional_info,omitempty"`
	ManagerID      *string     `json:"manager_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type ListFilter struct {
	PatientID *uuid.UUID
	Status    string
	Search    string
	Sort      string
}
