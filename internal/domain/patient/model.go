package patient

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	SexMale   = "мужской"
	SexFemale = "женский"
)

// Patient is a person whose care is coordinated by a manager.
type Patient struct {
	ID           uuid.UUID   `json:"id"`
	FullName     string      `json:"full_name"`
	BirthDate    pgtype.Date `json:"birth_date"`
	Sex          *string     `json:"sex,omitempty"`
	ContactPhone *string     `json:"contact_phone,omitempty"`
	ContactEmail *string     `json:"contact_email,omitempty"`
	Address      *string     `json:"address,omitempty"`
	ManagerID    *string     `json:"manager_id,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// ListFilter narrows a patient listing. Search matches the full name.
type ListFilter struct {
	Search    string
	ManagerID string
	Sort      string
}
