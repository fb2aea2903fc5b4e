package drug

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Prescription is a drug course assigned to a patient.
type Prescription struct {
	ID                   uuid.UUID   `json:"id"`
	PatientID            uuid.UUID   `json:"patient_id"`
	Status               string      `json:"status"`
	Mode                 *string     `json:"mode,omitempty"`
	Name                 string      `json:"name"`
	Dose                 *float64    `json:"dose,omitempty"`
	Unit                 *string     `json:"unit,omitempty"`
	Quantities           *int        `json:"quantities,omitempty"`
	DosageForm           *string     `json:"dosage_form,omitempty"`
	Periodicity          *string     `json:"periodicity,omitempty"`
	WeekDays             *string     `json:"week_days,omitempty"`
	Interval             *string     `json:"interval,omitempty"`
	CourseBreak          *string     `json:"course_break,omitempty"`
	TimeStart            *string     `json:"time_start,omitempty"`
	DateStart            pgtype.Date `json:"date_start"`
	DateEnd              pgtype.Date `json:"date_end"`
	AdministrationMethod *string     `json:"administration_method,omitempty"`
	Note                 *string     `json:"note,omitempty"`
	NoteForManager       *string     `json:"note_for_manager,omitempty"`
	DrugLink             *string     `json:"drug_link,omitempty"`
	ManagerID            *string     `json:"manager_id,omitempty"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

type ListFilter struct {
	PatientID *uuid.UUID
	Status    string
	Search    string
	Sort      string
}
