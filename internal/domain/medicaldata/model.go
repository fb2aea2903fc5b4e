package medicaldata

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Record is a medical examination: where, when, at what cost and with what
// result.
type Record struct {
	ID                 uuid.UUID   `json:"id"`
	PatientID          uuid.UUID   `json:"patient_id"`
	Status             string      `json:"status"`
	Examination        string      `json:"examination"`
	ExaminationDetails *string     `json:"examination_details,omitempty"`
	ExamDate           pgtype.Date `json:"exam_date"`
	ExamTime           *string     `json:"exam_time,omitempty"`
	Doctor             *string     `json:"doctor,omitempty"`
	ClinicName         *string     `json:"clinic_name,omitempty"`
	ClinicAddress      *string     `json:"clinic_address,omitempty"`
	ClinicContact      *string     `json:"clinic_contact,omitempty"`
	Price              *float64    `json:"price,omitempty"`
	Currency           *string     `json:"currency,omitempty"`
	PaymentMethod      *string     `json:"payment_method,omitempty"`
	Guide              *string     `json:"guide,omitempty"`
	Results            *string     `json:"results,omitempty"`
	Conclusion         *string     `json:"conclusion,omitempty"`
	Recommendations    *string     `json:"recommendations,omitempty"`
	Notes              *string     `json:"notes,omitempty"`
	PDFFile            *string     `json:"pdf_file,omitempty"`
	Link               *string     `json:"link,omitempty"`
	ManagerID          *string     `json:"manager_id,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

type ListFilter struct {
	PatientID *uuid.UUID
	Status    string
	Search    string
	Sort      string
}
