package task

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	StatusNew        = "new"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
)

// Task is a to-do item a manager tracks for one patient.
type Task struct {
	ID        uuid.UUID   `json:"id"`
	PatientID uuid.UUID   `json:"patient_id"`
	Status    string      `json:"status"`
	TaskName  string      `json:"task_name"`
	StartDate pgtype.Date `json:"start_date"`
	DueDate   pgtype.Date `json:"due_date"`
	ManagerID *string     `json:"manager_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Open reports whether the task still needs work.
func (t *Task) Open() bool {
	return t.Status == StatusNew || t.Status == StatusInProgress
}

type ListFilter struct {
	PatientID *uuid.UUID
	Status    string
	Search    string
	Sort      string
}
