package dashboard

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// RecentLimit caps both lists on the overview.
const RecentLimit = 5

// Tables counted on the overview, keyed by the name used in the response.
var Tables = []string{"patients", "tasks", "journal", "drugs", "medical_data", "notifications", "telegram_users"}

type PatientBrief struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

type TaskBrief struct {
	ID          uuid.UUID   `json:"id"`
	PatientID   uuid.UUID   `json:"patient_id"`
	PatientName *string     `json:"patient_name,omitempty"`
	TaskName    string      `json:"task_name"`
	Status      string      `json:"status"`
	DueDate     pgtype.Date `json:"due_date"`
}

// Overview is the body of GET /dashboard.
type Overview struct {
	Counts         map[string]int  `json:"counts"`
	RecentPatients []*PatientBrief `json:"recent_patients"`
	UpcomingTasks  []*TaskBrief    `json:"upcoming_tasks"`
	GeneratedAt    time.Time       `json:"generated_at"`
}
