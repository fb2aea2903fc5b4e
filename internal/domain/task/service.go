package task

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/krauzhul/VoyagMED/pkg/apperr"
)

type Service struct {
	tasks TaskRepository
}

func NewService(tasks TaskRepository) *Service {
	return &Service{tasks: tasks}
}

var validTaskStatuses = map[string]bool{
	StatusNew:        true,
	StatusInProgress: true,
	StatusDone:       true,
	StatusCancelled:  true,
}

func validate(t *Task) error {
	t.TaskName = strings.TrimSpace(t.TaskName)
	if t.Status == "" {
		t.Status = StatusNew
	}

	var c apperr.Checks
	c.Require(t.PatientID != uuid.Nil, "patient_id is required")
	c.Require(t.TaskName != "", "task_name is required")
	c.Require(validTaskStatuses[t.Status], "status: invalid value %q", t.Status)
	if t.StartDate.Valid && t.DueDate.Valid {
		c.Require(!t.DueDate.Time.Before(t.StartDate.Time), "due_date must not be before start_date")
	}
	return c.Err()
}

func (s *Service) CreateTask(ctx context.Context, t *Task) error {
	if err := validate(t); err != nil {
		return err
	}
	return s.tasks.Create(ctx, t)
}

func (s *Service) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	return s.tasks.GetByID(ctx, id)
}

func (s *Service) UpdateTask(ctx context.Context, t *Task) error {
	if err := validate(t); err != nil {
		return err
	}
	return s.tasks.Update(ctx, t)
}

func (s *Service) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return s.tasks.Delete(ctx, id)
}

func (s *Service) ListTasks(ctx context.Context, f ListFilter, limit, offset int) ([]*Task, int, error) {
	if f.Status != "" && !validTaskStatuses[f.Status] {
		return nil, 0, &apperr.ValidationError{Fields: []string{"status: invalid filter " + f.Status}}
	}
	return s.tasks.List(ctx, f, limit, offset)
}
