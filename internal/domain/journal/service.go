package journal

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/krauzhul/VoyagMED/pkg/apperr"
)

type Service struct {
	entries EntryRepository
}

func NewService(entries EntryRepository) *Service {
	return &Service{entries: entries}
}

var validEntryStatuses = map[string]bool{
	"planned":     true,
	"in_progress": true,
	"completed":   true,
}

var validEntryModes = map[string]bool{
	"online":  true,
	"offline": true,
	"phone":   true,
}

func validate(e *Entry) error {
	e.Name = strings.TrimSpace(e.Name)
	if e.Status == "" {
		e.Status = "planned"
	}

	var c apperr.Checks
	c.Require(e.PatientID != uuid.Nil, "patient_id is required")
	c.Require(e.Name != "", "name is required")
	c.Require(validEntryStatuses[e.Status], "status: invalid value %q", e.Status)
	c.OneOf("mode", e.Mode, validEntryModes)
	c.TimeOfDay("event_time", e.EventTime)
	return c.Err()
}

func (s *Service) CreateEntry(ctx context.Context, e *Entry) error {
	if err := validate(e); err != nil {
		return err
	}
	return s.entries.Create(ctx, e)
}

func (s *Service) GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.entries.GetByID(ctx, id)
}

func (s *Service) UpdateEntry(ctx context.Context, e *Entry) error {
	if err := validate(e); err != nil {
		return err
	}
	return s.entries.Update(ctx, e)
}

func (s *Service) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	return s.entries.Delete(ctx, id)
}

func (s *Service) ListEntries(ctx context.Context, f ListFilter, limit, offset int) ([]*Entry, int, error) {
	return s.entries.List(ctx, f, limit, offset)
}
