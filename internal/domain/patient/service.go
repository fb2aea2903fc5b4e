package patient

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/krauzhul/VoyagMED/pkg/apperr"
)

type Service struct {
	patients PatientRepository
	now      func() time.Time
}

func NewService(patients PatientRepository) *Service {
	return &Service{patients: patients, now: time.Now}
}

var validSexes = map[string]bool{
	SexMale:   true,
	SexFemale: true,
}

func (s *Service) validate(p *Patient) error {
	p.FullName = strings.TrimSpace(p.FullName)

	var c apperr.Checks
	c.Require(p.FullName != "", "full_name is required")
	c.OneOf("sex", p.Sex, validSexes)
	if p.BirthDate.Valid {
		c.Require(!p.BirthDate.Time.After(s.now()), "birth_date cannot be in the future")
	}
	if !apperr.Blank(p.ContactEmail) {
		_, err := mail.ParseAddress(*p.ContactEmail)
		c.Require(err == nil, "contact_email: invalid address %q", *p.ContactEmail)
	}
	return c.Err()
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := s.validate(p); err != nil {
		return err
	}
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if err := s.validate(p); err != nil {
		return err
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, f, limit, offset)
}
