package drug

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/krauzhul/VoyagMED/pkg/apperr"
)

type Service struct {
	prescriptions PrescriptionRepository
}

func NewService(prescriptions PrescriptionRepository) *Service {
	return &Service{prescriptions: prescriptions}
}

var validPrescriptionStatuses = map[string]bool{
	"active":    true,
	"paused":    true,
	"completed": true,
}

func validate(p *Prescription) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Status == "" {
		p.Status = "active"
	}

	var c apperr.Checks
	c.Require(p.PatientID != uuid.Nil, "patient_id is required")
	c.Require(p.Name != "", "name is required")
	c.Require(validPrescriptionStatuses[p.Status], "status: invalid value %q", p.Status)
	if p.Dose != nil {
		c.Require(*p.Dose >= 0, "dose must not be negative")
	}
	if p.Quantities != nil {
		c.Require(*p.Quantities >= 0, "quantities must not be negative")
	}
	c.TimeOfDay("time_start", p.TimeStart)
	if p.DateStart.Valid && p.DateEnd.Valid {
		c.Require(!p.DateEnd.Time.Before(p.DateStart.Time), "date_end must not be before date_start")
	}
	if !apperr.Blank(p.DrugLink) {
		u, err := url.Parse(*p.DrugLink)
		c.Require(err == nil && (u.Scheme == "http" || u.Scheme == "https"), "drug_link: expected an http(s) URL")
	}
	return c.Err()
}

func (s *Service) CreatePrescription(ctx context.Context, p *Prescription) error {
	if err := validate(p); err != nil {
		return err
	}
	return s.prescriptions.Create(ctx, p)
}

func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.prescriptions.GetByID(ctx, id)
}

func (s *Service) UpdatePrescription(ctx context.Context, p *Prescription) error {
	if err := validate(p); err != nil {
		return err
	}
	return s.prescriptions.Update(ctx, p)
}

func (s *Service) DeletePrescription(ctx context.Context, id uuid.UUID) error {
	return s.prescriptions.Delete(ctx, id)
}

func (s *Service) ListPrescriptions(ctx context.Context, f ListFilter, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.List(ctx, f, limit, offset)
}
