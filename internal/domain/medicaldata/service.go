package medicaldata

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/krauzhul/VoyagMED/pkg/apperr"
)

type Service struct {
	records RecordRepository
}

func NewService(records RecordRepository) *Service {
	return &Service{records: records}
}

var validRecordStatuses = map[string]bool{
	"planned":   true,
	"completed": true,
	"cancelled": true,
}

var validCurrencies = map[string]bool{
	"RUB": true,
	"USD": true,
	"EUR": true,
}

var validPaymentMethods = map[string]bool{
	"cash":      true,
	"card":      true,
	"insurance": true,
}

func validate(m *Record) error {
	m.Examination = strings.TrimSpace(m.Examination)
	if m.Status == "" {
		m.Status = "planned"
	}
	if m.Currency != nil {
		cur := strings.ToUpper(strings.TrimSpace(*m.Currency))
		m.Currency = &cur
	}

	var c apperr.Checks
	c.Require(m.PatientID != uuid.Nil, "patient_id is required")
	c.Require(m.Examination != "", "examination is required")
	c.Require(validRecordStatuses[m.Status], "status: invalid value %q", m.Status)
	c.OneOf("currency", m.Currency, validCurrencies)
	c.OneOf("payment_method", m.PaymentMethod, validPaymentMethods)
	c.TimeOfDay("exam_time", m.ExamTime)
	if m.Price != nil {
		c.Require(*m.Price >= 0, "price must not be negative")
		c.Require(!apperr.Blank(m.Currency), "currency is required when price is set")
	}
	return c.Err()
}

func (s *Service) CreateRecord(ctx context.Context, m *Record) error {
	if err := validate(m); err != nil {
		return err
	}
	return s.records.Create(ctx, m)
}

func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Service) UpdateRecord(ctx context.Context, m *Record) error {
	if err := validate(m); err != nil {
		return err
	}
	return s.records.Update(ctx, m)
}

func (s *Service) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	return s.records.Delete(ctx, id)
}

func (s *Service) ListRecords(ctx context.Context, f ListFilter, limit, offset int) ([]*Record, int, error) {
	return s.records.List(ctx, f, limit, offset)
}
