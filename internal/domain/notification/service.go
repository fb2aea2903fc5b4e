package notification

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/krauzhul/VoyagMED/internal/domain/relay"
	"github.com/krauzhul/VoyagMED/internal/platform/metrics"
	"github.com/krauzhul/VoyagMED/internal/platform/telegram"
	"github.com/krauzhul/VoyagMED/pkg/apperr"
)

// Sender delivers one job. *relay.Dispatcher implements it.
type Sender interface {
	Dispatch(ctx context.Context, job relay.NotificationJob) (*relay.DispatchResult, error)
}

// AckLister reads acknowledgments. relay.AcknowledgmentStore implements it.
type AckLister interface {
	ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]*relay.AcknowledgmentRecord, error)
}

type Service struct {
	notifications NotificationRepository
	sender        Sender
	acks          AckLister
	maxAttempts   uint
	newBackOff    func() backoff.BackOff
	logger        zerolog.Logger
	metrics       *metrics.Collector
	now           func() time.Time
}

type ServiceDeps struct {
	Notifications NotificationRepository
	Sender        Sender
	Acks          AckLister
	MaxAttempts   uint
	Logger        zerolog.Logger
	Metrics       *metrics.Collector
}

func NewService(d ServiceDeps) *Service {
	attempts := d.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	return &Service{
		notifications: d.Notifications,
		sender:        d.Sender,
		acks:          d.Acks,
		maxAttempts:   attempts,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
		logger:  d.Logger.With().Str("component", "notifications").Logger(),
		metrics: d.Metrics,
		now:     time.Now,
	}
}

var (
	validStatuses = map[string]bool{
		StatusActive: true, StatusPaused: true, StatusCompleted: true, StatusSent: true, StatusFailed: true,
	}
	validRecipientTypes = map[string]bool{"patient": true, "doctor": true, "manager": true}
	validSubjects       = map[string]bool{string(relay.KindMedication): true, string(relay.KindAppointment): true}
	validSources        = map[string]bool{"manual": true, "drugs": true, "tasks": true}
	validPeriodicities  = map[string]bool{"once": true, "daily": true, "weekly": true, "monthly": true}
)

func validate(n *Notification) error {
	n.Name = strings.TrimSpace(n.Name)
	n.MessageText = strings.TrimSpace(n.MessageText)
	if n.Status == "" {
		n.Status = StatusActive
	}

	var c apperr.Checks
	c.Require(n.PatientID != uuid.Nil, "patient_id is required")
	c.Require(n.Name != "", "name is required")
	c.Require(n.MessageText != "", "message_text is required")
	c.Require(len([]rune(n.MessageText)) <= relay.MaxMessageLen,
		"message_text is longer than %d characters", relay.MaxMessageLen)
	c.Require(validStatuses[n.Status], "status: invalid value %q", n.Status)
	c.OneOf("recipient_type", n.RecipientType, validRecipientTypes)
	c.OneOf("subject", n.Subject, validSubjects)
	c.OneOf("schedule_from_source", n.ScheduleFromSource, validSources)
	c.OneOf("periodicity", n.Periodicity, validPeriodicities)
	return c.Err()
}

func (s *Service) CreateNotification(ctx context.Context, n *Notification) error {
	if err := validate(n); err != nil {
		return err
	}
	return s.notifications.Create(ctx, n)
}

func (s *Service) GetNotification(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return s.notifications.GetByID(ctx, id)
}

func (s *Service) UpdateNotification(ctx context.Context, n *Notification) error {
	if err := validate(n); err != nil {
		return err
	}
	return s.notifications.Update(ctx, n)
}

func (s *Service) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	return s.notifications.Delete(ctx, id)
}

func (s *Service) ListNotifications(ctx context.Context, f ListFilter, limit, offset int) ([]*Notification, int, error) {
	if f.Status != "" && !validStatuses[f.Status] {
		return nil, 0, &apperr.ValidationError{Fields: []string{"status: invalid filter value " + f.Status}}
	}
	return s.notifications.List(ctx, f, limit, offset)
}

// Send delivers the notification to the patient's chat. Transient failures
// are retried with exponential backoff; a missing recipient or an invalid
// job fails on the first attempt. The outcome is written back to the record
// either way and the dispatch error is returned on failure.
func (s *Service) Send(ctx context.Context, id uuid.UUID) (*SendResult, error) {
	n, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	log := s.logger.With().Stringer("notification_id", n.ID).Stringer("patient_id", n.PatientID).Logger()

	attempts := 0
	res, sendErr := backoff.Retry(ctx, func() (*relay.DispatchResult, error) {
		attempts++
		r, err := s.sender.Dispatch(ctx, n.Job())
		if errors.Is(err, relay.ErrRecipientNotFound) || errors.Is(err, relay.ErrInvalidJob) || telegram.IsRejected(err) {
			return nil, backoff.Permanent(err)
		}
		return r, err
	},
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(s.maxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Dur("retry_in", next).Msg("dispatch failed, retrying")
		}),
	)

	d := Delivery{Status: StatusSent}
	outcome := "sent"
	if sendErr != nil {
		msg := sendErr.Error()
		d = Delivery{Status: StatusFailed, LastError: &msg}
		outcome = "failed"
	} else {
		at := s.now().UTC()
		d.SentAt = &at
	}
	s.metrics.ObserveSend(outcome, attempts)

	updated, err := s.notifications.RecordDelivery(context.WithoutCancel(ctx), n.ID, d)
	if err != nil {
		// The send outcome wins over a bookkeeping failure.
		log.Error().Err(err).Str("status", d.Status).Msg("record delivery")
		updated = n
	}

	if sendErr != nil {
		log.Error().Err(sendErr).Int("attempts", attempts).Msg("notification not delivered")
		return &SendResult{Notification: updated, Attempts: attempts}, sendErr
	}
	log.Info().Int("attempts", attempts).Int64("chat_id", res.ChatID).Msg("notification delivered")
	return &SendResult{Notification: updated, Delivery: res, Attempts: attempts}, nil
}

// Acknowledgments lists the recipient's confirmations for a notification.
func (s *Service) Acknowledgments(ctx context.Context, id uuid.UUID) ([]*relay.AcknowledgmentRecord, error) {
	if _, err := s.notifications.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.acks.ListByNotification(ctx, id)
}
