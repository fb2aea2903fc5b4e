package relay

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/krauzhul/VoyagMED/internal/platform/metrics"
	"github.com/krauzhul/VoyagMED/internal/platform/telegram"
)

// MaxMessageLen is Telegram's limit on message text, in characters.
const MaxMessageLen = 4096

// Dispatcher resolves a patient's chat and sends one message with an
// acknowledgment button. It never retries and never writes to the store.
type Dispatcher struct {
	directory RecipientDirectory
	messenger Messenger
	logger    zerolog.Logger
	metrics   *metrics.Collector
}

func NewDispatcher(directory RecipientDirectory, messenger Messenger, logger zerolog.Logger, m *metrics.Collector) *Dispatcher {
	return &Dispatcher{
		directory: directory,
		messenger: messenger,
		logger:    logger.With().Str("component", "dispatcher").Logger(),
		metrics:   m,
	}
}

// Validate checks a job before any I/O.
func (j NotificationJob) Validate() error {
	if j.NotificationID == uuid.Nil {
		return invalidJob("notification_id is required")
	}
	if j.PatientID == uuid.Nil {
		return invalidJob("patient_id is required")
	}
	if strings.TrimSpace(j.Message) == "" {
		return invalidJob("message is required")
	}
	if n := len([]rune(j.Message)); n > MaxMessageLen {
		return invalidJob("message is %d characters, limit is %d", n, MaxMessageLen)
	}
	if !j.Kind.Valid() {
		return invalidJob("type must be %q or %q, got %q", KindMedication, KindAppointment, j.Kind)
	}
	return nil
}

// Dispatch sends job to the patient's bound chat. Errors are ErrInvalidJob,
// ErrRecipientNotFound, *PersistenceError (lookup failed) or *DeliveryError.
func (d *Dispatcher) Dispatch(ctx context.Context, job NotificationJob) (*DispatchResult, error) {
	if err := job.Validate(); err != nil {
		d.metrics.ObserveDispatch(string(job.Kind), "invalid")
		return nil, err
	}
	log := d.logger.With().
		Stringer("notification_id", job.NotificationID).
		Stringer("patient_id", job.PatientID).
		Logger()

	payload, err := Acknowledge(job.NotificationID).Encode()
	if err != nil {
		d.metrics.ObserveDispatch(string(job.Kind), "invalid")
		return nil, invalidJob("%v", err)
	}

	binding, err := d.directory.ResolveByPatient(ctx, job.PatientID)
	switch {
	case errors.Is(err, ErrBindingNotFound):
		d.metrics.ObserveDispatch(string(job.Kind), "no_recipient")
		log.Info().Msg("no active recipient for patient")
		return nil, ErrRecipientNotFound
	case err != nil:
		d.metrics.ObserveDispatch(string(job.Kind), "store_error")
		log.Error().Err(err).Msg("resolve recipient")
		return nil, &PersistenceError{Op: "resolve recipient", Cause: err}
	case !binding.Active:
		d.metrics.ObserveDispatch(string(job.Kind), "no_recipient")
		return nil, ErrRecipientNotFound
	}

	sent, err := d.messenger.SendWithAction(ctx, binding.ChatID, job.Message, telegram.Button{
		Text: job.Kind.ButtonLabel(),
		Data: payload,
	})
	if err != nil {
		d.metrics.ObserveDispatch(string(job.Kind), "delivery_error")
		log.Error().Err(err).Int64("chat_id", binding.ChatID).Msg("send notification")
		return nil, &DeliveryError{ChatID: binding.ChatID, Cause: err}
	}

	d.metrics.ObserveDispatch(string(job.Kind), "sent")
	log.Info().Int64("chat_id", binding.ChatID).Int("message_id", sent.MessageID).Msg("notification sent")
	return &DispatchResult{
		NotificationID: job.NotificationID,
		ChatID:         binding.ChatID,
		MessageID:      sent.MessageID,
	}, nil
}
