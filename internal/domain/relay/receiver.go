package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/krauzhul/VoyagMED/internal/platform/metrics"
)

const (
	replyAcknowledged = "Уведомление подтверждено"
	replyAckFailed    = "Произошла ошибка. Попробуйте позже."
)

// AckOutcome describes what the receiver did with a callback.
type AckOutcome string

const (
	AckRecorded  AckOutcome = "recorded"
	AckDuplicate AckOutcome = "duplicate"
	AckIgnored   AckOutcome = "ignored"
	AckMalformed AckOutcome = "malformed"
	AckFailed    AckOutcome = "persistence_error"
)

// Receiver records acknowledgments from button presses.
type Receiver struct {
	acks      AcknowledgmentStore
	messenger Messenger
	logger    zerolog.Logger
	metrics   *metrics.Collector
	now       func() time.Time
}

func NewReceiver(acks AcknowledgmentStore, messenger Messenger, logger zerolog.Logger, m *metrics.Collector) *Receiver {
	return &Receiver{
		acks:      acks,
		messenger: messenger,
		logger:    logger.With().Str("component", "receiver").Logger(),
		metrics:   m,
		now:       time.Now,
	}
}

// OnCallback handles one button press. A store failure is reported to the
// user and the button is left in place so they can press it again; the
// returned error is non-nil only when talking to Telegram failed.
func (r *Receiver) OnCallback(ctx context.Context, ev CallbackEvent) (AckOutcome, error) {
	log := r.logger.With().Int64("chat_id", ev.ChatID).Str("callback_id", ev.CallbackID).Logger()

	action, err := DecodeAction(ev.Data)
	if err != nil {
		log.Warn().Err(err).Msg("rejecting callback payload")
		r.metrics.ObserveAcknowledgment(string(AckMalformed))
		return AckMalformed, r.answer(ctx, ev, "")
	}
	if action.Kind != ActionAcknowledge {
		log.Debug().Str("tag", action.Tag).Msg("ignoring callback with unknown tag")
		r.metrics.ObserveAcknowledgment(string(AckIgnored))
		return AckIgnored, r.answer(ctx, ev, "")
	}

	log = log.With().Stringer("notification_id", action.NotificationID).Logger()
	created, err := r.acks.Record(ctx, &AcknowledgmentRecord{
		NotificationID: action.NotificationID,
		ChatID:         ev.ChatID,
		AcknowledgedAt: r.now().UTC(),
	})
	if err != nil {
		perr := &PersistenceError{Op: "record acknowledgment", Cause: err}
		log.Error().Err(perr).Msg("acknowledgment not stored")
		r.metrics.ObserveAcknowledgment(string(AckFailed))
		return AckFailed, r.answer(ctx, ev, replyAckFailed)
	}

	outcome := AckRecorded
	if !created {
		outcome = AckDuplicate
	}
	r.metrics.ObserveAcknowledgment(string(outcome))
	log.Info().Str("outcome", string(outcome)).Msg("acknowledgment received")

	if err := r.answer(ctx, ev, replyAcknowledged); err != nil {
		return outcome, err
	}
	if ev.MessageID == 0 {
		return outcome, nil
	}
	if err := r.messenger.ClearActions(ctx, ev.ChatID, ev.MessageID); err != nil {
		return outcome, fmt.Errorf("clear actions: %w", err)
	}
	return outcome, nil
}

func (r *Receiver) answer(ctx context.Context, ev CallbackEvent, text string) error {
	if ev.CallbackID == "" {
		return errors.New("answer callback: missing callback id")
	}
	if err := r.messenger.AnswerCallback(ctx, ev.CallbackID, text); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}
