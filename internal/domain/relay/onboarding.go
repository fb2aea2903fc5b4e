package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/krauzhul/VoyagMED/internal/platform/metrics"
)

const (
	replyWelcome      = "Добро пожаловать! Вы успешно подключили уведомления. Теперь вы будете получать напоминания о приёме лекарств и записях к врачу."
	replyWelcomeError = "Произошла ошибка при подключении уведомлений. Пожалуйста, попробуйте позже."
	replyStopped      = "Уведомления отключены. Чтобы снова получать напоминания, отправьте /start."
	replyStopError    = "Произошла ошибка при отключении уведомлений. Пожалуйста, попробуйте позже."
)

// Onboarding handles the /start and /stop chat commands.
type Onboarding struct {
	directory RecipientDirectory
	messenger Messenger
	logger    zerolog.Logger
	metrics   *metrics.Collector
}

func NewOnboarding(directory RecipientDirectory, messenger Messenger, logger zerolog.Logger, m *metrics.Collector) *Onboarding {
	return &Onboarding{
		directory: directory,
		messenger: messenger,
		logger:    logger.With().Str("component", "onboarding").Logger(),
		metrics:   m,
	}
}

// OnStart activates the chat's binding and confirms. If the store fails the
// user gets an apology instead; the returned error is non-nil only when the
// reply itself could not be sent.
func (o *Onboarding) OnStart(ctx context.Context, ev StartEvent) error {
	log := o.logger.With().Int64("chat_id", ev.ChatID).Logger()

	var username *string
	if ev.Username != "" {
		username = &ev.Username
	}

	if _, err := o.directory.UpsertByChat(ctx, ev.ChatID, username); err != nil {
		log.Error().Err(&PersistenceError{Op: "upsert recipient", Cause: err}).Msg("onboarding failed")
		o.metrics.ObserveOnboarding("start", "persistence_error")
		return o.reply(ctx, ev.ChatID, replyWelcomeError)
	}

	o.metrics.ObserveOnboarding("start", "ok")
	log.Info().Msg("recipient onboarded")
	return o.reply(ctx, ev.ChatID, replyWelcome)
}

// OnStop deactivates the chat's binding. The patient link is kept so a later
// /start resumes delivery without staff involvement.
func (o *Onboarding) OnStop(ctx context.Context, ev StartEvent) error {
	log := o.logger.With().Int64("chat_id", ev.ChatID).Logger()

	err := o.directory.Deactivate(ctx, ev.ChatID)
	switch {
	case err == nil, errors.Is(err, ErrBindingNotFound):
		o.metrics.ObserveOnboarding("stop", "ok")
		log.Info().Msg("recipient deactivated")
		return o.reply(ctx, ev.ChatID, replyStopped)
	default:
		log.Error().Err(&PersistenceError{Op: "deactivate recipient", Cause: err}).Msg("stop failed")
		o.metrics.ObserveOnboarding("stop", "persistence_error")
		return o.reply(ctx, ev.ChatID, replyStopError)
	}
}

func (o *Onboarding) reply(ctx context.Context, chatID int64, text string) error {
	if err := o.messenger.SendText(ctx, chatID, text); err != nil {
		return fmt.Errorf("reply to chat %d: %w", chatID, err)
	}
	return nil
}
