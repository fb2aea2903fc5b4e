package telegram

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/krauzhul/VoyagMED/internal/platform/metrics"
)

const breakerName = "telegram-bot-api"

type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker. Zero means 5.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	if s.HalfOpenRequests == 0 {
		s.HalfOpenRequests = 1
	}
	return s
}

func newBreaker(s BreakerSettings, logger zerolog.Logger, m *metrics.Collector) *gobreaker.CircuitBreaker[*tgbotapi.APIResponse] {
	s = s.withDefaults()
	m.SetBreakerState(breakerName, stateValue(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker[*tgbotapi.APIResponse](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		IsSuccessful: countsAsHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			m.SetBreakerState(name, stateValue(to))
		},
	})
}

// countsAsHealthy treats client-side Bot API rejections (unknown chat, bot
// blocked by the user) as a healthy upstream. Only transport failures, rate
// limiting and 5xx move the breaker toward open.
func countsAsHealthy(err error) bool {
	return err == nil || IsRejected(err)
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}
