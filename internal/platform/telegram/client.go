// Package telegram adapts the Bot API client to the narrow set of calls the
// relay needs and guards every call with a circuit breaker.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/krauzhul/VoyagMED/internal/platform/metrics"
)

// Button is a single inline action attached to an outbound message.
type Button struct {
	Text string
	Data string
}

// SentMessage identifies a message accepted by Telegram.
type SentMessage struct {
	ChatID    int64
	MessageID int
}

type Config struct {
	Token string
	// APIEndpoint is a printf pattern taking the token and the method name.
	// Empty means the public Bot API.
	APIEndpoint string
	HTTPTimeout time.Duration
	Breaker     BreakerSettings
}

// botAPI is the subset of *tgbotapi.BotAPI the client uses.
type botAPI interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	GetWebhookInfo() (tgbotapi.WebhookInfo, error)
}

type Client struct {
	api     botAPI
	self    tgbotapi.User
	breaker *gobreaker.CircuitBreaker[*tgbotapi.APIResponse]
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// New connects to the Bot API. The underlying library calls getMe while
// constructing, so an invalid token fails here rather than on first send.
func New(cfg Config, logger zerolog.Logger, m *metrics.Collector) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram: bot token is required")
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram: connect bot api: %w", err)
	}

	c := newClient(bot, logger, m, cfg.Breaker)
	c.self = bot.Self
	return c, nil
}

func newClient(api botAPI, logger zerolog.Logger, m *metrics.Collector, bs BreakerSettings) *Client {
	logger = logger.With().Str("component", "telegram").Logger()
	return &Client{
		api:     api,
		breaker: newBreaker(bs, logger, m),
		logger:  logger,
		metrics: m,
	}
}

// Username is the bot's @handle as reported by getMe.
func (c *Client) Username() string {
	return c.self.UserName
}

// SendWithAction sends text with one inline button underneath.
func (c *Client) SendWithAction(ctx context.Context, chatID int64, text string, button Button) (SentMessage, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(button.Text, button.Data)),
	)
	return c.sendMessage(ctx, "sendMessage", msg)
}

// SendText sends a plain message with no actions.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := c.sendMessage(ctx, "sendMessage", tgbotapi.NewMessage(chatID, text))
	return err
}

func (c *Client) sendMessage(ctx context.Context, method string, msg tgbotapi.Chattable) (SentMessage, error) {
	resp, err := c.call(ctx, method, func() (*tgbotapi.APIResponse, error) {
		return c.api.Request(msg)
	})
	if err != nil {
		return SentMessage{}, err
	}

	var sent tgbotapi.Message
	if err := json.Unmarshal(resp.Result, &sent); err != nil {
		return SentMessage{}, fmt.Errorf("telegram: decode %s result: %w", method, err)
	}
	out := SentMessage{MessageID: sent.MessageID}
	if sent.Chat != nil {
		out.ChatID = sent.Chat.ID
	}
	return out, nil
}

// AnswerCallback acknowledges a button press with a short toast.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	_, err := c.call(ctx, "answerCallbackQuery", func() (*tgbotapi.APIResponse, error) {
		return c.api.Request(tgbotapi.NewCallback(callbackID, text))
	})
	return err
}

// ClearActions removes the inline keyboard from a message. Clearing a
// message that already has no keyboard is not an error.
func (c *Client) ClearActions(ctx context.Context, chatID int64, messageID int) error {
	empty := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	_, err := c.call(ctx, "editMessageReplyMarkup", func() (*tgbotapi.APIResponse, error) {
		return c.api.Request(tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, empty))
	})
	if isNotModified(err) {
		return nil
	}
	return err
}

// SetWebhook registers url for message and callback_query updates. The
// library's WebhookConfig predates secret tokens, so the call is built by hand.
func (c *Client) SetWebhook(ctx context.Context, url, secret string, dropPending bool) error {
	params := make(tgbotapi.Params)
	params["url"] = url
	params.AddNonEmpty("secret_token", secret)
	params.AddBool("drop_pending_updates", dropPending)
	if err := params.AddInterface("allowed_updates", []string{"message", "callback_query"}); err != nil {
		return fmt.Errorf("telegram: encode allowed_updates: %w", err)
	}

	_, err := c.call(ctx, "setWebhook", func() (*tgbotapi.APIResponse, error) {
		return c.api.MakeRequest("setWebhook", params)
	})
	return err
}

func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	_, err := c.call(ctx, "deleteWebhook", func() (*tgbotapi.APIResponse, error) {
		return c.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending})
	})
	return err
}

// WebhookInfo is not routed through the breaker; it is only used by the CLI.
func (c *Client) WebhookInfo(ctx context.Context) (tgbotapi.WebhookInfo, error) {
	if err := ctx.Err(); err != nil {
		return tgbotapi.WebhookInfo{}, err
	}
	return c.api.GetWebhookInfo()
}

// call runs fn through the breaker. The Bot API client has no context
// support, so ctx is only checked before the request goes out; the HTTP
// client timeout bounds the call itself.
func (c *Client) call(ctx context.Context, method string, fn func() (*tgbotapi.APIResponse, error)) (*tgbotapi.APIResponse, error) {
	if err := ctx.Err(); err != nil {
		c.metrics.ObserveTelegramCall(method, "cancelled")
		return nil, err
	}

	resp, err := c.breaker.Execute(fn)
	switch {
	case err == nil:
		c.metrics.ObserveTelegramCall(method, "ok")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.ObserveTelegramCall(method, "rejected")
		return nil, fmt.Errorf("telegram: %s: %w", method, err)
	default:
		c.metrics.ObserveTelegramCall(method, "error")
		c.logger.Warn().Err(err).Str("method", method).Msg("bot api call failed")
		return nil, fmt.Errorf("telegram: %s: %w", method, err)
	}
	return resp, nil
}

// APIError extracts the Bot API error, if err carries one.
func APIError(err error) (*tgbotapi.Error, bool) {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsRejected reports whether the Bot API refused the request itself, a 4xx
// other than 429. Repeating such a request gets the same answer.
func IsRejected(err error) bool {
	apiErr, ok := APIError(err)
	return ok && apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests
}

func isNotModified(err error) bool {
	apiErr, ok := APIError(err)
	return ok && apiErr.Code == http.StatusBadRequest &&
		strings.Contains(apiErr.Message, "message is not modified")
}
