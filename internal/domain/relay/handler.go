package relay

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/krauzhul/VoyagMED/internal/platform/auth"
	"github.com/krauzhul/VoyagMED/internal/platform/telegram"
	"github.com/krauzhul/VoyagMED/pkg/pagination"
)

// SecretTokenHeader carries the secret registered with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

type Handler struct {
	dispatcher    *Dispatcher
	receiver      *Receiver
	onboarding    *Onboarding
	directory     RecipientDirectory
	acks          AcknowledgmentStore
	webhookSecret string
	logger        zerolog.Logger
}

type HandlerDeps struct {
	Dispatcher    *Dispatcher
	Receiver      *Receiver
	Onboarding    *Onboarding
	Directory     RecipientDirectory
	Acks          AcknowledgmentStore
	WebhookSecret string
	Logger        zerolog.Logger
}

func NewHandler(d HandlerDeps) *Handler {
	return &Handler{
		dispatcher:    d.Dispatcher,
		receiver:      d.Receiver,
		onboarding:    d.Onboarding,
		directory:     d.Directory,
		acks:          d.Acks,
		webhookSecret: d.WebhookSecret,
		logger:        d.Logger.With().Str("component", "relay_http").Logger(),
	}
}

// RegisterRoutes mounts the staff-facing relay endpoints on the
// authenticated API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("/relay", auth.RequireRole(auth.Readers...))
	read.GET("/recipients", h.ListRecipients)
	read.GET("/acknowledgments", h.ListAcknowledgments)

	write := api.Group("/relay", auth.RequireRole(auth.Writers...))
	write.POST("/dispatch", h.Dispatch)
	write.PUT("/recipients/:chat_id/patient", h.LinkPatient)
}

// RegisterWebhook mounts the Telegram webhook. It must sit outside staff
// auth; Telegram authenticates with the secret token header instead.
func (h *Handler) RegisterWebhook(g *echo.Group) {
	g.Any("/telegram/webhook", h.Webhook)
}

// DispatchRequest is the JSON body of POST /relay/dispatch.
type DispatchRequest struct {
	NotificationID string `json:"notification_id"`
	PatientID      string `json:"patient_id"`
	Message        string `json:"message"`
	Type           string `json:"type"`
}

func (r DispatchRequest) Job() (NotificationJob, error) {
	nid, err := uuid.Parse(r.NotificationID)
	if err != nil {
		return NotificationJob{}, invalidJob("notification_id must be a UUID")
	}
	pid, err := uuid.Parse(r.PatientID)
	if err != nil {
		return NotificationJob{}, invalidJob("patient_id must be a UUID")
	}
	job := NotificationJob{NotificationID: nid, PatientID: pid, Message: r.Message, Kind: Kind(r.Type)}
	return job, job.Validate()
}

type DispatchResponse struct {
	Success   bool  `json:"success"`
	ChatID    int64 `json:"chat_id,omitempty"`
	MessageID int   `json:"message_id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Dispatch(c echo.Context) error {
	var req DispatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	job, err := req.Job()
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	res, err := h.dispatcher.Dispatch(c.Request().Context(), job)
	if err != nil {
		status := DispatchStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error().Err(err).Stringer("notification_id", job.NotificationID).Msg("dispatch failed")
			return c.JSON(status, errorResponse{Error: http.StatusText(status)})
		}
		return c.JSON(status, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, DispatchResponse{Success: true, ChatID: res.ChatID, MessageID: res.MessageID})
}

// DispatchStatus maps dispatcher errors onto HTTP status codes.
func DispatchStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidJob):
		return http.StatusBadRequest
	case errors.Is(err, ErrRecipientNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDeliveryFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Webhook receives Telegram updates. Failures already reported to the user
// in chat are answered with 200 so Telegram does not redeliver; a 500 means
// Telegram itself could not be reached and the update should be retried.
func (h *Handler) Webhook(c echo.Context) (err error) {
	if c.Request().Method != http.MethodPost {
		return c.String(http.StatusMethodNotAllowed, "Expected a POST request")
	}
	if h.webhookSecret != "" {
		got := c.Request().Header.Get(SecretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			return c.String(http.StatusUnauthorized, "Unauthorized")
		}
	}

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().Str("panic", fmt.Sprint(r)).Msg("webhook panic")
			err = c.String(http.StatusInternalServerError, "Internal Server Error")
		}
	}()

	in, err := telegram.DecodeUpdate(c.Request().Body)
	if err != nil {
		h.logger.Warn().Err(err).Msg("undecodable update")
		return c.String(http.StatusBadRequest, "Bad Request")
	}

	ctx := c.Request().Context()
	log := h.logger.With().Int("update_id", in.UpdateID).Logger()

	switch in.Kind {
	case telegram.UpdateCommand:
		ev := StartEvent{ChatID: in.ChatID, Username: in.Username}
		switch in.Command {
		case "start":
			err = h.onboarding.OnStart(ctx, ev)
		case "stop":
			err = h.onboarding.OnStop(ctx, ev)
		}
	case telegram.UpdateCallback:
		_, err = h.receiver.OnCallback(ctx, CallbackEvent{
			CallbackID: in.CallbackID,
			ChatID:     in.ChatID,
			MessageID:  in.MessageID,
			Data:       in.Data,
		})
	}

	if err != nil {
		log.Error().Err(err).Msg("webhook update failed")
		return c.String(http.StatusInternalServerError, "Internal Server Error")
	}
	return c.NoContent(http.StatusOK)
}

func (h *Handler) ListRecipients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.directory.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return internalError(err)
	}
	if items == nil {
		items = []*RecipientBinding{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type linkRequest struct {
	PatientID string `json:"patient_id"`
}

func (h *Handler) LinkPatient(c echo.Context) error {
	chatID, err := strconv.ParseInt(c.Param("chat_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid chat_id")
	}
	var req linkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}

	b, err := h.directory.LinkPatient(c.Request().Context(), chatID, patientID)
	switch {
	case errors.Is(err, ErrBindingNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "recipient not found")
	case errors.Is(err, ErrUnknownPatient):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrPatientAlreadyLinked):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return internalError(err)
	}

	h.logger.Info().
		Int64("chat_id", chatID).
		Stringer("patient_id", patientID).
		Str("linked_by", auth.UserIDFromContext(c.Request().Context())).
		Msg("recipient linked to patient")
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListAcknowledgments(c echo.Context) error {
	nid, err := uuid.Parse(c.QueryParam("notification_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification_id")
	}
	items, err := h.acks.ListByNotification(c.Request().Context(), nid)
	if err != nil {
		return internalError(err)
	}
	if items == nil {
		items = []*AcknowledgmentRecord{}
	}
	return c.JSON(http.StatusOK, items)
}

// internalError hides store failures from clients; the error handler logs
// the internal cause.
func internalError(err error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)).SetInternal(err)
}
