package notification

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/krauzhul/VoyagMED/internal/domain/relay"
	"github.com/krauzhul/VoyagMED/internal/platform/auth"
	"github.com/krauzhul/VoyagMED/pkg/apperr"
	"github.com/krauzhul/VoyagMED/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.Readers...))
	read.GET("/notifications", h.ListNotifications)
	read.GET("/notifications/:id", h.GetNotification)
	read.GET("/notifications/:id/acknowledgments", h.ListAcknowledgments)

	write := api.Group("", auth.RequireRole(auth.Writers...))
	write.POST("/notifications", h.CreateNotification)
	write.PUT("/notifications/:id", h.UpdateNotification)
	write.DELETE("/notifications/:id", h.DeleteNotification)
	write.POST("/notifications/:id/send", h.SendNotification)
}

func (h *Handler) CreateNotification(c echo.Context) error {
	var n Notification
	if err := c.Bind(&n); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if n.CreatedBy == nil {
		if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
			n.CreatedBy = &uid
		}
	}
	if err := h.svc.CreateNotification(c.Request().Context(), &n); err != nil {
		return apperr.HTTP(err, ErrNotificationNotFound)
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) GetNotification(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	n, err := h.svc.GetNotification(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err, ErrNotificationNotFound)
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) ListNotifications(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{Status: c.QueryParam("status"), Search: pg.Search, Sort: pg.Sort}
	if patientID := c.QueryParam("patient_id"); patientID != "" {
		pid, err := uuid.Parse(patientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &pid
	}
	items, total, err := h.svc.ListNotifications(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err, nil)
	}
	if items == nil {
		items = []*Notification{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateNotification(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var n Notification
	if err := c.Bind(&n); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	n.ID = id
	if err := h.svc.UpdateNotification(c.Request().Context(), &n); err != nil {
		return apperr.HTTP(err, ErrNotificationNotFound)
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) DeleteNotification(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteNotification(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err, ErrNotificationNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}

// SendNotification answers with the updated record even when delivery
// failed, using the relay status code for the failure.
func (h *Handler) SendNotification(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	res, err := h.svc.Send(c.Request().Context(), id)
	switch {
	case errors.Is(err, ErrNotificationNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case err != nil && res == nil:
		return apperr.HTTP(err, nil)
	case err != nil:
		return c.JSON(relay.DispatchStatus(err), map[string]interface{}{
			"error":        err.Error(),
			"notification": res.Notification,
			"attempts":     res.Attempts,
		})
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ListAcknowledgments(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.Acknowledgments(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err, ErrNotificationNotFound)
	}
	if items == nil {
		items = []*relay.AcknowledgmentRecord{}
	}
	return c.JSON(http.StatusOK, items)
}
