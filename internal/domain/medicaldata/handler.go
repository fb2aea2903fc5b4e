package medicaldata

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

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
	read.GET("/medical-data", h.ListRecords)
	read.GET("/medical-data/:id", h.GetRecord)

	write := api.Group("", auth.RequireRole(auth.Writers...))
	write.POST("/medical-data", h.CreateRecord)
	write.PUT("/medical-data/:id", h.UpdateRecord)
	write.DELETE("/medical-data/:id", h.DeleteRecord)
}

func (h *Handler) CreateRecord(c echo.Context) error {
	var m Record
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if m.ManagerID == nil {
		if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
			m.ManagerID = &uid
		}
	}
	if err := h.svc.CreateRecord(c.Request().Context(), &m); err != nil {
		return apperr.HTTP(err, ErrRecordNotFound)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.GetRecord(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err, ErrRecordNotFound)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListRecords(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{Status: c.QueryParam("status"), Search: pg.Search, Sort: pg.Sort}
	if patientID := c.QueryParam("patient_id"); patientID != "" {
		pid, err := uuid.Parse(patientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &pid
	}
	items, total, err := h.svc.ListRecords(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTP(err, nil)
	}
	if items == nil {
		items = []*Record{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var m Record
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.ID = id
	if err := h.svc.UpdateRecord(c.Request().Context(), &m); err != nil {
		return apperr.HTTP(err, ErrRecordNotFound)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) DeleteRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteRecord(c.Request().Context(), id); err != nil {
		return apperr.HTTP(err, ErrRecordNotFound)
	}
	return c.NoContent(http.StatusNoContent)
}
