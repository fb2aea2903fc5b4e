package dashboard

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/krauzhul/VoyagMED/internal/platform/auth"
)

type Handler struct {
	source Source
	now    func() time.Time
}

func NewHandler(source Source) *Handler {
	return &Handler{source: source, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard", h.Overview, auth.RequireRole(auth.Readers...))
}

func (h *Handler) Overview(c echo.Context) error {
	ctx := c.Request().Context()
	counts, err := h.source.Counts(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load dashboard").SetInternal(err)
	}
	patients, err := h.source.RecentPatients(ctx, RecentLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load dashboard").SetInternal(err)
	}
	tasks, err := h.source.UpcomingTasks(ctx, RecentLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load dashboard").SetInternal(err)
	}
	if patients == nil {
		patients = []*PatientBrief{}
	}
	if tasks == nil {
		tasks = []*TaskBrief{}
	}
	return c.JSON(http.StatusOK, &Overview{
		Counts:         counts,
		RecentPatients: patients,
		UpcomingTasks:  tasks,
		GeneratedAt:    h.now().UTC(),
	})
}
