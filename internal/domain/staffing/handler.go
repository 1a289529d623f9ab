package staffing

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careops/careops/pkg/apperr"
	"github.com/careops/careops/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/staff", h.CreateStaff)
	api.GET("/staff", h.ListStaff)
	api.GET("/staff/:id", h.GetStaff)
	api.PUT("/staff/:id", h.UpdateStaff)

	api.POST("/shifts", h.CreateShift)
	api.GET("/shifts", h.WeekSchedule)
	api.GET("/shifts/:id", h.GetShift)
	api.PUT("/shifts/:id", h.UpdateShift)
	api.PUT("/shifts/:id/assignments/:staffId", h.Assign)
	api.DELETE("/shifts/:id/assignments/:staffId", h.Unassign)
}

func httpError(err error) *echo.HTTPError {
	switch {
	case apperr.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case apperr.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) CreateStaff(c echo.Context) error {
	var st Staff
	if err := c.Bind(&st); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateStaff(c.Request().Context(), &st); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *Handler) GetStaff(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	st, err := h.svc.GetStaff(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) ListStaff(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, k := range []string{"role", "active", "q"} {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}
	items, total, err := h.svc.SearchStaff(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateStaff(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var st Staff
	if err := c.Bind(&st); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	st.ID = id
	if err := h.svc.UpdateStaff(c.Request().Context(), &st); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) CreateShift(c echo.Context) error {
	var sh Shift
	if err := c.Bind(&sh); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateShift(c.Request().Context(), &sh); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, sh)
}

func (h *Handler) GetShift(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.GetView(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

// WeekSchedule lists the seven days of shifts starting at week_start
// (YYYY-MM-DD, defaults to today).
func (h *Handler) WeekSchedule(c echo.Context) error {
	weekStart := time.Now()
	if v := c.QueryParam("week_start"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid week_start")
		}
		weekStart = parsed
	}
	views, err := h.svc.WeekSchedule(c.Request().Context(), weekStart)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, views)
}

func (h *Handler) UpdateShift(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var sh Shift
	if err := c.Bind(&sh); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sh.ID = id
	if err := h.svc.UpdateShift(c.Request().Context(), &sh); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sh)
}

func (h *Handler) Assign(c echo.Context) error {
	shiftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	staffID, err := uuid.Parse(c.Param("staffId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid staff id")
	}
	res, err := h.svc.Assign(c.Request().Context(), shiftID, staffID, time.Now())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Unassign(c echo.Context) error {
	shiftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	staffID, err := uuid.Parse(c.Param("staffId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid staff id")
	}
	cov, err := h.svc.Unassign(c.Request().Context(), shiftID, staffID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cov)
}
