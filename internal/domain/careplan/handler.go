package careplan

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careops/careops/internal/engine"
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
	api.POST("/care-plans", h.CreatePlan)
	api.GET("/care-plans", h.ListPlans)
	api.GET("/care-plans/:id", h.GetPlan)
	api.PUT("/care-plans/:id", h.UpdatePlan)
	api.POST("/care-plans/:id/goals", h.AddGoal)
	api.PUT("/goals/:id/state", h.UpdateGoalState)
	api.DELETE("/goals/:id", h.DeleteGoal)
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

func (h *Handler) CreatePlan(c echo.Context) error {
	var cp CarePlan
	if err := c.Bind(&cp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePlan(c.Request().Context(), &cp); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, cp)
}

func (h *Handler) GetPlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.GetView(c.Request().Context(), id, time.Now())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ListPlans(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, k := range []string{"resident_id", "active", "q", "sort"} {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}
	views, total, err := h.svc.SearchViews(c.Request().Context(), params, pg.Limit, pg.Offset, time.Now())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var cp CarePlan
	if err := c.Bind(&cp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cp.ID = id
	if err := h.svc.UpdatePlan(c.Request().Context(), &cp); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cp)
}

func (h *Handler) AddGoal(c echo.Context) error {
	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var g CareGoal
	if err := c.Bind(&g); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	g.PlanID = planID
	if err := h.svc.AddGoal(c.Request().Context(), &g); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, g)
}

type goalStateRequest struct {
	State string `json:"state"`
}

func (h *Handler) UpdateGoalState(c echo.Context) error {
	goalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req goalStateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.UpdateGoalState(c.Request().Context(), goalID, engine.GoalState(req.State), time.Now())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteGoal(c echo.Context) error {
	goalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteGoal(c.Request().Context(), goalID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
