package medication

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
	api.POST("/medication-orders", h.CreateOrder)
	api.GET("/medication-orders", h.ListOrders)
	api.GET("/medication-orders/:id", h.GetOrder)
	api.PUT("/medication-orders/:id", h.UpdateOrder)
	api.POST("/medication-orders/:id/deactivate", h.DeactivateOrder)
	api.POST("/medication-orders/:id/refill", h.RecordRefill)
	api.POST("/medication-orders/:id/administrations", h.RecordAdministration)
	api.GET("/medication-orders/:id/administrations", h.ListAdministrations)
	api.GET("/medication-board", h.Board)
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

func (h *Handler) CreateOrder(c echo.Context) error {
	var o Order
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateOrder(c.Request().Context(), &o); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) GetOrder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	o, err := h.svc.GetOrder(ctx, id)
	if err != nil {
		return httpError(err)
	}
	res, err := h.svc.Resolve(ctx, id, time.Now())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, &OrderView{Order: o, Resolution: *res})
}

func (h *Handler) ListOrders(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, k := range []string{"resident_id", "active", "q", "sort"} {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}
	items, total, err := h.svc.SearchOrders(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateOrder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var o Order
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o.ID = id
	if err := h.svc.UpdateOrder(c.Request().Context(), &o); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) DeactivateOrder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeactivateOrder(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type refillRequest struct {
	Refills int `json:"refills"`
}

func (h *Handler) RecordRefill(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req refillRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.RecordRefill(c.Request().Context(), id, req.Refills, time.Now()); err != nil {
		return httpError(err)
	}
	o, err := h.svc.GetOrder(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) RecordAdministration(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var ev AdministrationEvent
	if err := c.Bind(&ev); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ev.OrderID = orderID
	res, err := h.svc.RecordAdministration(c.Request().Context(), &ev, time.Now())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"event":      ev,
		"resolution": res,
	})
}

func (h *Handler) ListAdministrations(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAdministrations(c.Request().Context(), orderID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Board(c echo.Context) error {
	pg := pagination.FromContext(c)
	var filter BoardFilter
	if v := c.QueryParam("resident_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid resident_id")
		}
		filter.ResidentID = &id
	}
	if v := c.QueryParam("status"); v != "" {
		filter.Status = engine.DoseStatus(v)
	}
	views, total, err := h.svc.Board(c.Request().Context(), filter, pg.Limit, pg.Offset, time.Now())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(views, total, pg.Limit, pg.Offset))
}
