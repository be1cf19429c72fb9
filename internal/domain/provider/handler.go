package provider

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/rota/rota/internal/platform/auth"
	"github.com/rota/rota/pkg/calendar"
	"github.com/rota/rota/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleScheduler, auth.RoleViewer))
	read.GET("/providers", h.ListProviders)
	read.GET("/providers/:id", h.GetProvider)
	read.GET("/providers/:id/rules", h.ListRules)
	read.GET("/providers/:id/leaves", h.ListLeaves)
	read.GET("/availability/check", h.CheckAvailability)

	write := api.Group("", auth.RequireRole(auth.RoleAdmin))
	write.POST("/providers", h.CreateProvider)
	write.PUT("/providers/:id", h.UpdateProvider)
	write.DELETE("/providers/:id", h.DeleteProvider)
	write.POST("/providers/:id/rules", h.CreateRule)
	write.DELETE("/providers/:id/rules/:ruleId", h.DeleteRule)

	leave := api.Group("", auth.RequireRole(auth.RoleScheduler))
	leave.POST("/providers/:id/leaves", h.CreateLeave)
	leave.DELETE("/providers/:id/leaves/:leaveId", h.DeleteLeave)
}

// -- Providers --

func (h *Handler) CreateProvider(c echo.Context) error {
	var p Provider
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateProvider(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetProvider(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetProvider(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "provider not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListProviders(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListProviders(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateProvider(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p Provider
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.UpdateProvider(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProvider(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteProvider(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Availability --

func (h *Handler) CheckAvailability(c echo.Context) error {
	providerID, err := uuid.Parse(c.QueryParam("provider_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid provider_id")
	}
	serviceID, err := uuid.Parse(c.QueryParam("service_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid service_id")
	}
	date, err := calendar.ParseDate(c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	block, err := calendar.ParseBlock(c.QueryParam("block"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	eval, err := h.svc.CheckAvailability(c.Request().Context(), providerID, serviceID, date, block)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, eval)
}

func (h *Handler) CreateRule(c echo.Context) error {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var r AvailabilityRule
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.ProviderID = providerID
	if err := h.svc.CreateRule(c.Request().Context(), &r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) DeleteRule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("ruleId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid rule id")
	}
	if err := h.svc.DeleteRule(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListRules(c echo.Context) error {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rules, err := h.svc.ListRules(c.Request().Context(), providerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rules)
}

// -- Leaves --

func (h *Handler) CreateLeave(c echo.Context) error {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var l Leave
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	l.ProviderID = providerID
	if err := h.svc.CreateLeave(c.Request().Context(), &l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) DeleteLeave(c echo.Context) error {
	id, err := uuid.Parse(c.Param("leaveId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid leave id")
	}
	if err := h.svc.DeleteLeave(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListLeaves(c echo.Context) error {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	leaves, err := h.svc.ListLeaves(c.Request().Context(), providerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, leaves)
}
