package coverage

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/rota/rota/internal/platform/auth"
	"github.com/rota/rota/pkg/calendar"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleScheduler, auth.RoleViewer))
	read.GET("/coverage/rooms", h.RoomSuggestions)
	read.GET("/coverage/services", h.UncoveredServices)
	read.GET("/coverage/services/:serviceId", h.ServiceSuggestions)
	read.GET("/coverage/status", h.DayStatus)
}

func (h *Handler) RoomSuggestions(c echo.Context) error {
	date, err := calendar.ParseDate(c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	block, err := calendar.ParseBlock(c.QueryParam("block"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rep, err := h.svc.RoomSuggestions(c.Request().Context(), date, block)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) UncoveredServices(c echo.Context) error {
	date, err := calendar.ParseDate(c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	block, err := calendar.ParseBlock(c.QueryParam("block"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	gaps, err := h.svc.UncoveredServices(c.Request().Context(), date, block)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, gaps)
}

func (h *Handler) ServiceSuggestions(c echo.Context) error {
	serviceID, err := uuid.Parse(c.Param("serviceId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid service id")
	}
	date, err := calendar.ParseDate(c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	block, err := calendar.ParseBlock(c.QueryParam("block"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	suggestions, err := h.svc.ServiceSuggestions(c.Request().Context(), serviceID, date, block)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, suggestions)
}

func (h *Handler) DayStatus(c echo.Context) error {
	date, err := calendar.ParseDate(c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	status, err := h.svc.DayStatus(c.Request().Context(), date)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, status)
}
