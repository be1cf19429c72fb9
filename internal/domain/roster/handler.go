package roster

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/rota/rota/internal/platform/auth"
	"github.com/rota/rota/pkg/calendar"
)

type Handler struct {
	svc *Roster
}

func NewHandler(svc *Roster) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleScheduler, auth.RoleViewer))
	read.GET("/assignments", h.ListAssignments)
	read.GET("/assignments/:id", h.GetAssignment)
	read.GET("/days/:date/metadata", h.GetDayMetadata)

	write := api.Group("", auth.RequireRole(auth.RoleScheduler))
	write.POST("/assignments", h.CreateAssignment)
	write.PATCH("/assignments/:id", h.UpdateAssignment)
	write.DELETE("/assignments/:id", h.DeleteAssignment)
	write.POST("/assignments/bulk", h.BulkAdd)
	write.POST("/assignments/bulk-remove", h.BulkRemove)
	write.PUT("/days/:date/metadata", h.SetDayMetadata)
	write.DELETE("/days/:date/metadata/:block", h.ClearDayMetadata)
}

type createAssignmentRequest struct {
	Assignment
	Confirm  bool `json:"confirm"`
	Override bool `json:"override"`
}

func (h *Handler) CreateAssignment(c echo.Context) error {
	var req createAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	opts := PlaceOptions{
		Confirm:  req.Confirm,
		Override: req.Override,
		Actor:    auth.UserIDFromContext(c.Request().Context()),
	}
	res, err := h.svc.Place(c.Request().Context(), &req.Assignment, opts)
	if err != nil {
		return placementError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

// placementError maps the typed placement guards onto HTTP statuses. Hard
// blocks and unresolved conflicts are 409s carrying enough detail for the
// caller to correct or escalate.
func placementError(err error) error {
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		return echo.NewHTTPError(http.StatusConflict, map[string]interface{}{
			"error":  blocked.Error(),
			"reason": blocked.Reason,
		})
	}
	var confirm *NeedsConfirmationError
	if errors.As(err, &confirm) {
		return echo.NewHTTPError(http.StatusConflict, map[string]interface{}{
			"error":                 confirm.Error(),
			"reason":                confirm.Reason,
			"requires_confirmation": true,
		})
	}
	var pto *PTOConflictError
	if errors.As(err, &pto) {
		return echo.NewHTTPError(http.StatusConflict, map[string]interface{}{
			"error":       pto.Reason,
			"conflicts":   pto.Conflicts,
			"overridable": pto.Overridable,
		})
	}
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return echo.NewHTTPError(http.StatusConflict, map[string]interface{}{
			"error":    dup.Error(),
			"existing": dup.Existing,
		})
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

func (h *Handler) GetAssignment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "assignment not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAssignments(c echo.Context) error {
	ctx := c.Request().Context()
	if d := c.QueryParam("date"); d != "" {
		date, err := calendar.ParseDate(d)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		items, err := h.svc.ListByDate(ctx, date)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, items)
	}

	start, err := calendar.ParseDate(c.QueryParam("start"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date or start/end query parameters required")
	}
	end, err := calendar.ParseDate(c.QueryParam("end"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items, err := h.svc.ListRange(ctx, start, end)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateAssignment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch Patch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Update(c.Request().Context(), id, patch)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAssignment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Remove(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type bulkAddRequest struct {
	Entries     []Assignment `json:"entries"`
	Description string       `json:"description"`
	Confirm     bool         `json:"confirm"`
	Override    bool         `json:"override"`
}

func (h *Handler) BulkAdd(c echo.Context) error {
	var req bulkAddRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	opts := PlaceOptions{
		Confirm:  req.Confirm,
		Override: req.Override,
		Actor:    auth.UserIDFromContext(c.Request().Context()),
	}
	res, err := h.svc.BulkAdd(c.Request().Context(), req.Entries, req.Description, opts)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

type bulkRemoveRequest struct {
	StartDate   calendar.Date `json:"start_date"`
	EndDate     calendar.Date `json:"end_date"`
	ProviderID  *uuid.UUID    `json:"provider_id,omitempty"`
	ServiceID   *uuid.UUID    `json:"service_id,omitempty"`
	Description string        `json:"description"`
}

func (h *Handler) BulkRemove(c echo.Context) error {
	var req bulkRemoveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.BulkRemove(c.Request().Context(), req.StartDate, req.EndDate,
		req.ProviderID, req.ServiceID, req.Description)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

// -- Day metadata --

func (h *Handler) GetDayMetadata(c echo.Context) error {
	date, err := calendar.ParseDate(c.Param("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items, err := h.svc.DayMetadataFor(c.Request().Context(), date)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) SetDayMetadata(c echo.Context) error {
	date, err := calendar.ParseDate(c.Param("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var m DayMetadata
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.Date = date
	if err := h.svc.SetDayMetadata(c.Request().Context(), &m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ClearDayMetadata(c echo.Context) error {
	date, err := calendar.ParseDate(c.Param("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ClearDayMetadata(c.Request().Context(), date, c.Param("block")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
