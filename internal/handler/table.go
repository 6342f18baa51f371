package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zeorvi/restaurant-reservations/internal/middleware"
	"github.com/zeorvi/restaurant-reservations/internal/model"
	"github.com/zeorvi/restaurant-reservations/internal/occupancy"
	"github.com/zeorvi/restaurant-reservations/internal/repository"
	"github.com/zeorvi/restaurant-reservations/internal/schedule"
)

// TableHandler exposes the staff-facing table lifecycle: seating a
// party (check-in or walk-in), releasing a table, maintenance toggling
// and the live floor view.
type TableHandler struct {
	Tracker    *occupancy.Tracker
	Tables     *repository.TableRepo
	Res        *repository.ReservationRepo
	Turns      *schedule.TurnService
	Normalizer *schedule.Normalizer
	Cache      *middleware.CacheInvalidator
}

// NewTableHandler constructs the handler.  cache may be nil when
// response caching is disabled; everything else must be non-nil.
func NewTableHandler(tracker *occupancy.Tracker, tables *repository.TableRepo, res *repository.ReservationRepo, turns *schedule.TurnService, normalizer *schedule.Normalizer, cache *middleware.CacheInvalidator) *TableHandler {
	if tracker == nil || tables == nil || res == nil || turns == nil || normalizer == nil {
		panic("nil dependency passed to NewTableHandler")
	}
	return &TableHandler{Tracker: tracker, Tables: tables, Res: res, Turns: turns, Normalizer: normalizer, Cache: cache}
}

// invalidateFor bumps the cache of the restaurant owning the table.
// Lookup failures are ignored: the short cache TTL still applies.
func (h *TableHandler) invalidateFor(c echo.Context, tableID uint64) {
	if h.Cache == nil {
		return
	}
	ctx := c.Request().Context()
	if tbl, err := h.Tables.GetByID(ctx, tableID); err == nil {
		h.Cache.Invalidate(ctx, tbl.RestaurantID)
	}
}

func tableIDParam(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// Occupy handles POST /v1/tables/:id/occupy.  With a reservation_id the
// call is a check-in (reserved → occupied); without one it seats a
// walk-in (free → occupied).  The estimated duration comes from the
// turn catalog for the current wall-clock time.
func (h *TableHandler) Occupy(c echo.Context) error {
	tableID, err := tableIDParam(c)
	if err != nil || tableID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
	}
	var body struct {
		ReservationID string `json:"reservation_id"`
		ClientName    string `json:"client_name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	tbl, err := h.Tables.GetByID(ctx, tableID)
	if err != nil {
		return writeError(c, err)
	}

	var reservation *model.Reservation
	if body.ReservationID != "" {
		reservation, err = h.Res.GetByPublicID(ctx, body.ReservationID)
		if err != nil {
			return writeError(c, err)
		}
	}

	catalog, err := h.Turns.Catalog(ctx, tbl.RestaurantID)
	if err != nil {
		return writeError(c, err)
	}
	// Seating happens now, so the estimate keys off the current time
	// (or the reservation's booked time when checking in).
	timeStr := time.Now().In(h.Normalizer.Location()).Format("15:04")
	if reservation != nil {
		timeStr = reservation.Time
	}
	estimated := catalog.DurationAt(timeStr)

	rec, err := h.Tracker.Occupy(ctx, tableID, reservation, body.ClientName, estimated)
	if err != nil {
		return writeError(c, err)
	}
	h.Cache.Invalidate(ctx, tbl.RestaurantID)
	return c.JSON(http.StatusOK, echo.Map{
		"table_id":        rec.TableID,
		"client":          rec.ClientLabel,
		"occupied_at":     rec.OccupiedAt.UTC().Format(time.RFC3339),
		"estimated_end":   rec.EstimatedEnd.UTC().Format(time.RFC3339),
		"auto_release_at": rec.AutoReleaseAt.UTC().Format(time.RFC3339),
	})
}

// Release handles POST /v1/tables/:id/release.  Releasing an
// already-free table succeeds with no effect.
func (h *TableHandler) Release(c echo.Context) error {
	tableID, err := tableIDParam(c)
	if err != nil || tableID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
	}
	if err := h.Tracker.Release(c.Request().Context(), tableID); err != nil {
		return writeError(c, err)
	}
	h.invalidateFor(c, tableID)
	return c.JSON(http.StatusOK, echo.Map{"table_id": tableID, "status": model.TableStatusFree})
}

// Maintenance handles POST /v1/tables/:id/maintenance (free tables only).
func (h *TableHandler) Maintenance(c echo.Context) error {
	tableID, err := tableIDParam(c)
	if err != nil || tableID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
	}
	if err := h.Tracker.StartMaintenance(c.Request().Context(), tableID); err != nil {
		return writeError(c, err)
	}
	h.invalidateFor(c, tableID)
	return c.JSON(http.StatusOK, echo.Map{"table_id": tableID, "status": model.TableStatusMaintenance})
}

// Activate handles POST /v1/tables/:id/activate, returning a table from
// maintenance to service.
func (h *TableHandler) Activate(c echo.Context) error {
	tableID, err := tableIDParam(c)
	if err != nil || tableID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table id"})
	}
	if err := h.Tracker.EndMaintenance(c.Request().Context(), tableID); err != nil {
		return writeError(c, err)
	}
	h.invalidateFor(c, tableID)
	return c.JSON(http.StatusOK, echo.Map{"table_id": tableID, "status": model.TableStatusFree})
}

// List handles GET /v1/restaurants/:id/tables: every table with its
// status, enriched with occupancy details and nearing-release flags for
// the floor view.
func (h *TableHandler) List(c echo.Context) error {
	restaurantID := c.Param("id")
	if restaurantID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	tables, err := h.Tables.ListByRestaurant(c.Request().Context(), restaurantID)
	if err != nil {
		return writeError(c, err)
	}
	occupied := make(map[uint64]model.OccupancyRecord)
	for _, rec := range h.Tracker.Occupied() {
		occupied[rec.TableID] = rec
	}
	nearing := make(map[uint64]bool)
	for _, rec := range h.Tracker.NearingRelease() {
		nearing[rec.TableID] = true
	}

	type row struct {
		ID             uint64            `json:"id"`
		Label          string            `json:"label"`
		Capacity       int               `json:"capacity"`
		Zone           string            `json:"zone"`
		Status         model.TableStatus `json:"status"`
		Client         string            `json:"client,omitempty"`
		OccupiedAt     string            `json:"occupied_at,omitempty"`
		AutoReleaseAt  string            `json:"auto_release_at,omitempty"`
		NearingRelease bool              `json:"nearing_release,omitempty"`
	}
	out := make([]row, 0, len(tables))
	for _, t := range tables {
		r := row{ID: t.ID, Label: t.Label, Capacity: t.Capacity, Zone: t.Zone, Status: t.Status}
		if rec, ok := occupied[t.ID]; ok {
			r.Client = rec.ClientLabel
			r.OccupiedAt = rec.OccupiedAt.UTC().Format(time.RFC3339)
			r.AutoReleaseAt = rec.AutoReleaseAt.UTC().Format(time.RFC3339)
			r.NearingRelease = nearing[t.ID]
		}
		out = append(out, r)
	}
	return c.JSON(http.StatusOK, echo.Map{"tables": out})
}
