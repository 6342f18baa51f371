package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/zeorvi/restaurant-reservations/internal/availability"
	"github.com/zeorvi/restaurant-reservations/internal/model"
	"github.com/zeorvi/restaurant-reservations/internal/schedule"
)

// AvailabilityHandler serves availability queries and turn suggestions.
// Date expressions arrive fuzzy (voice agents send "tomorrow" or
// "sábado") and are normalized before the checker runs.
type AvailabilityHandler struct {
	Checker    *availability.Checker
	Turns      *schedule.TurnService
	Normalizer *schedule.Normalizer
}

// NewAvailabilityHandler constructs the handler.  All dependencies must
// be non-nil.
func NewAvailabilityHandler(checker *availability.Checker, turns *schedule.TurnService, normalizer *schedule.Normalizer) *AvailabilityHandler {
	if checker == nil || turns == nil || normalizer == nil {
		panic("nil dependency passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Checker: checker, Turns: turns, Normalizer: normalizer}
}

// tableView is the wire form of a table in availability responses.
type tableView struct {
	ID       uint64 `json:"id"`
	Label    string `json:"label"`
	Capacity int    `json:"capacity"`
	Zone     string `json:"zone"`
}

func toTableViews(tables []model.Table) []tableView {
	out := make([]tableView, 0, len(tables))
	for _, t := range tables {
		out = append(out, tableView{ID: t.ID, Label: t.Label, Capacity: t.Capacity, Zone: t.Zone})
	}
	return out
}

// Check handles GET /v1/restaurants/:id/availability.  Query params:
// date (fuzzy expression or ISO), time (HH:MM), party_size, optional
// zone.  When no table is free the response still succeeds and carries
// the nearest turn alternatives instead of a bare failure.
func (h *AvailabilityHandler) Check(c echo.Context) error {
	restaurantID := c.Param("id")
	if restaurantID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	date, err := h.Normalizer.NormalizeDate(c.QueryParam("date"))
	if err != nil {
		return writeError(c, err)
	}
	partySize, err := strconv.Atoi(c.QueryParam("party_size"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "party_size must be a number"})
	}
	req := availability.Request{
		RestaurantID: restaurantID,
		Date:         date,
		Time:         c.QueryParam("time"),
		PartySize:    partySize,
		Zone:         c.QueryParam("zone"),
	}
	res, err := h.Checker.Check(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}

	byZone := make(map[string][]tableView, len(res.ByZone))
	for zone, tables := range res.ByZone {
		byZone[zone] = toTableViews(tables)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":             date,
		"time":             req.Time,
		"duration_minutes": res.DurationMin,
		"available":        len(res.Available) > 0,
		"tables":           toTableViews(res.Available),
		"tables_by_zone":   byZone,
		"occupancy_rate":   res.OccupancyRate,
		"alternatives":     res.Alternatives,
		"suggestion":       res.Suggestion,
	})
}

// NearestTurn handles GET /v1/restaurants/:id/turns?time=HH:MM.  It
// answers with either the exact turn for that time or the two closest
// alternatives plus a human-readable suggestion.
func (h *AvailabilityHandler) NearestTurn(c echo.Context) error {
	restaurantID := c.Param("id")
	if restaurantID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	catalog, err := h.Turns.Catalog(c.Request().Context(), restaurantID)
	if err != nil {
		return writeError(c, err)
	}
	nearest, err := catalog.FindNearest(c.QueryParam("time"))
	if err != nil {
		return writeError(c, err)
	}
	alts := make([]string, 0, len(nearest.Alternatives))
	for _, s := range nearest.Alternatives {
		alts = append(alts, s.StartTime)
	}
	resp := echo.Map{
		"exact_match":  nearest.Exact != nil,
		"alternatives": alts,
		"suggestion":   nearest.Suggestion,
	}
	if nearest.Exact != nil {
		resp["turn"] = echo.Map{
			"name":       nearest.Exact.Name,
			"start_time": nearest.Exact.StartTime,
			"end_time":   nearest.Exact.EndTime,
			"meal_type":  nearest.Exact.MealType,
		}
	}
	return c.JSON(http.StatusOK, resp)
}
