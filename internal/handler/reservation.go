package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zeorvi/restaurant-reservations/internal/availability"
	"github.com/zeorvi/restaurant-reservations/internal/middleware"
	"github.com/zeorvi/restaurant-reservations/internal/model"
	"github.com/zeorvi/restaurant-reservations/internal/occupancy"
	"github.com/zeorvi/restaurant-reservations/internal/repository"
	"github.com/zeorvi/restaurant-reservations/internal/schedule"
)

// ReservationHandler implements the booking flow: normalize the fuzzy
// date, align the requested time to a turn, pick an available table and
// place the reservation atomically through the occupancy tracker.
type ReservationHandler struct {
	Normalizer *schedule.Normalizer
	Turns      *schedule.TurnService
	Checker    *availability.Checker
	Tracker    *occupancy.Tracker
	Repo       *repository.ReservationRepo
	Cache      *middleware.CacheInvalidator
}

// NewReservationHandler constructs the handler.  cache may be nil when
// response caching is disabled; everything else must be non-nil.
func NewReservationHandler(normalizer *schedule.Normalizer, turns *schedule.TurnService, checker *availability.Checker, tracker *occupancy.Tracker, repo *repository.ReservationRepo, cache *middleware.CacheInvalidator) *ReservationHandler {
	if normalizer == nil || turns == nil || checker == nil || tracker == nil || repo == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{Normalizer: normalizer, Turns: turns, Checker: checker, Tracker: tracker, Repo: repo, Cache: cache}
}

// Create handles POST /v1/restaurants/:id/reservations.  The body
// carries the raw values as received from the booking channel; the date
// may be a fuzzy expression.  When the requested time matches no turn,
// the response is a 409 with the nearest alternatives so the caller can
// offer them back to the client.
func (h *ReservationHandler) Create(c echo.Context) error {
	restaurantID := c.Param("id")
	if restaurantID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	var body struct {
		Date       string `json:"date"`
		Time       string `json:"time"`
		PartySize  int    `json:"party_size"`
		Zone       string `json:"zone"`
		ClientName string `json:"client_name"`
		Notes      string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	date, err := h.Normalizer.NormalizeDate(body.Date)
	if err != nil {
		return writeError(c, err)
	}
	if err := schedule.ValidateTime(body.Time); err != nil {
		return writeError(c, err)
	}

	ctx := c.Request().Context()
	catalog, err := h.Turns.Catalog(ctx, restaurantID)
	if err != nil {
		return writeError(c, err)
	}
	nearest, err := catalog.FindNearest(body.Time)
	if err != nil {
		return writeError(c, err)
	}
	if nearest.Exact == nil {
		alts := make([]string, 0, len(nearest.Alternatives))
		for _, s := range nearest.Alternatives {
			alts = append(alts, s.StartTime)
		}
		return c.JSON(http.StatusConflict, echo.Map{
			"error":        "no turn at the requested time",
			"alternatives": alts,
			"suggestion":   nearest.Suggestion,
		})
	}

	req := availability.Request{
		RestaurantID: restaurantID,
		Date:         date,
		Time:         body.Time,
		PartySize:    body.PartySize,
		Zone:         body.Zone,
	}
	res, err := h.Checker.Check(ctx, req)
	if err != nil {
		return writeError(c, err)
	}
	if len(res.Available) == 0 {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":        "no tables available",
			"alternatives": res.Alternatives,
			"suggestion":   res.Suggestion,
		})
	}

	// Smallest fitting table; the tracker re-verifies under the table
	// lock before the insert so a concurrent booking cannot slip in.
	table := res.Available[0]
	tableID := table.ID
	reservation := &model.Reservation{
		RestaurantID: restaurantID,
		Date:         date,
		Time:         body.Time,
		PartySize:    body.PartySize,
		TableID:      &tableID,
		Status:       model.ReservationStatusConfirmed,
		Zone:         table.Zone,
		ClientName:   body.ClientName,
		Notes:        body.Notes,
	}
	verify := func(vctx context.Context) error {
		return h.Checker.VerifyTable(vctx, req, tableID)
	}
	if err := h.Tracker.ReserveAtomic(ctx, reservation, verify); err != nil {
		return writeError(c, err)
	}
	h.Cache.Invalidate(ctx, restaurantID)

	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": reservation.PublicID,
		"date":           reservation.Date,
		"time":           reservation.Time,
		"party_size":     reservation.PartySize,
		"table":          tableView{ID: table.ID, Label: table.Label, Capacity: table.Capacity, Zone: table.Zone},
		"status":         reservation.Status,
	})
}

// Cancel handles DELETE /v1/reservations/:id.  The reservation moves to
// cancelled and, when its table was already marked reserved, the table
// returns to free.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	publicID := c.Param("id")
	if publicID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	ctx := c.Request().Context()
	res, err := h.Repo.Cancel(ctx, publicID)
	if err != nil {
		return writeError(c, err)
	}
	if res.TableID != nil {
		if err := h.Tracker.CancelReservation(ctx, *res.TableID); err != nil {
			return writeError(c, err)
		}
	}
	h.Cache.Invalidate(ctx, res.RestaurantID)
	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id": res.PublicID,
		"status":         res.Status,
	})
}
