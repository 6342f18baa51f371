// Package availability computes which tables are free for a requested
// date, time and party size, accounting for the estimated service
// duration of every existing reservation.
package availability

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/zeorvi/restaurant-reservations/internal/model"
	"github.com/zeorvi/restaurant-reservations/internal/queue"
	"github.com/zeorvi/restaurant-reservations/internal/schedule"
)

// ErrInvalidPartySize is returned when the requested party size is not
// a positive number.
var ErrInvalidPartySize = errors.New("invalid party size")

// ErrTableConflict is returned by VerifyTable when the candidate table
// already has an overlapping reservation.
var ErrTableConflict = errors.New("table has a conflicting reservation")

// TableSource abstracts read access to a restaurant's tables.
type TableSource interface {
	ListByRestaurant(ctx context.Context, restaurantID string) ([]model.Table, error)
}

// ReservationSource abstracts read access to the non-terminal
// reservations of a restaurant on a given date.
type ReservationSource interface {
	ListActiveByDate(ctx context.Context, restaurantID, date string) ([]model.Reservation, error)
}

// Request describes one availability query.  Date must already be a
// canonical ISO date (run it through the normalizer first); Time is a
// 24h wall-clock value.  Zone narrows candidates when non-empty.
type Request struct {
	RestaurantID string
	Date         string
	Time         string
	PartySize    int
	Zone         string
}

// Result is the outcome of an availability query.  When no table fits,
// Available is empty and Alternatives carries the nearest turn start
// times so the caller can offer options instead of a bare failure.
type Result struct {
	Available     []model.Table
	ByZone        map[string][]model.Table
	OccupancyRate float64
	DurationMin   int
	Alternatives  []string
	Suggestion    string
}

// Checker is the availability engine.  It is safe for concurrent use;
// all state lives in the injected repositories.
type Checker struct {
	tables       TableSource
	reservations ReservationSource
	turns        *schedule.TurnService
	events       queue.Publisher
}

// NewChecker wires the checker to its collaborators.  events may be a
// queue.Nop when no listener cares about availability checks.
func NewChecker(tables TableSource, reservations ReservationSource, turns *schedule.TurnService, events queue.Publisher) *Checker {
	return &Checker{tables: tables, reservations: reservations, turns: turns, events: events}
}

// interval is a half-open [start,end) span in minutes from midnight.
type interval struct {
	start int
	end   int
}

// overlaps implements strict half-open interval intersection:
// back-to-back spans (a.end == b.start) do not conflict.
func (a interval) overlaps(b interval) bool {
	return a.start < b.end && b.start < a.end
}

// Check runs the full availability algorithm for one request: validate
// input, resolve the estimated duration from the turn catalog, and test
// every capacity-fitting table against the overlap of all active
// reservations on the date.
func (c *Checker) Check(ctx context.Context, req Request) (*Result, error) {
	if req.PartySize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPartySize, req.PartySize)
	}
	reqStart, err := schedule.MinuteOfDay(req.Time)
	if err != nil {
		return nil, err
	}

	catalog, err := c.turns.Catalog(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}
	duration := catalog.DurationAt(req.Time)
	want := interval{start: reqStart, end: reqStart + int(duration/time.Minute)}

	tables, err := c.tables.ListByRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}
	active, err := c.reservations.ListActiveByDate(ctx, req.RestaurantID, req.Date)
	if err != nil {
		return nil, err
	}

	// Index reservation intervals per table.  Each existing reservation
	// occupies its own estimated duration, resolved the same way as the
	// incoming request.
	byTable := make(map[uint64][]interval)
	for _, r := range active {
		if r.TableID == nil {
			continue
		}
		start, err := schedule.MinuteOfDay(r.Time)
		if err != nil {
			continue // malformed historical rows never block a table
		}
		d := catalog.DurationAt(r.Time)
		byTable[*r.TableID] = append(byTable[*r.TableID], interval{start: start, end: start + int(d/time.Minute)})
	}

	res := &Result{ByZone: make(map[string][]model.Table), DurationMin: int(duration / time.Minute)}
	conflicting := 0
	for _, t := range tables {
		blocked := false
		for _, iv := range byTable[t.ID] {
			if want.overlaps(iv) {
				blocked = true
				break
			}
		}
		// The rate measures pressure on the floor: tables whose slot
		// conflicts plus tables with a party seated right now (walk-ins
		// have no reservation row).
		if blocked || t.Status == model.TableStatusOccupied {
			conflicting++
		}
		if blocked || t.Status == model.TableStatusMaintenance {
			continue
		}
		if t.Capacity < req.PartySize {
			continue
		}
		if req.Zone != "" && t.Zone != req.Zone {
			continue
		}
		res.Available = append(res.Available, t)
		res.ByZone[t.Zone] = append(res.ByZone[t.Zone], t)
	}
	if len(tables) > 0 {
		res.OccupancyRate = float64(conflicting) / float64(len(tables))
	}
	// Smallest fitting table first so bookings consume capacity tightly.
	sort.SliceStable(res.Available, func(i, j int) bool {
		if res.Available[i].Capacity != res.Available[j].Capacity {
			return res.Available[i].Capacity < res.Available[j].Capacity
		}
		return res.Available[i].ID < res.Available[j].ID
	})

	if len(res.Available) == 0 {
		nearest, nerr := catalog.FindNearest(req.Time)
		switch {
		case nerr != nil:
			// Malformed time was already rejected above; nothing to offer.
		case nearest.Exact != nil:
			// The requested time is a real turn but every table is taken.
			// Offer the remaining turns of the same meal service.
			for _, alt := range catalog.TimesForMealType(catalog.MealTypeAt(req.Time)) {
				if alt != req.Time {
					res.Alternatives = append(res.Alternatives, alt)
				}
			}
			if len(res.Alternatives) > 0 {
				res.Suggestion = fmt.Sprintf("No tables free at %s; other turns: %s", req.Time, strings.Join(res.Alternatives, ", "))
			}
		default:
			for _, alt := range nearest.Alternatives {
				res.Alternatives = append(res.Alternatives, alt.StartTime)
			}
			res.Suggestion = nearest.Suggestion
		}
	}

	if err := c.events.AvailabilityChecked(ctx, queue.AvailabilityCheckedEvent{
		RestaurantID:  req.RestaurantID,
		Date:          req.Date,
		Time:          req.Time,
		PartySize:     req.PartySize,
		Zone:          req.Zone,
		FreeTables:    len(res.Available),
		OccupancyRate: res.OccupancyRate,
		CheckedAt:     time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("availability: publish check event failed: %v", err)
	}
	return res, nil
}

// VerifyTable re-runs the overlap test for a single table.  It backs the
// final pre-insert check executed under the table lock, closing the gap
// between an earlier availability response and the actual booking.
func (c *Checker) VerifyTable(ctx context.Context, req Request, tableID uint64) error {
	reqStart, err := schedule.MinuteOfDay(req.Time)
	if err != nil {
		return err
	}
	catalog, err := c.turns.Catalog(ctx, req.RestaurantID)
	if err != nil {
		return err
	}
	want := interval{start: reqStart, end: reqStart + int(catalog.DurationAt(req.Time)/time.Minute)}

	active, err := c.reservations.ListActiveByDate(ctx, req.RestaurantID, req.Date)
	if err != nil {
		return err
	}
	for _, r := range active {
		if r.TableID == nil || *r.TableID != tableID {
			continue
		}
		start, err := schedule.MinuteOfDay(r.Time)
		if err != nil {
			continue
		}
		d := catalog.DurationAt(r.Time)
		if want.overlaps(interval{start: start, end: start + int(d/time.Minute)}) {
			return fmt.Errorf("%w: table %d already booked %s for ~%d min", ErrTableConflict, tableID, r.Time, int(d/time.Minute))
		}
	}
	return nil
}
