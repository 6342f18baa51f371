package availability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeorvi/restaurant-reservations/internal/model"
	"github.com/zeorvi/restaurant-reservations/internal/queue"
	"github.com/zeorvi/restaurant-reservations/internal/schedule"
)

type stubTables struct{ tables []model.Table }

func (s stubTables) ListByRestaurant(ctx context.Context, restaurantID string) ([]model.Table, error) {
	return s.tables, nil
}

type stubReservations struct{ list []model.Reservation }

func (s stubReservations) ListActiveByDate(ctx context.Context, restaurantID, date string) ([]model.Reservation, error) {
	return s.list, nil
}

type stubSlots struct{ slots []model.TimeSlot }

func (s stubSlots) ListActive(ctx context.Context, restaurantID string) ([]model.TimeSlot, error) {
	return s.slots, nil
}

// recorder counts published events without a broker.
type recorder struct {
	checked []queue.AvailabilityCheckedEvent
	queue.Nop
}

func (r *recorder) AvailabilityChecked(ctx context.Context, ev queue.AvailabilityCheckedEvent) error {
	r.checked = append(r.checked, ev)
	return nil
}

func table(id uint64, capacity int, zone string) model.Table {
	return model.Table{ID: id, RestaurantID: "rest_001", Label: "T" + zone, Capacity: capacity, Zone: zone, Status: model.TableStatusFree}
}

func booked(tableID uint64, timeStr string) model.Reservation {
	id := tableID
	return model.Reservation{
		RestaurantID: "rest_001",
		Date:         "2025-10-26",
		Time:         timeStr,
		PartySize:    4,
		TableID:      &id,
		Status:       model.ReservationStatusConfirmed,
	}
}

func newChecker(tables []model.Table, reservations []model.Reservation, slots []model.TimeSlot) (*Checker, *recorder) {
	rec := &recorder{}
	turns := schedule.NewTurnService(stubSlots{slots: slots}, schedule.TurnConfig{})
	return NewChecker(stubTables{tables: tables}, stubReservations{list: reservations}, turns, rec), rec
}

func dinnerSlots() []model.TimeSlot {
	return []model.TimeSlot{
		{ID: 1, RestaurantID: "rest_001", Name: "first dinner", StartTime: "19:30", EndTime: "22:00", MealType: model.MealTypeDinner, Active: true},
		{ID: 2, RestaurantID: "rest_001", Name: "second dinner", StartTime: "20:00", EndTime: "22:30", MealType: model.MealTypeDinner, Active: true},
	}
}

// Two Terrace tables of capacity 4; one already booked 19:30–22:00.
// A party of 4 at 20:00 overlaps that booking, leaving one table.
func TestCheckTerraceScenario(t *testing.T) {
	tables := []model.Table{table(1, 4, "Terrace"), table(2, 4, "Terrace")}
	c, rec := newChecker(tables, []model.Reservation{booked(1, "19:30")}, dinnerSlots())

	res, err := c.Check(context.Background(), Request{
		RestaurantID: "rest_001", Date: "2025-10-26", Time: "20:00", PartySize: 4, Zone: "Terrace",
	})
	require.NoError(t, err)
	require.Len(t, res.Available, 1)
	assert.Equal(t, uint64(2), res.Available[0].ID)
	assert.InDelta(t, 0.5, res.OccupancyRate, 1e-9, "1 of 2 tables conflicting")
	assert.Equal(t, 150, res.DurationMin)
	require.Len(t, rec.checked, 1)
	assert.Equal(t, 1, rec.checked[0].FreeTables)
}

func TestCheckBackToBackDoesNotConflict(t *testing.T) {
	// Existing lunch at 13:00 occupies 13:00–15:00; a 15:00 request on
	// the same table starts exactly at the previous end.
	slots := []model.TimeSlot{
		{ID: 1, RestaurantID: "rest_001", StartTime: "13:00", EndTime: "15:00", MealType: model.MealTypeLunch, Active: true},
		{ID: 2, RestaurantID: "rest_001", StartTime: "15:00", EndTime: "17:00", MealType: model.MealTypeLunch, Active: true},
	}
	c, _ := newChecker([]model.Table{table(1, 4, "Main")}, []model.Reservation{booked(1, "13:00")}, slots)

	res, err := c.Check(context.Background(), Request{
		RestaurantID: "rest_001", Date: "2025-10-26", Time: "15:00", PartySize: 2,
	})
	require.NoError(t, err)
	assert.Len(t, res.Available, 1)
	assert.Zero(t, res.OccupancyRate)
}

func TestCheckOverlapConflicts(t *testing.T) {
	c, _ := newChecker([]model.Table{table(1, 4, "Main")}, []model.Reservation{booked(1, "13:00")}, nil)

	// 14:00 request lands inside 13:00–15:00.
	res, err := c.Check(context.Background(), Request{
		RestaurantID: "rest_001", Date: "2025-10-26", Time: "14:00", PartySize: 2,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Available)
	assert.InDelta(t, 1.0, res.OccupancyRate, 1e-9)
}

func TestCheckPartySizeValidation(t *testing.T) {
	c, _ := newChecker(nil, nil, nil)
	_, err := c.Check(context.Background(), Request{RestaurantID: "rest_001", Date: "2025-10-26", Time: "20:00", PartySize: 0})
	assert.ErrorIs(t, err, ErrInvalidPartySize)

	_, err = c.Check(context.Background(), Request{RestaurantID: "rest_001", Date: "2025-10-26", Time: "20:00", PartySize: -3})
	assert.ErrorIs(t, err, ErrInvalidPartySize)
}

func TestCheckTimeValidation(t *testing.T) {
	c, _ := newChecker(nil, nil, nil)
	_, err := c.Check(context.Background(), Request{RestaurantID: "rest_001", Date: "2025-10-26", Time: "24:30", PartySize: 2})
	assert.ErrorIs(t, err, schedule.ErrInvalidTimeFormat)
}

func TestCheckFilters(t *testing.T) {
	tables := []model.Table{
		table(1, 2, "Main"),    // too small
		table(2, 6, "Main"),    // wrong zone
		table(3, 6, "Terrace"), // fits
	}
	maint := table(4, 8, "Terrace")
	maint.Status = model.TableStatusMaintenance
	tables = append(tables, maint)

	c, _ := newChecker(tables, nil, dinnerSlots())
	res, err := c.Check(context.Background(), Request{
		RestaurantID: "rest_001", Date: "2025-10-26", Time: "20:00", PartySize: 4, Zone: "Terrace",
	})
	require.NoError(t, err)
	require.Len(t, res.Available, 1)
	assert.Equal(t, uint64(3), res.Available[0].ID)
	assert.Len(t, res.ByZone["Terrace"], 1)
}

func TestCheckSortsSmallestFit(t *testing.T) {
	tables := []model.Table{table(1, 8, "Main"), table(2, 4, "Main"), table(3, 6, "Main")}
	c, _ := newChecker(tables, nil, dinnerSlots())

	res, err := c.Check(context.Background(), Request{
		RestaurantID: "rest_001", Date: "2025-10-26", Time: "20:00", PartySize: 4,
	})
	require.NoError(t, err)
	require.Len(t, res.Available, 3)
	assert.Equal(t, uint64(2), res.Available[0].ID)
	assert.Equal(t, uint64(3), res.Available[1].ID)
	assert.Equal(t, uint64(1), res.Available[2].ID)
}

func TestCheckOccupiedTableRaisesRate(t *testing.T) {
	// A walk-in party has no reservation row, only occupied status.  It
	// counts toward the occupancy rate, yet the table can still take a
	// booking for a later slot.
	seated := table(1, 4, "Main")
	seated.Status = model.TableStatusOccupied
	c, _ := newChecker([]model.Table{seated, table(2, 4, "Main")}, nil, dinnerSlots())

	res, err := c.Check(context.Background(), Request{
		RestaurantID: "rest_001", Date: "2025-10-26", Time: "20:00", PartySize: 4,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.OccupancyRate, 1e-9)
	assert.Len(t, res.Available, 2)
}

func TestCheckNoAvailabilityOffersAlternatives(t *testing.T) {
	c, _ := newChecker([]model.Table{table(1, 4, "Main")}, []model.Reservation{booked(1, "20:00")}, dinnerSlots())

	res, err := c.Check(context.Background(), Request{
		RestaurantID: "rest_001", Date: "2025-10-26", Time: "20:00", PartySize: 4,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Available)
	assert.Equal(t, []string{"19:30"}, res.Alternatives, "other dinner turns offered")
	assert.NotEmpty(t, res.Suggestion)
}

func TestCheckOffNearestTurnAlternatives(t *testing.T) {
	// 20:15 is not a configured turn; both dinner turns come back as
	// the nearest options in chronological order.
	c, _ := newChecker([]model.Table{table(1, 4, "Main")}, []model.Reservation{booked(1, "20:00")}, dinnerSlots())

	res, err := c.Check(context.Background(), Request{
		RestaurantID: "rest_001", Date: "2025-10-26", Time: "20:15", PartySize: 4,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Available)
	assert.Equal(t, []string{"19:30", "20:00"}, res.Alternatives)
}

func TestVerifyTable(t *testing.T) {
	c, _ := newChecker([]model.Table{table(1, 4, "Main")}, []model.Reservation{booked(1, "20:00")}, dinnerSlots())
	req := Request{RestaurantID: "rest_001", Date: "2025-10-26", Time: "21:00", PartySize: 2}

	err := c.VerifyTable(context.Background(), req, 1)
	assert.ErrorIs(t, err, ErrTableConflict)

	// A different table has no bookings at all.
	assert.NoError(t, c.VerifyTable(context.Background(), req, 2))
}
