package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zeorvi/restaurant-reservations/internal/model"
)

// TimeSlotRepo provides read access to the time_slots table.  The
// scheduling engine treats slots as restaurant configuration: it reads
// them but never writes them.
type TimeSlotRepo struct {
	db *sql.DB
}

// NewTimeSlotRepo returns a new TimeSlotRepo bound to the given database.
func NewTimeSlotRepo(db *sql.DB) *TimeSlotRepo { return &TimeSlotRepo{db: db} }

// ListActive returns the active turns of a restaurant ordered by start
// time.  Start and end times come back as canonical HH:MM strings.
func (r *TimeSlotRepo) ListActive(ctx context.Context, restaurantID string) ([]model.TimeSlot, error) {
	const q = `SELECT id, restaurant_id, name, start_time, end_time, max_duration_min, meal_type, active
			   FROM time_slots
			   WHERE restaurant_id = ? AND active = 1
			   ORDER BY start_time`
	rows, err := r.db.QueryContext(ctx, q, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()
	slots := make([]model.TimeSlot, 0)
	for rows.Next() {
		var s model.TimeSlot
		if err := rows.Scan(&s.ID, &s.RestaurantID, &s.Name, &s.StartTime, &s.EndTime, &s.MaxDurationMin, &s.MealType, &s.Active); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return slots, nil
}
