package model

// MealType classifies a service window as lunch or dinner.  It drives
// the default service duration when a slot does not configure its own.
type MealType string

const (
	MealTypeLunch  MealType = "lunch"
	MealTypeDinner MealType = "dinner"
)

// TimeSlot is a restaurant-defined canonical service window ("turn"),
// e.g. "first dinner turn, 20:00–22:00".  Slots are owned by restaurant
// configuration and are read-only to the scheduling engine; edits apply
// prospectively only, a slot already referenced by a reservation keeps
// its meaning for that reservation.
//
// Fields:
//  ID             – primary key identifier.
//  RestaurantID   – restaurant that defines the turn.
//  Name           – display name of the turn.
//  StartTime      – start of the window, 24h (HH:MM).
//  EndTime        – end of the window, 24h (HH:MM).
//  MaxDurationMin – maximum service duration in minutes; 0 means
//                   "use the meal-type default".
//  MealType       – lunch or dinner tag.
//  Active         – whether the turn is currently bookable.
type TimeSlot struct {
	ID             uint64   // time_slots.id
	RestaurantID   string   // time_slots.restaurant_id
	Name           string   // time_slots.name
	StartTime      string   // time_slots.start_time
	EndTime        string   // time_slots.end_time
	MaxDurationMin int      // time_slots.max_duration_min
	MealType       MealType // time_slots.meal_type
	Active         bool     // time_slots.active
}
