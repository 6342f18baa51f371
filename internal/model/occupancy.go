package model

import "time"

// OccupancyRecord is the runtime record linking an occupied table to the
// party currently seated at it.  It exists only while the table is
// occupied and is destroyed on release; it is working state for the
// auto-release sweeper, not durable reservation history.
//
// Fields:
//  TableID       – table being occupied.
//  RestaurantID  – restaurant the table belongs to.
//  ReservationID – attached reservation, nil for walk-ins.
//  ClientLabel   – display label for the seated party.
//  OccupiedAt    – when the party was seated.
//  EstimatedEnd  – OccupiedAt plus the estimated service duration.
//  AutoReleaseAt – EstimatedEnd plus the configured grace buffer.
//  WarningSent   – whether a nearing-release warning was already emitted.
type OccupancyRecord struct {
	TableID       uint64
	RestaurantID  string
	ReservationID *uint64
	ClientLabel   string
	OccupiedAt    time.Time
	EstimatedEnd  time.Time
	AutoReleaseAt time.Time
	WarningSent   bool
}

// OccupiedMinutes returns how long the table has been held as of now,
// rounded down to whole minutes.
func (r OccupancyRecord) OccupiedMinutes(now time.Time) int {
	return int(now.Sub(r.OccupiedAt) / time.Minute)
}
