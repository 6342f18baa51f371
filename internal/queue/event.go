// Package queue defines the domain events emitted by the reservation
// engine and the message payloads exchanged over the broker.
package queue

// Queue names, one durable queue per event type.
const (
	QueueReservationCreated  = "reservation.created"
	QueueTableAutoReleased   = "table.autoreleased"
	QueueTableNearingRelease = "table.nearing_release"
	QueueAvailabilityChecked = "availability.checked"
)

// ReservationCreatedEvent is published when a booking is confirmed and a
// table has been assigned.  It carries enough information for downstream
// consumers to notify staff or the client without querying the database.
type ReservationCreatedEvent struct {
	ReservationID string `json:"reservation_id"`
	RestaurantID  string `json:"restaurant_id"`
	TableID       uint64 `json:"table_id"`
	TableLabel    string `json:"table_label"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	PartySize     int    `json:"party_size"`
	Zone          string `json:"zone,omitempty"`
	ClientName    string `json:"client_name"`
	CreatedAt     string `json:"created_at"`
}

// TableAutoReleasedEvent is published when the sweeper (reason "auto")
// or a staff action (reason "manual") frees an occupied table.
type TableAutoReleasedEvent struct {
	RestaurantID    string `json:"restaurant_id"`
	TableID         uint64 `json:"table_id"`
	ClientLabel     string `json:"client_label"`
	OccupiedMinutes int    `json:"occupied_duration_minutes"`
	Reason          string `json:"reason"`
	ReleasedAt      string `json:"released_at"`
}

// TableNearingReleaseEvent warns that an occupied table is inside the
// warning buffer before its release deadline.  Emitted at most once per
// occupancy; UI layers use it for countdown displays.
type TableNearingReleaseEvent struct {
	RestaurantID     string `json:"restaurant_id"`
	TableID          uint64 `json:"table_id"`
	ClientLabel      string `json:"client_label"`
	ReleaseAt        string `json:"release_at"`
	MinutesRemaining int    `json:"minutes_remaining"`
}

// AvailabilityCheckedEvent records the outcome of an availability query
// for analytics consumers.
type AvailabilityCheckedEvent struct {
	RestaurantID  string  `json:"restaurant_id"`
	Date          string  `json:"date"`
	Time          string  `json:"time"`
	PartySize     int     `json:"party_size"`
	Zone          string  `json:"zone,omitempty"`
	FreeTables    int     `json:"free_tables"`
	OccupancyRate float64 `json:"occupancy_rate"`
	CheckedAt     string  `json:"checked_at"`
}
