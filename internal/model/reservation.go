package model

import "time"

// ReservationStatus enumerates the lifecycle states of a booking.
// "cancelled" and "completed" are terminal states.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusCompleted ReservationStatus = "completed"
)

// Active reports whether the reservation still blocks a table, i.e. it
// has not reached a terminal state.
func (s ReservationStatus) Active() bool {
	return s == ReservationStatusPending || s == ReservationStatusConfirmed
}

// Reservation records a booking request for a restaurant table.  A
// reservation may exist without an assigned table while pending; once
// confirmed with a table it must not overlap in time with any other
// confirmed reservation on the same table.
//
// Fields:
//  ID           – primary key identifier.
//  PublicID     – opaque UUID handed to clients for lookup and cancellation.
//  RestaurantID – restaurant the booking belongs to.
//  Date         – calendar date in ISO form (YYYY-MM-DD).
//  Time         – wall-clock start time, 24h (HH:MM).
//  PartySize    – number of guests (>= 1).
//  TableID      – assigned table, nil until one is chosen.
//  Status       – state of the booking.
//  Zone         – requested zone, empty when the caller has no preference.
//  ClientName   – who the booking is for.
//  Notes        – free-text notes captured from the booking channel.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Reservation struct {
	ID           uint64            // reservations.id
	PublicID     string            // reservations.public_id
	RestaurantID string            // reservations.restaurant_id
	Date         string            // reservations.date
	Time         string            // reservations.time
	PartySize    int               // reservations.party_size
	TableID      *uint64           // reservations.table_id (nullable)
	Status       ReservationStatus // reservations.status
	Zone         string            // reservations.zone
	ClientName   string            // reservations.client_name
	Notes        string            // reservations.notes
	CreatedAt    time.Time         // reservations.created_at
	UpdatedAt    time.Time         // reservations.updated_at
}
