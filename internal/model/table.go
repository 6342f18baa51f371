package model

import "time"

// TableStatus enumerates the lifecycle states of a physical table.
// Transitions between states are owned exclusively by the occupancy
// tracker; repositories only persist the value.
type TableStatus string

const (
	TableStatusFree        TableStatus = "free"        // table can be reserved or seated
	TableStatusReserved    TableStatus = "reserved"    // held for a confirmed reservation
	TableStatusOccupied    TableStatus = "occupied"    // a party is currently seated
	TableStatusMaintenance TableStatus = "maintenance" // out of service, reachable from free only
)

// Table represents a physical seating unit owned by a restaurant.
// Tables live for the restaurant's operational lifetime and are never
// deleted while historical reservations reference them.
//
// Fields:
//  ID           – primary key identifier.
//  RestaurantID – restaurant that owns the table.
//  Label        – human-readable table name (e.g. "T4").
//  Capacity     – number of guests the table seats (>= 1).
//  Zone         – free-text location tag (e.g. "Terrace", "Main Hall").
//  Status       – current lifecycle state.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Table struct {
	ID           uint64      // tables.id
	RestaurantID string      // tables.restaurant_id
	Label        string      // tables.label
	Capacity     int         // tables.capacity
	Zone         string      // tables.zone
	Status       TableStatus // tables.status
	CreatedAt    time.Time   // tables.created_at
	UpdatedAt    time.Time   // tables.updated_at
}
