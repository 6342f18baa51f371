package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/zeorvi/restaurant-reservations/internal/model"
)

// ReservationRepo provides CRUD operations for reservations.  Dates and
// times are stored as canonical strings (YYYY-MM-DD and HH:MM); all
// timestamp columns are UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// Create inserts a new reservation, assigning a public UUID when the
// caller did not supply one.  The generated primary key and timestamps
// are populated on the provided record.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	if res.PublicID == "" {
		res.PublicID = uuid.NewString()
	}
	const q = `INSERT INTO reservations
			   (public_id, restaurant_id, date, time, party_size, table_id, status, zone, client_name, notes)
			   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var tableID interface{}
	if res.TableID != nil {
		tableID = *res.TableID
	}
	result, err := r.db.ExecContext(ctx, q,
		res.PublicID, res.RestaurantID, res.Date, res.Time, res.PartySize,
		tableID, res.Status, res.Zone, res.ClientName, res.Notes,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	res.ID = uint64(id)
	// Query back the row to populate database-generated timestamps.
	const sel = `SELECT created_at, updated_at FROM reservations WHERE id = ?`
	if err := r.db.QueryRowContext(ctx, sel, res.ID).Scan(&res.CreatedAt, &res.UpdatedAt); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// GetByPublicID returns a reservation by its public UUID or ErrNotFound.
func (r *ReservationRepo) GetByPublicID(ctx context.Context, publicID string) (*model.Reservation, error) {
	const q = `SELECT id, public_id, restaurant_id, date, time, party_size, table_id, status, zone, client_name, notes, created_at, updated_at
			   FROM reservations WHERE public_id = ?`
	res, err := r.scanOne(r.db.QueryRowContext(ctx, q, publicID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: reservation %s", ErrNotFound, publicID)
	}
	return res, err
}

// ListActiveByDate returns all non-terminal (pending or confirmed)
// reservations of a restaurant on the given ISO date, ordered by time.
// Cancelled and completed bookings never block a table.
func (r *ReservationRepo) ListActiveByDate(ctx context.Context, restaurantID, date string) ([]model.Reservation, error) {
	const q = `SELECT id, public_id, restaurant_id, date, time, party_size, table_id, status, zone, client_name, notes, created_at, updated_at
			   FROM reservations
			   WHERE restaurant_id = ? AND date = ? AND status IN ('pending', 'confirmed')
			   ORDER BY time, id`
	rows, err := r.db.QueryContext(ctx, q, restaurantID, date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}

// AssignTable points an active reservation at a different table, for
// staff-driven re-seating.  Terminal reservations are never reassigned.
func (r *ReservationRepo) AssignTable(ctx context.Context, id, tableID uint64) error {
	const q = `UPDATE reservations SET table_id = ? WHERE id = ? AND status IN ('pending', 'confirmed')`
	res, err := r.db.ExecContext(ctx, q, tableID, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: reservation %d is not active", ErrConflict, id)
	}
	return nil
}

// UpdateStatus moves a reservation to the given status by primary key.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, status model.ReservationStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: reservation %d", ErrNotFound, id)
	}
	return nil
}

// Cancel marks an active reservation cancelled by public ID.  It
// reports ErrConflict when the reservation is already in a terminal
// state: terminal states never transition again.
func (r *ReservationRepo) Cancel(ctx context.Context, publicID string) (*model.Reservation, error) {
	res, err := r.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if !res.Status.Active() {
		return nil, fmt.Errorf("%w: reservation %s is %s", ErrConflict, publicID, res.Status)
	}
	const q = `UPDATE reservations SET status = 'cancelled' WHERE public_id = ? AND status IN ('pending', 'confirmed')`
	result, err := r.db.ExecContext(ctx, q, publicID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		// Lost a race with another cancel or a completion.
		return nil, fmt.Errorf("%w: reservation %s changed state", ErrConflict, publicID)
	}
	res.Status = model.ReservationStatusCancelled
	return res, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *ReservationRepo) scanOne(s scanner) (*model.Reservation, error) {
	var res model.Reservation
	var tableID sql.NullInt64
	err := s.Scan(
		&res.ID, &res.PublicID, &res.RestaurantID, &res.Date, &res.Time, &res.PartySize,
		&tableID, &res.Status, &res.Zone, &res.ClientName, &res.Notes, &res.CreatedAt, &res.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if tableID.Valid {
		id := uint64(tableID.Int64)
		res.TableID = &id
	}
	return &res, nil
}
