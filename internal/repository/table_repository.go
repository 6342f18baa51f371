package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/zeorvi/restaurant-reservations/internal/model"
)

// TableRepo provides data access to the tables table.  All timestamp
// columns are stored in UTC.  Status transitions are expected to go
// through CompareAndSwapStatus so that concurrent writers (interactive
// requests and the sweeper) can never clobber each other.
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo returns a new TableRepo bound to the given database.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

// DB exposes the underlying handle for transaction management.
func (r *TableRepo) DB() *sql.DB { return r.db }

// ListByRestaurant returns every table of a restaurant ordered by zone
// and label for deterministic output.
func (r *TableRepo) ListByRestaurant(ctx context.Context, restaurantID string) ([]model.Table, error) {
	const q = `SELECT id, restaurant_id, label, capacity, zone, status, created_at, updated_at
			   FROM tables
			   WHERE restaurant_id = ?
			   ORDER BY zone, label`
	rows, err := r.db.QueryContext(ctx, q, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()
	tables := make([]model.Table, 0)
	for rows.Next() {
		var t model.Table
		if err := rows.Scan(&t.ID, &t.RestaurantID, &t.Label, &t.Capacity, &t.Zone, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return tables, nil
}

// GetByID returns a single table or ErrNotFound.
func (r *TableRepo) GetByID(ctx context.Context, id uint64) (*model.Table, error) {
	const q = `SELECT id, restaurant_id, label, capacity, zone, status, created_at, updated_at
			   FROM tables WHERE id = ?`
	var t model.Table
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&t.ID, &t.RestaurantID, &t.Label, &t.Capacity, &t.Zone, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: table %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &t, nil
}

// UpdateStatus sets the status unconditionally.  Prefer
// CompareAndSwapStatus for lifecycle transitions; this remains for
// administrative corrections.
func (r *TableRepo) UpdateStatus(ctx context.Context, id uint64, status model.TableStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tables SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: table %d", ErrNotFound, id)
	}
	return nil
}

// CompareAndSwapStatus atomically moves a table from one of the
// expected source states to the target state.  It reports false without
// error when the row was in a different state, which callers treat as a
// lost race rather than a failure.
func (r *TableRepo) CompareAndSwapStatus(ctx context.Context, id uint64, from []model.TableStatus, to model.TableStatus) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(from)), ",")
	q := `UPDATE tables SET status = ? WHERE id = ? AND status IN (` + placeholders + `)`
	args := make([]interface{}, 0, len(from)+2)
	args = append(args, to, id)
	for _, s := range from {
		args = append(args, s)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}
