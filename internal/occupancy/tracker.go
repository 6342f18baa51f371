// Package occupancy owns the lifecycle of physical tables: the
// free → reserved → occupied → free state machine, the runtime records
// tying occupied tables to seated parties, and the background sweeper
// that reclaims tables whose occupation window has elapsed.
package occupancy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zeorvi/restaurant-reservations/internal/model"
	"github.com/zeorvi/restaurant-reservations/internal/queue"
)

// ErrTableUnavailable is returned when a requested transition is not
// legal from the table's current state.
var ErrTableUnavailable = errors.New("table unavailable")

// TableStore is the persistence port for table state.  The
// compare-and-swap update is the backbone of transition safety: a
// transition only succeeds if the row is still in one of the expected
// source states.
type TableStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Table, error)
	CompareAndSwapStatus(ctx context.Context, id uint64, from []model.TableStatus, to model.TableStatus) (bool, error)
}

// ReservationStore is the persistence port the tracker needs to attach
// reservations to tables and to close them out on release.
type ReservationStore interface {
	Create(ctx context.Context, res *model.Reservation) error
	UpdateStatus(ctx context.Context, id uint64, status model.ReservationStatus) error
}

// Config carries the occupancy policy.  There is a single authoritative
// release deadline per table: the earlier of the hard occupation
// ceiling and the estimated end plus grace.  The warning buffer only
// derives a "nearing cleanup" view from that same deadline.
type Config struct {
	MaxOccupation time.Duration // hard ceiling on any occupation (default 2h30m)
	Grace         time.Duration // buffer after the estimated end (default 15m)
	WarningBuffer time.Duration // lead time for nearing-release warnings (default 30m)
}

func (c Config) withDefaults() Config {
	if c.MaxOccupation <= 0 {
		c.MaxOccupation = 150 * time.Minute
	}
	if c.Grace <= 0 {
		c.Grace = 15 * time.Minute
	}
	if c.WarningBuffer <= 0 {
		c.WarningBuffer = 30 * time.Minute
	}
	return c
}

// Tracker serializes all state transitions of a table behind a
// per-table mutex, keeps the in-memory occupancy records the sweeper
// works from, and emits domain events on every release.
type Tracker struct {
	tables       TableStore
	reservations ReservationStore
	events       queue.Publisher
	cfg          Config

	mu      sync.Mutex                        // guards records
	records map[uint64]*model.OccupancyRecord // keyed by table ID

	locks sync.Map // table ID -> *sync.Mutex

	now func() time.Time // injectable for tests
}

// NewTracker wires the tracker to its stores and event publisher.
func NewTracker(tables TableStore, reservations ReservationStore, events queue.Publisher, cfg Config) *Tracker {
	return &Tracker{
		tables:       tables,
		reservations: reservations,
		events:       events,
		cfg:          cfg.withDefaults(),
		records:      make(map[uint64]*model.OccupancyRecord),
		now:          time.Now,
	}
}

// WithClock replaces the tracker's clock.  Tests only.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// tableLock returns the mutex serializing transitions for one table.
func (t *Tracker) tableLock(tableID uint64) *sync.Mutex {
	mu, _ := t.locks.LoadOrStore(tableID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Reserve holds a free table ahead of an imminent arrival
// (reserved status on the floor plan).  Booking a future slot goes
// through ReserveAtomic instead; this transition is for staff marking
// a table as held once the party's service window approaches.  Any
// source state other than free fails with ErrTableUnavailable.
func (t *Tracker) Reserve(ctx context.Context, tableID uint64) error {
	mu := t.tableLock(tableID)
	mu.Lock()
	defer mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	ok, err := t.tables.CompareAndSwapStatus(ctx, tableID,
		[]model.TableStatus{model.TableStatusFree}, model.TableStatusReserved)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: table %d is not free", ErrTableUnavailable, tableID)
	}
	return nil
}

// ReserveAtomic performs the booking sequence under the table lock:
// final conflict verification followed by the reservation insert.
// Holding the lock across both closes the race where two concurrent
// requests observe the same availability and book the same slot.
//
// The table's persisted status is a live floor state and is not
// touched here: a table carries many future reservations at once, and
// back-to-back bookings on the same table must both succeed.  Only
// tables out of service (maintenance) refuse bookings outright.
func (t *Tracker) ReserveAtomic(ctx context.Context, res *model.Reservation, verify func(ctx context.Context) error) error {
	if res.TableID == nil {
		return fmt.Errorf("%w: reservation has no table", ErrTableUnavailable)
	}
	tableID := *res.TableID
	mu := t.tableLock(tableID)
	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tbl, err := t.tables.GetByID(ctx, tableID)
	if err != nil {
		return err
	}
	if tbl.Status == model.TableStatusMaintenance {
		return fmt.Errorf("%w: table %d is under maintenance", ErrTableUnavailable, tableID)
	}
	if verify != nil {
		if err := verify(ctx); err != nil {
			return err
		}
	}
	if err := t.reservations.Create(ctx, res); err != nil {
		return err
	}
	if err := t.events.ReservationCreated(ctx, queue.ReservationCreatedEvent{
		ReservationID: res.PublicID,
		RestaurantID:  res.RestaurantID,
		TableID:       tableID,
		TableLabel:    tbl.Label,
		Date:          res.Date,
		Time:          res.Time,
		PartySize:     res.PartySize,
		Zone:          res.Zone,
		ClientName:    res.ClientName,
		CreatedAt:     t.now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("occupancy: publish reservation created failed: %v", err)
	}
	return nil
}

// Occupy seats a party at a table.  Legal from free (walk-in) or
// reserved (check-in).  The occupancy record's release deadline is
// derived once here; the sweeper only reads it.
func (t *Tracker) Occupy(ctx context.Context, tableID uint64, res *model.Reservation, clientLabel string, estimated time.Duration) (*model.OccupancyRecord, error) {
	mu := t.tableLock(tableID)
	mu.Lock()
	defer mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tbl, err := t.tables.GetByID(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if tbl.Status == model.TableStatusOccupied {
		// Idempotent with respect to the target state.
		t.mu.Lock()
		rec := t.records[tableID]
		t.mu.Unlock()
		if rec != nil {
			return rec, nil
		}
	}
	ok, err := t.tables.CompareAndSwapStatus(ctx, tableID,
		[]model.TableStatus{model.TableStatusFree, model.TableStatusReserved}, model.TableStatusOccupied)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: table %d cannot be occupied from %s", ErrTableUnavailable, tableID, tbl.Status)
	}

	now := t.now()
	rec := &model.OccupancyRecord{
		TableID:       tableID,
		RestaurantID:  tbl.RestaurantID,
		ClientLabel:   clientLabel,
		OccupiedAt:    now,
		EstimatedEnd:  now.Add(estimated),
		AutoReleaseAt: now.Add(estimated).Add(t.cfg.Grace),
	}
	if res != nil {
		id := res.ID
		rec.ReservationID = &id
		if clientLabel == "" {
			rec.ClientLabel = res.ClientName
		}
	}
	t.mu.Lock()
	t.records[tableID] = rec
	t.mu.Unlock()
	return rec, nil
}

// Release frees a table after a staff action.  Releasing a table that
// is already free is a no-op.
func (t *Tracker) Release(ctx context.Context, tableID uint64) error {
	return t.release(ctx, tableID, "manual")
}

func (t *Tracker) release(ctx context.Context, tableID uint64, reason string) error {
	mu := t.tableLock(tableID)
	mu.Lock()
	defer mu.Unlock()

	tbl, err := t.tables.GetByID(ctx, tableID)
	if err != nil {
		return err
	}
	if tbl.Status == model.TableStatusFree {
		return nil // idempotent: no state change, no duplicate event
	}
	ok, err := t.tables.CompareAndSwapStatus(ctx, tableID,
		[]model.TableStatus{model.TableStatusReserved, model.TableStatusOccupied}, model.TableStatusFree)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: table %d cannot be released from %s", ErrTableUnavailable, tableID, tbl.Status)
	}

	t.mu.Lock()
	rec := t.records[tableID]
	delete(t.records, tableID)
	t.mu.Unlock()

	if rec == nil {
		return nil // was reserved, nothing was seated yet
	}
	if rec.ReservationID != nil {
		if err := t.reservations.UpdateStatus(ctx, *rec.ReservationID, model.ReservationStatusCompleted); err != nil {
			log.Printf("occupancy: completing reservation %d failed: %v", *rec.ReservationID, err)
		}
	}
	now := t.now()
	if err := t.events.TableAutoReleased(ctx, queue.TableAutoReleasedEvent{
		RestaurantID:    rec.RestaurantID,
		TableID:         tableID,
		ClientLabel:     rec.ClientLabel,
		OccupiedMinutes: rec.OccupiedMinutes(now),
		Reason:          reason,
		ReleasedAt:      now.UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("occupancy: publish release event failed: %v", err)
	}
	return nil
}

// CancelReservation returns a reserved (never seated) table to free.
// Already-free tables are a no-op so cancellation stays idempotent.
func (t *Tracker) CancelReservation(ctx context.Context, tableID uint64) error {
	mu := t.tableLock(tableID)
	mu.Lock()
	defer mu.Unlock()
	_, err := t.tables.CompareAndSwapStatus(ctx, tableID,
		[]model.TableStatus{model.TableStatusReserved}, model.TableStatusFree)
	return err
}

// StartMaintenance takes a free table out of service.
func (t *Tracker) StartMaintenance(ctx context.Context, tableID uint64) error {
	mu := t.tableLock(tableID)
	mu.Lock()
	defer mu.Unlock()
	ok, err := t.tables.CompareAndSwapStatus(ctx, tableID,
		[]model.TableStatus{model.TableStatusFree}, model.TableStatusMaintenance)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: maintenance requires a free table", ErrTableUnavailable)
	}
	return nil
}

// EndMaintenance returns a table from maintenance to service.
func (t *Tracker) EndMaintenance(ctx context.Context, tableID uint64) error {
	mu := t.tableLock(tableID)
	mu.Lock()
	defer mu.Unlock()
	ok, err := t.tables.CompareAndSwapStatus(ctx, tableID,
		[]model.TableStatus{model.TableStatusMaintenance}, model.TableStatusFree)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: table is not under maintenance", ErrTableUnavailable)
	}
	return nil
}

// releaseDeadline computes the single authoritative moment a record
// must be released: estimated end plus grace, capped by the hard
// occupation ceiling.
func (t *Tracker) releaseDeadline(rec *model.OccupancyRecord) time.Time {
	hard := rec.OccupiedAt.Add(t.cfg.MaxOccupation)
	if rec.AutoReleaseAt.Before(hard) {
		return rec.AutoReleaseAt
	}
	return hard
}

// Occupied returns a snapshot of the current occupancy records.
func (t *Tracker) Occupied() []model.OccupancyRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.OccupancyRecord, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, *rec)
	}
	return out
}

// markWarned flags a record so the nearing-release warning fires once.
func (t *Tracker) markWarned(tableID uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.records[tableID]; ok {
		rec.WarningSent = true
	}
}

// NearingRelease lists occupied tables inside the warning buffer before
// their release deadline, for UI countdowns.
func (t *Tracker) NearingRelease() []model.OccupancyRecord {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []model.OccupancyRecord
	for _, rec := range t.records {
		deadline := t.releaseDeadline(rec)
		if now.After(deadline.Add(-t.cfg.WarningBuffer)) && now.Before(deadline) {
			out = append(out, *rec)
		}
	}
	return out
}
