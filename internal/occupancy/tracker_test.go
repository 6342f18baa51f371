package occupancy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeorvi/restaurant-reservations/internal/model"
	"github.com/zeorvi/restaurant-reservations/internal/queue"
	"github.com/zeorvi/restaurant-reservations/internal/repository"
)

// fakeTableStore is an in-memory TableStore with honest CAS semantics.
type fakeTableStore struct {
	mu     sync.Mutex
	tables map[uint64]*model.Table
	casErr map[uint64]error // injected per-table CAS failures
}

func newFakeTables(statuses map[uint64]model.TableStatus) *fakeTableStore {
	s := &fakeTableStore{tables: make(map[uint64]*model.Table), casErr: make(map[uint64]error)}
	for id, st := range statuses {
		s.tables[id] = &model.Table{
			ID: id, RestaurantID: "rest_001",
			Label: fmt.Sprintf("T%d", id), Capacity: 4, Zone: "Main", Status: st,
		}
	}
	return s
}

func (s *fakeTableStore) GetByID(ctx context.Context, id uint64) (*model.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *fakeTableStore) CompareAndSwapStatus(ctx context.Context, id uint64, from []model.TableStatus, to model.TableStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.casErr[id]; err != nil {
		return false, err
	}
	t, ok := s.tables[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if t.Status == f {
			t.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeTableStore) status(id uint64) model.TableStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[id].Status
}

type fakeResStore struct {
	mu        sync.Mutex
	created   []model.Reservation
	statuses  map[uint64]model.ReservationStatus
	createErr error
}

func newFakeReservations() *fakeResStore {
	return &fakeResStore{statuses: make(map[uint64]model.ReservationStatus)}
}

func (s *fakeResStore) Create(ctx context.Context, res *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	res.ID = uint64(len(s.created) + 1)
	s.created = append(s.created, *res)
	return nil
}

func (s *fakeResStore) UpdateStatus(ctx context.Context, id uint64, status model.ReservationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = status
	return nil
}

// eventRecorder captures every published event, with an injectable
// failure for the nearing-release warning path.
type eventRecorder struct {
	mu       sync.Mutex
	created  []queue.ReservationCreatedEvent
	released []queue.TableAutoReleasedEvent
	warnings []queue.TableNearingReleaseEvent
	warnErr  error
}

func (r *eventRecorder) ReservationCreated(ctx context.Context, ev queue.ReservationCreatedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, ev)
	return nil
}

func (r *eventRecorder) TableAutoReleased(ctx context.Context, ev queue.TableAutoReleasedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, ev)
	return nil
}

func (r *eventRecorder) TableNearingRelease(ctx context.Context, ev queue.TableNearingReleaseEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.warnErr != nil {
		return r.warnErr
	}
	r.warnings = append(r.warnings, ev)
	return nil
}

func (r *eventRecorder) AvailabilityChecked(ctx context.Context, ev queue.AvailabilityCheckedEvent) error {
	return nil
}

func reservationFor(tableID uint64) *model.Reservation {
	return &model.Reservation{
		RestaurantID: "rest_001",
		Date:         "2025-10-26",
		Time:         "20:00",
		PartySize:    4,
		TableID:      &tableID,
		Status:       model.ReservationStatusConfirmed,
		ClientName:   "Ana",
	}
}

func TestReserveRequiresFreeTable(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{
		1: model.TableStatusFree,
		2: model.TableStatusOccupied,
	})
	tr := NewTracker(tables, newFakeReservations(), &eventRecorder{}, Config{})

	require.NoError(t, tr.Reserve(context.Background(), 1))
	assert.Equal(t, model.TableStatusReserved, tables.status(1))

	err := tr.Reserve(context.Background(), 2)
	assert.ErrorIs(t, err, ErrTableUnavailable)
	assert.Equal(t, model.TableStatusOccupied, tables.status(2))
}

func TestReserveAtomicBooksAndPublishes(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{1: model.TableStatusFree})
	resStore := newFakeReservations()
	events := &eventRecorder{}
	tr := NewTracker(tables, resStore, events, Config{})

	res := reservationFor(1)
	res.PublicID = "res-abc"
	verified := false
	err := tr.ReserveAtomic(context.Background(), res, func(ctx context.Context) error {
		verified = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, verified)
	assert.Equal(t, model.TableStatusFree, tables.status(1), "future bookings never touch the floor status")
	require.Len(t, resStore.created, 1)
	require.Len(t, events.created, 1)
	assert.Equal(t, "res-abc", events.created[0].ReservationID)
	assert.Equal(t, "T1", events.created[0].TableLabel)
}

func TestReserveAtomicAllowsMultipleBookingsPerTable(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{1: model.TableStatusFree})
	resStore := newFakeReservations()
	events := &eventRecorder{}
	tr := NewTracker(tables, resStore, events, Config{})

	// Back-to-back lunch turns on the same table.  Overlap is the
	// verify hook's concern; table status must not get in the way.
	first := reservationFor(1)
	first.Time = "13:00"
	require.NoError(t, tr.ReserveAtomic(context.Background(), first, nil))

	second := reservationFor(1)
	second.Time = "15:00"
	require.NoError(t, tr.ReserveAtomic(context.Background(), second, nil))

	assert.Equal(t, model.TableStatusFree, tables.status(1))
	assert.Len(t, resStore.created, 2)
	assert.Len(t, events.created, 2)
}

func TestReserveAtomicRejectsMaintenanceTable(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{1: model.TableStatusMaintenance})
	resStore := newFakeReservations()
	tr := NewTracker(tables, resStore, &eventRecorder{}, Config{})

	err := tr.ReserveAtomic(context.Background(), reservationFor(1), nil)
	assert.ErrorIs(t, err, ErrTableUnavailable)
	assert.Empty(t, resStore.created)
}

func TestReserveAtomicVerifyFailureLeavesTableFree(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{1: model.TableStatusFree})
	resStore := newFakeReservations()
	tr := NewTracker(tables, resStore, &eventRecorder{}, Config{})

	wantErr := errors.New("conflicting booking")
	err := tr.ReserveAtomic(context.Background(), reservationFor(1), func(ctx context.Context) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, model.TableStatusFree, tables.status(1))
	assert.Empty(t, resStore.created)
}

func TestReserveAtomicCreateFailure(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{1: model.TableStatusFree})
	resStore := newFakeReservations()
	resStore.createErr = errors.New("insert failed")
	events := &eventRecorder{}
	tr := NewTracker(tables, resStore, events, Config{})

	err := tr.ReserveAtomic(context.Background(), reservationFor(1), nil)
	assert.ErrorIs(t, err, resStore.createErr)
	assert.Equal(t, model.TableStatusFree, tables.status(1))
	assert.Empty(t, events.created, "no event for a booking that never persisted")
}

func TestOccupyWalkInAndCheckIn(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{
		1: model.TableStatusFree,     // walk-in
		2: model.TableStatusReserved, // check-in
	})
	base := time.Date(2025, 10, 26, 20, 0, 0, 0, time.UTC)
	tr := NewTracker(tables, newFakeReservations(), &eventRecorder{}, Config{}).
		WithClock(func() time.Time { return base })

	rec, err := tr.Occupy(context.Background(), 1, nil, "walk-in party", 150*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, model.TableStatusOccupied, tables.status(1))
	assert.Equal(t, base.Add(150*time.Minute), rec.EstimatedEnd)
	assert.Equal(t, base.Add(165*time.Minute), rec.AutoReleaseAt)
	assert.Nil(t, rec.ReservationID)

	res := reservationFor(2)
	res.ID = 42
	rec2, err := tr.Occupy(context.Background(), 2, res, "", 150*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, model.TableStatusOccupied, tables.status(2))
	require.NotNil(t, rec2.ReservationID)
	assert.Equal(t, uint64(42), *rec2.ReservationID)
	assert.Equal(t, "Ana", rec2.ClientLabel, "falls back to the reservation's client name")
}

func TestOccupyIsIdempotent(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{1: model.TableStatusFree})
	tr := NewTracker(tables, newFakeReservations(), &eventRecorder{}, Config{})

	first, err := tr.Occupy(context.Background(), 1, nil, "party", 120*time.Minute)
	require.NoError(t, err)
	second, err := tr.Occupy(context.Background(), 1, nil, "party", 120*time.Minute)
	require.NoError(t, err)
	assert.Same(t, first, second, "repeated occupy returns the existing record")
}

func TestOccupyRejectsMaintenance(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{1: model.TableStatusMaintenance})
	tr := NewTracker(tables, newFakeReservations(), &eventRecorder{}, Config{})

	_, err := tr.Occupy(context.Background(), 1, nil, "party", 120*time.Minute)
	assert.ErrorIs(t, err, ErrTableUnavailable)
	assert.Equal(t, model.TableStatusMaintenance, tables.status(1))
}

func TestReleaseCompletesReservationAndEmitsOnce(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{1: model.TableStatusReserved})
	resStore := newFakeReservations()
	events := &eventRecorder{}
	tr := NewTracker(tables, resStore, events, Config{})

	res := reservationFor(1)
	res.ID = 7
	_, err := tr.Occupy(context.Background(), 1, res, "", 150*time.Minute)
	require.NoError(t, err)

	require.NoError(t, tr.Release(context.Background(), 1))
	assert.Equal(t, model.TableStatusFree, tables.status(1))
	assert.Equal(t, model.ReservationStatusCompleted, resStore.statuses[7])
	require.Len(t, events.released, 1)
	assert.Equal(t, "manual", events.released[0].Reason)

	// Releasing again is a no-op with no duplicate event.
	require.NoError(t, tr.Release(context.Background(), 1))
	assert.Len(t, events.released, 1)
}

func TestReleaseReservedWithoutSeatingEmitsNothing(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{1: model.TableStatusReserved})
	events := &eventRecorder{}
	tr := NewTracker(tables, newFakeReservations(), events, Config{})

	require.NoError(t, tr.Release(context.Background(), 1))
	assert.Equal(t, model.TableStatusFree, tables.status(1))
	assert.Empty(t, events.released, "no party was seated, nothing to report")
}

func TestCancelReservationIsIdempotent(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{1: model.TableStatusReserved})
	tr := NewTracker(tables, newFakeReservations(), &eventRecorder{}, Config{})

	require.NoError(t, tr.CancelReservation(context.Background(), 1))
	assert.Equal(t, model.TableStatusFree, tables.status(1))
	require.NoError(t, tr.CancelReservation(context.Background(), 1))
	assert.Equal(t, model.TableStatusFree, tables.status(1))
}

func TestMaintenanceTransitions(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{
		1: model.TableStatusFree,
		2: model.TableStatusOccupied,
	})
	tr := NewTracker(tables, newFakeReservations(), &eventRecorder{}, Config{})

	require.NoError(t, tr.StartMaintenance(context.Background(), 1))
	assert.Equal(t, model.TableStatusMaintenance, tables.status(1))

	err := tr.StartMaintenance(context.Background(), 2)
	assert.ErrorIs(t, err, ErrTableUnavailable, "maintenance only from free")

	require.NoError(t, tr.EndMaintenance(context.Background(), 1))
	assert.Equal(t, model.TableStatusFree, tables.status(1))

	assert.ErrorIs(t, tr.EndMaintenance(context.Background(), 2), ErrTableUnavailable)
}

func TestNearingReleaseWindow(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{1: model.TableStatusFree})
	base := time.Date(2025, 10, 26, 20, 0, 0, 0, time.UTC)
	now := base
	tr := NewTracker(tables, newFakeReservations(), &eventRecorder{}, Config{}).
		WithClock(func() time.Time { return now })

	_, err := tr.Occupy(context.Background(), 1, nil, "party", 150*time.Minute)
	require.NoError(t, err)

	// Deadline is the hard ceiling at +150m; the warning window opens
	// 30 minutes before it.
	now = base.Add(115 * time.Minute)
	assert.Empty(t, tr.NearingRelease())

	now = base.Add(125 * time.Minute)
	assert.Len(t, tr.NearingRelease(), 1)
}
