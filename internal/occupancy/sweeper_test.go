package occupancy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeorvi/restaurant-reservations/internal/model"
)

// occupiedTracker seats one party at 20:00 with a dinner-length
// estimate and hands back the pieces a sweep test needs: the mutable
// clock is advanced through the `now` pointer.
func occupiedTracker(t *testing.T, tables *fakeTableStore, events *eventRecorder, now *time.Time) *Tracker {
	t.Helper()
	tr := NewTracker(tables, newFakeReservations(), events, Config{}).
		WithClock(func() time.Time { return *now })
	for id := range tables.tables {
		_, err := tr.Occupy(context.Background(), id, nil, "party", 150*time.Minute)
		require.NoError(t, err)
	}
	return tr
}

func TestSweepReleasesAfterDeadline(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{1: model.TableStatusFree})
	events := &eventRecorder{}
	base := time.Date(2025, 10, 26, 20, 0, 0, 0, time.UTC)
	now := base
	tr := occupiedTracker(t, tables, events, &now)
	sw := NewSweeper(tr, 0)

	// Estimated end +150m, grace +15m, hard ceiling +150m: the deadline
	// is the ceiling.  At 2h29m the table must still be occupied.
	now = base.Add(149 * time.Minute)
	sw.Sweep(context.Background())
	assert.Equal(t, model.TableStatusOccupied, tables.status(1))
	assert.Empty(t, events.released)

	now = base.Add(151 * time.Minute)
	sw.Sweep(context.Background())
	assert.Equal(t, model.TableStatusFree, tables.status(1))
	require.Len(t, events.released, 1)
	assert.Equal(t, "auto", events.released[0].Reason)
	assert.Equal(t, 151, events.released[0].OccupiedMinutes)
}

func TestSweepGraceExtendsShortEstimates(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{1: model.TableStatusFree})
	events := &eventRecorder{}
	base := time.Date(2025, 10, 26, 13, 0, 0, 0, time.UTC)
	now := base
	tr := NewTracker(tables, newFakeReservations(), events, Config{}).
		WithClock(func() time.Time { return now })
	_, err := tr.Occupy(context.Background(), 1, nil, "lunch party", 120*time.Minute)
	require.NoError(t, err)
	sw := NewSweeper(tr, 0)

	// Estimated end +120m plus 15m grace beats the 150m ceiling here.
	now = base.Add(130 * time.Minute)
	sw.Sweep(context.Background())
	assert.Equal(t, model.TableStatusOccupied, tables.status(1))

	now = base.Add(136 * time.Minute)
	sw.Sweep(context.Background())
	assert.Equal(t, model.TableStatusFree, tables.status(1))
	require.Len(t, events.released, 1)
}

func TestSweepWarnsExactlyOnce(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{1: model.TableStatusFree})
	events := &eventRecorder{}
	base := time.Date(2025, 10, 26, 20, 0, 0, 0, time.UTC)
	now := base
	tr := occupiedTracker(t, tables, events, &now)
	sw := NewSweeper(tr, 0)

	now = base.Add(125 * time.Minute) // 25 minutes before the deadline
	sw.Sweep(context.Background())
	require.Len(t, events.warnings, 1)
	assert.Equal(t, 25, events.warnings[0].MinutesRemaining)

	sw.Sweep(context.Background())
	sw.Sweep(context.Background())
	assert.Len(t, events.warnings, 1, "warning fires once per occupation")
	assert.Equal(t, model.TableStatusOccupied, tables.status(1))
}

func TestSweepRetriesWarningAfterPublishFailure(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{1: model.TableStatusFree})
	events := &eventRecorder{}
	base := time.Date(2025, 10, 26, 20, 0, 0, 0, time.UTC)
	now := base
	tr := occupiedTracker(t, tables, events, &now)
	sw := NewSweeper(tr, 0)

	events.warnErr = errors.New("broker down")
	now = base.Add(125 * time.Minute)
	sw.Sweep(context.Background())
	assert.Empty(t, events.warnings)

	events.warnErr = nil
	sw.Sweep(context.Background())
	assert.Len(t, events.warnings, 1, "failed warning is retried on the next tick")
}

func TestSweepIsolatesPerTableFailures(t *testing.T) {
	tables := newFakeTables(map[uint64]model.TableStatus{
		1: model.TableStatusFree,
		2: model.TableStatusFree,
	})
	events := &eventRecorder{}
	base := time.Date(2025, 10, 26, 20, 0, 0, 0, time.UTC)
	now := base
	tr := occupiedTracker(t, tables, events, &now)
	sw := NewSweeper(tr, 0)

	tables.mu.Lock()
	tables.casErr[1] = errors.New("deadlock")
	tables.mu.Unlock()

	now = base.Add(151 * time.Minute)
	sw.Sweep(context.Background())
	assert.Equal(t, model.TableStatusOccupied, tables.status(1), "failed release stays for the next tick")
	assert.Equal(t, model.TableStatusFree, tables.status(2))

	tables.mu.Lock()
	delete(tables.casErr, 1)
	tables.mu.Unlock()
	sw.Sweep(context.Background())
	assert.Equal(t, model.TableStatusFree, tables.status(1))
	assert.Len(t, events.released, 2)
}
