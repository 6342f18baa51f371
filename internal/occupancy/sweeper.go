package occupancy

import (
	"context"
	"log"
	"time"

	"github.com/zeorvi/restaurant-reservations/internal/queue"
)

// Sweeper periodically scans occupied tables and force-releases any
// whose release deadline has passed.  One timer drives one policy:
// hard ceiling and grace buffer are folded into a single deadline by
// the tracker, and the nearing-release warning is derived from that
// same deadline rather than tracked separately.
type Sweeper struct {
	tracker  *Tracker
	interval time.Duration
}

// NewSweeper builds a sweeper over the given tracker.  interval
// defaults to 30 seconds when non-positive.
func NewSweeper(tracker *Tracker, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{tracker: tracker, interval: interval}
}

// Run ticks until the context is cancelled.  The first sweep happens
// immediately so a restart does not wait a full interval to reclaim
// overdue tables.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over all occupancy records.  Failures are
// isolated per table: a release error is logged and retried on the
// next tick, never aborting the rest of the sweep.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.tracker.now()
	for _, rec := range s.tracker.Occupied() {
		deadline := s.tracker.releaseDeadline(&rec)
		switch {
		case now.After(deadline):
			if err := s.tracker.release(ctx, rec.TableID, "auto"); err != nil {
				log.Printf("sweeper: release of table %d failed, retrying next tick: %v", rec.TableID, err)
			}
		case !rec.WarningSent && now.After(deadline.Add(-s.tracker.cfg.WarningBuffer)):
			if err := s.tracker.events.TableNearingRelease(ctx, queue.TableNearingReleaseEvent{
				RestaurantID:     rec.RestaurantID,
				TableID:          rec.TableID,
				ClientLabel:      rec.ClientLabel,
				ReleaseAt:        deadline.UTC().Format(time.RFC3339),
				MinutesRemaining: int(deadline.Sub(now) / time.Minute),
			}); err != nil {
				log.Printf("sweeper: publish warning for table %d failed: %v", rec.TableID, err)
				continue // retry the warning next tick
			}
			s.tracker.markWarned(rec.TableID)
		}
	}
}
