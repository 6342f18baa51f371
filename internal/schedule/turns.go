package schedule

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zeorvi/restaurant-reservations/internal/model"
)

// SlotSource abstracts the time_slots repository.  Only active slots are
// expected back, ordered by start time.
type SlotSource interface {
	ListActive(ctx context.Context, restaurantID string) ([]model.TimeSlot, error)
}

// TurnConfig carries the tunables for turn matching and duration
// estimation.  Zero values fall back to the standard defaults: lunch
// before 17:00 at 120 minutes, dinner at 150 minutes.
type TurnConfig struct {
	MealCutoff     string        // times before this are lunch (HH:MM)
	LunchDuration  time.Duration // default lunch service duration
	DinnerDuration time.Duration // default dinner service duration
}

func (c TurnConfig) withDefaults() TurnConfig {
	if c.MealCutoff == "" {
		c.MealCutoff = "17:00"
	}
	if c.LunchDuration <= 0 {
		c.LunchDuration = 120 * time.Minute
	}
	if c.DinnerDuration <= 0 {
		c.DinnerDuration = 150 * time.Minute
	}
	return c
}

// NearestTurn is the result of matching a requested time against a
// restaurant's turn catalog.  Either Exact is set and Alternatives is
// empty, or Exact is nil and Alternatives holds the two closest turns
// ordered by minute distance (ties prefer the earlier start).
type NearestTurn struct {
	Exact        *model.TimeSlot
	Alternatives []model.TimeSlot
	Suggestion   string
}

// Catalog is an immutable view over one restaurant's active turns.
// Build one per request via TurnService.Catalog.
type Catalog struct {
	slots []model.TimeSlot
	cfg   TurnConfig
}

// NewCatalog wraps the given slots.  Inactive slots are skipped so the
// caller may pass an unfiltered set.
func NewCatalog(slots []model.TimeSlot, cfg TurnConfig) *Catalog {
	active := make([]model.TimeSlot, 0, len(slots))
	for _, s := range slots {
		if s.Active {
			active = append(active, s)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].StartTime < active[j].StartTime
	})
	return &Catalog{slots: active, cfg: cfg.withDefaults()}
}

// FindNearest matches the requested time against the catalog.  An exact
// start-time match is returned alone; otherwise the two nearest turns
// are returned as alternatives together with a human-readable
// suggestion, e.g. "No turn at 14:00; closest options are 13:00 and 14:30".
func (c *Catalog) FindNearest(requested string) (NearestTurn, error) {
	reqMin, err := MinuteOfDay(requested)
	if err != nil {
		return NearestTurn{}, err
	}
	for i := range c.slots {
		start, err := MinuteOfDay(c.slots[i].StartTime)
		if err != nil {
			continue // malformed configuration rows are ignored
		}
		if start == reqMin {
			s := c.slots[i]
			return NearestTurn{Exact: &s}, nil
		}
	}

	type scored struct {
		slot     model.TimeSlot
		distance int
		startMin int
	}
	candidates := make([]scored, 0, len(c.slots))
	for _, s := range c.slots {
		start, err := MinuteOfDay(s.StartTime)
		if err != nil {
			continue
		}
		d := start - reqMin
		if d < 0 {
			d = -d
		}
		candidates = append(candidates, scored{slot: s, distance: d, startMin: start})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].startMin < candidates[j].startMin
	})
	if len(candidates) > 2 {
		candidates = candidates[:2]
	}
	// Selection is by distance; presentation is chronological so the
	// suggestion reads naturally ("13:00 and 14:30", never reversed).
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].startMin < candidates[j].startMin
	})
	out := NearestTurn{}
	times := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		out.Alternatives = append(out.Alternatives, cand.slot)
		times = append(times, cand.slot.StartTime)
	}
	switch len(times) {
	case 0:
		out.Suggestion = fmt.Sprintf("No turns are configured; %s cannot be booked", requested)
	case 1:
		out.Suggestion = fmt.Sprintf("No turn at %s; closest option is %s", requested, times[0])
	default:
		out.Suggestion = fmt.Sprintf("No turn at %s; closest options are %s", requested, strings.Join(times, " and "))
	}
	return out, nil
}

// MealTypeAt classifies a wall-clock time as lunch or dinner using the
// configured cutoff.  Malformed times classify as dinner, matching the
// conservative longer duration.
func (c *Catalog) MealTypeAt(timeStr string) model.MealType {
	t, err := MinuteOfDay(timeStr)
	if err != nil {
		return model.MealTypeDinner
	}
	cutoff, err := MinuteOfDay(c.cfg.MealCutoff)
	if err != nil {
		cutoff = 17 * 60
	}
	if t < cutoff {
		return model.MealTypeLunch
	}
	return model.MealTypeDinner
}

// DurationAt resolves the estimated service duration for a booking at
// the given time.  A turn starting exactly at that time with its own
// max duration takes precedence; otherwise the meal-type default applies.
func (c *Catalog) DurationAt(timeStr string) time.Duration {
	reqMin, err := MinuteOfDay(timeStr)
	if err == nil {
		for _, s := range c.slots {
			start, serr := MinuteOfDay(s.StartTime)
			if serr == nil && start == reqMin && s.MaxDurationMin > 0 {
				return time.Duration(s.MaxDurationMin) * time.Minute
			}
		}
	}
	if c.MealTypeAt(timeStr) == model.MealTypeLunch {
		return c.cfg.LunchDuration
	}
	return c.cfg.DinnerDuration
}

// TimesForMealType returns the sorted, deduplicated start times of all
// turns tagged with the given meal type.
func (c *Catalog) TimesForMealType(mt model.MealType) []string {
	return c.startTimes(func(s model.TimeSlot) bool { return s.MealType == mt })
}

// AllTimes returns the sorted, deduplicated start times of every turn.
func (c *Catalog) AllTimes() []string {
	return c.startTimes(func(model.TimeSlot) bool { return true })
}

func (c *Catalog) startTimes(keep func(model.TimeSlot) bool) []string {
	seen := make(map[string]struct{})
	times := make([]string, 0, len(c.slots))
	for _, s := range c.slots {
		if !keep(s) {
			continue
		}
		if _, dup := seen[s.StartTime]; dup {
			continue
		}
		seen[s.StartTime] = struct{}{}
		times = append(times, s.StartTime)
	}
	sort.Strings(times)
	return times
}

// TurnService loads per-restaurant turn catalogs on demand.
type TurnService struct {
	slots SlotSource
	cfg   TurnConfig
}

// NewTurnService binds a slot repository to the turn configuration.
func NewTurnService(slots SlotSource, cfg TurnConfig) *TurnService {
	return &TurnService{slots: slots, cfg: cfg.withDefaults()}
}

// Catalog fetches the active turns for a restaurant and wraps them.
func (s *TurnService) Catalog(ctx context.Context, restaurantID string) (*Catalog, error) {
	slots, err := s.slots.ListActive(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	return NewCatalog(slots, s.cfg), nil
}
