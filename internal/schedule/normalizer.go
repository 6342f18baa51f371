// Package schedule contains the time-related core of the reservation
// engine: normalization of fuzzy date expressions into canonical ISO
// dates and the catalog of canonical service windows ("turns").
package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidTimeFormat is returned when a time string is not a valid
// 24-hour H:MM / HH:MM value.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// ErrInvalidDateExpression is returned by a strict Normalizer when a
// date expression cannot be resolved.
var ErrInvalidDateExpression = errors.New("invalid date expression")

var (
	timePattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)
	isoPattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ValidateTime checks that s is a wall-clock time in H:MM or HH:MM form
// within 00:00–23:59.  Anything else yields ErrInvalidTimeFormat.
func ValidateTime(s string) error {
	if !timePattern.MatchString(s) {
		return fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return nil
}

// MinuteOfDay converts a validated H:MM / HH:MM string into minutes
// since midnight.  It returns ErrInvalidTimeFormat for malformed input.
func MinuteOfDay(s string) (int, error) {
	if err := ValidateTime(s); err != nil {
		return 0, err
	}
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	return h*60 + m, nil
}

// relative tokens resolved against the current day in the restaurant's
// timezone.  Spanish aliases cover the voice-agent channel.
var relativeTokens = map[string]int{
	"today":              0,
	"hoy":                0,
	"tomorrow":           1,
	"mañana":             1,
	"manana":             1,
	"day after tomorrow": 2,
	"day-after-tomorrow": 2,
	"pasado mañana":      2,
	"pasado manana":      2,
}

// weekday names in English and Spanish (accented and plain forms).
var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "domingo": time.Sunday,
	"monday": time.Monday, "lunes": time.Monday,
	"tuesday": time.Tuesday, "martes": time.Tuesday,
	"wednesday": time.Wednesday, "miércoles": time.Wednesday, "miercoles": time.Wednesday,
	"thursday": time.Thursday, "jueves": time.Thursday,
	"friday": time.Friday, "viernes": time.Friday,
	"saturday": time.Saturday, "sábado": time.Saturday, "sabado": time.Saturday,
}

// Normalizer resolves loosely-structured date expressions into canonical
// ISO dates.  All relative expressions are evaluated against the current
// instant in the restaurant's fixed timezone, never server-local time.
//
// In strict mode an unrecognized expression is rejected with
// ErrInvalidDateExpression.  In permissive mode it silently resolves to
// tomorrow, matching the tolerant behavior expected by the voice-agent
// channel; callers needing validation must enable strict mode.
type Normalizer struct {
	loc    *time.Location
	strict bool
	now    func() time.Time // injectable for tests
}

// NewNormalizer builds a Normalizer bound to the given timezone.
func NewNormalizer(loc *time.Location, strict bool) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	return &Normalizer{loc: loc, strict: strict, now: time.Now}
}

// Location exposes the restaurant timezone the normalizer resolves in.
func (n *Normalizer) Location() *time.Location { return n.loc }

// WithClock returns a copy of the Normalizer using the supplied clock.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	c := *n
	c.now = now
	return &c
}

// NormalizeDate turns expr into an ISO YYYY-MM-DD date.  It recognizes
// relative tokens (today/tomorrow/day-after-tomorrow and their Spanish
// equivalents), weekday names (resolved to the next occurrence, a full
// week ahead when the named day is today), and ISO dates, which pass
// through after a validity check.
func (n *Normalizer) NormalizeDate(expr string) (string, error) {
	cleaned := strings.ToLower(strings.TrimSpace(expr))
	today := n.today()

	if offset, ok := relativeTokens[cleaned]; ok {
		return today.AddDate(0, 0, offset).Format("2006-01-02"), nil
	}

	if wd, ok := weekdayNames[cleaned]; ok {
		// "next Tuesday" semantics: a weekday name never means today.
		delta := (int(wd) - int(today.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		return today.AddDate(0, 0, delta).Format("2006-01-02"), nil
	}

	if isoPattern.MatchString(cleaned) {
		t, err := time.ParseInLocation("2006-01-02", cleaned, n.loc)
		if err != nil || t.Format("2006-01-02") != cleaned {
			return "", fmt.Errorf("%w: %q", ErrInvalidDateExpression, expr)
		}
		return cleaned, nil
	}

	if n.strict {
		return "", fmt.Errorf("%w: %q", ErrInvalidDateExpression, expr)
	}
	return today.AddDate(0, 0, 1).Format("2006-01-02"), nil
}

// today returns midnight of the current day in the restaurant timezone.
func (n *Normalizer) today() time.Time {
	t := n.now().In(n.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, n.loc)
}
