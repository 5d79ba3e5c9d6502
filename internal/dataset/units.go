package dataset

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Time units follow the "seconds since <timestamp>" convention. Two layouts
// appear in the wild: corrected instrument files carry an ISO-style midnight
// ("seconds since 2024-06-20 00:00:00") while stitched daily files use the
// compact ARM-style form ("seconds since 20240620 00:00:00").
const (
	UnitsLayoutISO     = "2006-01-02 15:04:05"
	UnitsLayoutCompact = "20060102 15:04:05"
)

const unitsPrefix = "seconds since "

// ErrBadUnits indicates a units attribute that is not a recognized
// "seconds since <timestamp>" string.
var ErrBadUnits = errors.New("unrecognized time units")

// unitsLayouts are tried in order when parsing an epoch.
var unitsLayouts = []string{
	UnitsLayoutISO,
	UnitsLayoutCompact,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FormatUnits renders a time units attribute for the given epoch.
func FormatUnits(epoch time.Time, layout string) string {
	return unitsPrefix + epoch.UTC().Format(layout)
}

// ParseUnits extracts the epoch from a "seconds since <timestamp>" units
// attribute. The epoch is interpreted as UTC.
func ParseUnits(units string) (time.Time, error) {
	s := strings.TrimSpace(units)
	if !strings.HasPrefix(s, unitsPrefix) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadUnits, units)
	}
	stamp := strings.TrimSpace(strings.TrimPrefix(s, unitsPrefix))
	for _, layout := range unitsLayouts {
		if t, err := time.ParseInLocation(layout, stamp, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadUnits, units)
}

// Midnight truncates an instant to the start of its UTC calendar day.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
