package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a clock time expressed as minutes since midnight, in [0, 1440).
// Stored records keep their original string form; this is the single comparable
// unit every schedule check normalises into.
type TimeOfDay int

// MinutesPerDay bounds a TimeOfDay value.
const MinutesPerDay = 24 * 60

// ParseTimeOfDay parses "H:MM"/"HH:MM" with an optional trailing AM/PM marker
// (case-insensitive) as well as bare 24-hour "HH:MM". Unparseable input returns
// an error, never a silent zero: callers must not conflate failure with midnight.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, fmt.Errorf("empty time string")
	}

	upper := strings.ToUpper(text)
	meridiem := ""
	for _, suffix := range []string{"AM", "PM"} {
		if strings.HasSuffix(upper, suffix) {
			meridiem = suffix
			text = strings.TrimSpace(text[:len(text)-len(suffix)])
			break
		}
	}

	parts := strings.SplitN(text, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", raw)
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	if minute < 0 || minute > 59 {
		return 0, fmt.Errorf("minute out of range in %q", raw)
	}

	switch meridiem {
	case "AM":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("hour out of range in %q", raw)
		}
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour < 1 || hour > 12 {
			return 0, fmt.Errorf("hour out of range in %q", raw)
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour < 0 || hour > 23 {
			return 0, fmt.Errorf("hour out of range in %q", raw)
		}
	}

	return TimeOfDay(hour*60 + minute), nil
}

// TimeOfDayFromClock converts a wall-clock instant into minutes since midnight.
func TimeOfDayFromClock(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// Valid reports whether t falls within a single day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < MinutesPerDay
}

// String renders t in 24-hour "HH:MM" form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// TimeRange is a half-open interval [Start, End) within one day.
type TimeRange struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Positive reports whether the range has positive duration.
func (r TimeRange) Positive() bool {
	return r.Start < r.End
}

// Overlaps reports whether two half-open intervals share any minute. Touching
// endpoints (one range ending exactly where the other starts) do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start < other.End && other.Start < r.End
}

// Contains reports whether t falls inside the half-open range.
func (r TimeRange) Contains(t TimeOfDay) bool {
	return t >= r.Start && t < r.End
}

// String renders "HH:MM-HH:MM".
func (r TimeRange) String() string {
	return r.Start.String() + "-" + r.End.String()
}
