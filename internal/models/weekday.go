package models

import (
	"fmt"
	"strings"
	"time"
)

// Weekday identifies a day of the fixed weekly cycle. The ordinal (1..7,
// Monday first) is the single ordering used everywhere days are sorted or
// compared.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = map[Weekday]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
	Sunday:    "Sunday",
}

var weekdayByPrefix = map[string]Weekday{
	"mon": Monday,
	"tue": Tuesday,
	"wed": Wednesday,
	"thu": Thursday,
	"fri": Friday,
	"sat": Saturday,
	"sun": Sunday,
}

// String returns the full day name, or "Unknown" outside Monday..Sunday.
func (d Weekday) String() string {
	if name, ok := weekdayNames[d]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether d is within Monday..Sunday.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

// ParseWeekday normalises a day token ("Mon", "monday", "WEDNESDAY") into a
// Weekday by matching the first three letters case-insensitively.
func ParseWeekday(raw string) (Weekday, error) {
	token := strings.ToLower(strings.TrimSpace(raw))
	if len(token) < 3 {
		return 0, fmt.Errorf("invalid day token %q", raw)
	}
	if day, ok := weekdayByPrefix[token[:3]]; ok {
		return day, nil
	}
	return 0, fmt.Errorf("invalid day token %q", raw)
}

// WeekdayFromTime converts the stdlib Sunday-first weekday into the
// Monday-first ordinal.
func WeekdayFromTime(t time.Time) Weekday {
	if t.Weekday() == time.Sunday {
		return Sunday
	}
	return Weekday(int(t.Weekday()))
}

// WeekdaySet is a bitmask over Monday..Sunday.
type WeekdaySet uint8

// NewWeekdaySet builds a set from the given days, ignoring invalid values.
func NewWeekdaySet(days ...Weekday) WeekdaySet {
	var set WeekdaySet
	for _, day := range days {
		set = set.Add(day)
	}
	return set
}

// ParseWeekdaySet parses a delimiter-separated list of day tokens ("Mon,Wed,Fri").
// Any unparseable token fails the whole set.
func ParseWeekdaySet(raw string) (WeekdaySet, error) {
	var set WeekdaySet
	for _, token := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' }) {
		if strings.TrimSpace(token) == "" {
			continue
		}
		day, err := ParseWeekday(token)
		if err != nil {
			return 0, err
		}
		set = set.Add(day)
	}
	if set.Empty() {
		return 0, fmt.Errorf("no valid day tokens in %q", raw)
	}
	return set, nil
}

// Add returns the set with day included.
func (s WeekdaySet) Add(day Weekday) WeekdaySet {
	if !day.Valid() {
		return s
	}
	return s | 1<<uint(day-Monday)
}

// Has reports whether day is in the set.
func (s WeekdaySet) Has(day Weekday) bool {
	if !day.Valid() {
		return false
	}
	return s&(1<<uint(day-Monday)) != 0
}

// Intersect returns the days present in both sets.
func (s WeekdaySet) Intersect(other WeekdaySet) WeekdaySet {
	return s & other
}

// Empty reports whether the set has no days.
func (s WeekdaySet) Empty() bool {
	return s == 0
}

// Days returns the members in ordinal order.
func (s WeekdaySet) Days() []Weekday {
	var days []Weekday
	for day := Monday; day <= Sunday; day++ {
		if s.Has(day) {
			days = append(days, day)
		}
	}
	return days
}

// String renders the set as comma-separated full day names in ordinal order.
func (s WeekdaySet) String() string {
	days := s.Days()
	names := make([]string, len(days))
	for i, day := range days {
		names[i] = day.String()
	}
	return strings.Join(names, ", ")
}
