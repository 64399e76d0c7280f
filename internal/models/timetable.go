package models

import "time"

// TimetableEntry is a single one-day slot assigning a teacher (and optionally
// a room) to a class for a subject. Day and time fields keep their original
// string form; Window normalises them.
type TimetableEntry struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	Subject   string    `db:"subject" json:"subject"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	Day       string    `db:"day" json:"day"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	Room      string    `db:"room" json:"room"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Window returns the normalised one-day slot. ok is false for entries whose
// stored day or times do not parse, or whose duration is not positive; such
// records never participate in conflict checks.
func (e TimetableEntry) Window() (ScheduleWindow, bool) {
	day, err := ParseWeekday(e.Day)
	if err != nil {
		return ScheduleWindow{}, false
	}
	start, err := ParseTimeOfDay(e.StartTime)
	if err != nil {
		return ScheduleWindow{}, false
	}
	end, err := ParseTimeOfDay(e.EndTime)
	if err != nil {
		return ScheduleWindow{}, false
	}
	window := ScheduleWindow{
		Days:      NewWeekdaySet(day),
		Range:     TimeRange{Start: start, End: end},
		Room:      e.Room,
		TeacherID: e.TeacherID,
	}
	if !window.Range.Positive() {
		return ScheduleWindow{}, false
	}
	return window, true
}

// TimetableEntryDetail joins class context for responses.
type TimetableEntryDetail struct {
	TimetableEntry
	ClassTitle  string  `db:"class_title" json:"class_title"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}

// TimetableFilter describes query params for listing entries.
type TimetableFilter struct {
	ClassID   string
	TeacherID string
	Day       string
	Room      string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
