package models

import "time"

// Class represents an academic class with an optional weekly recurring slot.
// Schedule fields keep their original string form; Window normalises them.
type Class struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Grade        string    `db:"grade" json:"grade"`
	TeacherID    *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	Room         string    `db:"room" json:"room"`
	ScheduleDays string    `db:"schedule_days" json:"schedule_days"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	MonthlyFee   int64     `db:"monthly_fee" json:"monthly_fee"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Window returns the normalised weekly slot for the class. ok is false when the
// class has no usable schedule: missing or unparseable days/times, or a
// non-positive duration. Legacy records with malformed schedule data are
// treated as unscheduled rather than rejected.
func (c Class) Window() (ScheduleWindow, bool) {
	if c.ScheduleDays == "" || c.StartTime == "" {
		return ScheduleWindow{}, false
	}
	days, err := ParseWeekdaySet(c.ScheduleDays)
	if err != nil {
		return ScheduleWindow{}, false
	}
	start, err := ParseTimeOfDay(c.StartTime)
	if err != nil {
		return ScheduleWindow{}, false
	}

	window := ScheduleWindow{Days: days, Room: c.Room}
	if c.TeacherID != nil {
		window.TeacherID = *c.TeacherID
	}

	if c.EndTime == "" {
		// Open-ended slots keep a zero End; gate checks substitute the
		// default session length, conflict checks skip them.
		window.Range = TimeRange{Start: start, End: start}
		return window, true
	}
	end, err := ParseTimeOfDay(c.EndTime)
	if err != nil {
		return ScheduleWindow{}, false
	}
	window.Range = TimeRange{Start: start, End: end}
	return window, true
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	Grade     string
	TeacherID string
	Room      string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
