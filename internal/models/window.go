package models

import "strings"

// RoomPlaceholder marks a class whose room has not been assigned yet. Windows
// without a concrete room never participate in room conflict checks.
const RoomPlaceholder = "TBD"

// RoomKey normalises a room label for comparison. ok is false when the room is
// unassigned (empty or the placeholder), so callers cannot mistake "not yet
// configured" for a real, conflict-free room.
func RoomKey(room string) (string, bool) {
	trimmed := strings.TrimSpace(room)
	if trimmed == "" || strings.EqualFold(trimmed, RoomPlaceholder) {
		return "", false
	}
	return strings.ToLower(trimmed), true
}

// ScheduleWindow is one weekly recurring slot (classes) or a single-day slot
// (timetable entries, where Days holds exactly one member).
type ScheduleWindow struct {
	Days      WeekdaySet `json:"days"`
	Range     TimeRange  `json:"range"`
	Room      string     `json:"room,omitempty"`
	TeacherID string     `json:"teacher_id,omitempty"`
}

// ScheduleConflict describes one existing record that collides with a
// candidate window.
type ScheduleConflict struct {
	EntityID    string     `json:"entity_id"`
	EntityLabel string     `json:"entity_label"`
	Days        WeekdaySet `json:"days"`
	Range       TimeRange  `json:"range"`
	Resource    string     `json:"resource"`
	Dimension   string     `json:"dimension"`
	Message     string     `json:"message"`
}

// Conflict dimensions.
const (
	ConflictDimensionRoom    = "ROOM"
	ConflictDimensionTeacher = "TEACHER"
)

// ScheduleConflictError carries the full conflict list across the service
// boundary; handlers map it to a 409 response.
type ScheduleConflictError struct {
	Conflicts []ScheduleConflict `json:"conflicts"`
}

// Error implements the error interface.
func (e *ScheduleConflictError) Error() string {
	if e == nil || len(e.Conflicts) == 0 {
		return "schedule conflict"
	}
	messages := make([]string, len(e.Conflicts))
	for i, conflict := range e.Conflicts {
		messages[i] = conflict.Message
	}
	return strings.Join(messages, "; ")
}
