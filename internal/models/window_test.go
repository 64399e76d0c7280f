package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomKey(t *testing.T) {
	key, ok := RoomKey("Lab 101")
	require.True(t, ok)
	assert.Equal(t, "lab 101", key)

	_, ok = RoomKey("TBD")
	assert.False(t, ok)
	_, ok = RoomKey("tbd")
	assert.False(t, ok)
	_, ok = RoomKey("  ")
	assert.False(t, ok)
}

func TestClassWindowScheduled(t *testing.T) {
	class := Class{ScheduleDays: "Mon,Wed", StartTime: "4:00 PM", EndTime: "18:00", Room: "101"}
	window, ok := class.Window()
	require.True(t, ok)
	assert.Equal(t, []Weekday{Monday, Wednesday}, window.Days.Days())
	assert.Equal(t, TimeRange{Start: 960, End: 1080}, window.Range)
	assert.Equal(t, "101", window.Room)
}

func TestClassWindowUnscheduledVariants(t *testing.T) {
	cases := []Class{
		{},
		{ScheduleDays: "Mon,Wed"},
		{ScheduleDays: "Blursday", StartTime: "16:00", EndTime: "18:00"},
		{ScheduleDays: "Mon", StartTime: "nope", EndTime: "18:00"},
		{ScheduleDays: "Mon", StartTime: "16:00", EndTime: "nope"},
	}
	for i, class := range cases {
		_, ok := class.Window()
		assert.False(t, ok, "case %d", i)
	}
}

func TestClassWindowOpenEnded(t *testing.T) {
	class := Class{ScheduleDays: "Tue", StartTime: "09:00"}
	window, ok := class.Window()
	require.True(t, ok)
	assert.Equal(t, window.Range.Start, window.Range.End)
	assert.False(t, window.Range.Positive())
}

func TestTimetableEntryWindow(t *testing.T) {
	entry := TimetableEntry{Day: "Monday", StartTime: "14:00", EndTime: "15:00", TeacherID: "t1", Room: "2"}
	window, ok := entry.Window()
	require.True(t, ok)
	assert.Equal(t, []Weekday{Monday}, window.Days.Days())
	assert.Equal(t, TimeRange{Start: 840, End: 900}, window.Range)

	degenerate := TimetableEntry{Day: "Monday", StartTime: "15:00", EndTime: "15:00"}
	_, ok = degenerate.Window()
	assert.False(t, ok)
}

func TestFeeTotals(t *testing.T) {
	assert.Equal(t, int64(0), FeeTotals{TotalDue: 100, Paid: 150}.Balance())
	assert.Equal(t, int64(40), FeeTotals{TotalDue: 100, Paid: 60}.Balance())
	assert.True(t, FeeTotals{TotalDue: 100, Paid: 0}.FullDefault())
	assert.False(t, FeeTotals{TotalDue: 100, Paid: 1}.FullDefault())
	assert.False(t, FeeTotals{TotalDue: 0, Paid: 0}.FullDefault())
}

func TestGateDecisionHTTPStatusTotal(t *testing.T) {
	expected := map[GateDecision]int{
		GateSuccess:      200,
		GatePartial:      200,
		GateDefaulter:    403,
		GateBlocked:      403,
		GateNoClassToday: 403,
		GateTooEarly:     403,
		GateTooLate:      403,
		GateUnknown:      404,
		GateError:        500,
	}
	for decision, status := range expected {
		assert.Equal(t, status, decision.HTTPStatus(), string(decision))
		assert.NotEmpty(t, decision.Message(), string(decision))
	}
}
