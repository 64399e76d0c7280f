package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-ops-api/internal/models"
)

type mockConflictClassRepo struct {
	classes []models.Class
	err     error
	calls   int
}

func (m *mockConflictClassRepo) ListActiveByRoom(ctx context.Context, room, excludeID string) ([]models.Class, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.classes, nil
}

type mockConflictTimetableRepo struct {
	entries []models.TimetableEntry
	err     error
	calls   int
}

func (m *mockConflictTimetableRepo) ListActiveByDay(ctx context.Context, day, excludeID string) ([]models.TimetableEntry, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

func classWindow(t *testing.T, days, start, end, room string) models.ScheduleWindow {
	t.Helper()
	daySet, err := models.ParseWeekdaySet(days)
	require.NoError(t, err)
	startTime, err := models.ParseTimeOfDay(start)
	require.NoError(t, err)
	endTime, err := models.ParseTimeOfDay(end)
	require.NoError(t, err)
	return models.ScheduleWindow{
		Days:  daySet,
		Range: models.TimeRange{Start: startTime, End: endTime},
		Room:  room,
	}
}

func TestCheckClassWindowDetectsRoomOverlap(t *testing.T) {
	classes := &mockConflictClassRepo{classes: []models.Class{
		{ID: "c1", Title: "Mathematics", Room: "101", ScheduleDays: "Mon,Wed", StartTime: "16:00", EndTime: "18:00"},
	}}
	svc := NewConflictService(classes, nil, nil)

	candidate := classWindow(t, "Wed,Fri", "17:00", "19:00", "101")
	conflicts, err := svc.CheckClassWindow(context.Background(), candidate, "")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)

	conflict := conflicts[0]
	assert.Equal(t, "c1", conflict.EntityID)
	assert.Equal(t, models.ConflictDimensionRoom, conflict.Dimension)
	assert.Equal(t, []models.Weekday{models.Wednesday}, conflict.Days.Days())
	assert.Contains(t, conflict.Message, "101")
	assert.Contains(t, conflict.Message, "Mathematics")
	assert.Contains(t, conflict.Message, "16:00-18:00")
}

func TestCheckClassWindowTouchingTimesDoNotConflict(t *testing.T) {
	classes := &mockConflictClassRepo{classes: []models.Class{
		{ID: "c1", Title: "Mathematics", Room: "101", ScheduleDays: "Mon", StartTime: "16:00", EndTime: "18:00"},
	}}
	svc := NewConflictService(classes, nil, nil)

	candidate := classWindow(t, "Mon", "18:00", "19:00", "101")
	conflicts, err := svc.CheckClassWindow(context.Background(), candidate, "")
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestCheckClassWindowPlaceholderRoomSkipsCheck(t *testing.T) {
	classes := &mockConflictClassRepo{}
	svc := NewConflictService(classes, nil, nil)

	candidate := classWindow(t, "Mon", "16:00", "18:00", "TBD")
	conflicts, err := svc.CheckClassWindow(context.Background(), candidate, "")
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Zero(t, classes.calls, "placeholder rooms must not hit storage")
}

func TestCheckClassWindowSkipsMalformedStoredRecords(t *testing.T) {
	classes := &mockConflictClassRepo{classes: []models.Class{
		{ID: "bad1", Title: "Broken", Room: "101", ScheduleDays: "Blursday", StartTime: "16:00", EndTime: "18:00"},
		{ID: "bad2", Title: "OpenEnded", Room: "101", ScheduleDays: "Mon", StartTime: "16:00"},
	}}
	svc := NewConflictService(classes, nil, nil)

	candidate := classWindow(t, "Mon", "16:00", "18:00", "101")
	conflicts, err := svc.CheckClassWindow(context.Background(), candidate, "")
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestCheckClassWindowStorageError(t *testing.T) {
	classes := &mockConflictClassRepo{err: errors.New("db down")}
	svc := NewConflictService(classes, nil, nil)

	candidate := classWindow(t, "Mon", "16:00", "18:00", "101")
	_, err := svc.CheckClassWindow(context.Background(), candidate, "")
	assert.Error(t, err)
}

func TestCheckTimetableEntryTeacherConflict(t *testing.T) {
	timetable := &mockConflictTimetableRepo{entries: []models.TimetableEntry{
		{ID: "e1", ClassID: "c1", Subject: "Physics", TeacherID: "t1", Day: "Monday", StartTime: "14:00", EndTime: "15:00", Room: "201"},
	}}
	svc := NewConflictService(nil, timetable, nil)

	candidate := classWindow(t, "Mon", "14:30", "15:30", "202")
	candidate.TeacherID = "t1"
	conflicts, err := svc.CheckTimetableEntry(context.Background(), candidate, "")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictDimensionTeacher, conflicts[0].Dimension)
	assert.Contains(t, conflicts[0].Message, "Physics")
}

func TestCheckTimetableEntryRoomConflictIsCaseInsensitive(t *testing.T) {
	timetable := &mockConflictTimetableRepo{entries: []models.TimetableEntry{
		{ID: "e1", ClassID: "c1", Subject: "Physics", TeacherID: "t1", Day: "Monday", StartTime: "14:00", EndTime: "15:00", Room: "Lab A"},
	}}
	svc := NewConflictService(nil, timetable, nil)

	candidate := classWindow(t, "Mon", "14:30", "15:30", "lab a")
	candidate.TeacherID = "t2"
	conflicts, err := svc.CheckTimetableEntry(context.Background(), candidate, "")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictDimensionRoom, conflicts[0].Dimension)
}

func TestCheckTimetableEntryReportsEveryConflict(t *testing.T) {
	timetable := &mockConflictTimetableRepo{entries: []models.TimetableEntry{
		{ID: "e1", ClassID: "c1", Subject: "Physics", TeacherID: "t1", Day: "Monday", StartTime: "14:00", EndTime: "15:00", Room: "201"},
		{ID: "e2", ClassID: "c2", Subject: "Chemistry", TeacherID: "t2", Day: "Monday", StartTime: "14:00", EndTime: "16:00", Room: "202"},
	}}
	svc := NewConflictService(nil, timetable, nil)

	candidate := classWindow(t, "Mon", "14:30", "15:30", "202")
	candidate.TeacherID = "t1"
	conflicts, err := svc.CheckTimetableEntry(context.Background(), candidate, "")
	require.NoError(t, err)
	assert.Len(t, conflicts, 2)
}

func TestCheckTimetableEntryRequiresSingleDayPositiveRange(t *testing.T) {
	timetable := &mockConflictTimetableRepo{}
	svc := NewConflictService(nil, timetable, nil)

	multiDay := classWindow(t, "Mon,Tue", "14:00", "15:00", "201")
	conflicts, err := svc.CheckTimetableEntry(context.Background(), multiDay, "")
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.Zero(t, timetable.calls)
}

func TestConflictRejection(t *testing.T) {
	assert.NoError(t, conflictRejection(nil))

	err := conflictRejection([]models.ScheduleConflict{
		{Message: "room taken"},
		{Message: "teacher busy"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "room taken")
}
