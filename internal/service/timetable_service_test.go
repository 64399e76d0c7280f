package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-ops-api/internal/models"
)

type mockTimetableRepo struct {
	entries     map[string]models.TimetableEntry
	bulkCreated [][]models.TimetableEntry
	created     []models.TimetableEntry
}

func (m *mockTimetableRepo) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, int, error) {
	var all []models.TimetableEntry
	for _, e := range m.entries {
		all = append(all, e)
	}
	return all, len(all), nil
}

func (m *mockTimetableRepo) FindByID(ctx context.Context, id string) (*models.TimetableEntry, error) {
	if e, ok := m.entries[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTimetableRepo) ListByClass(ctx context.Context, classID string) ([]models.TimetableEntry, error) {
	var out []models.TimetableEntry
	for _, e := range m.entries {
		if e.ClassID == classID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockTimetableRepo) Create(ctx context.Context, entry *models.TimetableEntry) error {
	m.created = append(m.created, *entry)
	return nil
}

func (m *mockTimetableRepo) BulkCreate(ctx context.Context, entries []models.TimetableEntry) error {
	m.bulkCreated = append(m.bulkCreated, entries)
	return nil
}

func (m *mockTimetableRepo) Update(ctx context.Context, entry *models.TimetableEntry) error {
	if m.entries == nil {
		m.entries = make(map[string]models.TimetableEntry)
	}
	m.entries[entry.ID] = *entry
	return nil
}

func (m *mockTimetableRepo) Delete(ctx context.Context, id string) error {
	delete(m.entries, id)
	return nil
}

type mockTimetableClasses struct {
	byID map[string]models.Class
}

func (m *mockTimetableClasses) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.byID[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type mockTimetableConflicts struct {
	conflictsByTeacher map[string][]models.ScheduleConflict
	checked            []models.ScheduleWindow
	err                error
}

func (m *mockTimetableConflicts) CheckTimetableEntry(ctx context.Context, candidate models.ScheduleWindow, excludeID string) ([]models.ScheduleConflict, error) {
	m.checked = append(m.checked, candidate)
	if m.err != nil {
		return nil, m.err
	}
	return m.conflictsByTeacher[candidate.TeacherID], nil
}

func newTimetableService(repo *mockTimetableRepo, conflicts *mockTimetableConflicts) *TimetableService {
	classes := &mockTimetableClasses{byID: map[string]models.Class{
		"c1": {ID: "c1", Title: "JSS1"},
	}}
	return NewTimetableService(repo, classes, conflicts, nil, nil)
}

func slotRequest(teacherID, room, start, end string) TimetableEntryRequest {
	return TimetableEntryRequest{
		ClassID:   "c1",
		Subject:   "Mathematics",
		TeacherID: teacherID,
		Day:       "Mon",
		StartTime: start,
		EndTime:   end,
		Room:      room,
	}
}

func TestTimetableCreateStoresCanonicalDay(t *testing.T) {
	repo := &mockTimetableRepo{}
	conflicts := &mockTimetableConflicts{}
	svc := newTimetableService(repo, conflicts)

	entry, err := svc.Create(context.Background(), slotRequest("t1", "101", "08:00", "09:00"))
	require.NoError(t, err)
	assert.Equal(t, "Monday", entry.Day)
	assert.True(t, entry.Active)
	require.Len(t, repo.created, 1)
	require.Len(t, conflicts.checked, 1)
	assert.Equal(t, "t1", conflicts.checked[0].TeacherID)
}

func TestTimetableCreateRejectsConflicts(t *testing.T) {
	repo := &mockTimetableRepo{}
	conflicts := &mockTimetableConflicts{conflictsByTeacher: map[string][]models.ScheduleConflict{
		"t1": {{Message: "teacher busy", Dimension: models.ConflictDimensionTeacher}},
	}}
	svc := newTimetableService(repo, conflicts)

	_, err := svc.Create(context.Background(), slotRequest("t1", "101", "08:00", "09:00"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teacher busy")
	assert.Empty(t, repo.created)
}

func TestTimetableCreateRejectsMalformedTimes(t *testing.T) {
	repo := &mockTimetableRepo{}
	svc := newTimetableService(repo, &mockTimetableConflicts{})

	cases := []TimetableEntryRequest{
		slotRequest("t1", "101", "nope", "09:00"),
		slotRequest("t1", "101", "08:00", "bad"),
		slotRequest("t1", "101", "09:00", "09:00"),
		slotRequest("t1", "101", "10:00", "09:00"),
	}
	for i, req := range cases {
		_, err := svc.Create(context.Background(), req)
		assert.Error(t, err, "case %d", i)
	}
	assert.Empty(t, repo.created)
}

func TestTimetableGeneratePersistsWholeBatch(t *testing.T) {
	repo := &mockTimetableRepo{}
	conflicts := &mockTimetableConflicts{}
	svc := newTimetableService(repo, conflicts)

	result, err := svc.Generate(context.Background(), GenerateTimetableRequest{Entries: []TimetableEntryRequest{
		slotRequest("t1", "101", "08:00", "09:00"),
		slotRequest("t2", "102", "09:00", "10:00"),
		slotRequest("t3", "103", "10:00", "11:00"),
	}})
	require.NoError(t, err)
	assert.Len(t, result, 3)
	require.Len(t, repo.bulkCreated, 1)
	assert.Len(t, repo.bulkCreated[0], 3)
}

func TestTimetableGenerateIsAllOrNothing(t *testing.T) {
	repo := &mockTimetableRepo{}
	conflicts := &mockTimetableConflicts{conflictsByTeacher: map[string][]models.ScheduleConflict{
		"t2": {{Message: "room occupied", Dimension: models.ConflictDimensionRoom}},
	}}
	svc := newTimetableService(repo, conflicts)

	_, err := svc.Generate(context.Background(), GenerateTimetableRequest{Entries: []TimetableEntryRequest{
		slotRequest("t1", "101", "08:00", "09:00"),
		slotRequest("t2", "102", "09:00", "10:00"),
		slotRequest("t3", "103", "10:00", "11:00"),
	}})
	require.Error(t, err)
	assert.Empty(t, repo.bulkCreated, "a single conflict must reject the whole batch")
	assert.Len(t, conflicts.checked, 3, "every candidate is validated before rejecting")
}

func TestTimetableGenerateDetectsIntraBatchCollisions(t *testing.T) {
	repo := &mockTimetableRepo{}
	conflicts := &mockTimetableConflicts{}
	svc := newTimetableService(repo, conflicts)

	_, err := svc.Generate(context.Background(), GenerateTimetableRequest{Entries: []TimetableEntryRequest{
		slotRequest("t1", "101", "08:00", "09:00"),
		slotRequest("t1", "102", "08:30", "09:30"),
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Teacher conflict within batch")
	assert.Empty(t, repo.bulkCreated)
}

func TestTimetableGenerateRejectsMalformedCandidate(t *testing.T) {
	repo := &mockTimetableRepo{}
	svc := newTimetableService(repo, &mockTimetableConflicts{})

	_, err := svc.Generate(context.Background(), GenerateTimetableRequest{Entries: []TimetableEntryRequest{
		slotRequest("t1", "101", "08:00", "09:00"),
		slotRequest("t2", "102", "25:00", "26:00"),
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 2")
	assert.Empty(t, repo.bulkCreated)
}

func TestTimetableUpdateExcludesSelfFromConflictCheck(t *testing.T) {
	repo := &mockTimetableRepo{entries: map[string]models.TimetableEntry{
		"e1": {ID: "e1", ClassID: "c1", Subject: "Mathematics", TeacherID: "t1", Day: "Monday", StartTime: "08:00", EndTime: "09:00"},
	}}
	conflicts := &mockTimetableConflicts{}
	svc := newTimetableService(repo, conflicts)

	entry, err := svc.Update(context.Background(), "e1", slotRequest("t1", "101", "08:00", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, "e1", entry.ID)
	assert.Equal(t, "10:00", entry.EndTime)
}
