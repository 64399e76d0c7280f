package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-ops-api/internal/models"
)

type mockClassRepo struct {
	classes map[string]models.Class
	created []models.Class
	updated []models.Class
}

func (m *mockClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	var all []models.Class
	for _, c := range m.classes {
		all = append(all, c)
	}
	return all, len(all), nil
}

func (m *mockClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassRepo) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = "generated"
	}
	m.created = append(m.created, *class)
	return nil
}

func (m *mockClassRepo) Update(ctx context.Context, class *models.Class) error {
	m.updated = append(m.updated, *class)
	return nil
}

func (m *mockClassRepo) Delete(ctx context.Context, id string) error {
	delete(m.classes, id)
	return nil
}

type mockClassConflicts struct {
	conflicts []models.ScheduleConflict
	checked   []models.ScheduleWindow
	excluded  []string
}

func (m *mockClassConflicts) CheckClassWindow(ctx context.Context, candidate models.ScheduleWindow, excludeID string) ([]models.ScheduleConflict, error) {
	m.checked = append(m.checked, candidate)
	m.excluded = append(m.excluded, excludeID)
	return m.conflicts, nil
}

func TestClassCreateRunsConflictCheck(t *testing.T) {
	repo := &mockClassRepo{}
	conflicts := &mockClassConflicts{}
	svc := NewClassService(repo, conflicts, nil, nil)

	class, err := svc.Create(context.Background(), CreateClassRequest{
		Title:        "JSS1 Gold",
		Room:         "101",
		ScheduleDays: "Mon,Wed",
		StartTime:    "4:00 PM",
		EndTime:      "18:00",
		MonthlyFee:   5000,
	})
	require.NoError(t, err)
	assert.True(t, class.Active)
	require.Len(t, conflicts.checked, 1)
	assert.Equal(t, "101", conflicts.checked[0].Room)
	require.Len(t, repo.created, 1)
}

func TestClassCreateConflictIsHardStop(t *testing.T) {
	repo := &mockClassRepo{}
	conflicts := &mockClassConflicts{conflicts: []models.ScheduleConflict{
		{Message: "Schedule Conflict: 101 is already occupied"},
	}}
	svc := NewClassService(repo, conflicts, nil, nil)

	_, err := svc.Create(context.Background(), CreateClassRequest{
		Title:        "JSS1 Gold",
		Room:         "101",
		ScheduleDays: "Mon",
		StartTime:    "16:00",
		EndTime:      "18:00",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already occupied")
	assert.Empty(t, repo.created, "conflicting class must not be stored")
}

func TestClassCreateUnscheduledSkipsConflictCheck(t *testing.T) {
	repo := &mockClassRepo{}
	conflicts := &mockClassConflicts{}
	svc := NewClassService(repo, conflicts, nil, nil)

	_, err := svc.Create(context.Background(), CreateClassRequest{Title: "Chess Club"})
	require.NoError(t, err)
	assert.Empty(t, conflicts.checked)
	assert.Len(t, repo.created, 1)
}

func TestClassCreateRejectsMalformedSchedule(t *testing.T) {
	repo := &mockClassRepo{}
	svc := NewClassService(repo, &mockClassConflicts{}, nil, nil)

	cases := []CreateClassRequest{
		{Title: "A", ScheduleDays: "Mon"},
		{Title: "B", StartTime: "16:00"},
		{Title: "C", ScheduleDays: "Blursday", StartTime: "16:00"},
		{Title: "D", ScheduleDays: "Mon", StartTime: "26:00"},
		{Title: "E", ScheduleDays: "Mon", StartTime: "16:00", EndTime: "15:00"},
	}
	for i, req := range cases {
		_, err := svc.Create(context.Background(), req)
		assert.Error(t, err, "case %d", i)
	}
	assert.Empty(t, repo.created)
}

func TestClassUpdateExcludesSelf(t *testing.T) {
	repo := &mockClassRepo{classes: map[string]models.Class{
		"c1": {ID: "c1", Title: "JSS1 Gold", Room: "101", ScheduleDays: "Mon", StartTime: "16:00", EndTime: "18:00", Active: true},
	}}
	conflicts := &mockClassConflicts{}
	svc := NewClassService(repo, conflicts, nil, nil)

	_, err := svc.Update(context.Background(), "c1", UpdateClassRequest{
		Title:        "JSS1 Gold",
		Room:         "101",
		ScheduleDays: "Mon",
		StartTime:    "16:00",
		EndTime:      "19:00",
		Active:       true,
	})
	require.NoError(t, err)
	require.Len(t, conflicts.excluded, 1)
	assert.Equal(t, "c1", conflicts.excluded[0])
	require.Len(t, repo.updated, 1)
}

func TestClassGetNotFound(t *testing.T) {
	svc := NewClassService(&mockClassRepo{}, &mockClassConflicts{}, nil, nil)
	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
