package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-ops-api/internal/models"
	appErrors "github.com/noah-isme/campus-ops-api/pkg/errors"
)

type conflictClassReader interface {
	ListActiveByRoom(ctx context.Context, room, excludeID string) ([]models.Class, error)
}

type conflictTimetableReader interface {
	ListActiveByDay(ctx context.Context, day, excludeID string) ([]models.TimetableEntry, error)
}

// ConflictService detects schedule collisions. Both call shapes normalise
// stored records through the shared window/time types and report every
// collision found, not just the first.
type ConflictService struct {
	classes   conflictClassReader
	timetable conflictTimetableReader
	logger    *zap.Logger
}

// NewConflictService wires the conflict detector.
func NewConflictService(classes conflictClassReader, timetable conflictTimetableReader, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{classes: classes, timetable: timetable, logger: logger}
}

// CheckClassWindow validates a class's weekly recurring slot against other
// active classes in the same room. Candidates without a concrete room or with
// a non-positive duration are skipped: partial schedule data never conflicts.
func (s *ConflictService) CheckClassWindow(ctx context.Context, candidate models.ScheduleWindow, excludeID string) ([]models.ScheduleConflict, error) {
	if _, ok := models.RoomKey(candidate.Room); !ok {
		return nil, nil
	}
	if candidate.Days.Empty() || !candidate.Range.Positive() {
		return nil, nil
	}

	existing, err := s.classes.ListActiveByRoom(ctx, candidate.Room, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes for conflict check")
	}

	var conflicts []models.ScheduleConflict
	for _, class := range existing {
		window, ok := class.Window()
		if !ok || !window.Range.Positive() {
			// Legacy records with malformed or open-ended schedules
			// cannot be compared; they are treated as unscheduled.
			continue
		}
		shared := candidate.Days.Intersect(window.Days)
		if shared.Empty() {
			continue
		}
		if !candidate.Range.Overlaps(window.Range) {
			continue
		}
		conflicts = append(conflicts, models.ScheduleConflict{
			EntityID:    class.ID,
			EntityLabel: class.Title,
			Days:        shared,
			Range:       window.Range,
			Resource:    class.Room,
			Dimension:   models.ConflictDimensionRoom,
			Message: fmt.Sprintf("Schedule Conflict: %s is already occupied by %q on %s from %s",
				class.Room, class.Title, shared, window.Range),
		})
	}
	return conflicts, nil
}

// CheckTimetableEntry validates a single-day slot against all other active
// entries on the same day, reporting teacher collisions and room collisions.
func (s *ConflictService) CheckTimetableEntry(ctx context.Context, candidate models.ScheduleWindow, excludeID string) ([]models.ScheduleConflict, error) {
	days := candidate.Days.Days()
	if len(days) != 1 || !candidate.Range.Positive() {
		return nil, nil
	}
	day := days[0]

	existing, err := s.timetable.ListActiveByDay(ctx, day.String(), excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entries for conflict check")
	}

	candidateRoom, candidateHasRoom := models.RoomKey(candidate.Room)

	var conflicts []models.ScheduleConflict
	for _, entry := range existing {
		window, ok := entry.Window()
		if !ok {
			continue
		}
		if !candidate.Range.Overlaps(window.Range) {
			continue
		}
		if candidate.TeacherID != "" && entry.TeacherID == candidate.TeacherID {
			conflicts = append(conflicts, models.ScheduleConflict{
				EntityID:    entry.ID,
				EntityLabel: entry.Subject,
				Days:        window.Days,
				Range:       window.Range,
				Resource:    entry.TeacherID,
				Dimension:   models.ConflictDimensionTeacher,
				Message: fmt.Sprintf("Teacher conflict: already teaching %q (class %s) on %s from %s",
					entry.Subject, entry.ClassID, day, window.Range),
			})
		}
		if existingRoom, ok := models.RoomKey(entry.Room); ok && candidateHasRoom && existingRoom == candidateRoom {
			conflicts = append(conflicts, models.ScheduleConflict{
				EntityID:    entry.ID,
				EntityLabel: entry.Subject,
				Days:        window.Days,
				Range:       window.Range,
				Resource:    entry.Room,
				Dimension:   models.ConflictDimensionRoom,
				Message: fmt.Sprintf("Room conflict: %s is occupied by %q (class %s) on %s from %s",
					entry.Room, entry.Subject, entry.ClassID, day, window.Range),
			})
		}
	}
	return conflicts, nil
}

// conflictRejection wraps a non-empty conflict list into the 409 error the
// handlers expect. Returns nil when there is nothing to report.
func conflictRejection(conflicts []models.ScheduleConflict) error {
	if len(conflicts) == 0 {
		return nil
	}
	domainErr := &models.ScheduleConflictError{Conflicts: conflicts}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, domainErr.Error())
}
