package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-ops-api/internal/models"
	appErrors "github.com/noah-isme/campus-ops-api/pkg/errors"
)

type timetableRepository interface {
	List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, int, error)
	FindByID(ctx context.Context, id string) (*models.TimetableEntry, error)
	ListByClass(ctx context.Context, classID string) ([]models.TimetableEntry, error)
	Create(ctx context.Context, entry *models.TimetableEntry) error
	BulkCreate(ctx context.Context, entries []models.TimetableEntry) error
	Update(ctx context.Context, entry *models.TimetableEntry) error
	Delete(ctx context.Context, id string) error
}

type timetableConflictChecker interface {
	CheckTimetableEntry(ctx context.Context, candidate models.ScheduleWindow, excludeID string) ([]models.ScheduleConflict, error)
}

type timetableClassFinder interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// TimetableEntryRequest is the payload shape for one timetable slot. It is
// reused verbatim inside bulk generation.
type TimetableEntryRequest struct {
	ClassID   string `json:"class_id" validate:"required"`
	Subject   string `json:"subject" validate:"required"`
	TeacherID string `json:"teacher_id" validate:"required"`
	Day       string `json:"day" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Room      string `json:"room"`
}

// GenerateTimetableRequest creates many slots atomically.
type GenerateTimetableRequest struct {
	Entries []TimetableEntryRequest `json:"entries" validate:"required,min=1,dive"`
}

// TimetableService manages per-day timetable slots. Writes are guarded by the
// conflict detector; bulk generation is all-or-nothing.
type TimetableService struct {
	repo      timetableRepository
	classes   timetableClassFinder
	conflicts timetableConflictChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService instantiates TimetableService.
func NewTimetableService(repo timetableRepository, classes timetableClassFinder, conflicts timetableConflictChecker, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{repo: repo, classes: classes, conflicts: conflicts, validator: validate, logger: logger}
}

// List returns timetable entries with pagination metadata.
func (s *TimetableService) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable entries")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return entries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one timetable entry.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.TimetableEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entry")
	}
	return entry, nil
}

// ListByClass returns a class's weekly timetable.
func (s *TimetableService) ListByClass(ctx context.Context, classID string) ([]models.TimetableEntry, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	entries, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class timetable")
	}
	return entries, nil
}

// Create inserts one slot after teacher and room conflict checks.
func (s *TimetableService) Create(ctx context.Context, req TimetableEntryRequest) (*models.TimetableEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}
	entry, window, err := s.buildEntry(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.classes.FindByID(ctx, entry.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	conflicts, err := s.conflicts.CheckTimetableEntry(ctx, window, "")
	if err != nil {
		return nil, err
	}
	if err := conflictRejection(conflicts); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable entry")
	}
	return entry, nil
}

// Update modifies one slot, excluding it from its own conflict check.
func (s *TimetableService) Update(ctx context.Context, id string, req TimetableEntryRequest) (*models.TimetableEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entry")
	}

	entry, window, err := s.buildEntry(req)
	if err != nil {
		return nil, err
	}
	entry.ID = existing.ID
	entry.Active = existing.Active
	entry.CreatedAt = existing.CreatedAt

	conflicts, err := s.conflicts.CheckTimetableEntry(ctx, window, existing.ID)
	if err != nil {
		return nil, err
	}
	if err := conflictRejection(conflicts); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update timetable entry")
	}
	return entry, nil
}

// Delete removes one slot.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable entry")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable entry")
	}
	return nil
}

// Generate validates every candidate slot before any insert happens. Conflicts
// against stored entries and between candidates in the same batch are all
// collected; a single collision anywhere rejects the whole batch.
func (s *TimetableService) Generate(ctx context.Context, req GenerateTimetableRequest) ([]models.TimetableEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}

	entries := make([]models.TimetableEntry, 0, len(req.Entries))
	windows := make([]models.ScheduleWindow, 0, len(req.Entries))
	for i, candidate := range req.Entries {
		entry, window, err := s.buildEntry(candidate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				fmt.Sprintf("entry %d: invalid slot", i+1))
		}
		entries = append(entries, *entry)
		windows = append(windows, window)
	}

	var all []models.ScheduleConflict
	for _, window := range windows {
		conflicts, err := s.conflicts.CheckTimetableEntry(ctx, window, "")
		if err != nil {
			return nil, err
		}
		all = append(all, conflicts...)
	}
	all = append(all, batchConflicts(entries, windows)...)
	if err := conflictRejection(all); err != nil {
		return nil, err
	}

	if err := s.repo.BulkCreate(ctx, entries); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist generated timetable")
	}
	s.logger.Info("timetable generated", zap.Int("entries", len(entries)))
	return entries, nil
}

// batchConflicts finds teacher and room collisions between candidates that
// have not been persisted yet and so are invisible to the stored-entry check.
func batchConflicts(entries []models.TimetableEntry, windows []models.ScheduleWindow) []models.ScheduleConflict {
	var conflicts []models.ScheduleConflict
	for i := range windows {
		for j := i + 1; j < len(windows); j++ {
			if windows[i].Days.Intersect(windows[j].Days).Empty() {
				continue
			}
			if !windows[i].Range.Overlaps(windows[j].Range) {
				continue
			}
			if windows[i].TeacherID != "" && windows[i].TeacherID == windows[j].TeacherID {
				conflicts = append(conflicts, models.ScheduleConflict{
					EntityLabel: entries[j].Subject,
					Days:        windows[i].Days.Intersect(windows[j].Days),
					Range:       windows[j].Range,
					Resource:    windows[j].TeacherID,
					Dimension:   models.ConflictDimensionTeacher,
					Message: fmt.Sprintf("Teacher conflict within batch: %q and %q overlap on %s from %s",
						entries[i].Subject, entries[j].Subject, windows[i].Days.Intersect(windows[j].Days), windows[j].Range),
				})
			}
			roomI, okI := models.RoomKey(windows[i].Room)
			roomJ, okJ := models.RoomKey(windows[j].Room)
			if okI && okJ && roomI == roomJ {
				conflicts = append(conflicts, models.ScheduleConflict{
					EntityLabel: entries[j].Subject,
					Days:        windows[i].Days.Intersect(windows[j].Days),
					Range:       windows[j].Range,
					Resource:    windows[j].Room,
					Dimension:   models.ConflictDimensionRoom,
					Message: fmt.Sprintf("Room conflict within batch: %s double-booked by %q and %q from %s",
						windows[j].Room, entries[i].Subject, entries[j].Subject, windows[j].Range),
				})
			}
		}
	}
	return conflicts
}

// buildEntry normalises the request into a storable entry plus its window.
// Parse failures reject the write; nothing malformed reaches the table.
func (s *TimetableService) buildEntry(req TimetableEntryRequest) (*models.TimetableEntry, models.ScheduleWindow, error) {
	day, err := models.ParseWeekday(req.Day)
	if err != nil {
		return nil, models.ScheduleWindow{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day")
	}
	start, err := models.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, models.ScheduleWindow{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	end, err := models.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, models.ScheduleWindow{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
	}
	if end <= start {
		return nil, models.ScheduleWindow{}, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	entry := &models.TimetableEntry{
		ClassID:   req.ClassID,
		Subject:   req.Subject,
		TeacherID: req.TeacherID,
		Day:       day.String(),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Room:      req.Room,
		Active:    true,
	}
	window := models.ScheduleWindow{
		Days:      models.NewWeekdaySet(day),
		Range:     models.TimeRange{Start: start, End: end},
		Room:      req.Room,
		TeacherID: req.TeacherID,
	}
	return entry, window, nil
}
