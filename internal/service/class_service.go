package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-ops-api/internal/models"
	appErrors "github.com/noah-isme/campus-ops-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

type classConflictChecker interface {
	CheckClassWindow(ctx context.Context, candidate models.ScheduleWindow, excludeID string) ([]models.ScheduleConflict, error)
}

// CreateClassRequest describes payload for creating a class.
type CreateClassRequest struct {
	Title        string  `json:"title" validate:"required"`
	Grade        string  `json:"grade"`
	TeacherID    *string `json:"teacher_id"`
	Room         string  `json:"room"`
	ScheduleDays string  `json:"schedule_days"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	MonthlyFee   int64   `json:"monthly_fee" validate:"gte=0"`
}

// UpdateClassRequest updates an existing class.
type UpdateClassRequest struct {
	Title        string  `json:"title" validate:"required"`
	Grade        string  `json:"grade"`
	TeacherID    *string `json:"teacher_id"`
	Room         string  `json:"room"`
	ScheduleDays string  `json:"schedule_days"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	MonthlyFee   int64   `json:"monthly_fee" validate:"gte=0"`
	Active       bool    `json:"active"`
}

// ClassService coordinates class management and its room conflict policy.
type ClassService struct {
	repo      classRepository
	conflicts classConflictChecker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService instantiates ClassService.
func NewClassService(repo classRepository, conflicts classConflictChecker, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, conflicts: conflicts, validator: validate, logger: logger}
}

// List returns classes with pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return classes, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads a single class.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create inserts a new class after room conflict detection. A detected
// conflict is a hard stop, not a warning.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	class := models.Class{
		Title:        req.Title,
		Grade:        req.Grade,
		TeacherID:    req.TeacherID,
		Room:         req.Room,
		ScheduleDays: req.ScheduleDays,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		MonthlyFee:   req.MonthlyFee,
		Active:       true,
	}

	if err := s.validateSchedule(class); err != nil {
		return nil, err
	}
	if err := s.rejectRoomConflicts(ctx, class, ""); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, &class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return &class, nil
}

// Update modifies an existing class, excluding it from its own conflict check.
func (s *ClassService) Update(ctx context.Context, id string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	updated := models.Class{
		ID:           existing.ID,
		Title:        req.Title,
		Grade:        req.Grade,
		TeacherID:    req.TeacherID,
		Room:         req.Room,
		ScheduleDays: req.ScheduleDays,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		MonthlyFee:   req.MonthlyFee,
		Active:       req.Active,
		CreatedAt:    existing.CreatedAt,
	}

	if err := s.validateSchedule(updated); err != nil {
		return nil, err
	}
	if err := s.rejectRoomConflicts(ctx, updated, existing.ID); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return &updated, nil
}

// Delete removes a class record.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}

// validateSchedule rejects malformed schedule input on writes. Stored legacy
// records stay tolerated, but new payloads must parse and carry a positive
// duration before any conflict check runs.
func (s *ClassService) validateSchedule(class models.Class) error {
	if class.ScheduleDays == "" && class.StartTime == "" && class.EndTime == "" {
		return nil
	}
	if class.ScheduleDays == "" || class.StartTime == "" {
		return appErrors.Clone(appErrors.ErrValidation, "schedule requires both days and a start time")
	}
	if _, err := models.ParseWeekdaySet(class.ScheduleDays); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule days")
	}
	start, err := models.ParseTimeOfDay(class.StartTime)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	if class.EndTime != "" {
		end, err := models.ParseTimeOfDay(class.EndTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
		}
		if end <= start {
			return appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
		}
	}
	return nil
}

func (s *ClassService) rejectRoomConflicts(ctx context.Context, class models.Class, excludeID string) error {
	window, ok := class.Window()
	if !ok {
		return nil
	}
	conflicts, err := s.conflicts.CheckClassWindow(ctx, window, excludeID)
	if err != nil {
		return err
	}
	return conflictRejection(conflicts)
}
