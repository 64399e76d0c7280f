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

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type studentClassFinder interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// CreateStudentRequest describes payload for registering a student.
type CreateStudentRequest struct {
	AdmissionNo   string  `json:"admission_no" validate:"required"`
	FullName      string  `json:"full_name" validate:"required"`
	Barcode       string  `json:"barcode" validate:"required"`
	ClassID       *string `json:"class_id"`
	GuardianPhone string  `json:"guardian_phone"`
}

// UpdateStudentRequest updates an existing student.
type UpdateStudentRequest struct {
	AdmissionNo   string                 `json:"admission_no" validate:"required"`
	FullName      string                 `json:"full_name" validate:"required"`
	Barcode       string                 `json:"barcode" validate:"required"`
	Standing      models.StudentStanding `json:"standing" validate:"required,oneof=ACTIVE SUSPENDED EXPELLED"`
	ClassID       *string                `json:"class_id"`
	GuardianPhone string                 `json:"guardian_phone"`
}

// StudentService manages student records.
type StudentService struct {
	repo      studentRepository
	classes   studentClassFinder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService instantiates StudentService.
func NewStudentService(repo studentRepository, classes studentClassFinder, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student, verifying the enrolled class exists.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.verifyClass(ctx, req.ClassID); err != nil {
		return nil, err
	}

	student := models.Student{
		AdmissionNo:   req.AdmissionNo,
		FullName:      req.FullName,
		Barcode:       req.Barcode,
		Standing:      models.StandingActive,
		ClassID:       req.ClassID,
		GuardianPhone: req.GuardianPhone,
	}
	if err := s.repo.Create(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return &student, nil
}

// Update modifies a student, including standing changes.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.verifyClass(ctx, req.ClassID); err != nil {
		return nil, err
	}

	updated := models.Student{
		ID:            existing.ID,
		AdmissionNo:   req.AdmissionNo,
		FullName:      req.FullName,
		Barcode:       req.Barcode,
		Standing:      req.Standing,
		ClassID:       req.ClassID,
		GuardianPhone: req.GuardianPhone,
		LastScannedAt: existing.LastScannedAt,
		CreatedAt:     existing.CreatedAt,
	}
	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return &updated, nil
}

// Delete removes a student record.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

func (s *StudentService) verifyClass(ctx context.Context, classID *string) error {
	if classID == nil || *classID == "" {
		return nil
	}
	if _, err := s.classes.FindByID(ctx, *classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "enrolled class does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify class")
	}
	return nil
}
