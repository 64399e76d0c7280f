package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-ops-api/internal/models"
)

// StudentRepository provides persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `s.id, s.admission_no, s.full_name, s.barcode, s.standing, s.class_id, s.guardian_phone, s.last_scanned_at, s.created_at, s.updated_at`

// List returns students with optional filtering and pagination.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := "FROM students s LEFT JOIN classes c ON c.id = s.class_id WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(s.full_name ILIKE $%d OR s.admission_no ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Standing != nil {
		conditions = append(conditions, fmt.Sprintf("s.standing = $%d", len(args)+1))
		args = append(args, *filter.Standing)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"name":       "s.full_name",
		"admission":  "s.admission_no",
		"created_at": "s.created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s, c.title AS class_title %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, base, column, order, size, offset)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	return students, total, nil
}

// FindByID loads a student by id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s WHERE s.id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByBarcode resolves a scanned identity code to a student.
func (r *StudentRepository) FindByBarcode(ctx context.Context, barcode string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s WHERE s.barcode = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, barcode); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create stores a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	if student.Standing == "" {
		student.Standing = models.StandingActive
	}

	const query = `INSERT INTO students (id, admission_no, full_name, barcode, standing, class_id, guardian_phone, created_at, updated_at) VALUES (:id, :admission_no, :full_name, :barcode, :standing, :class_id, :guardian_phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies a student record.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET admission_no = :admission_no, full_name = :full_name, barcode = :barcode, standing = :standing, class_id = :class_id, guardian_phone = :guardian_phone, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// UpdateLastScanned records the most recent successful gate scan.
func (r *StudentRepository) UpdateLastScanned(ctx context.Context, id string, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE students SET last_scanned_at = $1 WHERE id = $2`, ts, id); err != nil {
		return fmt.Errorf("update last scanned: %w", err)
	}
	return nil
}

// Delete removes a student by id.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
