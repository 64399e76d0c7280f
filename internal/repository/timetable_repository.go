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

// TimetableRepository provides persistence for timetable entries.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

const timetableColumns = `id, class_id, subject, teacher_id, day, start_time, end_time, room, active, created_at, updated_at`

// List returns timetable entries with optional filtering and pagination.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, int, error) {
	base := "FROM timetable_entries WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Day != "" {
		conditions = append(conditions, fmt.Sprintf("day = $%d", len(args)+1))
		args = append(args, filter.Day)
	}
	if filter.Room != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(room) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Room)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"day": true, "start_time": true, "room": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "day"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, start_time ASC LIMIT %d OFFSET %d", timetableColumns, base, sortBy, order, size, offset)
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetable entries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count timetable entries: %w", err)
	}

	return entries, total, nil
}

// FindByID loads a timetable entry by id.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.TimetableEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetable_entries WHERE id = $1`, timetableColumns)
	var entry models.TimetableEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListActiveByDay returns active entries for a canonical day name, excluding
// the record being edited.
func (r *TimetableRepository) ListActiveByDay(ctx context.Context, day, excludeID string) ([]models.TimetableEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetable_entries WHERE active = TRUE AND day = $1 AND id <> $2 ORDER BY start_time ASC`, timetableColumns)
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, day, excludeID); err != nil {
		return nil, fmt.Errorf("list timetable entries by day: %w", err)
	}
	return entries, nil
}

// ListActiveByClassAndDay returns a class's active entries for one day.
func (r *TimetableRepository) ListActiveByClassAndDay(ctx context.Context, classID, day string) ([]models.TimetableEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetable_entries WHERE active = TRUE AND class_id = $1 AND day = $2 ORDER BY start_time ASC`, timetableColumns)
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, classID, day); err != nil {
		return nil, fmt.Errorf("list timetable entries by class and day: %w", err)
	}
	return entries, nil
}

// ListByClass returns all entries for a class ordered by day/time.
func (r *TimetableRepository) ListByClass(ctx context.Context, classID string) ([]models.TimetableEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM timetable_entries WHERE class_id = $1 ORDER BY day ASC, start_time ASC`, timetableColumns)
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, classID); err != nil {
		return nil, fmt.Errorf("list timetable entries by class: %w", err)
	}
	return entries, nil
}

// Create stores a new timetable entry.
func (r *TimetableRepository) Create(ctx context.Context, entry *models.TimetableEntry) error {
	prepareTimetableEntry(entry)
	const query = `INSERT INTO timetable_entries (id, class_id, subject, teacher_id, day, start_time, end_time, room, active, created_at, updated_at) VALUES (:id, :class_id, :subject, :teacher_id, :day, :start_time, :end_time, :room, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create timetable entry: %w", err)
	}
	return nil
}

// BulkCreate inserts many entries within one transaction; either every entry
// is persisted or none are.
func (r *TimetableRepository) BulkCreate(ctx context.Context, entries []models.TimetableEntry) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create timetable entries: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := range entries {
		prepareTimetableEntry(&entries[i])
		if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO timetable_entries (id, class_id, subject, teacher_id, day, start_time, end_time, room, active, created_at, updated_at) VALUES (:id, :class_id, :subject, :teacher_id, :day, :start_time, :end_time, :room, :active, :created_at, :updated_at)`, &entries[i]); err != nil {
			return fmt.Errorf("bulk insert timetable entry: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create timetable entries: %w", err)
	}
	return nil
}

func prepareTimetableEntry(entry *models.TimetableEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
}

// Update modifies a timetable entry.
func (r *TimetableRepository) Update(ctx context.Context, entry *models.TimetableEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE timetable_entries SET class_id = :class_id, subject = :subject, teacher_id = :teacher_id, day = :day, start_time = :start_time, end_time = :end_time, room = :room, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("update timetable entry: %w", err)
	}
	return nil
}

// Delete removes a timetable entry by id.
func (r *TimetableRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM timetable_entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete timetable entry: %w", err)
	}
	return nil
}
