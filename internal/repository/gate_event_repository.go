package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-ops-api/internal/models"
)

// GateEventRepository persists the gate scan audit trail.
type GateEventRepository struct {
	db *sqlx.DB
}

// NewGateEventRepository creates a new gate event repository.
func NewGateEventRepository(db *sqlx.DB) *GateEventRepository {
	return &GateEventRepository{db: db}
}

// Create stores one scan event.
func (r *GateEventRepository) Create(ctx context.Context, event *models.GateEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.ScannedAt.IsZero() {
		event.ScannedAt = time.Now().UTC()
	}
	const query = `INSERT INTO gate_events (id, student_id, code, decision, scanned_at) VALUES (:id, :student_id, :code, :decision, :scanned_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create gate event: %w", err)
	}
	return nil
}

// ListRecent returns the newest scan events up to limit.
func (r *GateEventRepository) ListRecent(ctx context.Context, limit int) ([]models.GateEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, student_id, code, decision, scanned_at FROM gate_events ORDER BY scanned_at DESC LIMIT %d`, limit)
	var events []models.GateEvent
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list gate events: %w", err)
	}
	return events, nil
}
