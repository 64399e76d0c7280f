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

// FeeRepository provides persistence for fees, payments and receipts.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository creates a new fee repository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// ListFees returns fee records with optional filtering and pagination.
func (r *FeeRepository) ListFees(ctx context.Context, filter models.FeeFilter) ([]models.Fee, int, error) {
	base := "FROM fees WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Term != "" {
		conditions = append(conditions, fmt.Sprintf("term = $%d", len(args)+1))
		args = append(args, filter.Term)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf("SELECT id, student_id, term, label, amount, created_at, updated_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", base, size, offset)
	var fees []models.Fee
	if err := r.db.SelectContext(ctx, &fees, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list fees: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count fees: %w", err)
	}

	return fees, total, nil
}

// CreateFee stores a new fee record.
func (r *FeeRepository) CreateFee(ctx context.Context, fee *models.Fee) error {
	if fee.ID == "" {
		fee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if fee.CreatedAt.IsZero() {
		fee.CreatedAt = now
	}
	fee.UpdatedAt = now

	const query = `INSERT INTO fees (id, student_id, term, label, amount, created_at, updated_at) VALUES (:id, :student_id, :term, :label, :amount, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, fee); err != nil {
		return fmt.Errorf("create fee: %w", err)
	}
	return nil
}

// DeleteFee removes a fee by id.
func (r *FeeRepository) DeleteFee(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM fees WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete fee: %w", err)
	}
	return nil
}

// TotalsByStudent aggregates billed and paid amounts across all terms.
func (r *FeeRepository) TotalsByStudent(ctx context.Context, studentID string) (models.FeeTotals, error) {
	const query = `SELECT
		COALESCE((SELECT SUM(amount) FROM fees WHERE student_id = $1), 0) AS total_due,
		COALESCE((SELECT SUM(amount) FROM payments WHERE student_id = $1), 0) AS paid`
	var totals models.FeeTotals
	if err := r.db.GetContext(ctx, &totals, query, studentID); err != nil {
		return models.FeeTotals{}, fmt.Errorf("fee totals: %w", err)
	}
	return totals, nil
}

// ListPayments returns payments for a student, newest first.
func (r *FeeRepository) ListPayments(ctx context.Context, studentID string) ([]models.Payment, error) {
	const query = `SELECT id, student_id, term, amount, method, reference, created_at FROM payments WHERE student_id = $1 ORDER BY created_at DESC`
	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// CreatePaymentWithReceipt inserts a payment and its receipt atomically.
func (r *FeeRepository) CreatePaymentWithReceipt(ctx context.Context, payment *models.Payment, receipt *models.Receipt) (err error) {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	receipt.PaymentID = payment.ID
	receipt.StudentID = payment.StudentID
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create payment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO payments (id, student_id, term, amount, method, reference, created_at) VALUES (:id, :student_id, :term, :amount, :method, :reference, :created_at)`, payment); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO receipts (id, payment_id, student_id, number, gate_token, created_at) VALUES (:id, :payment_id, :student_id, :number, :gate_token, :created_at)`, receipt); err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create payment: %w", err)
	}
	return nil
}

// FindReceiptByID loads a receipt by id.
func (r *FeeRepository) FindReceiptByID(ctx context.Context, id string) (*models.Receipt, error) {
	const query = `SELECT id, payment_id, student_id, number, gate_token, consumed_at, created_at FROM receipts WHERE id = $1`
	var receipt models.Receipt
	if err := r.db.GetContext(ctx, &receipt, query, id); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// FindReceiptByGateToken resolves an unconsumed single-use gate token.
func (r *FeeRepository) FindReceiptByGateToken(ctx context.Context, token string) (*models.Receipt, error) {
	const query = `SELECT id, payment_id, student_id, number, gate_token, consumed_at, created_at FROM receipts WHERE gate_token = $1 AND consumed_at IS NULL`
	var receipt models.Receipt
	if err := r.db.GetContext(ctx, &receipt, query, token); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// ConsumeGateToken marks a receipt token as used.
func (r *FeeRepository) ConsumeGateToken(ctx context.Context, receiptID string, ts time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE receipts SET consumed_at = $1 WHERE id = $2`, ts, receiptID); err != nil {
		return fmt.Errorf("consume gate token: %w", err)
	}
	return nil
}

// FindPaymentByID loads a payment by id.
func (r *FeeRepository) FindPaymentByID(ctx context.Context, id string) (*models.Payment, error) {
	const query = `SELECT id, student_id, term, amount, method, reference, created_at FROM payments WHERE id = $1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}
