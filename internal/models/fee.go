package models

import "time"

// Fee is one billed amount against a student for a term.
type Fee struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Term      string    `db:"term" json:"term"`
	Label     string    `db:"label" json:"label"`
	Amount    int64     `db:"amount" json:"amount"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Payment records money received against a student's fees.
type Payment struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Term      string    `db:"term" json:"term"`
	Amount    int64     `db:"amount" json:"amount"`
	Method    string    `db:"method" json:"method"`
	Reference string    `db:"reference" json:"reference"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Receipt is issued per payment. GateToken is a single-use code accepted by
// the gate scanner in place of the student barcode.
type Receipt struct {
	ID         string     `db:"id" json:"id"`
	PaymentID  string     `db:"payment_id" json:"payment_id"`
	StudentID  string     `db:"student_id" json:"student_id"`
	Number     string     `db:"number" json:"number"`
	GateToken  string     `db:"gate_token" json:"gate_token"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// FeeTotals aggregates a student's billing position for a term.
type FeeTotals struct {
	TotalDue int64 `db:"total_due" json:"total_due"`
	Paid     int64 `db:"paid" json:"paid"`
}

// Balance is the outstanding amount, floored at zero so overpayment never
// reads as negative debt.
func (t FeeTotals) Balance() int64 {
	balance := t.TotalDue - t.Paid
	if balance < 0 {
		return 0
	}
	return balance
}

// FullDefault reports whether the student owes money and has paid nothing.
func (t FeeTotals) FullDefault() bool {
	return t.Paid == 0 && t.TotalDue > 0
}

// FeeFilter describes query params for listing fees.
type FeeFilter struct {
	StudentID string
	Term      string
	Page      int
	PageSize  int
}
