package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-ops-api/internal/models"
)

func newFeeRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestFeeRepositoryTotalsByStudent(t *testing.T) {
	db, mock, cleanup := newFeeRepoMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	rows := sqlmock.NewRows([]string{"total_due", "paid"}).AddRow(int64(150000), int64(100000))
	mock.ExpectQuery("SELECT").
		WithArgs("s1").
		WillReturnRows(rows)

	totals, err := repo.TotalsByStudent(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(150000), totals.TotalDue)
	assert.Equal(t, int64(100000), totals.Paid)
	assert.Equal(t, int64(50000), totals.Balance())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryCreatePaymentWithReceipt(t *testing.T) {
	db, mock, cleanup := newFeeRepoMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO receipts").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	payment := &models.Payment{StudentID: "s1", Term: "2025-1", Amount: 50000, Method: "CASH"}
	receipt := &models.Receipt{Number: "RCP-202508-ABCD1234", GateToken: "RCPT-EXAMPLETOKEN"}
	require.NoError(t, repo.CreatePaymentWithReceipt(context.Background(), payment, receipt))

	assert.NotEmpty(t, payment.ID)
	assert.Equal(t, payment.ID, receipt.PaymentID)
	assert.Equal(t, "s1", receipt.StudentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryCreatePaymentRollsBackOnReceiptFailure(t *testing.T) {
	db, mock, cleanup := newFeeRepoMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO receipts").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	payment := &models.Payment{StudentID: "s1", Amount: 50000, Method: "CASH"}
	receipt := &models.Receipt{Number: "RCP-202508-ABCD1234"}
	err := repo.CreatePaymentWithReceipt(context.Background(), payment, receipt)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryFindReceiptByGateToken(t *testing.T) {
	db, mock, cleanup := newFeeRepoMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	rows := sqlmock.NewRows([]string{"id", "payment_id", "student_id", "number", "gate_token", "consumed_at", "created_at"}).
		AddRow("r1", "p1", "s1", "RCP-202508-ABCD1234", "RCPT-EXAMPLETOKEN", nil, time.Now())
	mock.ExpectQuery("SELECT .* FROM receipts WHERE gate_token = \\$1 AND consumed_at IS NULL").
		WithArgs("RCPT-EXAMPLETOKEN").
		WillReturnRows(rows)

	receipt, err := repo.FindReceiptByGateToken(context.Background(), "RCPT-EXAMPLETOKEN")
	require.NoError(t, err)
	assert.Equal(t, "s1", receipt.StudentID)
	assert.Nil(t, receipt.ConsumedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryConsumeGateToken(t *testing.T) {
	db, mock, cleanup := newFeeRepoMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	ts := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE receipts SET consumed_at = $1 WHERE id = $2")).
		WithArgs(ts, "r1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.ConsumeGateToken(context.Background(), "r1", ts))
	assert.NoError(t, mock.ExpectationsWereMet())
}
