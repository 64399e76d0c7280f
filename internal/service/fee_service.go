package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-ops-api/internal/models"
	appErrors "github.com/noah-isme/campus-ops-api/pkg/errors"
	"github.com/noah-isme/campus-ops-api/pkg/export"
)

type feeRepository interface {
	ListFees(ctx context.Context, filter models.FeeFilter) ([]models.Fee, int, error)
	CreateFee(ctx context.Context, fee *models.Fee) error
	DeleteFee(ctx context.Context, id string) error
	TotalsByStudent(ctx context.Context, studentID string) (models.FeeTotals, error)
	ListPayments(ctx context.Context, studentID string) ([]models.Payment, error)
	CreatePaymentWithReceipt(ctx context.Context, payment *models.Payment, receipt *models.Receipt) error
	FindReceiptByID(ctx context.Context, id string) (*models.Receipt, error)
	FindPaymentByID(ctx context.Context, id string) (*models.Payment, error)
}

type feeStudentFinder interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type receiptRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type receiptArchive interface {
	Save(filename string, data []byte) (string, error)
}

// CreateFeeRequest bills an amount against a student.
type CreateFeeRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Term      string `json:"term" validate:"required"`
	Label     string `json:"label" validate:"required"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
}

// RecordPaymentRequest records money received and issues a receipt.
type RecordPaymentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Term      string `json:"term"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Method    string `json:"method" validate:"required,oneof=CASH TRANSFER CARD"`
	Reference string `json:"reference"`
}

// PaymentResult returns the stored payment alongside its receipt.
type PaymentResult struct {
	Payment models.Payment `json:"payment"`
	Receipt models.Receipt `json:"receipt"`
}

// FeeService manages billing, payments and receipts.
type FeeService struct {
	repo      feeRepository
	students  feeStudentFinder
	pdf       receiptRenderer
	archive   receiptArchive
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeeService instantiates FeeService. The archive is optional; when set,
// rendered receipt documents are kept on disk for reprints.
func NewFeeService(repo feeRepository, students feeStudentFinder, pdf receiptRenderer, archive receiptArchive, validate *validator.Validate, logger *zap.Logger) *FeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeService{repo: repo, students: students, pdf: pdf, archive: archive, validator: validate, logger: logger}
}

// ListFees returns fee records with pagination metadata.
func (s *FeeService) ListFees(ctx context.Context, filter models.FeeFilter) ([]models.Fee, *models.Pagination, error) {
	fees, total, err := s.repo.ListFees(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list fees")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return fees, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// CreateFee bills a student.
func (s *FeeService) CreateFee(ctx context.Context, req CreateFeeRequest) (*models.Fee, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fee payload")
	}
	if err := s.verifyStudent(ctx, req.StudentID); err != nil {
		return nil, err
	}
	fee := models.Fee{
		StudentID: req.StudentID,
		Term:      req.Term,
		Label:     req.Label,
		Amount:    req.Amount,
	}
	if err := s.repo.CreateFee(ctx, &fee); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create fee")
	}
	return &fee, nil
}

// DeleteFee removes a billed fee.
func (s *FeeService) DeleteFee(ctx context.Context, id string) error {
	if err := s.repo.DeleteFee(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete fee")
	}
	return nil
}

// Totals returns a student's aggregate billing position.
func (s *FeeService) Totals(ctx context.Context, studentID string) (models.FeeTotals, error) {
	if err := s.verifyStudent(ctx, studentID); err != nil {
		return models.FeeTotals{}, err
	}
	totals, err := s.repo.TotalsByStudent(ctx, studentID)
	if err != nil {
		return models.FeeTotals{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load fee totals")
	}
	return totals, nil
}

// ListPayments returns a student's payment history.
func (s *FeeService) ListPayments(ctx context.Context, studentID string) ([]models.Payment, error) {
	if err := s.verifyStudent(ctx, studentID); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, nil
}

// RecordPayment stores a payment and issues its receipt in one transaction.
// The receipt carries a single-use gate token the scanner accepts in place of
// the student barcode.
func (s *FeeService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if err := s.verifyStudent(ctx, req.StudentID); err != nil {
		return nil, err
	}

	payment := models.Payment{
		StudentID: req.StudentID,
		Term:      req.Term,
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
	}
	now := time.Now().UTC()
	receipt := models.Receipt{
		Number:    fmt.Sprintf("RCP-%s-%s", now.Format("200601"), strings.ToUpper(uuid.NewString()[:8])),
		GateToken: gateTokenPrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:20],
	}
	if err := s.repo.CreatePaymentWithReceipt(ctx, &payment, &receipt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	s.logger.Info("payment recorded",
		zap.String("student_id", payment.StudentID),
		zap.Int64("amount", payment.Amount),
		zap.String("receipt", receipt.Number))
	return &PaymentResult{Payment: payment, Receipt: receipt}, nil
}

// ReceiptPDF renders a printable receipt document.
func (s *FeeService) ReceiptPDF(ctx context.Context, receiptID string) ([]byte, string, error) {
	receipt, err := s.repo.FindReceiptByID(ctx, receiptID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load receipt")
	}
	payment, err := s.repo.FindPaymentByID(ctx, receipt.PaymentID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	student, err := s.students.FindByID(ctx, receipt.StudentID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	data := export.Dataset{
		Headers: []string{"Field", "Value"},
		Rows: []map[string]string{
			{"Field": "Receipt No", "Value": receipt.Number},
			{"Field": "Student", "Value": student.FullName},
			{"Field": "Admission No", "Value": student.AdmissionNo},
			{"Field": "Term", "Value": payment.Term},
			{"Field": "Amount", "Value": fmt.Sprintf("%d", payment.Amount)},
			{"Field": "Method", "Value": payment.Method},
			{"Field": "Date", "Value": payment.CreatedAt.Format("2006-01-02 15:04")},
			{"Field": "Gate Token", "Value": receipt.GateToken},
		},
	}
	pdf, err := s.pdf.Render(data, "Payment Receipt")
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	filename := fmt.Sprintf("receipt-%s.pdf", receipt.Number)
	if s.archive != nil {
		if _, err := s.archive.Save(filename, pdf); err != nil {
			s.logger.Warn("failed to archive receipt", zap.String("receipt", receipt.Number), zap.Error(err))
		}
	}
	return pdf, filename, nil
}

func (s *FeeService) verifyStudent(ctx context.Context, studentID string) error {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify student")
	}
	return nil
}
