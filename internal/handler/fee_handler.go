package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-ops-api/internal/models"
	"github.com/noah-isme/campus-ops-api/internal/service"
	appErrors "github.com/noah-isme/campus-ops-api/pkg/errors"
	"github.com/noah-isme/campus-ops-api/pkg/response"
)

// FeeHandler manages billing, payment and receipt endpoints.
type FeeHandler struct {
	service *service.FeeService
}

// NewFeeHandler constructs handler.
func NewFeeHandler(svc *service.FeeService) *FeeHandler {
	return &FeeHandler{service: svc}
}

// ListFees godoc
// @Summary List billed fees
// @Tags Fees
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param term query string false "Filter by term"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /fees [get]
func (h *FeeHandler) ListFees(c *gin.Context) {
	var filter models.FeeFilter
	filter.StudentID = c.Query("studentId")
	filter.Term = c.Query("term")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	fees, pagination, err := h.service.ListFees(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fees, pagination)
}

// CreateFee godoc
// @Summary Bill a fee against a student
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body service.CreateFeeRequest true "Fee payload"
// @Success 201 {object} response.Envelope
// @Router /fees [post]
func (h *FeeHandler) CreateFee(c *gin.Context) {
	var req service.CreateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	fee, err := h.service.CreateFee(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fee)
}

// DeleteFee godoc
// @Summary Delete a billed fee
// @Tags Fees
// @Produce json
// @Param id path string true "Fee ID"
// @Success 204
// @Router /fees/{id} [delete]
func (h *FeeHandler) DeleteFee(c *gin.Context) {
	if err := h.service.DeleteFee(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Totals godoc
// @Summary Get a student's billing position
// @Tags Fees
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/fees/totals [get]
func (h *FeeHandler) Totals(c *gin.Context) {
	totals, err := h.service.Totals(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, totals, nil)
}

// ListPayments godoc
// @Summary List a student's payments
// @Tags Fees
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/payments [get]
func (h *FeeHandler) ListPayments(c *gin.Context) {
	payments, err := h.service.ListPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// RecordPayment godoc
// @Summary Record a payment and issue its receipt
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body service.RecordPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /payments [post]
func (h *FeeHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.RecordPayment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ReceiptPDF godoc
// @Summary Download a receipt as PDF
// @Tags Fees
// @Produce application/pdf
// @Param id path string true "Receipt ID"
// @Success 200 {string} string "PDF content"
// @Router /receipts/{id}/pdf [get]
func (h *FeeHandler) ReceiptPDF(c *gin.Context) {
	payload, filename, err := h.service.ReceiptPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}
