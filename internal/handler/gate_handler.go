package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-ops-api/internal/service"
	appErrors "github.com/noah-isme/campus-ops-api/pkg/errors"
	"github.com/noah-isme/campus-ops-api/pkg/response"
)

// GateScanRequest is the scan terminal payload.
type GateScanRequest struct {
	Code string `json:"code" binding:"required"`
}

// GateHandler exposes the gate scan terminal endpoints.
type GateHandler struct {
	service *service.GateService
	metrics *service.MetricsService
}

// NewGateHandler constructs handler.
func NewGateHandler(svc *service.GateService, metrics *service.MetricsService) *GateHandler {
	return &GateHandler{service: svc, metrics: metrics}
}

// Scan godoc
// @Summary Resolve a gate scan to an entry decision
// @Tags Gate
// @Accept json
// @Produce json
// @Param payload body GateScanRequest true "Scanned code"
// @Success 200 {object} models.GateScanResult "SUCCESS or PARTIAL"
// @Failure 403 {object} models.GateScanResult "DEFAULTER, BLOCKED, NO_CLASS_TODAY, TOO_EARLY or TOO_LATE"
// @Failure 404 {object} models.GateScanResult "UNKNOWN"
// @Failure 500 {object} models.GateScanResult "ERROR"
// @Router /gate/scan [post]
func (h *GateHandler) Scan(c *gin.Context) {
	var req GateScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result := h.service.Scan(c.Request.Context(), req.Code)
	if h.metrics != nil {
		h.metrics.ObserveGateScan(result.Decision)
	}

	// The terminal renders from the body; the status code mirrors the
	// decision so dumb clients can branch on it alone.
	c.JSON(result.Decision.HTTPStatus(), result)
}

// Events godoc
// @Summary List recent gate scan events
// @Tags Gate
// @Produce json
// @Param limit query int false "Max events"
// @Success 200 {object} response.Envelope
// @Router /gate/events [get]
func (h *GateHandler) Events(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	events, err := h.service.RecentEvents(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}
