package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-ops-api/internal/models"
	"github.com/noah-isme/campus-ops-api/internal/service"
	appErrors "github.com/noah-isme/campus-ops-api/pkg/errors"
	"github.com/noah-isme/campus-ops-api/pkg/export"
	"github.com/noah-isme/campus-ops-api/pkg/response"
)

// TimetableHandler manages timetable endpoints.
type TimetableHandler struct {
	service *service.TimetableService
	csv     *export.CSVExporter
}

// NewTimetableHandler constructs handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc, csv: export.NewCSVExporter()}
}

// List godoc
// @Summary List timetable entries
// @Tags Timetable
// @Produce json
// @Param classId query string false "Filter by class"
// @Param teacherId query string false "Filter by teacher"
// @Param day query string false "Filter by day"
// @Param room query string false "Filter by room"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) List(c *gin.Context) {
	var filter models.TimetableFilter
	filter.ClassID = c.Query("classId")
	filter.TeacherID = c.Query("teacherId")
	filter.Day = c.Query("day")
	filter.Room = c.Query("room")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	entries, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// ListByClass godoc
// @Summary List a class's weekly timetable
// @Tags Timetable
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/timetable [get]
func (h *TimetableHandler) ListByClass(c *gin.Context) {
	entries, err := h.service.ListByClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// ExportByClass godoc
// @Summary Export a class's timetable as CSV
// @Tags Timetable
// @Produce text/csv
// @Param id path string true "Class ID"
// @Success 200 {string} string "CSV content"
// @Router /classes/{id}/timetable/export [get]
func (h *TimetableHandler) ExportByClass(c *gin.Context) {
	entries, err := h.service.ListByClass(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	data := export.Dataset{Headers: []string{"Day", "Start", "End", "Subject", "Teacher", "Room"}}
	for _, entry := range entries {
		data.Rows = append(data.Rows, map[string]string{
			"Day":     entry.Day,
			"Start":   entry.StartTime,
			"End":     entry.EndTime,
			"Subject": entry.Subject,
			"Teacher": entry.TeacherID,
			"Room":    entry.Room,
		})
	}
	payload, err := h.csv.Render(data)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="timetable.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

// Create godoc
// @Summary Create timetable entry
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body service.TimetableEntryRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Teacher or room conflict"
// @Router /timetable [post]
func (h *TimetableHandler) Create(c *gin.Context) {
	var req service.TimetableEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Generate godoc
// @Summary Generate timetable entries atomically
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body service.GenerateTimetableRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Any conflict rejects the whole batch"
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req service.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entries, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, entries, nil)
}

// Update godoc
// @Summary Update timetable entry
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body service.TimetableEntryRequest true "Slot payload"
// @Success 200 {object} response.Envelope
// @Router /timetable/{id} [put]
func (h *TimetableHandler) Update(c *gin.Context) {
	var req service.TimetableEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Delete timetable entry
// @Tags Timetable
// @Produce json
// @Param id path string true "Entry ID"
// @Success 204
// @Router /timetable/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
