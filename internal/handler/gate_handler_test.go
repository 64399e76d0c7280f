package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-ops-api/internal/models"
	"github.com/noah-isme/campus-ops-api/internal/service"
)

type stubGateStudents struct {
	students map[string]models.Student
}

func (s *stubGateStudents) FindByBarcode(ctx context.Context, barcode string) (*models.Student, error) {
	if st, ok := s.students[barcode]; ok {
		return &st, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubGateStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return nil, sql.ErrNoRows
}

func (s *stubGateStudents) UpdateLastScanned(ctx context.Context, id string, ts time.Time) error {
	return nil
}

type stubGateReceipts struct{}

func (stubGateReceipts) FindReceiptByGateToken(ctx context.Context, token string) (*models.Receipt, error) {
	return nil, sql.ErrNoRows
}

func (stubGateReceipts) ConsumeGateToken(ctx context.Context, receiptID string, ts time.Time) error {
	return nil
}

type stubGateFees struct{}

func (stubGateFees) TotalsByStudent(ctx context.Context, studentID string) (models.FeeTotals, error) {
	return models.FeeTotals{TotalDue: 100, Paid: 100}, nil
}

type stubGateClasses struct{}

func (stubGateClasses) FindByID(ctx context.Context, id string) (*models.Class, error) {
	return nil, sql.ErrNoRows
}

type stubGateTimetable struct{}

func (stubGateTimetable) ListActiveByClassAndDay(ctx context.Context, classID, day string) ([]models.TimetableEntry, error) {
	return nil, nil
}

type stubGateEvents struct{}

func (stubGateEvents) ListRecent(ctx context.Context, limit int) ([]models.GateEvent, error) {
	return []models.GateEvent{{ID: "evt1", Code: "STU-001", Decision: models.GateSuccess}}, nil
}

func newGateRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	students := &stubGateStudents{students: map[string]models.Student{
		"STU-001": {ID: "s1", FullName: "Asha Bello", Barcode: "STU-001", Standing: models.StandingActive},
	}}
	svc := service.NewGateService(students, stubGateReceipts{}, stubGateFees{}, stubGateClasses{}, stubGateTimetable{}, stubGateEvents{}, nil, nil, nil)
	h := NewGateHandler(svc, nil)

	router := gin.New()
	router.POST("/gate/scan", h.Scan)
	router.GET("/gate/events", h.Events)
	return router
}

func TestGateScanEndpointGranted(t *testing.T) {
	router := newGateRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/gate/scan", strings.NewReader(`{"code":"STU-001"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var result models.GateScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, models.GateSuccess, result.Decision)
	require.NotNil(t, result.Student)
	assert.Equal(t, "Asha Bello", result.Student.Name)
}

func TestGateScanEndpointUnknownCode(t *testing.T) {
	router := newGateRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/gate/scan", strings.NewReader(`{"code":"NOPE"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var result models.GateScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, models.GateUnknown, result.Decision)
}

func TestGateScanEndpointRejectsEmptyPayload(t *testing.T) {
	router := newGateRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/gate/scan", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGateEventsEndpoint(t *testing.T) {
	router := newGateRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/gate/events?limit=10", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "STU-001")
}
