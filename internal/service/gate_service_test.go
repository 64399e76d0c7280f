package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-ops-api/internal/models"
)

type mockGateStudents struct {
	byBarcode   map[string]models.Student
	byID        map[string]models.Student
	lastScanned map[string]time.Time
	findErr     error
}

func (m *mockGateStudents) FindByBarcode(ctx context.Context, barcode string) (*models.Student, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if s, ok := m.byBarcode[barcode]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGateStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.byID[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGateStudents) UpdateLastScanned(ctx context.Context, id string, ts time.Time) error {
	if m.lastScanned == nil {
		m.lastScanned = make(map[string]time.Time)
	}
	m.lastScanned[id] = ts
	return nil
}

type mockGateReceipts struct {
	byToken  map[string]models.Receipt
	consumed []string
}

func (m *mockGateReceipts) FindReceiptByGateToken(ctx context.Context, token string) (*models.Receipt, error) {
	if r, ok := m.byToken[token]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGateReceipts) ConsumeGateToken(ctx context.Context, receiptID string, ts time.Time) error {
	m.consumed = append(m.consumed, receiptID)
	return nil
}

type mockGateFees struct {
	totals map[string]models.FeeTotals
	err    error
}

func (m *mockGateFees) TotalsByStudent(ctx context.Context, studentID string) (models.FeeTotals, error) {
	if m.err != nil {
		return models.FeeTotals{}, m.err
	}
	return m.totals[studentID], nil
}

type mockGateClasses struct {
	byID map[string]models.Class
}

func (m *mockGateClasses) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.byID[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type mockGateTimetable struct {
	entries []models.TimetableEntry
}

func (m *mockGateTimetable) ListActiveByClassAndDay(ctx context.Context, classID, day string) ([]models.TimetableEntry, error) {
	return m.entries, nil
}

type mockGateEvents struct {
	recent []models.GateEvent
}

func (m *mockGateEvents) ListRecent(ctx context.Context, limit int) ([]models.GateEvent, error) {
	return m.recent, nil
}

type mockGateSink struct {
	mu     sync.Mutex
	events []models.GateEvent
}

func (m *mockGateSink) Record(event models.GateEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

type gateFixture struct {
	students  *mockGateStudents
	receipts  *mockGateReceipts
	fees      *mockGateFees
	classes   *mockGateClasses
	timetable *mockGateTimetable
	events    *mockGateEvents
	sink      *mockGateSink
	svc       *GateService
}

// newGateFixture sets up one enrolled, fully paid student in a Mon/Wed
// 16:00-18:00 class.
func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	classID := "class-1"
	f := &gateFixture{
		students: &mockGateStudents{
			byBarcode: map[string]models.Student{
				"STU-001": {ID: "s1", FullName: "Asha Bello", Barcode: "STU-001", Standing: models.StandingActive, ClassID: &classID},
			},
			byID: map[string]models.Student{
				"s1": {ID: "s1", FullName: "Asha Bello", Barcode: "STU-001", Standing: models.StandingActive, ClassID: &classID},
			},
		},
		receipts: &mockGateReceipts{byToken: map[string]models.Receipt{}},
		fees: &mockGateFees{totals: map[string]models.FeeTotals{
			"s1": {TotalDue: 100, Paid: 100},
		}},
		classes: &mockGateClasses{byID: map[string]models.Class{
			classID: {ID: classID, Title: "JSS2", Room: "101", ScheduleDays: "Mon,Wed", StartTime: "16:00", EndTime: "18:00", Active: true},
		}},
		timetable: &mockGateTimetable{},
		events:    &mockGateEvents{},
		sink:      &mockGateSink{},
	}
	f.svc = NewGateService(f.students, f.receipts, f.fees, f.classes, f.timetable, f.events, f.sink, nil, nil)
	return f
}

// monday returns a fixed Monday wall clock at the given time of day.
func monday(hour, minute int) time.Time {
	return time.Date(2025, time.June, 2, hour, minute, 0, 0, time.UTC)
}

func (f *gateFixture) scanAt(t *testing.T, code string, at time.Time) *models.GateScanResult {
	t.Helper()
	f.svc.clock = func() time.Time { return at }
	result := f.svc.Scan(context.Background(), code)
	require.NotNil(t, result)
	return result
}

func TestGateScanUnknownCode(t *testing.T) {
	f := newGateFixture(t)
	result := f.scanAt(t, "NOPE", monday(16, 30))
	assert.Equal(t, models.GateUnknown, result.Decision)
	assert.Nil(t, result.Student)
	require.Len(t, f.sink.events, 1)
	assert.Nil(t, f.sink.events[0].StudentID)
}

func TestGateScanBlockedStanding(t *testing.T) {
	f := newGateFixture(t)
	blocked := f.students.byBarcode["STU-001"]
	blocked.Standing = models.StandingSuspended
	f.students.byBarcode["STU-001"] = blocked

	result := f.scanAt(t, "STU-001", monday(16, 30))
	assert.Equal(t, models.GateBlocked, result.Decision)
	require.NotNil(t, result.Student)
	assert.Equal(t, models.StandingSuspended, result.Student.Standing)
}

func TestGateScanFullDefaulter(t *testing.T) {
	f := newGateFixture(t)
	f.fees.totals["s1"] = models.FeeTotals{TotalDue: 100, Paid: 0}

	result := f.scanAt(t, "STU-001", monday(16, 30))
	assert.Equal(t, models.GateDefaulter, result.Decision)
	require.NotNil(t, result.Student)
	assert.Equal(t, int64(100), result.Student.Balance)
}

func TestGateScanPartialPayment(t *testing.T) {
	f := newGateFixture(t)
	f.fees.totals["s1"] = models.FeeTotals{TotalDue: 100, Paid: 40}

	result := f.scanAt(t, "STU-001", monday(16, 30))
	assert.Equal(t, models.GatePartial, result.Decision)
	assert.Equal(t, int64(60), result.Student.Balance)
}

func TestGateScanSuccessInsideWindow(t *testing.T) {
	f := newGateFixture(t)
	result := f.scanAt(t, "STU-001", monday(16, 30))
	assert.Equal(t, models.GateSuccess, result.Decision)

	ts, ok := f.students.lastScanned["s1"]
	require.True(t, ok)
	assert.Equal(t, monday(16, 30), ts)
}

func TestGateScanRejectionLeavesLastScannedUntouched(t *testing.T) {
	blocked := newGateFixture(t)
	suspended := blocked.students.byBarcode["STU-001"]
	suspended.Standing = models.StandingSuspended
	blocked.students.byBarcode["STU-001"] = suspended
	assert.Equal(t, models.GateBlocked, blocked.scanAt(t, "STU-001", monday(16, 30)).Decision)
	assert.Empty(t, blocked.students.lastScanned)

	defaulter := newGateFixture(t)
	defaulter.fees.totals["s1"] = models.FeeTotals{TotalDue: 100, Paid: 0}
	assert.Equal(t, models.GateDefaulter, defaulter.scanAt(t, "STU-001", monday(16, 30)).Decision)
	assert.Empty(t, defaulter.students.lastScanned)

	early := newGateFixture(t)
	assert.Equal(t, models.GateTooEarly, early.scanAt(t, "STU-001", monday(14, 0)).Decision)
	assert.Empty(t, early.students.lastScanned)
}

func TestGateScanPartialPaymentStampsLastScanned(t *testing.T) {
	f := newGateFixture(t)
	f.fees.totals["s1"] = models.FeeTotals{TotalDue: 100, Paid: 40}

	assert.Equal(t, models.GatePartial, f.scanAt(t, "STU-001", monday(16, 30)).Decision)
	ts, ok := f.students.lastScanned["s1"]
	require.True(t, ok)
	assert.Equal(t, monday(16, 30), ts)
}

func TestGateScanEntryWindowBoundaries(t *testing.T) {
	f := newGateFixture(t)

	// Entry opens 60 minutes before the 16:00 start.
	assert.Equal(t, models.GateTooEarly, f.scanAt(t, "STU-001", monday(14, 59)).Decision)
	assert.Equal(t, models.GateSuccess, f.scanAt(t, "STU-001", monday(15, 0)).Decision)

	// Entry closes 15 minutes after the 18:00 end.
	assert.Equal(t, models.GateSuccess, f.scanAt(t, "STU-001", monday(18, 15)).Decision)
	assert.Equal(t, models.GateTooLate, f.scanAt(t, "STU-001", monday(18, 16)).Decision)
}

func TestGateScanNoClassToday(t *testing.T) {
	f := newGateFixture(t)
	class := f.classes.byID["class-1"]
	class.ScheduleDays = "Tue,Thu"
	f.classes.byID["class-1"] = class

	result := f.scanAt(t, "STU-001", monday(16, 30))
	assert.Equal(t, models.GateNoClassToday, result.Decision)
}

func TestGateScanOpenEndedClassUsesDefaultLength(t *testing.T) {
	f := newGateFixture(t)
	class := f.classes.byID["class-1"]
	class.EndTime = ""
	f.classes.byID["class-1"] = class

	// Assumed end is 16:00 + 4h = 20:00, so 20:15 is the last admitted minute.
	assert.Equal(t, models.GateSuccess, f.scanAt(t, "STU-001", monday(20, 15)).Decision)
	assert.Equal(t, models.GateTooLate, f.scanAt(t, "STU-001", monday(20, 16)).Decision)
}

func TestGateScanUnenrolledStudentAllowed(t *testing.T) {
	f := newGateFixture(t)
	student := f.students.byBarcode["STU-001"]
	student.ClassID = nil
	f.students.byBarcode["STU-001"] = student

	result := f.scanAt(t, "STU-001", monday(3, 0))
	assert.Equal(t, models.GateSuccess, result.Decision)
}

func TestGateScanUnscheduledClassAllowed(t *testing.T) {
	f := newGateFixture(t)
	class := f.classes.byID["class-1"]
	class.ScheduleDays = ""
	class.StartTime = ""
	class.EndTime = ""
	f.classes.byID["class-1"] = class

	result := f.scanAt(t, "STU-001", monday(3, 0))
	assert.Equal(t, models.GateSuccess, result.Decision)
}

func TestGateScanStorageErrorYieldsErrorDecision(t *testing.T) {
	f := newGateFixture(t)
	f.fees.err = errors.New("db down")

	result := f.scanAt(t, "STU-001", monday(16, 30))
	assert.Equal(t, models.GateError, result.Decision)
	assert.Equal(t, 500, result.Decision.HTTPStatus())
}

func TestGateScanReceiptTokenIdentifiesAndConsumes(t *testing.T) {
	f := newGateFixture(t)
	f.receipts.byToken["RCPT-ABC123"] = models.Receipt{ID: "r1", StudentID: "s1", GateToken: "RCPT-ABC123"}

	result := f.scanAt(t, "RCPT-ABC123", monday(16, 30))
	assert.Equal(t, models.GateSuccess, result.Decision)
	assert.Equal(t, []string{"r1"}, f.receipts.consumed)
}

func TestGateScanReceiptTokenUnknown(t *testing.T) {
	f := newGateFixture(t)
	result := f.scanAt(t, "RCPT-MISSING", monday(16, 30))
	assert.Equal(t, models.GateUnknown, result.Decision)
}

func TestGateScanAttachesCurrentSession(t *testing.T) {
	f := newGateFixture(t)
	f.timetable.entries = []models.TimetableEntry{
		{ID: "e1", ClassID: "class-1", Subject: "Biology", TeacherID: "t9", Day: "Monday", StartTime: "16:00", EndTime: "17:00", Room: "101", Active: true},
		{ID: "e2", ClassID: "class-1", Subject: "History", TeacherID: "t4", Day: "Monday", StartTime: "17:00", EndTime: "18:00", Room: "101", Active: true},
	}

	result := f.scanAt(t, "STU-001", monday(16, 30))
	require.NotNil(t, result.Session)
	assert.Equal(t, "Biology", result.Session.Subject)
	assert.Equal(t, "16:00", result.Session.StartTime)
	assert.Equal(t, "17:00", result.Session.EndTime)
}

func TestGateScanRecordsDecisionEvent(t *testing.T) {
	f := newGateFixture(t)
	f.scanAt(t, "STU-001", monday(16, 30))

	require.Len(t, f.sink.events, 1)
	event := f.sink.events[0]
	assert.Equal(t, models.GateSuccess, event.Decision)
	require.NotNil(t, event.StudentID)
	assert.Equal(t, "s1", *event.StudentID)
	assert.Equal(t, "STU-001", event.Code)
}
