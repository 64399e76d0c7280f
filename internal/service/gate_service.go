package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-ops-api/internal/models"
	"github.com/noah-isme/campus-ops-api/pkg/jobs"
)

const (
	// Entry opens one hour before class start and closes fifteen minutes
	// after class end. Both boundary minutes are inside the window.
	gateEarlyMargin = 60
	gateLateGrace   = 15

	// Classes stored without an end time are assumed to run this long.
	gateDefaultSessionLength = 240

	// Receipt gate tokens are distinguishable from barcodes by prefix.
	gateTokenPrefix = "RCPT-"

	gateSessionCacheTTL = 5 * time.Minute
)

type gateStudentReader interface {
	FindByBarcode(ctx context.Context, barcode string) (*models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	UpdateLastScanned(ctx context.Context, id string, ts time.Time) error
}

type gateReceiptReader interface {
	FindReceiptByGateToken(ctx context.Context, token string) (*models.Receipt, error)
	ConsumeGateToken(ctx context.Context, receiptID string, ts time.Time) error
}

type gateFeeReader interface {
	TotalsByStudent(ctx context.Context, studentID string) (models.FeeTotals, error)
}

type gateClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type gateSessionReader interface {
	ListActiveByClassAndDay(ctx context.Context, classID, day string) ([]models.TimetableEntry, error)
}

type gateEventReader interface {
	ListRecent(ctx context.Context, limit int) ([]models.GateEvent, error)
}

type gateSessionCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type gateEventSink interface {
	Record(event models.GateEvent)
}

// GateService turns a raw scan code into a terminal gate decision. Each scan
// walks a fixed pipeline: identify, standing, financial, schedule, time
// window. The first failing stage decides; later stages never run.
type GateService struct {
	students  gateStudentReader
	receipts  gateReceiptReader
	fees      gateFeeReader
	classes   gateClassReader
	timetable gateSessionReader
	events    gateEventReader
	sink      gateEventSink
	cache     gateSessionCache
	logger    *zap.Logger
	clock     func() time.Time
}

// NewGateService wires the gate decision engine. The cache and sink are
// optional; passing nil disables session caching and event recording.
func NewGateService(
	students gateStudentReader,
	receipts gateReceiptReader,
	fees gateFeeReader,
	classes gateClassReader,
	timetable gateSessionReader,
	events gateEventReader,
	sink gateEventSink,
	cache gateSessionCache,
	logger *zap.Logger,
) *GateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GateService{
		students:  students,
		receipts:  receipts,
		fees:      fees,
		classes:   classes,
		timetable: timetable,
		events:    events,
		sink:      sink,
		cache:     cache,
		logger:    logger,
		clock:     time.Now,
	}
}

// Scan resolves one scan code to a decision. Storage failures surface as the
// ERROR decision rather than a transport error, so the terminal always gets a
// renderable outcome.
func (s *GateService) Scan(ctx context.Context, code string) *models.GateScanResult {
	now := s.clock()
	code = strings.TrimSpace(code)
	if code == "" {
		return s.finish(ctx, code, now, nil, s.result(models.GateUnknown, nil, nil))
	}

	student, result := s.identify(ctx, code, now)
	if result != nil {
		return s.finish(ctx, code, now, student, result)
	}

	if student.Standing.Blocked() {
		return s.finish(ctx, code, now, student, s.result(models.GateBlocked, s.studentInfo(student, models.FeeTotals{}), nil))
	}

	totals, err := s.fees.TotalsByStudent(ctx, student.ID)
	if err != nil {
		s.logger.Error("gate fee lookup failed", zap.String("student_id", student.ID), zap.Error(err))
		return s.finish(ctx, code, now, student, s.result(models.GateError, s.studentInfo(student, models.FeeTotals{}), nil))
	}
	info := s.studentInfo(student, totals)
	if totals.FullDefault() {
		return s.finish(ctx, code, now, student, s.result(models.GateDefaulter, info, nil))
	}

	decision, session := s.checkSchedule(ctx, student, totals, now)
	return s.finish(ctx, code, now, student, s.result(decision, info, session))
}

// RecentEvents exposes the scan audit trail.
func (s *GateService) RecentEvents(ctx context.Context, limit int) ([]models.GateEvent, error) {
	return s.events.ListRecent(ctx, limit)
}

// identify resolves the code to a student. A receipt gate token identifies the
// receipt's student and is consumed on use; anything else is a barcode.
func (s *GateService) identify(ctx context.Context, code string, now time.Time) (*models.Student, *models.GateScanResult) {
	if strings.HasPrefix(code, gateTokenPrefix) {
		receipt, err := s.receipts.FindReceiptByGateToken(ctx, code)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, s.result(models.GateUnknown, nil, nil)
			}
			s.logger.Error("gate token lookup failed", zap.Error(err))
			return nil, s.result(models.GateError, nil, nil)
		}
		student, err := s.students.FindByID(ctx, receipt.StudentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, s.result(models.GateUnknown, nil, nil)
			}
			s.logger.Error("gate student lookup failed", zap.Error(err))
			return nil, s.result(models.GateError, nil, nil)
		}
		if err := s.receipts.ConsumeGateToken(ctx, receipt.ID, now.UTC()); err != nil {
			s.logger.Warn("failed to consume gate token", zap.String("receipt_id", receipt.ID), zap.Error(err))
		}
		return student, nil
	}

	student, err := s.students.FindByBarcode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.result(models.GateUnknown, nil, nil)
		}
		s.logger.Error("gate barcode lookup failed", zap.Error(err))
		return nil, s.result(models.GateError, nil, nil)
	}
	return student, nil
}

// checkSchedule applies the schedule and time-window stages. Students without
// an enrolled class, or whose class has no parseable schedule, are let
// through: incomplete data never locks a student out.
func (s *GateService) checkSchedule(ctx context.Context, student *models.Student, totals models.FeeTotals, now time.Time) (models.GateDecision, *models.SessionInfo) {
	allowed := models.GateSuccess
	if totals.Balance() > 0 {
		allowed = models.GatePartial
	}

	if student.ClassID == nil || *student.ClassID == "" {
		return allowed, nil
	}

	class, err := s.classes.FindByID(ctx, *student.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("student enrolled in missing class", zap.String("student_id", student.ID), zap.String("class_id", *student.ClassID))
			return allowed, nil
		}
		s.logger.Error("gate class lookup failed", zap.Error(err))
		return models.GateError, nil
	}

	window, ok := class.Window()
	if !ok {
		return allowed, nil
	}

	today := models.WeekdayFromTime(now)
	if !window.Days.Has(today) {
		return models.GateNoClassToday, nil
	}

	start := window.Range.Start
	end := window.Range.End
	if !window.Range.Positive() {
		end = start + gateDefaultSessionLength
	}

	nowMinute := models.TimeOfDayFromClock(now)
	if nowMinute < start-gateEarlyMargin {
		return models.GateTooEarly, nil
	}
	if nowMinute > end+gateLateGrace {
		return models.GateTooLate, nil
	}

	return allowed, s.currentSession(ctx, class, today, nowMinute)
}

// currentSession finds the timetable slot in progress right now, preferring
// the cache. Lookup failures only cost the session enrichment, never the
// decision.
func (s *GateService) currentSession(ctx context.Context, class *models.Class, today models.Weekday, nowMinute models.TimeOfDay) *models.SessionInfo {
	key := fmt.Sprintf("gate:sessions:%s:%s", class.ID, today)

	var entries []models.TimetableEntry
	cached := false
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, key, &entries)
		if err == nil && hit {
			cached = true
		}
	}
	if !cached {
		var err error
		entries, err = s.timetable.ListActiveByClassAndDay(ctx, class.ID, today.String())
		if err != nil {
			s.logger.Warn("session lookup failed", zap.String("class_id", class.ID), zap.Error(err))
			return nil
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, entries, gateSessionCacheTTL); err != nil {
				s.logger.Warn("session cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}

	for _, entry := range entries {
		window, ok := entry.Window()
		if !ok {
			continue
		}
		if window.Range.Contains(nowMinute) {
			teacher := entry.TeacherID
			return &models.SessionInfo{
				Subject:     entry.Subject,
				TeacherName: teacher,
				Room:        entry.Room,
				StartTime:   window.Range.Start.String(),
				EndTime:     window.Range.End.String(),
			}
		}
	}
	return nil
}

// finish records the audit event for every decision and, on an admitting
// decision only, stamps the student's last scan. Rejected scans must not
// touch last_scanned_at.
func (s *GateService) finish(ctx context.Context, code string, now time.Time, student *models.Student, result *models.GateScanResult) *models.GateScanResult {
	admitted := result.Decision == models.GateSuccess || result.Decision == models.GatePartial
	if student != nil && admitted {
		if err := s.students.UpdateLastScanned(ctx, student.ID, now.UTC()); err != nil {
			s.logger.Warn("failed to stamp last scan", zap.String("student_id", student.ID), zap.Error(err))
		}
	}
	if s.sink != nil {
		event := models.GateEvent{Code: code, Decision: result.Decision, ScannedAt: now.UTC()}
		if student != nil {
			id := student.ID
			event.StudentID = &id
		}
		s.sink.Record(event)
	}
	return result
}

func (s *GateService) result(decision models.GateDecision, info *models.GateStudentInfo, session *models.SessionInfo) *models.GateScanResult {
	return &models.GateScanResult{
		Decision: decision,
		Message:  decision.Message(),
		Student:  info,
		Session:  session,
	}
}

func (s *GateService) studentInfo(student *models.Student, totals models.FeeTotals) *models.GateStudentInfo {
	info := &models.GateStudentInfo{
		ID:       student.ID,
		Name:     student.FullName,
		Balance:  totals.Balance(),
		Standing: student.Standing,
	}
	if student.ClassID != nil {
		info.Class = *student.ClassID
	}
	return info
}

type gateEventWriter interface {
	Create(ctx context.Context, event *models.GateEvent) error
}

// GateEventRecorder persists scan events off the request path through the
// shared job queue.
type GateEventRecorder struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewGateEventRecorder builds the async recorder. Call Start before recording
// and Stop on shutdown. Non-positive workers or buffer sizes fall back to
// defaults suitable for a single gate terminal.
func NewGateEventRecorder(repo gateEventWriter, logger *zap.Logger, workers, bufferSize int) *GateEventRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 2
	}
	if bufferSize <= 0 {
		bufferSize = 64
	}
	r := &GateEventRecorder{logger: logger}
	r.queue = jobs.NewQueue("gate-events", func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(models.GateEvent)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		return repo.Create(ctx, &event)
	}, jobs.QueueConfig{Workers: workers, BufferSize: bufferSize, Logger: logger})
	return r
}

// Start launches the queue workers.
func (r *GateEventRecorder) Start(ctx context.Context) {
	r.queue.Start(ctx)
}

// Stop drains the workers.
func (r *GateEventRecorder) Stop() {
	r.queue.Stop()
}

// Record enqueues one event; a full or stopped queue drops it with a log line
// instead of stalling the scan.
func (r *GateEventRecorder) Record(event models.GateEvent) {
	if err := r.queue.Enqueue(jobs.Job{Type: "gate-event", Payload: event}); err != nil {
		r.logger.Warn("dropping gate event", zap.String("code", event.Code), zap.Error(err))
	}
}
