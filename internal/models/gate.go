package models

import (
	"net/http"
	"time"
)

// GateDecision is the terminal outcome of one gate-scan invocation. The set is
// closed: every decision has a total mapping to an HTTP status and a message,
// so adding a new terminal state forces every consumer to handle it.
type GateDecision string

const (
	GateSuccess      GateDecision = "SUCCESS"
	GatePartial      GateDecision = "PARTIAL"
	GateDefaulter    GateDecision = "DEFAULTER"
	GateBlocked      GateDecision = "BLOCKED"
	GateUnknown      GateDecision = "UNKNOWN"
	GateNoClassToday GateDecision = "NO_CLASS_TODAY"
	GateTooEarly     GateDecision = "TOO_EARLY"
	GateTooLate      GateDecision = "TOO_LATE"
	GateError        GateDecision = "ERROR"
)

// HTTPStatus maps the decision onto the status class the scan terminal expects.
func (d GateDecision) HTTPStatus() int {
	switch d {
	case GateSuccess, GatePartial:
		return http.StatusOK
	case GateDefaulter, GateBlocked, GateNoClassToday, GateTooEarly, GateTooLate:
		return http.StatusForbidden
	case GateUnknown:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the default terminal-facing text for the decision.
func (d GateDecision) Message() string {
	switch d {
	case GateSuccess:
		return "Access granted"
	case GatePartial:
		return "Access granted, balance outstanding"
	case GateDefaulter:
		return "Access denied: fees unpaid"
	case GateBlocked:
		return "Access denied: student is not in good standing"
	case GateUnknown:
		return "Scan code not recognised"
	case GateNoClassToday:
		return "No class scheduled today"
	case GateTooEarly:
		return "Too early: class has not opened yet"
	case GateTooLate:
		return "Too late: class entry window has closed"
	default:
		return "Scan could not be processed"
	}
}

// SessionInfo enriches a gate decision with the session happening right now.
type SessionInfo struct {
	Subject     string `json:"subject"`
	TeacherName string `json:"teacher"`
	Room        string `json:"room"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

// ScanContext is built per scan request and discarded with it; only the
// last-scanned timestamp write survives the request.
type ScanContext struct {
	Student        *Student
	Totals         FeeTotals
	EnrolledClass  *Class
	CurrentSession *SessionInfo
	ScannedAt      time.Time
}

// GateStudentInfo is the student payload attached to scan responses.
type GateStudentInfo struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Class    string          `json:"class,omitempty"`
	Balance  int64           `json:"balance"`
	Standing StudentStanding `json:"standing"`
}

// GateScanResult is the full outcome payload for one scan.
type GateScanResult struct {
	Decision GateDecision     `json:"status"`
	Message  string           `json:"message"`
	Student  *GateStudentInfo `json:"student,omitempty"`
	Session  *SessionInfo     `json:"currentSession,omitempty"`
}

// GateEvent is the persisted audit record of one scan, written asynchronously.
type GateEvent struct {
	ID        string       `db:"id" json:"id"`
	StudentID *string      `db:"student_id" json:"student_id,omitempty"`
	Code      string       `db:"code" json:"code"`
	Decision  GateDecision `db:"decision" json:"decision"`
	ScannedAt time.Time    `db:"scanned_at" json:"scanned_at"`
}
