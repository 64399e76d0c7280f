package models

import "time"

// StudentStanding is the disciplinary state of a student, independent of the
// financial status the gate engine computes per scan.
type StudentStanding string

const (
	StandingActive    StudentStanding = "ACTIVE"
	StandingSuspended StudentStanding = "SUSPENDED"
	StandingExpelled  StudentStanding = "EXPELLED"
)

// Blocked reports whether the standing denies gate entry outright.
func (s StudentStanding) Blocked() bool {
	return s == StandingSuspended || s == StandingExpelled
}

// Student represents a learner registered in the institution.
type Student struct {
	ID            string          `db:"id" json:"id"`
	AdmissionNo   string          `db:"admission_no" json:"admission_no"`
	FullName      string          `db:"full_name" json:"full_name"`
	Barcode       string          `db:"barcode" json:"barcode"`
	Standing      StudentStanding `db:"standing" json:"standing"`
	ClassID       *string         `db:"class_id" json:"class_id,omitempty"`
	GuardianPhone string          `db:"guardian_phone" json:"guardian_phone"`
	LastScannedAt *time.Time      `db:"last_scanned_at" json:"last_scanned_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// StudentDetail includes enrollment context for list/detail responses.
type StudentDetail struct {
	Student
	ClassTitle *string `db:"class_title" json:"class_title,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	ClassID   string
	Standing  *StudentStanding
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
