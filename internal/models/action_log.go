package models

import "time"

// Log subjects.
const (
	SubjectItem   = "item"
	SubjectUser   = "user"
	SubjectLedger = "ledger"
)

// ActionLog is one audit entry written alongside a mutation.
type ActionLog struct {
	ID          int64     `json:"id" db:"id"`
	Subject     string    `json:"subject" db:"subject"`
	SubjectID   int64     `json:"subject_id" db:"subject_id"`
	Action      string    `json:"action" db:"action"`
	PerformedBy string    `json:"performed_by" db:"performed_by"`
	Details     string    `json:"details" db:"details"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
