package models

import "github.com/google/uuid"

// BatchEnrollmentEntry is one student object inside a batch enrollment document.
type BatchEnrollmentEntry struct {
	FirstName      string `json:"first_name" validate:"required"`
	LastName       string `json:"last_name" validate:"required"`
	Email          string `json:"email" validate:"required"`
	EnrollmentDate string `json:"enrollment_date"`
	DateOfBirth    string `json:"date_of_birth" validate:"required"`
}

// BatchResult summarises a batch run. Skipped holds one human-readable reason per rejected entry.
type BatchResult struct {
	RunID   string   `json:"run_id"`
	Applied int      `json:"applied"`
	Skipped []string `json:"skipped"`
}

// NewBatchResult starts a result with a fresh run ID.
func NewBatchResult() *BatchResult {
	return &BatchResult{RunID: uuid.NewString()}
}
