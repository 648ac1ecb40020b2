package models

import (
	"time"

	"github.com/lib/pq"
)

// Submission is one finished assessment run handed to persistence. Built
// once, written once; the engine never retries automatically.
type Submission struct {
	ID         int `gorm:"primaryKey"`
	UserID     int
	User       User `gorm:"foreignKey:UserID"`
	SessionID  string
	CategoryID string
	Regions    pq.StringArray     `gorm:"type:text[]"`
	Records    []SubmissionRecord `gorm:"foreignKey:SubmissionID"`
	CreatedAt  time.Time
}

// SubmissionRecord is one per-test result row. The envelope columns are
// common to all modalities; the modality-specific columns are nullable
// and only the current modality's set is populated.
type SubmissionRecord struct {
	ID           int `gorm:"primaryKey"`
	SubmissionID int
	TestID       string
	TestName     string
	CategoryID   string
	Modality     string
	Status       string // completed | completed-with-error
	RecordedAt   time.Time

	// video-capture
	ArtifactURL     *string
	ArtifactError   string
	DurationSeconds *float64

	// measurement
	LeftValue  *float64
	LeftTier   string
	RightValue *float64
	RightTier  string

	// response-selection
	ResponseOption string
	ResponseResult string

	// timed-balance
	BalanceSeconds *int
	BalanceTier    string

	CreatedAt time.Time
}
