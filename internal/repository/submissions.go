package repository

import (
	"context"

	"egzersizlab/internal/database"
	"egzersizlab/internal/models"

	"gorm.io/gorm"
)

// SaveSubmission writes a submission and all its per-test records in one
// transaction. The engine calls this exactly once per completed session;
// a failure is surfaced to the user for manual retry, never retried
// internally.
func SaveSubmission(ctx context.Context, sub *models.Submission) error {
	return database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(sub).Error
	})
}

// GetRecordsForUser returns all of a user's submitted per-test records,
// newest submission first.
func GetRecordsForUser(ctx context.Context, userID int) ([]models.SubmissionRecord, error) {
	var records []models.SubmissionRecord
	err := database.DB.WithContext(ctx).
		Joins("JOIN submissions ON submissions.id = submission_records.submission_id").
		Where("submissions.user_id = ?", userID).
		Order("submission_records.created_at DESC").
		Find(&records).Error
	return records, err
}
