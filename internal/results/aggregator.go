package results

import (
	"egzersizlab/internal/catalog"
	"egzersizlab/internal/models"
	"egzersizlab/internal/session"
)

// Build assembles the submission payload from a completed session: one
// record per outcome, in test order, each normalized to the common
// envelope plus its modality-specific columns. The minimum-completion
// gate lives here: a session with zero outcomes cannot produce a
// payload.
func Build(s *session.Session) (*models.Submission, error) {
	if s.CompletedCount() == 0 {
		return nil, session.ErrNoCompletedTests
	}

	sub := &models.Submission{
		UserID:     s.UserID,
		SessionID:  s.ID,
		CategoryID: s.CategoryID,
		Regions:    append([]string(nil), s.Regions...),
	}

	tests := s.Tests()
	byID := make(map[string]*catalog.Test, len(tests))
	for i := range tests {
		byID[tests[i].ID] = &tests[i]
	}

	for _, o := range s.Outcomes() {
		t := byID[o.TestID]
		rec := models.SubmissionRecord{
			TestID:     o.TestID,
			TestName:   t.Name,
			CategoryID: s.CategoryID,
			Modality:   string(o.Modality),
			Status:     string(o.Status),
			RecordedAt: o.RecordedAt,
		}

		switch {
		case o.Video != nil:
			if o.Video.Artifact != nil {
				url := o.Video.Artifact.URL
				rec.ArtifactURL = &url
				if o.Video.Artifact.DurationSeconds > 0 {
					d := o.Video.Artifact.DurationSeconds
					rec.DurationSeconds = &d
				}
			}
			rec.ArtifactError = o.Video.Error

		case o.Measurement != nil:
			if o.Measurement.Left != nil {
				v := o.Measurement.Left.Value
				rec.LeftValue = &v
				rec.LeftTier = string(o.Measurement.Left.Tier)
			}
			if o.Measurement.Right != nil {
				v := o.Measurement.Right.Value
				rec.RightValue = &v
				rec.RightTier = string(o.Measurement.Right.Tier)
			}

		case o.Response != nil:
			rec.ResponseOption = o.Response.OptionID
			rec.ResponseResult = o.Response.Result

		case o.Balance != nil:
			seconds := o.Balance.Seconds
			rec.BalanceSeconds = &seconds
			rec.BalanceTier = string(o.Balance.Classification.Tier)
		}

		sub.Records = append(sub.Records, rec)
	}

	return sub, nil
}
