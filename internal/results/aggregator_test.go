package results

import (
	"errors"
	"testing"
	"time"

	"egzersizlab/internal/capture"
	"egzersizlab/internal/catalog"
	"egzersizlab/internal/evaluation"
	"egzersizlab/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fixtureCatalog() *catalog.Catalog {
	criteria := &evaluation.Criteria{
		Good:     evaluation.TierRule{Min: 10, Label: "Good"},
		Moderate: evaluation.TierRule{Min: 5, Max: 9, Label: "Moderate"},
		Poor:     evaluation.TierRule{Max: 4, Label: "Poor"},
	}
	balanceCriteria := &evaluation.Criteria{
		Good:     evaluation.TierRule{Min: 15, Label: "Good"},
		Moderate: evaluation.TierRule{Min: 5, Max: 14, Label: "Fair"},
		Poor:     evaluation.TierRule{Max: 4, Label: "Reduced"},
	}

	return &catalog.Catalog{Categories: []catalog.Category{{
		ID:    "flexibility",
		Title: "Flexibility",
		Tests: []catalog.Test{
			{
				ID:          "sit-and-reach",
				Name:        "Sit and Reach",
				Modality:    catalog.ModalityMeasurement,
				Measurement: &catalog.MeasurementMeta{Unit: "cm", Bilateral: true},
				Criteria:    criteria,
			},
			{
				ID:       "morning-stiffness",
				Name:     "Morning Stiffness",
				Modality: catalog.ModalityResponseSelection,
				Response: &catalog.ResponseMeta{Options: []catalog.ResponseOption{
					{ID: "none", Label: "No stiffness", Result: "All clear."},
				}},
			},
			{
				ID:       "forward-fold",
				Name:     "Forward Fold",
				Modality: catalog.ModalityVideoCapture,
			},
			{
				ID:       "eyes-closed-stand",
				Name:     "Eyes Closed Stand",
				Modality: catalog.ModalityTimedBalance,
				Balance:  &catalog.BalanceMeta{Variant: "eyes-closed", MaxSeconds: 30},
				Criteria: balanceCriteria,
			},
		},
	}}}
}

func newDrivenSession(t *testing.T) *session.Session {
	t.Helper()
	m := session.NewManager(fixtureCatalog(), time.Hour, zap.NewNop())
	s, err := m.Create(7, "flexibility", nil)
	require.NoError(t, err)
	return s
}

func f(v float64) *float64 { return &v }

func TestBuildRequiresACompletedTest(t *testing.T) {
	s := newDrivenSession(t)
	for range s.Tests() {
		require.NoError(t, s.Skip())
	}
	require.True(t, s.Completed())

	_, err := Build(s)
	assert.ErrorIs(t, err, session.ErrNoCompletedTests)
}

func TestBuildAssemblesAllModalities(t *testing.T) {
	s := newDrivenSession(t)

	require.NoError(t, s.RecordMeasurement(f(12), f(3)))
	_, _ = s.Advance()
	require.NoError(t, s.RecordResponse("none"))
	_, _ = s.Advance()
	require.NoError(t, s.RecordVideo(&capture.Artifact{
		ID:              "a1",
		Object:          "a1.webm",
		URL:             "/recordings/a1.webm",
		ContentType:     "video/webm",
		DurationSeconds: 4.2,
	}, nil))
	_, _ = s.Advance()
	require.NoError(t, s.RecordBalanceResult(18))
	_, _ = s.Advance()
	require.True(t, s.Completed())

	sub, err := Build(s)
	require.NoError(t, err)

	assert.Equal(t, 7, sub.UserID)
	assert.Equal(t, s.ID, sub.SessionID)
	assert.Equal(t, "flexibility", sub.CategoryID)
	require.Len(t, sub.Records, 4)

	measurement := sub.Records[0]
	assert.Equal(t, "sit-and-reach", measurement.TestID)
	assert.Equal(t, "Sit and Reach", measurement.TestName)
	assert.Equal(t, "completed", measurement.Status)
	require.NotNil(t, measurement.LeftValue)
	assert.Equal(t, 12.0, *measurement.LeftValue)
	assert.Equal(t, "good", measurement.LeftTier)
	require.NotNil(t, measurement.RightValue)
	assert.Equal(t, "poor", measurement.RightTier)

	response := sub.Records[1]
	assert.Equal(t, "none", response.ResponseOption)
	assert.Equal(t, "All clear.", response.ResponseResult)

	video := sub.Records[2]
	require.NotNil(t, video.ArtifactURL)
	assert.Equal(t, "/recordings/a1.webm", *video.ArtifactURL)
	require.NotNil(t, video.DurationSeconds)
	assert.Equal(t, 4.2, *video.DurationSeconds)
	assert.Empty(t, video.ArtifactError)

	bal := sub.Records[3]
	require.NotNil(t, bal.BalanceSeconds)
	assert.Equal(t, 18, *bal.BalanceSeconds)
	assert.Equal(t, "good", bal.BalanceTier)
}

func TestBuildKeepsErrorOutcome(t *testing.T) {
	s := newDrivenSession(t)

	require.NoError(t, s.Skip())
	require.NoError(t, s.Skip())
	require.NoError(t, s.RecordVideo(nil, errors.New("no moov atom found")))
	s.GoToCompleted()

	sub, err := Build(s)
	require.NoError(t, err)
	require.Len(t, sub.Records, 1)

	rec := sub.Records[0]
	assert.Equal(t, "completed-with-error", rec.Status)
	assert.Nil(t, rec.ArtifactURL)
	assert.Equal(t, "no moov atom found", rec.ArtifactError)
}

func TestBuildSkipsSkippedTests(t *testing.T) {
	s := newDrivenSession(t)

	require.NoError(t, s.RecordMeasurement(f(6), nil))
	_, _ = s.Advance()
	require.NoError(t, s.Skip())
	require.NoError(t, s.Skip())
	require.NoError(t, s.RecordBalanceResult(3))
	_, _ = s.Advance()

	sub, err := Build(s)
	require.NoError(t, err)
	require.Len(t, sub.Records, 2)
	assert.Equal(t, "sit-and-reach", sub.Records[0].TestID)
	assert.Equal(t, "eyes-closed-stand", sub.Records[1].TestID)
	assert.Equal(t, "poor", sub.Records[1].BalanceTier)
}

func TestTierSummaryChartCounts(t *testing.T) {
	sub, err := Build(drivenFullSession(t))
	require.NoError(t, err)

	chart := TierSummaryChart(sub.Records)
	require.NotNil(t, chart)
}

func drivenFullSession(t *testing.T) *session.Session {
	t.Helper()
	s := newDrivenSession(t)
	require.NoError(t, s.RecordMeasurement(f(12), f(3)))
	_, _ = s.Advance()
	require.NoError(t, s.RecordResponse("none"))
	_, _ = s.Advance()
	require.NoError(t, s.Skip())
	require.NoError(t, s.RecordBalanceResult(8))
	_, _ = s.Advance()
	return s
}
