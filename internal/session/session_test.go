package session

import (
	"errors"
	"testing"
	"time"

	"egzersizlab/internal/balance"
	"egzersizlab/internal/capture"
	"egzersizlab/internal/catalog"
	"egzersizlab/internal/evaluation"
	"egzersizlab/internal/speech"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func reachCriteria() *evaluation.Criteria {
	return &evaluation.Criteria{
		Good:     evaluation.TierRule{Min: 10, Label: "Good"},
		Moderate: evaluation.TierRule{Min: 5, Max: 9, Label: "Moderate"},
		Poor:     evaluation.TierRule{Max: 4, Label: "Poor"},
	}
}

func balanceCriteria() *evaluation.Criteria {
	return &evaluation.Criteria{
		Good:     evaluation.TierRule{Min: 15, Label: "Good"},
		Moderate: evaluation.TierRule{Min: 5, Max: 14, Label: "Fair"},
		Poor:     evaluation.TierRule{Max: 4, Label: "Reduced"},
	}
}

func fixtureTests() []catalog.Test {
	return []catalog.Test{
		{
			ID:          "sit-and-reach",
			Name:        "Sit and Reach",
			Modality:    catalog.ModalityMeasurement,
			Regions:     []string{"hamstring", "lower-back"},
			Measurement: &catalog.MeasurementMeta{Unit: "cm"},
			Criteria:    reachCriteria(),
		},
		{
			ID:          "shoulder-reach",
			Name:        "Back Scratch Test",
			Modality:    catalog.ModalityMeasurement,
			Regions:     []string{"shoulder"},
			Measurement: &catalog.MeasurementMeta{Unit: "cm", Bilateral: true},
			Criteria:    reachCriteria(),
		},
		{
			ID:       "morning-stiffness",
			Name:     "Morning Stiffness",
			Modality: catalog.ModalityResponseSelection,
			Regions:  []string{"lower-back", "hip"},
			Response: &catalog.ResponseMeta{Options: []catalog.ResponseOption{
				{ID: "none", Label: "No stiffness", Result: "All clear."},
				{ID: "long", Label: "Over 30 minutes", Result: "Prolonged stiffness."},
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
			Regions:  []string{"ankle", "knee", "hip"},
			Balance:  &catalog.BalanceMeta{Variant: "eyes-closed", MaxSeconds: 30},
			Criteria: balanceCriteria(),
		},
	}
}

func newFixtureSession() *Session {
	return newSession("sess-1", 1, "flexibility", []string{"lower-back"}, fixtureTests(), zap.NewNop())
}

func f(v float64) *float64 { return &v }

func TestSessionStartsOnFirstInstructions(t *testing.T) {
	s := newFixtureSession()

	assert.Equal(t, 0, s.Index())
	assert.Equal(t, StepInstructions, s.Step())
	assert.False(t, s.Completed())

	current, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, "sit-and-reach", current.ID)
}

func TestAdvanceWithoutOutcomeIsInert(t *testing.T) {
	s := newFixtureSession()

	moved, err := s.Advance()
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, 0, s.Index())

	require.NoError(t, s.RecordMeasurement(f(12), nil))
	moved, err = s.Advance()
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, 1, s.Index())
	assert.Equal(t, StepInstructions, s.Step())
}

func TestRecordMeasurementClassifiesPerSide(t *testing.T) {
	s := newFixtureSession()

	require.NoError(t, s.RecordMeasurement(f(12), nil))
	_, _ = s.Advance()

	// Bilateral test with both sides sitting exactly on tier boundaries.
	require.NoError(t, s.RecordMeasurement(f(10), f(4)))

	o, ok := s.Outcome("shoulder-reach")
	require.True(t, ok)
	require.NotNil(t, o.Measurement)
	require.NotNil(t, o.Measurement.Left)
	require.NotNil(t, o.Measurement.Right)
	assert.Equal(t, evaluation.TierGood, o.Measurement.Left.Tier)
	assert.Equal(t, evaluation.TierPoor, o.Measurement.Right.Tier)
	assert.Equal(t, StepReview, s.Step())
}

func TestRecordMeasurementRequiresASide(t *testing.T) {
	s := newFixtureSession()
	assert.ErrorIs(t, s.RecordMeasurement(nil, nil), ErrNoMeasurement)
}

func TestRecordMeasurementChecksModality(t *testing.T) {
	s := newFixtureSession()
	require.NoError(t, s.Skip())
	require.NoError(t, s.Skip())
	// Current test is now the response-selection one.
	assert.ErrorIs(t, s.RecordMeasurement(f(5), nil), ErrWrongModality)
}

func TestRecordResponseResolvesOption(t *testing.T) {
	s := newFixtureSession()
	require.NoError(t, s.Skip())
	require.NoError(t, s.Skip())

	assert.ErrorIs(t, s.RecordResponse("nonsense"), ErrUnknownOption)

	require.NoError(t, s.RecordResponse("long"))
	o, ok := s.Outcome("morning-stiffness")
	require.True(t, ok)
	require.NotNil(t, o.Response)
	assert.Equal(t, "Prolonged stiffness.", o.Response.Result)
}

func TestSkippedTestsNeverGetOutcomes(t *testing.T) {
	s := newFixtureSession()

	require.NoError(t, s.RecordMeasurement(f(12), nil))
	_, _ = s.Advance()

	require.NoError(t, s.Skip()) // shoulder-reach
	require.NoError(t, s.Skip()) // morning-stiffness

	require.NoError(t, s.RecordVideo(&capture.Artifact{ID: "a1", URL: "/recordings/a1.webm"}, nil))
	_, _ = s.Advance()

	require.NoError(t, s.RecordBalanceResult(18))
	_, _ = s.Advance()

	assert.True(t, s.Completed())
	assert.Equal(t, 2, s.SkippedCount())
	assert.Equal(t, 3, s.CompletedCount())
	assert.True(t, s.Skipped("shoulder-reach"))

	_, hasOutcome := s.Outcome("shoulder-reach")
	assert.False(t, hasOutcome)

	// Outcomes come back in test order.
	var ids []string
	for _, o := range s.Outcomes() {
		ids = append(ids, o.TestID)
	}
	assert.Equal(t, []string{"sit-and-reach", "forward-fold", "eyes-closed-stand"}, ids)
}

func TestRedoingASkippedTestUnskipsIt(t *testing.T) {
	s := newFixtureSession()
	require.NoError(t, s.Skip())
	assert.True(t, s.Skipped("sit-and-reach"))

	s.RestartFromBeginning()
	require.NoError(t, s.RecordMeasurement(f(8), nil))
	assert.False(t, s.Skipped("sit-and-reach"))
	assert.Equal(t, 0, s.SkippedCount())
}

func TestVideoFinalizationFailureStillCompletes(t *testing.T) {
	s := newFixtureSession()
	require.NoError(t, s.Skip())
	require.NoError(t, s.Skip())
	require.NoError(t, s.Skip())
	// Current test is the video-capture one.

	require.NoError(t, s.RecordVideo(nil, errors.New("no moov atom found")))

	o, ok := s.Outcome("forward-fold")
	require.True(t, ok)
	assert.Equal(t, StatusCompletedWithError, o.Status)
	require.NotNil(t, o.Video)
	assert.Nil(t, o.Video.Artifact)
	assert.Equal(t, "no moov atom found", o.Video.Error)

	// An error outcome with no artifact still counts toward completion.
	assert.Equal(t, 1, s.CompletedCount())
}

func TestRecordVideoRequiresEvidence(t *testing.T) {
	s := newFixtureSession()
	require.NoError(t, s.Skip())
	require.NoError(t, s.Skip())
	require.NoError(t, s.Skip())

	assert.Error(t, s.RecordVideo(nil, nil))
}

func TestIndexChangeTearsDownTimer(t *testing.T) {
	s := newFixtureSession()
	for i := 0; i < 4; i++ {
		require.NoError(t, s.Skip())
	}
	// Current test is the timed-balance one.

	tm, err := s.Timer(func(maxSeconds int) *balance.Timer {
		assert.Equal(t, 30, maxSeconds)
		return balance.NewTimer(3, maxSeconds, speech.New("", zap.NewNop()), zap.NewNop())
	})
	require.NoError(t, err)
	require.NoError(t, tm.Start())

	require.NoError(t, s.Skip())

	// The timer was cancelled and released with the index change.
	assert.Equal(t, balance.StateIdle, tm.State())
	s.mu.Lock()
	assert.Nil(t, s.timer)
	s.mu.Unlock()
}

func TestTimerOnlyForBalanceTests(t *testing.T) {
	s := newFixtureSession()
	_, err := s.Timer(func(maxSeconds int) *balance.Timer { return nil })
	assert.ErrorIs(t, err, ErrWrongModality)
}

func TestRecorderOnlyForVideoTests(t *testing.T) {
	s := newFixtureSession()
	_, err := s.Recorder(func() *capture.Recorder { return nil })
	assert.ErrorIs(t, err, ErrWrongModality)
}

func TestGoToCompletedEndsSession(t *testing.T) {
	s := newFixtureSession()
	require.NoError(t, s.RecordMeasurement(f(12), nil))

	s.GoToCompleted()
	assert.True(t, s.Completed())

	_, err := s.Current()
	assert.ErrorIs(t, err, ErrSessionCompleted)
	err = s.BeginInteraction()
	assert.ErrorIs(t, err, ErrSessionCompleted)
}

func TestRestartFromBeginning(t *testing.T) {
	s := newFixtureSession()
	for range fixtureTests() {
		require.NoError(t, s.Skip())
	}
	assert.True(t, s.Completed())
	assert.Equal(t, 0, s.CompletedCount())

	s.RestartFromBeginning()
	assert.False(t, s.Completed())
	assert.Equal(t, 0, s.Index())
	assert.Equal(t, StepInstructions, s.Step())

	current, err := s.Current()
	require.NoError(t, err)
	assert.Equal(t, "sit-and-reach", current.ID)
}

func TestReturnToInstructionsClearsStep(t *testing.T) {
	s := newFixtureSession()
	require.NoError(t, s.BeginInteraction())
	assert.Equal(t, StepInteraction, s.Step())

	require.NoError(t, s.ReturnToInstructions())
	assert.Equal(t, StepInstructions, s.Step())
}

func TestTouchRefreshesIdleClock(t *testing.T) {
	s := newFixtureSession()
	before := s.IdleSince()
	time.Sleep(5 * time.Millisecond)
	s.Touch()
	assert.True(t, s.IdleSince().After(before))
}
