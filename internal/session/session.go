package session

import (
	"errors"
	"sync"
	"time"

	"egzersizlab/internal/balance"
	"egzersizlab/internal/capture"
	"egzersizlab/internal/catalog"
	"egzersizlab/internal/evaluation"

	"go.uber.org/zap"
)

// Step is the per-test interaction phase.
type Step string

const (
	StepInstructions Step = "instructions"
	StepInteraction  Step = "interaction"
	StepReview       Step = "review"
)

var (
	ErrSessionCompleted = errors.New("session already completed")
	ErrNoCurrentTest    = errors.New("no current test")
	ErrWrongModality    = errors.New("operation does not match the test's modality")
	ErrNoMeasurement    = errors.New("at least one side is required")
	ErrUnknownOption    = errors.New("unknown response option")
	ErrNoCompletedTests = errors.New("no completed tests")
)

// Session is one user's run through a filtered, ordered test list. It is
// mutated exclusively through its transition methods, all serialized
// behind the session mutex, and it owns the modality resources (recorder,
// balance timer) of the current test. Entering a different test always
// tears the previous test's resources down first.
type Session struct {
	mu sync.Mutex

	ID         string
	UserID     int
	CategoryID string
	Regions    []string

	log   *zap.Logger
	tests []catalog.Test

	index     int
	step      Step
	completed bool
	skipped   map[string]bool
	outcomes  map[string]*Outcome

	recorder *capture.Recorder
	timer    *balance.Timer

	lastTouch time.Time
}

func newSession(id string, userID int, categoryID string, regions []string, tests []catalog.Test, log *zap.Logger) *Session {
	return &Session{
		ID:         id,
		UserID:     userID,
		CategoryID: categoryID,
		Regions:    regions,
		log:        log,
		tests:      tests,
		step:       StepInstructions,
		skipped:    make(map[string]bool),
		outcomes:   make(map[string]*Outcome),
		lastTouch:  time.Now(),
	}
}

// Tests returns the session's ordered, filtered test list.
func (s *Session) Tests() []catalog.Test {
	return s.tests
}

// Current returns the test at the current index.
func (s *Session) Current() (*catalog.Test, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

func (s *Session) currentLocked() (*catalog.Test, error) {
	if s.completed {
		return nil, ErrSessionCompleted
	}
	if s.index < 0 || s.index >= len(s.tests) {
		return nil, ErrNoCurrentTest
	}
	return &s.tests[s.index], nil
}

// Index returns the current 0-based test index.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Step returns the current per-test phase.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Completed reports whether the session reached its terminal state.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Touch refreshes the idle timestamp; the janitor uses it.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastTouch = time.Now()
	s.mu.Unlock()
}

// IdleSince returns the time of the last interaction.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTouch
}

// BeginInteraction moves the current test from instructions into its
// modality-specific interaction.
func (s *Session) BeginInteraction() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.currentLocked(); err != nil {
		return err
	}
	s.step = StepInteraction
	return nil
}

// ReturnToInstructions puts the current test back on its instructions
// step, releasing any interaction resources it held.
func (s *Session) ReturnToInstructions() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.currentLocked(); err != nil {
		return err
	}
	s.cleanupLocked()
	s.step = StepInstructions
	return nil
}

// Skip marks the current test skipped and advances. Skipped tests never
// receive an Outcome.
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.currentLocked()
	if err != nil {
		return err
	}
	s.skipped[t.ID] = true
	delete(s.outcomes, t.ID)
	s.advanceLocked()
	return nil
}

// Advance moves to the next test. Without an Outcome for the current
// test it is a no-op: the caller's advance control stays inert rather
// than surfacing an error.
func (s *Session) Advance() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.currentLocked()
	if err != nil {
		return false, err
	}
	if _, done := s.outcomes[t.ID]; !done {
		return false, nil
	}
	s.advanceLocked()
	return true, nil
}

func (s *Session) advanceLocked() {
	s.cleanupLocked()
	s.index++
	s.step = StepInstructions
	if s.index >= len(s.tests) {
		s.completed = true
	}
}

// GoToCompleted finishes the whole session regardless of remaining
// tests.
func (s *Session) GoToCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	s.completed = true
}

// RestartFromBeginning routes a session that failed the minimum
// completion gate back to the first test's instructions. The session is
// redirected, never abandoned.
func (s *Session) RestartFromBeginning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	s.index = 0
	s.step = StepInstructions
	s.completed = false
}

// SkippedCount returns the size of the skip set.
func (s *Session) SkippedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.skipped)
}

// Skipped reports whether the given test was skipped.
func (s *Session) Skipped(testID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped[testID]
}

// CompletedCount counts tests with stored evidence: a video artifact
// outcome, at least one classified measurement side, a response choice
// or a saved balance result. Each modality contributes independently.
func (s *Session) CompletedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, o := range s.outcomes {
		switch {
		case o.Video != nil:
			count++
		case o.Measurement != nil && (o.Measurement.Left != nil || o.Measurement.Right != nil):
			count++
		case o.Response != nil:
			count++
		case o.Balance != nil:
			count++
		}
	}
	return count
}

// Outcome returns the stored outcome for a test id.
func (s *Session) Outcome(testID string) (*Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.outcomes[testID]
	return o, ok
}

// Outcomes returns the outcomes in the session's test order.
func (s *Session) Outcomes() []*Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordered := make([]*Outcome, 0, len(s.outcomes))
	for _, t := range s.tests {
		if o, ok := s.outcomes[t.ID]; ok {
			ordered = append(ordered, o)
		}
	}
	return ordered
}

// ClearOutcome removes the current test's outcome, e.g. when the user
// discards a reviewed recording and returns to the instructions step.
func (s *Session) ClearOutcome() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.currentLocked()
	if err != nil {
		return err
	}
	delete(s.outcomes, t.ID)
	return nil
}

// RecordMeasurement classifies the entered value per side present and
// stores the outcome for the current test. At least one side is
// required.
func (s *Session) RecordMeasurement(left, right *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.currentLocked()
	if err != nil {
		return err
	}
	if t.Modality != catalog.ModalityMeasurement {
		return ErrWrongModality
	}
	if left == nil && right == nil {
		return ErrNoMeasurement
	}

	m := &MeasurementOutcome{}
	if left != nil {
		res := evaluation.Classify(*left, *t.Criteria)
		m.Left = &res
	}
	if right != nil {
		res := evaluation.Classify(*right, *t.Criteria)
		m.Right = &res
	}

	s.outcomes[t.ID] = &Outcome{
		TestID:      t.ID,
		Modality:    t.Modality,
		Status:      StatusCompleted,
		RecordedAt:  time.Now().UTC(),
		Measurement: m,
	}
	delete(s.skipped, t.ID)
	s.step = StepReview
	return nil
}

// RecordResponse resolves the chosen option and stores the outcome.
func (s *Session) RecordResponse(optionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.currentLocked()
	if err != nil {
		return err
	}
	if t.Modality != catalog.ModalityResponseSelection {
		return ErrWrongModality
	}

	opt, ok := t.Response.Option(optionID)
	if !ok {
		return ErrUnknownOption
	}

	s.outcomes[t.ID] = &Outcome{
		TestID:     t.ID,
		Modality:   t.Modality,
		Status:     StatusCompleted,
		RecordedAt: time.Now().UTC(),
		Response: &ResponseOutcome{
			OptionID:    opt.ID,
			Label:       opt.Label,
			Result:      opt.Result,
			Description: opt.Description,
		},
	}
	delete(s.skipped, t.ID)
	s.step = StepReview
	return nil
}

// RecordBalanceResult classifies the final whole-second value (auto
// captured or user override) and stores the outcome. The session's
// balance timer is released afterwards; its job is done.
func (s *Session) RecordBalanceResult(seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.currentLocked()
	if err != nil {
		return err
	}
	if t.Modality != catalog.ModalityTimedBalance {
		return ErrWrongModality
	}

	s.outcomes[t.ID] = &Outcome{
		TestID:     t.ID,
		Modality:   t.Modality,
		Status:     StatusCompleted,
		RecordedAt: time.Now().UTC(),
		Balance: &BalanceOutcome{
			Seconds:        seconds,
			Classification: evaluation.Classify(float64(seconds), *t.Criteria),
		},
	}
	delete(s.skipped, t.ID)
	if s.timer != nil {
		s.timer.Cancel()
		s.timer = nil
	}
	s.step = StepReview
	return nil
}

// RecordVideo stores the capture outcome. A nil artifact with a
// finalization error still counts as completed, carrying the error
// marker instead of dropping the user's progress.
func (s *Session) RecordVideo(artifact *capture.Artifact, finalizeErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.currentLocked()
	if err != nil {
		return err
	}
	if t.Modality != catalog.ModalityVideoCapture {
		return ErrWrongModality
	}

	status := StatusCompleted
	video := &VideoOutcome{Artifact: artifact}
	if artifact == nil {
		if finalizeErr == nil {
			return errors.New("no artifact to record")
		}
		status = StatusCompletedWithError
		video.Error = finalizeErr.Error()
	}

	s.outcomes[t.ID] = &Outcome{
		TestID:     t.ID,
		Modality:   t.Modality,
		Status:     status,
		RecordedAt: time.Now().UTC(),
		Video:      video,
	}
	delete(s.skipped, t.ID)
	s.step = StepReview
	return nil
}

// Recorder returns the current test's capture recorder, creating it on
// first use. Only valid while the current test is a video-capture test.
func (s *Session) Recorder(build func() *capture.Recorder) (*capture.Recorder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.currentLocked()
	if err != nil {
		return nil, err
	}
	if t.Modality != catalog.ModalityVideoCapture {
		return nil, ErrWrongModality
	}
	if s.recorder == nil {
		s.recorder = build()
	}
	return s.recorder, nil
}

// Timer returns the current test's balance timer, creating it on first
// use. Only valid while the current test is a timed-balance test.
func (s *Session) Timer(build func(maxSeconds int) *balance.Timer) (*balance.Timer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.currentLocked()
	if err != nil {
		return nil, err
	}
	if t.Modality != catalog.ModalityTimedBalance {
		return nil, ErrWrongModality
	}
	if s.timer == nil {
		s.timer = build(t.Balance.MaxSeconds)
	}
	return s.timer, nil
}

// Teardown releases every resource the session holds. Called when the
// user closes the flow, after submission, and by the janitor.
func (s *Session) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
}

// cleanupLocked is the single cleanup routine: it cancels the balance
// timer (and its pending announcement) and closes the recorder (device
// handle, elapsed ticker, buffer). Every index change funnels through
// here, so no timer or camera handle can outlive its test.
func (s *Session) cleanupLocked() {
	if s.timer != nil {
		s.timer.Cancel()
		s.timer = nil
	}
	if s.recorder != nil {
		s.recorder.Close()
		s.recorder = nil
	}
}
