package balance

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

// fakeAnnouncer records everything it is asked to say.
type fakeAnnouncer struct {
	mu        sync.Mutex
	said      []string
	cancelled int
}

func (a *fakeAnnouncer) Say(text string) {
	a.mu.Lock()
	a.said = append(a.said, text)
	a.mu.Unlock()
}

func (a *fakeAnnouncer) Cancel() {
	a.mu.Lock()
	a.cancelled++
	a.mu.Unlock()
}

func (a *fakeAnnouncer) saidSoFar() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.said...)
}

// newTestTimer returns a started-by-hand timer whose background ticker
// never fires, so tests drive tick() directly and stay deterministic.
func newTestTimer(countdownFrom, maxSeconds int, announcer *fakeAnnouncer) *Timer {
	tm := NewTimer(countdownFrom, maxSeconds, announcer, zap.NewNop())
	tm.interval = time.Hour
	return tm
}

func TestTimerCountdownSequence(t *testing.T) {
	defer goleak.VerifyNone(t)

	ann := &fakeAnnouncer{}
	tm := newTestTimer(3, 60, ann)

	var ticks []int
	var tickStates []State
	tm.OnTick(func(state State, n int) {
		tickStates = append(tickStates, state)
		ticks = append(ticks, n)
	})

	require.NoError(t, tm.Start())
	assert.Equal(t, StateCountdown, tm.State())

	tm.tick() // 2
	tm.tick() // 1
	assert.Equal(t, StateCountdown, tm.State())

	tm.tick() // begin
	assert.Equal(t, StateRunning, tm.State())

	tm.tick() // elapsed 1
	tm.tick() // elapsed 2

	assert.Equal(t, []string{"get ready", "2", "1", "begin", "1", "2"}, ann.saidSoFar())
	// The visible counter update and the announcement always pair up.
	assert.Equal(t, []int{3, 2, 1, 0, 1, 2}, ticks)
	assert.Equal(t, []State{
		StateCountdown, StateCountdown, StateCountdown,
		StateRunning, StateRunning, StateRunning,
	}, tickStates)

	tm.Cancel()
}

func TestTimerStartOnlyFromIdle(t *testing.T) {
	defer goleak.VerifyNone(t)

	tm := newTestTimer(3, 60, &fakeAnnouncer{})
	require.NoError(t, tm.Start())
	assert.ErrorIs(t, tm.Start(), ErrNotIdle)
	tm.Cancel()
}

func TestTimerStopCapturesElapsed(t *testing.T) {
	defer goleak.VerifyNone(t)

	ann := &fakeAnnouncer{}
	tm := newTestTimer(2, 60, ann)
	require.NoError(t, tm.Start())

	// Stop is only meaningful once running.
	assert.ErrorIs(t, tm.Stop(), ErrNotRunning)

	tm.tick() // 1
	tm.tick() // begin
	for i := 0; i < 7; i++ {
		tm.tick()
	}

	require.NoError(t, tm.Stop())
	assert.Equal(t, StateFinished, tm.State())

	seconds, ok := tm.Result()
	require.True(t, ok)
	assert.Equal(t, 7, seconds)

	// The pending announcement is cancelled along with the run.
	ann.mu.Lock()
	cancelled := ann.cancelled
	ann.mu.Unlock()
	assert.Positive(t, cancelled)
}

func TestTimerFinishesAtVariantCap(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Eyes-closed variant caps at 30 seconds.
	tm := newTestTimer(1, 30, &fakeAnnouncer{})
	require.NoError(t, tm.Start())

	tm.tick() // begin
	for i := 0; i < 30; i++ {
		tm.tick()
	}

	assert.Equal(t, StateFinished, tm.State())
	seconds, ok := tm.Result()
	require.True(t, ok)
	assert.Equal(t, 30, seconds)

	// Ticks past the cap change nothing.
	tm.tick()
	assert.Equal(t, 30, tm.Elapsed())
}

func TestTimerResetReturnsToIdle(t *testing.T) {
	defer goleak.VerifyNone(t)

	tm := newTestTimer(2, 60, &fakeAnnouncer{})
	require.NoError(t, tm.Start())
	tm.tick()
	tm.tick() // running
	tm.tick()

	tm.Reset()
	assert.Equal(t, StateIdle, tm.State())
	assert.Equal(t, 0, tm.Elapsed())
	_, ok := tm.Result()
	assert.False(t, ok)

	// The whole sequence can restart.
	require.NoError(t, tm.Start())
	tm.Cancel()
}

func TestTimerCancelNeverReportsResult(t *testing.T) {
	defer goleak.VerifyNone(t)

	tm := newTestTimer(1, 60, &fakeAnnouncer{})
	require.NoError(t, tm.Start())
	tm.tick() // running
	for i := 0; i < 12; i++ {
		tm.tick()
	}

	tm.Cancel()
	assert.Equal(t, StateIdle, tm.State())
	_, ok := tm.Result()
	assert.False(t, ok)
}

func TestTimerOverride(t *testing.T) {
	defer goleak.VerifyNone(t)

	tm := newTestTimer(1, 60, &fakeAnnouncer{})
	require.NoError(t, tm.Start())
	tm.tick() // running

	// Override only applies to a finished run.
	assert.ErrorIs(t, tm.Override(20), ErrNotFinished)

	for i := 0; i < 9; i++ {
		tm.tick()
	}
	require.NoError(t, tm.Stop())

	require.NoError(t, tm.Override(42))
	seconds, ok := tm.Result()
	require.True(t, ok)
	assert.Equal(t, 42, seconds)

	assert.Error(t, tm.Override(-1))
}
