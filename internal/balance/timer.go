package balance

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"egzersizlab/internal/speech"

	"go.uber.org/zap"
)

// State is the balance timer's lifecycle phase.
type State string

const (
	StateIdle      State = "idle"
	StateCountdown State = "countdown"
	StateRunning   State = "running"
	StateFinished  State = "finished"
)

var (
	ErrNotIdle     = errors.New("timer already started")
	ErrNotRunning  = errors.New("timer is not running")
	ErrNotFinished = errors.New("timer has not finished")
)

// Timer drives a countdown-then-count-up balance test. Every tick updates
// the visible counter and issues its spoken announcement in the same
// critical section, so audio and display cannot drift apart. All pending
// ticks and the in-flight announcement are cancelled on Stop, Reset,
// Cancel and when the owning session tears the timer down.
type Timer struct {
	mu        sync.Mutex
	log       *zap.Logger
	announcer speech.Announcer

	countdownFrom int
	maxSeconds    int
	interval      time.Duration

	state     State
	countdown int
	elapsed   int
	result    *int
	stop      chan struct{}

	// onTick receives every visible counter update. Optional.
	onTick func(state State, n int)
}

// NewTimer creates an idle timer for one test variant. maxSeconds is the
// variant's cap (e.g. 60 eyes-open, 30 eyes-closed); reaching it finishes
// the run automatically.
func NewTimer(countdownFrom, maxSeconds int, announcer speech.Announcer, log *zap.Logger) *Timer {
	return &Timer{
		log:           log,
		announcer:     announcer,
		countdownFrom: countdownFrom,
		maxSeconds:    maxSeconds,
		interval:      time.Second,
		state:         StateIdle,
	}
}

// OnTick registers the visible-counter callback. Must be set before Start.
func (t *Timer) OnTick(fn func(state State, n int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onTick = fn
}

// Start begins the descending countdown. Only valid from idle.
func (t *Timer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateIdle {
		return ErrNotIdle
	}

	t.state = StateCountdown
	t.countdown = t.countdownFrom
	t.elapsed = 0
	t.result = nil
	t.announceLocked("get ready", t.state, t.countdown)

	stop := make(chan struct{})
	t.stop = stop
	go t.loop(stop)
	return nil
}

func (t *Timer) loop(stop chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.tick()
		}
	}
}

// tick advances one logical second. The announcement and the counter
// callback for second n fire on the same tick boundary.
func (t *Timer) tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case StateCountdown:
		t.countdown--
		if t.countdown > 0 {
			t.announceLocked(strconv.Itoa(t.countdown), t.state, t.countdown)
			return
		}
		t.state = StateRunning
		t.announceLocked("begin", t.state, 0)

	case StateRunning:
		t.elapsed++
		t.announceLocked(strconv.Itoa(t.elapsed), t.state, t.elapsed)
		if t.elapsed >= t.maxSeconds {
			// Variant cap reached; finish without user input.
			seconds := t.elapsed
			t.result = &seconds
			t.state = StateFinished
			t.stopLocked()
		}
	}
}

// Stop is the user-triggered early stop. The elapsed count at this moment
// becomes the candidate result.
func (t *Timer) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateRunning {
		return ErrNotRunning
	}

	seconds := t.elapsed
	t.result = &seconds
	t.state = StateFinished
	t.stopLocked()
	t.announcer.Cancel()
	return nil
}

// Reset discards the candidate result and returns to idle so the whole
// sequence can restart.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

// Cancel tears the timer down on test-index change or session close.
// A cancelled timer never reports a result.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

func (t *Timer) cancelLocked() {
	t.stopLocked()
	t.announcer.Cancel()
	t.state = StateIdle
	t.countdown = 0
	t.elapsed = 0
	t.result = nil
}

// stopLocked suppresses all future ticks. Cancellation is cooperative:
// a tick already past the select is serialized behind the mutex.
func (t *Timer) stopLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *Timer) announceLocked(text string, state State, n int) {
	t.announcer.Say(text)
	if t.onTick != nil {
		t.onTick(state, n)
	}
}

// State returns the current lifecycle phase.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Elapsed returns the ascending counter's current value.
func (t *Timer) Elapsed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

// Result returns the captured whole-second result, if any.
func (t *Timer) Result() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.result == nil {
		return 0, false
	}
	return *t.result, true
}

// Override replaces the auto-captured result with a manually entered
// whole-second value. Only valid after the timer finished.
func (t *Timer) Override(seconds int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateFinished {
		return ErrNotFinished
	}
	if seconds < 0 {
		return errors.New("seconds must not be negative")
	}
	t.result = &seconds
	return nil
}
