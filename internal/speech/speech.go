package speech

import (
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// Announcer is the text-to-speech output channel. The balance timer is
// its only caller; it announces integers and two fixed phrases.
// Cancel must stop an in-flight utterance, not just ignore it.
type Announcer interface {
	Say(text string)
	Cancel()
}

// New returns a command-backed announcer when a TTS command is
// configured, otherwise a logging fallback.
func New(command string, log *zap.Logger) Announcer {
	if command == "" {
		return &LogAnnouncer{log: log}
	}
	return &CommandAnnouncer{command: command, log: log}
}

// LogAnnouncer writes announcements to the log instead of speaking them.
type LogAnnouncer struct {
	log *zap.Logger
}

func (a *LogAnnouncer) Say(text string) {
	a.log.Debug("Spoken announcement", zap.String("text", text))
}

func (a *LogAnnouncer) Cancel() {}

// CommandAnnouncer shells out to a TTS command (e.g. espeak) with the
// text as its argument. At most one utterance is in flight; starting a
// new one or calling Cancel kills the previous process.
type CommandAnnouncer struct {
	mu      sync.Mutex
	command string
	log     *zap.Logger
	cmd     *exec.Cmd
}

func (a *CommandAnnouncer) Say(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelLocked()

	cmd := exec.Command(a.command, text)
	if err := cmd.Start(); err != nil {
		a.log.Warn("Failed to start speech command", zap.String("command", a.command), zap.Error(err))
		return
	}
	a.cmd = cmd

	// Reap the process so a finished utterance does not linger as a zombie.
	go func() { _ = cmd.Wait() }()
}

func (a *CommandAnnouncer) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelLocked()
}

func (a *CommandAnnouncer) cancelLocked() {
	if a.cmd != nil && a.cmd.Process != nil {
		_ = a.cmd.Process.Kill()
	}
	a.cmd = nil
}
