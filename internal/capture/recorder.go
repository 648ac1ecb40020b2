package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecState is the recorder's interaction phase within one test.
type RecState string

const (
	RecIdle      RecState = "idle"
	RecRecording RecState = "recording"
	RecReview    RecState = "review"
)

var (
	ErrAlreadyRecording  = errors.New("recording already in progress")
	ErrDeviceNotAcquired = errors.New("camera device not acquired")
	ErrNotVideo          = errors.New("uploaded file is not a video")
)

// Artifact references one stored recording, live or uploaded.
type Artifact struct {
	ID              string    `json:"id"`
	Object          string    `json:"-"`
	URL             string    `json:"url"`
	ContentType     string    `json:"contentType"`
	DurationSeconds float64   `json:"durationSeconds,omitempty"`
	Uploaded        bool      `json:"uploaded"`
	RecordedAt      time.Time `json:"recordedAt"`
}

// Recorder drives the video-capture interaction for a single test. It
// owns the device stream while recording and normalizes both the live
// and the upload path into the same artifact shape. Finalization failure
// after a clean stop keeps the outcome with a nil artifact instead of
// discarding the user's recording effort.
type Recorder struct {
	mu       sync.Mutex
	log      *zap.Logger
	device   Device
	store    ArtifactStore
	probe    Prober
	tempDir  string
	interval time.Duration

	state       RecState
	stream      io.ReadCloser
	tempPath    string
	copyDone    chan error
	elapsed     int
	stopTick    chan struct{}
	onElapsed   func(seconds int)
	artifact    *Artifact
	finalizeErr error
}

func NewRecorder(device Device, store ArtifactStore, probe Prober, tempDir string, log *zap.Logger) *Recorder {
	if probe == nil {
		probe = ProbeVideo
	}
	return &Recorder{
		log:      log,
		device:   device,
		store:    store,
		probe:    probe,
		tempDir:  tempDir,
		interval: time.Second,
		state:    RecIdle,
	}
}

// OnElapsed registers the visible elapsed-seconds callback.
func (r *Recorder) OnElapsed(fn func(seconds int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onElapsed = fn
}

// Acquire requests exclusive camera access. On denial or hardware
// absence the error wraps ErrCameraUnavailable and the recorder stays
// idle so the caller can offer the upload path instead.
func (r *Recorder) Acquire(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		return nil
	}
	stream, err := r.device.Acquire(ctx)
	if err != nil {
		return err
	}
	r.stream = stream
	return nil
}

// StartRecording begins buffering frames and the one-second elapsed
// counter. Calling it while already recording is rejected.
func (r *Recorder) StartRecording() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startRecordingLocked()
}

func (r *Recorder) startRecordingLocked() error {
	if r.state == RecRecording {
		return ErrAlreadyRecording
	}
	if r.stream == nil {
		return ErrDeviceNotAcquired
	}

	tmp, err := os.CreateTemp(r.tempDir, "recording-*.webm")
	if err != nil {
		return fmt.Errorf("could not create recording buffer: %w", err)
	}
	r.tempPath = tmp.Name()
	r.artifact = nil
	r.finalizeErr = nil
	r.elapsed = 0

	done := make(chan error, 1)
	r.copyDone = done
	stream := r.stream
	go func() {
		_, copyErr := io.Copy(tmp, stream)
		tmp.Close()
		done <- copyErr
	}()

	stopTick := make(chan struct{})
	r.stopTick = stopTick
	go r.tickLoop(stopTick)

	r.state = RecRecording
	return nil
}

func (r *Recorder) tickLoop(stop chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			if r.state == RecRecording {
				r.elapsed++
				if r.onElapsed != nil {
					r.onElapsed(r.elapsed)
				}
			}
			r.mu.Unlock()
		}
	}
}

// StopRecording finalizes the buffered frames into one artifact and
// releases the device. Safe to call when recording already stopped.
func (r *Recorder) StopRecording(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RecRecording {
		return nil
	}

	r.stopTicksLocked()
	r.releaseStreamLocked()

	if copyErr := <-r.copyDone; copyErr != nil {
		// Expected when closing the stream interrupts a blocked read.
		r.log.Debug("Recording stream closed", zap.Error(copyErr))
	}
	r.copyDone = nil

	r.finalizeLocked(ctx)
	r.state = RecReview
	return nil
}

// finalizeLocked probes and uploads the buffered recording. Any failure
// here is absorbed: the artifact reference goes nil and the error marker
// is kept for the outcome, so the test still counts as completed.
func (r *Recorder) finalizeLocked(ctx context.Context) {
	defer func() {
		os.Remove(r.tempPath)
		r.tempPath = ""
	}()

	duration, err := r.probe(r.tempPath)
	if err != nil {
		r.log.Warn("Recording finalization failed", zap.Error(err))
		r.artifact = nil
		r.finalizeErr = err
		return
	}

	f, err := os.Open(r.tempPath)
	if err != nil {
		r.log.Warn("Recording buffer unreadable", zap.Error(err))
		r.artifact = nil
		r.finalizeErr = err
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		r.artifact = nil
		r.finalizeErr = err
		return
	}

	id := uuid.NewString()
	url, err := r.store.Upload(ctx, id+".webm", f, info.Size(), "video/webm")
	if err != nil {
		r.log.Warn("Recording upload failed", zap.Error(err))
		r.artifact = nil
		r.finalizeErr = err
		return
	}

	r.artifact = &Artifact{
		ID:              id,
		Object:          id + ".webm",
		URL:             url,
		ContentType:     "video/webm",
		DurationSeconds: duration,
		RecordedAt:      time.Now().UTC(),
	}
	r.finalizeErr = nil
}

// Retry discards the current artifact and re-enters recording.
func (r *Recorder) Retry(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == RecRecording {
		return ErrAlreadyRecording
	}
	r.dropArtifactLocked(ctx)

	if r.stream == nil {
		stream, err := r.device.Acquire(ctx)
		if err != nil {
			return err
		}
		r.stream = stream
	}
	return r.startRecordingLocked()
}

// Discard removes the artifact and returns the test to its instructions
// step.
func (r *Recorder) Discard(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopTicksLocked()
	r.releaseStreamLocked()
	r.drainCopyLocked()
	r.dropArtifactLocked(ctx)
	r.removeTempLocked()
	r.finalizeErr = nil
	r.elapsed = 0
	r.state = RecIdle
}

// AcceptUpload validates a pre-recorded file and wraps it directly as an
// artifact, bypassing recording. The caller lands on the review step.
func (r *Recorder) AcceptUpload(ctx context.Context, filename, contentType string, reader io.Reader, size int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !strings.HasPrefix(contentType, "video/") {
		return fmt.Errorf("%w: %s", ErrNotVideo, contentType)
	}
	if r.state == RecRecording {
		return ErrAlreadyRecording
	}

	r.releaseStreamLocked()
	r.dropArtifactLocked(ctx)

	id := uuid.NewString()
	name := id + filepath.Ext(filename)
	url, err := r.store.Upload(ctx, name, reader, size, contentType)
	if err != nil {
		return fmt.Errorf("could not store uploaded video: %w", err)
	}

	r.artifact = &Artifact{
		ID:          id,
		Object:      name,
		URL:         url,
		ContentType: contentType,
		Uploaded:    true,
		RecordedAt:  time.Now().UTC(),
	}
	r.finalizeErr = nil
	r.state = RecReview
	return nil
}

// Close releases every held resource: elapsed ticker, device stream and
// recording buffer. Called whenever the user leaves the recording step,
// the test index changes or the session is torn down.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopTicksLocked()
	r.releaseStreamLocked()
	r.drainCopyLocked()
	r.removeTempLocked()
	if r.state == RecRecording {
		r.state = RecIdle
	}
}

func (r *Recorder) stopTicksLocked() {
	if r.stopTick != nil {
		close(r.stopTick)
		r.stopTick = nil
	}
}

func (r *Recorder) releaseStreamLocked() {
	if r.stream != nil {
		r.stream.Close()
		r.stream = nil
	}
}

func (r *Recorder) drainCopyLocked() {
	if r.copyDone != nil {
		<-r.copyDone
		r.copyDone = nil
	}
}

func (r *Recorder) removeTempLocked() {
	if r.tempPath != "" {
		os.Remove(r.tempPath)
		r.tempPath = ""
	}
}

func (r *Recorder) dropArtifactLocked(ctx context.Context) {
	if r.artifact != nil && r.artifact.Object != "" {
		if err := r.store.Delete(ctx, r.artifact.Object); err != nil {
			r.log.Warn("Could not delete stored artifact", zap.String("id", r.artifact.ID), zap.Error(err))
		}
	}
	r.artifact = nil
}

// State returns the current interaction phase.
func (r *Recorder) State() RecState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Elapsed returns the recording counter's current value in seconds.
func (r *Recorder) Elapsed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsed
}

// Artifact returns the finalized artifact and the finalization error,
// if any. A nil artifact with a non-nil error means the recording
// completed but could not be encoded or stored.
func (r *Recorder) Artifact() (*Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.artifact, r.finalizeErr
}
