package handlers

import (
	"errors"
	"net/http"

	"egzersizlab/internal/capture"
	"egzersizlab/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CaptureHandler struct {
	log     *zap.Logger
	manager *session.Manager
	device  capture.Device
	store   capture.ArtifactStore
	tempDir string
}

func NewCaptureHandler(log *zap.Logger, manager *session.Manager, device capture.Device, store capture.ArtifactStore, tempDir string) *CaptureHandler {
	return &CaptureHandler{
		log:     log,
		manager: manager,
		device:  device,
		store:   store,
		tempDir: tempDir,
	}
}

func (h *CaptureHandler) recorder(c *gin.Context, s *session.Session) (*capture.Recorder, bool) {
	rec, err := s.Recorder(func() *capture.Recorder {
		return capture.NewRecorder(h.device, h.store, nil, h.tempDir, h.log)
	})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return nil, false
	}
	return rec, true
}

// Acquire requests exclusive camera access for the current test. Denial
// is recoverable: the session stays on the instructions step and the
// response points the client at the upload path.
func (h *CaptureHandler) Acquire(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}
	rec, ok := h.recorder(c, s)
	if !ok {
		return
	}

	if err := rec.Acquire(c.Request.Context()); err != nil {
		if errors.Is(err, capture.ErrCameraUnavailable) {
			h.log.Warn("Camera unavailable", zap.String("sessionID", s.ID), zap.Error(err))
			c.JSON(http.StatusConflict, gin.H{
				"error":    "camera unavailable",
				"fallback": "upload",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"camera": "acquired"})
}

// Start begins recording and the visible elapsed counter.
func (h *CaptureHandler) Start(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}
	rec, ok := h.recorder(c, s)
	if !ok {
		return
	}

	if err := rec.StartRecording(); err != nil {
		status := http.StatusConflict
		if errors.Is(err, capture.ErrDeviceNotAcquired) {
			status = http.StatusPreconditionFailed
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	s.BeginInteraction()
	c.JSON(http.StatusOK, gin.H{"recording": true})
}

// Stop finalizes the recording into an artifact and records the outcome.
// A finalization failure still records the test, completed-with-error.
func (h *CaptureHandler) Stop(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}
	rec, ok := h.recorder(c, s)
	if !ok {
		return
	}

	if err := rec.StopRecording(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	artifact, finalizeErr := rec.Artifact()
	if artifact == nil && finalizeErr == nil {
		// Stop on an idle recorder with nothing captured: nothing to record.
		c.JSON(http.StatusOK, gin.H{"recording": false})
		return
	}

	if err := s.RecordVideo(artifact, finalizeErr); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, currentOutcomeView(s))
}

// Retry discards the current artifact and starts a fresh recording.
func (h *CaptureHandler) Retry(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}
	rec, ok := h.recorder(c, s)
	if !ok {
		return
	}

	if err := rec.Retry(c.Request.Context()); err != nil {
		if errors.Is(err, capture.ErrCameraUnavailable) {
			c.JSON(http.StatusConflict, gin.H{"error": "camera unavailable", "fallback": "upload"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	s.ClearOutcome()
	c.JSON(http.StatusOK, gin.H{"recording": true})
}

// Discard drops the artifact and returns the test to its instructions.
func (h *CaptureHandler) Discard(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}
	rec, ok := h.recorder(c, s)
	if !ok {
		return
	}

	rec.Discard(c.Request.Context())
	s.ClearOutcome()
	if err := s.ReturnToInstructions(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionView(s))
}

// Upload accepts a pre-recorded video file instead of a live recording
// and moves the test straight to review.
func (h *CaptureHandler) Upload(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}
	rec, ok := h.recorder(c, s)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	err = rec.AcceptUpload(c.Request.Context(), fileHeader.Filename, contentType, file, fileHeader.Size)
	if err != nil {
		if errors.Is(err, capture.ErrNotVideo) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "uploaded file must be a video"})
			return
		}
		h.log.Error("Upload failed", zap.String("sessionID", s.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store uploaded video"})
		return
	}

	artifact, _ := rec.Artifact()
	if err := s.RecordVideo(artifact, nil); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, currentOutcomeView(s))
}
