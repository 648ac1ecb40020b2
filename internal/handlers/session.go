package handlers

import (
	"errors"
	"net/http"

	"egzersizlab/internal/catalog"
	"egzersizlab/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SessionHandler struct {
	log     *zap.Logger
	manager *session.Manager
}

func NewSessionHandler(log *zap.Logger, manager *session.Manager) *SessionHandler {
	return &SessionHandler{log: log, manager: manager}
}

type createSessionRequest struct {
	Category string   `json:"category" binding:"required"`
	Regions  []string `json:"regions"`
}

// Create starts a new test session: the reported pain regions are
// filtered against the catalog exactly once, here.
func (h *SessionHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category is required"})
		return
	}

	s, err := h.manager.Create(userID, req.Category, req.Regions)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, sessionView(s))
}

// Show returns the session's current state.
func (h *SessionHandler) Show(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionView(s))
}

// Close discards the session without submitting.
func (h *SessionHandler) Close(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}
	h.manager.Close(s.ID)
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

// Begin moves the current test into its interaction step.
func (h *SessionHandler) Begin(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}
	if err := s.BeginInteraction(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionView(s))
}

// Instructions returns the current test to its instructions step,
// releasing any camera or timer the interaction held.
func (h *SessionHandler) Instructions(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}
	if err := s.ReturnToInstructions(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionView(s))
}

// Skip marks the current test skipped and advances.
func (h *SessionHandler) Skip(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}
	if err := s.Skip(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sessionView(s))
}

// Advance moves to the next test when the current one has an outcome.
// Without one the call is deliberately inert: no error, no transition.
func (h *SessionHandler) Advance(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}
	advanced, err := s.Advance()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	view := sessionView(s)
	view["advanced"] = advanced
	c.JSON(http.StatusOK, view)
}

// Complete finishes the whole session regardless of remaining tests.
func (h *SessionHandler) Complete(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}
	s.GoToCompleted()
	c.JSON(http.StatusOK, sessionView(s))
}

type measurementRequest struct {
	Left  *float64 `json:"left"`
	Right *float64 `json:"right"`
}

// Measurement records and classifies a numeric entry per side.
func (h *SessionHandler) Measurement(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}

	var req measurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid measurement payload"})
		return
	}

	if err := s.RecordMeasurement(req.Left, req.Right); err != nil {
		status := http.StatusConflict
		if errors.Is(err, session.ErrNoMeasurement) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, currentOutcomeView(s))
}

type responseRequest struct {
	Option string `json:"option" binding:"required"`
}

// Response records a response-selection choice.
func (h *SessionHandler) Response(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}

	var req responseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "option is required"})
		return
	}

	if err := s.RecordResponse(req.Option); err != nil {
		status := http.StatusConflict
		if errors.Is(err, session.ErrUnknownOption) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, currentOutcomeView(s))
}

func sessionView(s *session.Session) gin.H {
	tests := s.Tests()
	testViews := make([]gin.H, 0, len(tests))
	for _, t := range tests {
		testViews = append(testViews, testView(&t))
	}

	view := gin.H{
		"id":             s.ID,
		"category":       s.CategoryID,
		"index":          s.Index(),
		"step":           s.Step(),
		"completed":      s.Completed(),
		"completedCount": s.CompletedCount(),
		"skippedCount":   s.SkippedCount(),
		"tests":          testViews,
	}

	if t, err := s.Current(); err == nil {
		view["currentTest"] = t.ID
		if o, ok := s.Outcome(t.ID); ok {
			view["outcome"] = o
		}
	}
	return view
}

func testView(t *catalog.Test) gin.H {
	view := gin.H{
		"id":           t.ID,
		"name":         t.Name,
		"description":  t.Description,
		"duration":     t.Duration,
		"modality":     t.Modality,
		"instructions": t.Instructions,
	}
	switch t.Modality {
	case catalog.ModalityMeasurement:
		view["measurement"] = t.Measurement
	case catalog.ModalityResponseSelection:
		view["response"] = t.Response
	case catalog.ModalityTimedBalance:
		view["balance"] = t.Balance
	case catalog.ModalityVideoCapture:
		if t.Capture != nil {
			view["capture"] = t.Capture
		}
	}
	return view
}

func currentOutcomeView(s *session.Session) gin.H {
	view := gin.H{"step": s.Step()}
	if t, err := s.Current(); err == nil {
		if o, ok := s.Outcome(t.ID); ok {
			view["outcome"] = o
		}
	}
	return view
}
