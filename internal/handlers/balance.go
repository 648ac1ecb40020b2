package handlers

import (
	"errors"
	"net/http"

	"egzersizlab/internal/balance"
	"egzersizlab/internal/session"
	"egzersizlab/internal/speech"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BalanceHandler struct {
	log       *zap.Logger
	manager   *session.Manager
	announcer speech.Announcer
	countdown int
}

func NewBalanceHandler(log *zap.Logger, manager *session.Manager, announcer speech.Announcer, countdown int) *BalanceHandler {
	return &BalanceHandler{
		log:       log,
		manager:   manager,
		announcer: announcer,
		countdown: countdown,
	}
}

func (h *BalanceHandler) timer(c *gin.Context, s *session.Session) (*balance.Timer, bool) {
	t, err := s.Timer(func(maxSeconds int) *balance.Timer {
		return balance.NewTimer(h.countdown, maxSeconds, h.announcer, h.log)
	})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return nil, false
	}
	return t, true
}

// Start kicks off the spoken countdown for the current balance test.
func (h *BalanceHandler) Start(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}
	t, ok := h.timer(c, s)
	if !ok {
		return
	}

	if err := t.Start(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	s.BeginInteraction()
	c.JSON(http.StatusOK, gin.H{"state": t.State()})
}

// Stop is the user's early stop; the elapsed count becomes the candidate
// result.
func (h *BalanceHandler) Stop(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}
	t, ok := h.timer(c, s)
	if !ok {
		return
	}

	if err := t.Stop(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	seconds, _ := t.Result()
	c.JSON(http.StatusOK, gin.H{"state": t.State(), "seconds": seconds})
}

// Show reports the timer's live state for polling clients.
func (h *BalanceHandler) Show(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}
	t, ok := h.timer(c, s)
	if !ok {
		return
	}

	view := gin.H{"state": t.State(), "elapsed": t.Elapsed()}
	if seconds, captured := t.Result(); captured {
		view["seconds"] = seconds
	}
	c.JSON(http.StatusOK, view)
}

// Reset discards the candidate result and restarts the whole sequence.
func (h *BalanceHandler) Reset(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}
	t, ok := h.timer(c, s)
	if !ok {
		return
	}

	t.Reset()
	c.JSON(http.StatusOK, gin.H{"state": t.State()})
}

type balanceResultRequest struct {
	Seconds *int `json:"seconds"`
}

// Result stores the final balance time: the auto-captured value by
// default, or the user's manual whole-second override.
func (h *BalanceHandler) Result(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}
	t, ok := h.timer(c, s)
	if !ok {
		return
	}

	var req balanceResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid balance result payload"})
		return
	}

	var seconds int
	if req.Seconds != nil {
		if err := t.Override(*req.Seconds); err != nil {
			if errors.Is(err, balance.ErrNotFinished) {
				c.JSON(http.StatusPreconditionFailed, gin.H{"error": "balance timer has not finished"})
				return
			}
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		seconds = *req.Seconds
	} else {
		captured, okRes := t.Result()
		if !okRes {
			c.JSON(http.StatusPreconditionFailed, gin.H{"error": "no captured balance time"})
			return
		}
		seconds = captured
	}

	if err := s.RecordBalanceResult(seconds); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, currentOutcomeView(s))
}
