package handlers

import (
	"errors"
	"net/http"

	"egzersizlab/internal/repository"
	"egzersizlab/internal/results"
	"egzersizlab/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ResultsHandler struct {
	log     *zap.Logger
	manager *session.Manager
}

func NewResultsHandler(log *zap.Logger, manager *session.Manager) *ResultsHandler {
	return &ResultsHandler{log: log, manager: manager}
}

// Submit builds the submission payload and hands it to persistence in
// one write. A session failing the minimum-completion gate is routed
// back to the first test's instructions. A persistence failure leaves
// the session intact so the user can retry without redoing tests.
func (h *ResultsHandler) Submit(c *gin.Context) {
	s, ok := findSession(c, h.manager)
	if !ok {
		return
	}

	if !s.Completed() {
		c.JSON(http.StatusConflict, gin.H{"error": "session is not completed"})
		return
	}

	sub, err := results.Build(s)
	if err != nil {
		if errors.Is(err, session.ErrNoCompletedTests) {
			s.RestartFromBeginning()
			c.JSON(http.StatusConflict, gin.H{
				"error":    "complete at least one test before submitting",
				"redirect": "instructions",
				"index":    0,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := repository.SaveSubmission(c.Request.Context(), sub); err != nil {
		h.log.Error("Failed to persist submission",
			zap.String("sessionID", s.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "could not save results, your session is intact - try again",
		})
		return
	}

	h.manager.Close(s.ID)
	c.JSON(http.StatusCreated, gin.H{
		"records":  len(sub.Records),
		"category": sub.CategoryID,
	})
}

// Summary renders the clinician-facing tier chart for the logged-in
// user's submitted results.
func (h *ResultsHandler) Summary(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return
	}

	records, err := repository.GetRecordsForUser(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("Failed to load submission records", zap.Int("userID", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load results"})
		return
	}

	chart := results.TierSummaryChart(records)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := chart.Render(c.Writer); err != nil {
		h.log.Error("Failed to render summary chart", zap.Error(err))
	}
}
