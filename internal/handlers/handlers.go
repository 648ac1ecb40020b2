package handlers

import (
	"net/http"

	"egzersizlab/internal/session"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// currentUserID reads the logged-in user's id from the cookie session.
func currentUserID(c *gin.Context) (int, bool) {
	sess := sessions.Default(c)
	id, ok := sess.Get("userID").(int)
	return id, ok
}

// findSession resolves the :id route parameter to a registered test
// session owned by the logged-in user, refreshing its idle timestamp.
// Writes the error response itself when the lookup fails.
func findSession(c *gin.Context, m *session.Manager) (*session.Session, bool) {
	userID, ok := currentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
		return nil, false
	}

	s, ok := m.Get(c.Param("id"))
	if !ok || s.UserID != userID {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}

	s.Touch()
	return s, true
}
