package handlers

import (
	"net/http"

	"egzersizlab/internal/catalog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	log *zap.Logger
	cat *catalog.Catalog
}

func NewCatalogHandler(log *zap.Logger, cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{log: log, cat: cat}
}

// Categories lists the test categories a user can start a session from.
func (h *CatalogHandler) Categories(c *gin.Context) {
	views := make([]gin.H, 0, len(h.cat.Categories))
	for _, cat := range h.cat.Categories {
		views = append(views, gin.H{
			"id":    cat.ID,
			"title": cat.Title,
			"tests": len(cat.Tests),
		})
	}
	c.JSON(http.StatusOK, gin.H{"categories": views})
}

// Tests lists every test in a category, unfiltered. Region filtering
// only happens when a session is created.
func (h *CatalogHandler) Tests(c *gin.Context) {
	cat, ok := h.cat.Category(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown category"})
		return
	}

	views := make([]gin.H, 0, len(cat.Tests))
	for i := range cat.Tests {
		views = append(views, testView(&cat.Tests[i]))
	}
	c.JSON(http.StatusOK, gin.H{"category": cat.ID, "tests": views})
}
