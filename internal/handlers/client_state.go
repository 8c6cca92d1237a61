package handlers

import (
	"net/http"

	"socialfeed/internal/services"

	"github.com/gin-gonic/gin"
)

// ClientStateHandler serves per-user search history and drafts
type ClientStateHandler struct {
	history *services.SearchHistory
	drafts  *services.Drafts
}

// NewClientStateHandler creates a new client state handler
func NewClientStateHandler(history *services.SearchHistory, drafts *services.Drafts) *ClientStateHandler {
	return &ClientStateHandler{history: history, drafts: drafts}
}

// ListSearchHistory handles GET /api/search-history
func (h *ClientStateHandler) ListSearchHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	terms, err := h.history.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "Failed to retrieve search history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"searches": terms})
}

// AddSearch handles POST /api/search-history
func (h *ClientStateHandler) AddSearch(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req struct {
		Query string `json:"query" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	terms, err := h.history.Add(c.Request.Context(), userID, req.Query)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to save search",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"searches": terms})
}

// ClearSearchHistory handles DELETE /api/search-history
func (h *ClientStateHandler) ClearSearchHistory(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.history.Clear(c.Request.Context(), userID); err != nil {
		writeError(c, "Failed to clear search history", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListDrafts handles GET /api/drafts
func (h *ClientStateHandler) ListDrafts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	drafts, err := h.drafts.List(c.Request.Context(), userID)
	if err != nil {
		writeError(c, "Failed to retrieve drafts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}

// SaveDraft handles POST /api/drafts
func (h *ClientStateHandler) SaveDraft(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req services.Draft
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}
	draft, err := h.drafts.Save(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, "Failed to save draft", err)
		return
	}
	c.JSON(http.StatusCreated, draft)
}

// DeleteDraft handles DELETE /api/drafts/:id
func (h *ClientStateHandler) DeleteDraft(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.drafts.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, "Failed to delete draft", err)
		return
	}
	c.Status(http.StatusNoContent)
}
