package handlers

import (
	"net/http"

	"socialfeed/internal/services"

	"github.com/gin-gonic/gin"
)

// ProfileHandler serves a user's timeline and pinning
type ProfileHandler struct {
	profiles *services.ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Timeline handles GET /api/users/:id/posts
func (h *ProfileHandler) Timeline(c *gin.Context) {
	viewerID, ok := currentUser(c)
	if !ok {
		return
	}
	userID, ok := pathID(c)
	if !ok {
		return
	}

	posts, err := h.profiles.Timeline(c.Request.Context(), viewerID, userID, parseLimit(c, 20))
	if err != nil {
		writeError(c, "Failed to retrieve posts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// TogglePin handles POST /api/posts/:id/pin
func (h *ProfileHandler) TogglePin(c *gin.Context) {
	viewerID, ok := currentUser(c)
	if !ok {
		return
	}
	postID, ok := pathID(c)
	if !ok {
		return
	}

	pinned, err := h.profiles.TogglePin(c.Request.Context(), viewerID, postID)
	if err != nil {
		writeError(c, "Failed to pin post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post_id": postID, "is_pinned": pinned})
}
