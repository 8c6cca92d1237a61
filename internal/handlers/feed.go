package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"socialfeed/internal/auth"
	"socialfeed/internal/feeds"
	"socialfeed/internal/ranking"
	"socialfeed/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FeedHandler handles HTTP requests for feeds
type FeedHandler struct {
	feedService   *feeds.FeedService
	workerService *worker.WorkerService
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(feedService *feeds.FeedService, workerService *worker.WorkerService) *FeedHandler {
	return &FeedHandler{
		feedService:   feedService,
		workerService: workerService,
	}
}

// GetFeed handles GET /api/feed
func (h *FeedHandler) GetFeed(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	// an empty mode lets the service apply the viewer's preference
	mode, err := ranking.ParseMode(c.Query("mode"), "")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid feed mode",
			"details": err.Error(),
		})
		return
	}

	feedResponse, err := h.feedService.GetFeed(c.Request.Context(), userID, mode, parseLimit(c, feeds.DefaultLimit))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, feeds.ErrFetchFailure) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"error":   "Failed to retrieve feed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, feedResponse)
}

// HealthCheck handles GET /health
func (h *FeedHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "socialfeed",
	})
}

// WorkerStatus handles GET /api/worker/status
func (h *FeedHandler) WorkerStatus(c *gin.Context) {
	status := h.workerService.GetStatus()
	c.JSON(http.StatusOK, gin.H{
		"worker_status": status,
	})
}

// currentUser reads the id stored by the auth middleware. It writes the
// error response itself when the id is missing or malformed.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userIDStr := c.GetString(auth.ContextUserID)
	if userIDStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User authentication required",
		})
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid user ID format",
		})
		return uuid.Nil, false
	}
	return userID, true
}

// pathID parses the :id route parameter
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid ID format",
		})
		return uuid.Nil, false
	}
	return id, true
}

// parseLimit reads ?limit, clamped to [1,100]
func parseLimit(c *gin.Context, def int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit < 1 {
		limit = def
	}
	if limit > 100 {
		limit = 100
	}
	return limit
}
