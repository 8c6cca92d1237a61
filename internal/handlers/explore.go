package handlers

import (
	"errors"
	"net/http"

	"socialfeed/internal/kvstore"
	"socialfeed/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ExploreHandler serves trending data and follow suggestions
type ExploreHandler struct {
	trending    *services.TrendingService
	suggestions *services.SuggestionService
	cache       kvstore.KV
	log         *zap.SugaredLogger
}

// NewExploreHandler creates a new explore handler. cache holds the hashtags
// precomputed by the trending worker.
func NewExploreHandler(trending *services.TrendingService, suggestions *services.SuggestionService, cache kvstore.KV, log *zap.SugaredLogger) *ExploreHandler {
	return &ExploreHandler{
		trending:    trending,
		suggestions: suggestions,
		cache:       cache,
		log:         log,
	}
}

// Trending handles GET /api/explore/trending
func (h *ExploreHandler) Trending(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	window, err := services.ParseWindow(c.Query("window"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid time window",
			"details": err.Error(),
		})
		return
	}
	limit := parseLimit(c, 10)
	ctx := c.Request.Context()

	hashtags, err := h.hashtags(c, window, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve trending hashtags",
			"details": err.Error(),
		})
		return
	}

	posts, err := h.trending.TrendingPosts(ctx, userID, window, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve trending posts",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"window":   window,
		"hashtags": hashtags,
		"posts":    posts,
	})
}

// hashtags prefers the worker's cache and computes on a miss
func (h *ExploreHandler) hashtags(c *gin.Context, window services.Window, limit int) ([]services.HashtagTrend, error) {
	ctx := c.Request.Context()
	var cached []services.HashtagTrend
	err := kvstore.GetJSON(ctx, h.cache, services.TrendingCacheKey(window), &cached)
	switch {
	case err == nil:
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	case !errors.Is(err, kvstore.ErrNotFound):
		h.log.Warnw("trending cache read failed", "window", window, "error", err)
	}
	return h.trending.TrendingHashtags(ctx, window, limit)
}

// Suggestions handles GET /api/suggestions
func (h *ExploreHandler) Suggestions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	suggestions, err := h.suggestions.Suggest(c.Request.Context(), userID, parseLimit(c, 5))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve suggestions",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}
