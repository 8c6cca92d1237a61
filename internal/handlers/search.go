package handlers

import (
	"net/http"

	"socialfeed/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SearchHandler serves text search over profiles and posts
type SearchHandler struct {
	search  *services.SearchService
	history *services.SearchHistory
	log     *zap.SugaredLogger
}

// NewSearchHandler creates a new search handler. Every query is also
// recorded in the caller's search history.
func NewSearchHandler(search *services.SearchService, history *services.SearchHistory, log *zap.SugaredLogger) *SearchHandler {
	return &SearchHandler{search: search, history: history, log: log}
}

// Search handles GET /api/search?q=
func (h *SearchHandler) Search(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	res, err := h.search.Search(ctx, userID, c.Query("q"), parseLimit(c, 20))
	if err != nil {
		writeError(c, "Failed to search", err)
		return
	}
	if _, err := h.history.Add(ctx, userID, res.Query); err != nil {
		h.log.Warnw("search not added to history", "user_id", userID, "error", err)
	}
	c.JSON(http.StatusOK, res)
}
