package handlers

import (
	"errors"
	"net/http"

	"socialfeed/internal/services"
	"socialfeed/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PostHandler handles post creation and the interaction write paths
type PostHandler struct {
	posts        *services.PostService
	interactions *services.InteractionService
}

// NewPostHandler creates a new post handler
func NewPostHandler(posts *services.PostService, interactions *services.InteractionService) *PostHandler {
	return &PostHandler{posts: posts, interactions: interactions}
}

type createPostRequest struct {
	Content   string     `json:"content"`
	MediaURLs []string   `json:"media_urls"`
	MediaType string     `json:"media_type"`
	Tags      []string   `json:"tags"`
	ReplyTo   *uuid.UUID `json:"reply_to"`
}

// toggleRequest carries the state the client currently shows. The new state
// is its negation, so repeated taps converge instead of flipping twice.
type toggleRequest struct {
	CurrentlyLiked     bool `json:"currently_liked"`
	CurrentlyReposted  bool `json:"currently_reposted"`
	CurrentlyFollowing bool `json:"currently_following"`
}

// CreatePost handles POST /api/posts
func (h *PostHandler) CreatePost(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	post, err := h.posts.CreatePost(c.Request.Context(), userID, services.CreatePostInput{
		Content:   req.Content,
		MediaURLs: req.MediaURLs,
		MediaType: req.MediaType,
		Tags:      req.Tags,
		ReplyTo:   req.ReplyTo,
	})
	if err != nil {
		writeError(c, "Failed to create post", err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

// GetPost handles GET /api/posts/:id
func (h *PostHandler) GetPost(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	postID, ok := pathID(c)
	if !ok {
		return
	}

	detail, err := h.posts.GetPostDetail(c.Request.Context(), userID, postID)
	if err != nil {
		writeError(c, "Failed to retrieve post", err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// LikePost handles POST /api/posts/:id/like
func (h *PostHandler) LikePost(c *gin.Context) {
	userID, postID, req, ok := h.toggleArgs(c)
	if !ok {
		return
	}
	res, err := h.interactions.RecordLike(c.Request.Context(), userID, postID, req.CurrentlyLiked)
	if err != nil {
		writeError(c, "Failed to update like", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": res.Active, "changed": res.Changed})
}

// RepostPost handles POST /api/posts/:id/repost
func (h *PostHandler) RepostPost(c *gin.Context) {
	userID, postID, req, ok := h.toggleArgs(c)
	if !ok {
		return
	}
	res, err := h.interactions.RecordRepost(c.Request.Context(), userID, postID, req.CurrentlyReposted)
	if err != nil {
		writeError(c, "Failed to update repost", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reposted": res.Active, "changed": res.Changed})
}

// ViewPost handles POST /api/posts/:id/view
func (h *PostHandler) ViewPost(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	postID, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.interactions.RecordView(c.Request.Context(), userID, postID); err != nil {
		writeError(c, "Failed to record view", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// FollowUser handles POST /api/users/:id/follow
func (h *PostHandler) FollowUser(c *gin.Context) {
	userID, targetID, req, ok := h.toggleArgs(c)
	if !ok {
		return
	}
	res, err := h.interactions.RecordFollow(c.Request.Context(), userID, targetID, req.CurrentlyFollowing)
	if err != nil {
		writeError(c, "Failed to update follow", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": res.Active, "changed": res.Changed})
}

func (h *PostHandler) toggleArgs(c *gin.Context) (uuid.UUID, uuid.UUID, toggleRequest, bool) {
	var req toggleRequest
	userID, ok := currentUser(c)
	if !ok {
		return uuid.Nil, uuid.Nil, req, false
	}
	targetID, ok := pathID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, req, false
	}
	// an empty body means the client shows the inactive state
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request body",
				"details": err.Error(),
			})
			return uuid.Nil, uuid.Nil, req, false
		}
	}
	return userID, targetID, req, true
}

// writeError maps service errors to status codes
func writeError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, services.ErrDraftNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInvalidEdge), errors.Is(err, services.ErrInvalidPost), errors.Is(err, services.ErrEmptyQuery):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotPostOwner):
		status = http.StatusForbidden
	}
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
