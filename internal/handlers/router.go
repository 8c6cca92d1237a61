package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups everything NewRouter mounts
type Handlers struct {
	Feed        *FeedHandler
	Posts       *PostHandler
	Explore     *ExploreHandler
	Profiles    *ProfileHandler
	Search      *SearchHandler
	ClientState *ClientStateHandler

	// Auth guards every /api route
	Auth gin.HandlerFunc
	// Gatherer backs /metrics; nil omits the route
	Gatherer prometheus.Gatherer
}

// NewRouter builds the gin engine with every route registered
func NewRouter(h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), cors())

	r.GET("/health", h.Feed.HealthCheck)
	if h.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	if h.Auth != nil {
		api.Use(h.Auth)
	}
	{
		api.GET("/feed", h.Feed.GetFeed)
		api.GET("/worker/status", h.Feed.WorkerStatus)

		api.POST("/posts", h.Posts.CreatePost)
		api.GET("/posts/:id", h.Posts.GetPost)
		api.POST("/posts/:id/like", h.Posts.LikePost)
		api.POST("/posts/:id/repost", h.Posts.RepostPost)
		api.POST("/posts/:id/view", h.Posts.ViewPost)
		api.POST("/posts/:id/pin", h.Profiles.TogglePin)
		api.POST("/users/:id/follow", h.Posts.FollowUser)
		api.GET("/users/:id/posts", h.Profiles.Timeline)

		api.GET("/explore/trending", h.Explore.Trending)
		api.GET("/suggestions", h.Explore.Suggestions)
		api.GET("/search", h.Search.Search)

		api.GET("/search-history", h.ClientState.ListSearchHistory)
		api.POST("/search-history", h.ClientState.AddSearch)
		api.DELETE("/search-history", h.ClientState.ClearSearchHistory)

		api.GET("/drafts", h.ClientState.ListDrafts)
		api.POST("/drafts", h.ClientState.SaveDraft)
		api.DELETE("/drafts/:id", h.ClientState.DeleteDraft)
	}

	return r
}

// cors allows browser clients on any origin
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
