package services

import (
	"context"

	"socialfeed/internal/feeds"
	"socialfeed/internal/models"
	"socialfeed/internal/ranking"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PostView is a post with its engagement as seen by one viewer
type PostView struct {
	models.Post
	Metrics ranking.EngagementMetrics `json:"metrics"`
}

// withMetrics attaches engagement to posts in order. Failed batches keep
// zero metrics and partial is true.
func withMetrics(ctx context.Context, agg *feeds.Aggregator, log *zap.SugaredLogger, viewerID uuid.UUID, posts []models.Post) (views []PostView, partial bool) {
	ids := make([]uuid.UUID, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	engagement, err := agg.Aggregate(ctx, viewerID, ids)
	if err != nil {
		log.Warnw("post views with partial metrics", "posts", len(posts), "error", err)
		partial = true
	}

	views = make([]PostView, len(posts))
	for i, p := range posts {
		m := engagement[p.ID]
		m.ViewCount = p.ViewCount
		views[i] = PostView{Post: p, Metrics: m}
	}
	return views, partial
}
