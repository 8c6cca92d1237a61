package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"socialfeed/internal/feeds"
	"socialfeed/internal/models"
	"socialfeed/internal/ranking"
	"socialfeed/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Window is an explore time filter
type Window string

const (
	WindowHour  Window = "hour"
	WindowToday Window = "today"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
)

// Windows lists every supported window
var Windows = []Window{WindowHour, WindowToday, WindowWeek, WindowMonth}

// ParseWindow validates a window name; empty selects today
func ParseWindow(s string) (Window, error) {
	if s == "" {
		return WindowToday, nil
	}
	for _, w := range Windows {
		if string(w) == s {
			return w, nil
		}
	}
	return "", fmt.Errorf("unknown time window %q", s)
}

// Bounds returns the start of the window ending at now and the start of the
// equally long window before it
func (w Window) Bounds(now time.Time) (start, previous time.Time) {
	switch w {
	case WindowHour:
		start = now.Add(-time.Hour)
	case WindowWeek:
		start = now.Add(-7 * 24 * time.Hour)
	case WindowMonth:
		start = now.Add(-30 * 24 * time.Hour)
	default:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return start, start.Add(-24 * time.Hour)
	}
	return start, start.Add(-now.Sub(start))
}

const (
	// defaultScanLimit caps the posts read per window for one hashtag count
	defaultScanLimit = 5000
	// trendingPostPool is the number of recent posts ranked for trending posts
	trendingPostPool = 50
)

// HashtagTrend is one row of the trending hashtags list
type HashtagTrend struct {
	Tag           string  `json:"tag"`
	Count         int     `json:"count"`
	PreviousCount int     `json:"previous_count"`
	GrowthRate    float64 `json:"growth_rate"`
	Trending      bool    `json:"trending"`
}

// TrendingService computes explore data
type TrendingService struct {
	store      store.Store
	aggregator *feeds.Aggregator
	log        *zap.SugaredLogger
	now        func() time.Time
	scanLimit  int
}

// NewTrendingService creates a new TrendingService
func NewTrendingService(s store.Store, log *zap.SugaredLogger) *TrendingService {
	return &TrendingService{
		store:      s,
		aggregator: feeds.NewAggregator(s, 0, 0, 0, log),
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
		scanLimit:  defaultScanLimit,
	}
}

// TrendingHashtags counts posts per hashtag in the window, most used first.
// GrowthRate is the percent change against the previous window.
func (ts *TrendingService) TrendingHashtags(ctx context.Context, window Window, limit int) ([]HashtagTrend, error) {
	start, previous := window.Bounds(ts.now())
	current, err := ts.countTags(ctx, window, store.PostFilter{Since: &start})
	if err != nil {
		return nil, fmt.Errorf("trending hashtags: %w", err)
	}
	before, err := ts.countTags(ctx, window, store.PostFilter{Since: &previous, Until: &start})
	if err != nil {
		return nil, fmt.Errorf("trending hashtags: previous window: %w", err)
	}

	trends := make([]HashtagTrend, 0, len(current))
	for tag, n := range current {
		prev := before[tag]
		growth := 100.0
		if prev > 0 {
			growth = math.Round(float64(n-prev) / float64(prev) * 100)
		}
		trends = append(trends, HashtagTrend{
			Tag:           tag,
			Count:         n,
			PreviousCount: prev,
			GrowthRate:    growth,
			Trending:      n > prev,
		})
	}
	sort.Slice(trends, func(i, j int) bool {
		if trends[i].Count != trends[j].Count {
			return trends[i].Count > trends[j].Count
		}
		return trends[i].Tag < trends[j].Tag
	})
	if limit > 0 && len(trends) > limit {
		trends = trends[:limit]
	}
	return trends, nil
}

// countTags counts hashtags over at most scanLimit posts matching filter.
// The current and previous windows are read separately.
func (ts *TrendingService) countTags(ctx context.Context, window Window, filter store.PostFilter) (map[string]int, error) {
	posts, err := ts.store.FetchPosts(ctx, filter, ts.scanLimit)
	if err != nil {
		return nil, err
	}
	if len(posts) == ts.scanLimit {
		ts.log.Warnw("hashtag scan hit its limit, counts are truncated",
			"window", window, "since", *filter.Since, "limit", ts.scanLimit)
	}

	counts := make(map[string]int)
	for i := range posts {
		p := &posts[i]
		if p.IsRepost() {
			continue
		}
		for _, tag := range topicsOf(p) {
			counts[tag]++
		}
	}
	return counts, nil
}

// TrendingPosts ranks the window's recent top-level posts by engagement for
// the viewer
func (ts *TrendingService) TrendingPosts(ctx context.Context, viewerID uuid.UUID, window Window, limit int) ([]ranking.ScoredPost, error) {
	now := ts.now()
	start, _ := window.Bounds(now)
	posts, err := ts.store.FetchPosts(ctx, store.PostFilter{Since: &start, ExcludeReplies: true}, trendingPostPool)
	if err != nil {
		return nil, fmt.Errorf("trending posts: %w", err)
	}

	originals := make([]models.Post, 0, len(posts))
	ids := make([]uuid.UUID, 0, len(posts))
	for _, p := range posts {
		if p.IsRepost() {
			continue
		}
		originals = append(originals, p)
		ids = append(ids, p.ID)
	}

	engagement, err := ts.aggregator.Aggregate(ctx, viewerID, ids)
	if err != nil {
		ts.log.Warnw("trending posts with partial metrics", "error", err)
	}

	vc := ranking.NewViewerContext(viewerID, nil, nil, now)
	scored := make([]ranking.ScoredPost, len(originals))
	for i, p := range originals {
		m := engagement[p.ID]
		m.ViewCount = p.ViewCount
		scored[i] = ranking.Score(ranking.FromPost(p), m, vc)
	}

	composer := ranking.NewComposer(ranking.Weights{ranking.ScoreEngagement: 1}, 0)
	ordered := composer.Compose(scored, ranking.Algorithmic)
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered, nil
}

// TrendingCacheKey is the KV key holding the cached hashtags of a window
func TrendingCacheKey(w Window) string {
	return "trending:" + string(w)
}
