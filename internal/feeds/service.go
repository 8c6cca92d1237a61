// Package feeds assembles a viewer's feed: it loads candidates from the
// store, resolves reposts, aggregates engagement, scores and composes.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"socialfeed/internal/metrics"
	"socialfeed/internal/models"
	"socialfeed/internal/ranking"
	"socialfeed/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultLimit            = 20
	DefaultCandidatePool    = 200
	DefaultCandidateWindow  = 14 * 24 * time.Hour
	DefaultInteractionLimit = 500
	DefaultBatchSize        = 50
	DefaultConcurrency      = 4
	DefaultCallTimeout      = 2 * time.Second
)

// Options configures a FeedService. Zero values select the defaults, except
// DiversityWindow where nil selects the default and 0 disables the pass.
type Options struct {
	Weights          ranking.Weights
	DiversityWindow  *int
	CandidatePool    int
	CandidateWindow  time.Duration
	InteractionLimit int
	BatchSize        int
	Concurrency      int
	CallTimeout      time.Duration
}

func (o Options) withDefaults() Options {
	if o.Weights == nil {
		o.Weights = ranking.DefaultWeights()
	}
	if o.DiversityWindow == nil || *o.DiversityWindow < 0 {
		w := ranking.DefaultDiversityWindow
		o.DiversityWindow = &w
	}
	if o.CandidatePool <= 0 {
		o.CandidatePool = DefaultCandidatePool
	}
	if o.CandidateWindow <= 0 {
		o.CandidateWindow = DefaultCandidateWindow
	}
	if o.InteractionLimit <= 0 {
		o.InteractionLimit = DefaultInteractionLimit
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	return o
}

// FeedService handles feed operations
type FeedService struct {
	store      store.Store
	opts       Options
	aggregator *Aggregator
	resolver   *Resolver
	log        *zap.SugaredLogger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewFeedService creates a new feed service. m may be nil.
func NewFeedService(s store.Store, opts Options, log *zap.SugaredLogger, m *metrics.Metrics) *FeedService {
	opts = opts.withDefaults()
	return &FeedService{
		store:      s,
		opts:       opts,
		aggregator: NewAggregator(s, opts.BatchSize, opts.Concurrency, opts.CallTimeout, log),
		resolver:   NewResolver(s, opts.BatchSize, opts.Concurrency, opts.CallTimeout, log),
		log:        log,
		metrics:    m,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// FeedResponse represents the structure returned by feed endpoints
type FeedResponse struct {
	Items []ranking.ScoredPost `json:"items"`
	Meta  FeedMeta            `json:"meta"`
}

// FeedMeta contains metadata about the feed
type FeedMeta struct {
	Mode        ranking.Mode `json:"mode"`
	Candidates  int          `json:"candidates"`
	Returned    int          `json:"returned"`
	ColdStart   bool         `json:"cold_start"`
	Degraded    []string     `json:"degraded,omitempty"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Degradation kinds reported in FeedMeta.Degraded and metrics
const (
	DegradedFollowing    = "following"
	DegradedInteractions = "interactions"
	DegradedPreference   = "preference"
	DegradedMetrics      = "partial_metrics"
	DegradedReposts      = "unresolvable_repost"
)

// viewerState is what the first pipeline step learns about the viewer
type viewerState struct {
	following    []uuid.UUID
	interactions []models.Interaction
	pref         *models.UserFeedPreference
}

// GetFeed builds the feed of viewerID. An empty mode selects the viewer's
// preferred mode, or algorithmic. Only a failure to load candidates is
// returned as an error (wrapping ErrFetchFailure); every other failure
// degrades the feed and is listed in Meta.Degraded.
func (fs *FeedService) GetFeed(ctx context.Context, viewerID uuid.UUID, mode ranking.Mode, limit int) (*FeedResponse, error) {
	started := time.Now()
	if limit <= 0 {
		limit = DefaultLimit
	}
	now := fs.now()
	meta := FeedMeta{GeneratedAt: now}
	degrade := func(kind string, err error) {
		meta.Degraded = append(meta.Degraded, kind)
		fs.metrics.Degraded(kind)
		fs.log.Warnw("feed degraded", "viewer_id", viewerID, "kind", kind, "error", err)
	}

	viewer, followingOK := fs.loadViewer(ctx, viewerID, degrade)
	if mode == "" {
		mode = ranking.Algorithmic
		if viewer.pref != nil && viewer.pref.DefaultMode != "" {
			if m, err := ranking.ParseMode(viewer.pref.DefaultMode, ranking.Algorithmic); err == nil {
				mode = m
			}
		}
	}
	meta.Mode = mode

	rows, coldStart, err := fs.fetchCandidates(ctx, viewerID, viewer.following, followingOK, now)
	if err != nil {
		fs.metrics.ObserveFeed(string(mode), "error", time.Since(started))
		return nil, err
	}
	meta.ColdStart = coldStart

	resolved, err := fs.resolver.Resolve(ctx, rows)
	if err != nil {
		degrade(DegradedReposts, err)
	}
	meta.Candidates = len(resolved)

	ids := make([]uuid.UUID, 0, len(resolved))
	seen := make(map[uuid.UUID]bool, len(resolved))
	for _, r := range resolved {
		if !seen[r.Post.ID] {
			seen[r.Post.ID] = true
			ids = append(ids, r.Post.ID)
		}
	}
	engagement, err := fs.aggregator.Aggregate(ctx, viewerID, ids)
	if err != nil {
		degrade(DegradedMetrics, err)
	}

	vc := ranking.NewViewerContext(viewerID, viewer.following, viewer.interactions, now)
	scored := make([]ranking.ScoredPost, len(resolved))
	for i, r := range resolved {
		m := engagement[r.Post.ID]
		m.ViewCount = r.Post.ViewCount
		scored[i] = ranking.Score(r, m, vc)
	}

	window := *fs.opts.DiversityWindow
	if viewer.pref != nil && viewer.pref.DiversityWindow != nil && *viewer.pref.DiversityWindow >= 0 {
		window = *viewer.pref.DiversityWindow
	}
	composer := ranking.NewComposer(fs.opts.Weights.WithPreference(viewer.pref), window)
	ordered := composer.Compose(scored, mode)

	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	meta.Returned = len(ordered)

	outcome := "ok"
	if len(meta.Degraded) > 0 {
		outcome = "degraded"
	}
	fs.metrics.ObserveFeed(string(mode), outcome, time.Since(started))
	return &FeedResponse{Items: ordered, Meta: meta}, nil
}

// loadViewer reads following, interactions and preference concurrently.
// Each read degrades on its own; followingOK reports whether the follow
// set is trustworthy.
func (fs *FeedService) loadViewer(ctx context.Context, viewerID uuid.UUID, degrade func(string, error)) (viewerState, bool) {
	var (
		st                              viewerState
		followErr, interactErr, prefErr error
		g                               errgroup.Group
	)
	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(ctx, fs.opts.CallTimeout)
		defer cancel()
		st.following, followErr = fs.store.FetchFollowing(callCtx, viewerID)
		return nil
	})
	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(ctx, fs.opts.CallTimeout)
		defer cancel()
		st.interactions, interactErr = fs.store.FetchInteractions(callCtx, viewerID, fs.opts.InteractionLimit)
		return nil
	})
	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(ctx, fs.opts.CallTimeout)
		defer cancel()
		st.pref, prefErr = fs.store.FetchPreference(callCtx, viewerID)
		return nil
	})
	_ = g.Wait()

	if followErr != nil {
		st.following = nil
		degrade(DegradedFollowing, followErr)
	}
	if interactErr != nil {
		st.interactions = nil
		degrade(DegradedInteractions, interactErr)
	}
	if prefErr != nil {
		st.pref = nil
		if !errors.Is(prefErr, store.ErrNotFound) {
			degrade(DegradedPreference, prefErr)
		}
	}
	return st, followErr == nil
}

// fetchCandidates loads the raw rows: the viewer's own and followed authors'
// recent top-level posts and reposts, or the global recent pool when there
// is no usable follow set
func (fs *FeedService) fetchCandidates(ctx context.Context, viewerID uuid.UUID, following []uuid.UUID, followingOK bool, now time.Time) ([]models.Post, bool, error) {
	since := now.Add(-fs.opts.CandidateWindow)
	filter := store.PostFilter{Since: &since, ExcludeReplies: true, OrderBy: store.NewestFirst}

	coldStart := !followingOK || len(following) == 0
	if !coldStart {
		filter.AuthorIn = append([]uuid.UUID{viewerID}, following...)
	}

	callCtx, cancel := context.WithTimeout(ctx, fs.opts.CallTimeout)
	defer cancel()
	rows, err := fs.store.FetchPosts(callCtx, filter, fs.opts.CandidatePool)
	if err != nil {
		fs.log.Errorw("candidate fetch failed", "viewer_id", viewerID, "error", err)
		return nil, coldStart, fmt.Errorf("%w: %w", ErrFetchFailure, err)
	}
	return rows, coldStart, nil
}
