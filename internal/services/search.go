package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"socialfeed/internal/feeds"
	"socialfeed/internal/models"
	"socialfeed/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrEmptyQuery is returned for a blank search
var ErrEmptyQuery = errors.New("search query is empty")

// UserResult is a profile match with its audience
type UserResult struct {
	models.Profile
	FollowersCount int  `json:"followers_count"`
	IsFollowing    bool `json:"is_following"`
}

// SearchResult holds the profile and post matches of one query
type SearchResult struct {
	Query          string       `json:"query"`
	Users          []UserResult `json:"users"`
	Posts          []PostView   `json:"posts"`
	PartialMetrics bool         `json:"partial_metrics,omitempty"`
}

// SearchService finds profiles and posts by text
type SearchService struct {
	store      store.Store
	aggregator *feeds.Aggregator
	log        *zap.SugaredLogger
}

// NewSearchService creates a new SearchService
func NewSearchService(s store.Store, log *zap.SugaredLogger) *SearchService {
	return &SearchService{
		store:      s,
		aggregator: feeds.NewAggregator(s, 0, 0, 0, log),
		log:        log,
	}
}

// Search matches query against usernames, display names and post content.
// Posts come newest first with the viewer's engagement attached.
func (ss *SearchService) Search(ctx context.Context, viewerID uuid.UUID, query string, limit int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 20
	}

	profiles, err := ss.store.SearchProfiles(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	posts, err := ss.store.SearchPosts(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}

	result := &SearchResult{Query: query, Users: ss.withFollowers(ctx, viewerID, profiles)}
	result.Posts, result.PartialMetrics = withMetrics(ctx, ss.aggregator, ss.log, viewerID, posts)
	return result, nil
}

// withFollowers counts followers per profile. A failed edge read leaves the
// counts at zero.
func (ss *SearchService) withFollowers(ctx context.Context, viewerID uuid.UUID, profiles []models.Profile) []UserResult {
	users := make([]UserResult, len(profiles))
	index := make(map[uuid.UUID]int, len(profiles))
	ids := make([]uuid.UUID, len(profiles))
	for i, p := range profiles {
		users[i] = UserResult{Profile: p}
		index[p.ID] = i
		ids[i] = p.ID
	}
	if len(ids) == 0 {
		return users
	}

	edges, err := ss.store.FetchEdges(ctx, store.EdgeFollow, ids)
	if err != nil {
		ss.log.Warnw("search follower counts unavailable", "error", err)
		return users
	}
	for _, e := range edges {
		u := &users[index[e.TargetID]]
		u.FollowersCount++
		if e.ActorID == viewerID {
			u.IsFollowing = true
		}
	}
	return users
}
