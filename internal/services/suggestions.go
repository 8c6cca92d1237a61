package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"socialfeed/internal/models"
	"socialfeed/internal/store"

	"github.com/google/uuid"
)

const (
	mutualWeight    = 3.0
	activityWeight  = 2.0
	followersWeight = 0.1
	verifiedBonus   = 5.0

	activityWindow = 7 * 24 * time.Hour
)

// Suggestion is a profile the viewer might want to follow
type Suggestion struct {
	Profile         models.Profile `json:"profile"`
	Score           float64        `json:"score"`
	MutualFollowers int            `json:"mutual_followers_count"`
	RecentPosts     int            `json:"recent_posts_count"`
	Followers       int            `json:"followers_count"`
}

// SuggestionService recommends accounts to follow
type SuggestionService struct {
	store store.Store
	now   func() time.Time
}

// NewSuggestionService creates a new SuggestionService
func NewSuggestionService(s store.Store) *SuggestionService {
	return &SuggestionService{store: s, now: func() time.Time { return time.Now().UTC() }}
}

// Suggest ranks profiles the viewer does not follow by mutual followers,
// posting activity over the last week, audience size and verification
func (ss *SuggestionService) Suggest(ctx context.Context, viewerID uuid.UUID, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		limit = 5
	}
	pool, err := ss.store.FetchProfiles(ctx, viewerID, max(limit*5, 50))
	if err != nil {
		return nil, fmt.Errorf("suggestions: profiles: %w", err)
	}
	following, err := ss.store.FetchFollowing(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("suggestions: following: %w", err)
	}
	followed := make(map[uuid.UUID]bool, len(following))
	for _, id := range following {
		followed[id] = true
	}

	candidates := make(map[uuid.UUID]*Suggestion)
	ids := make([]uuid.UUID, 0, len(pool))
	for _, p := range pool {
		if p.ID == viewerID || followed[p.ID] {
			continue
		}
		candidates[p.ID] = &Suggestion{Profile: p}
		ids = append(ids, p.ID)
	}
	if len(ids) == 0 {
		return []Suggestion{}, nil
	}

	followers, err := ss.store.FetchEdges(ctx, store.EdgeFollow, ids)
	if err != nil {
		return nil, fmt.Errorf("suggestions: followers: %w", err)
	}
	for _, e := range followers {
		s := candidates[e.TargetID]
		if s == nil {
			continue
		}
		s.Followers++
		if followed[e.ActorID] {
			s.MutualFollowers++
		}
	}

	since := ss.now().Add(-activityWindow)
	recent, err := ss.store.FetchPosts(ctx, store.PostFilter{AuthorIn: ids, Since: &since}, 0)
	if err != nil {
		return nil, fmt.Errorf("suggestions: activity: %w", err)
	}
	for _, p := range recent {
		if s := candidates[p.UserID]; s != nil {
			s.RecentPosts++
		}
	}

	out := make([]Suggestion, 0, len(candidates))
	for _, id := range ids {
		s := candidates[id]
		s.Score = mutualWeight*float64(s.MutualFollowers) +
			activityWeight*float64(s.RecentPosts) +
			followersWeight*float64(s.Followers)
		if s.Profile.IsVerified {
			s.Score += verifiedBonus
		}
		out = append(out, *s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Profile.Username < out[j].Profile.Username
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
