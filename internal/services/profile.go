package services

import (
	"context"
	"errors"
	"fmt"

	"socialfeed/internal/feeds"
	"socialfeed/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotPostOwner is returned when a user changes another user's post
var ErrNotPostOwner = errors.New("post belongs to another user")

// ProfileService serves a user's own timeline
type ProfileService struct {
	store      store.Store
	aggregator *feeds.Aggregator
	log        *zap.SugaredLogger
}

// NewProfileService creates a new ProfileService
func NewProfileService(s store.Store, log *zap.SugaredLogger) *ProfileService {
	return &ProfileService{
		store:      s,
		aggregator: feeds.NewAggregator(s, 0, 0, 0, log),
		log:        log,
	}
}

// Timeline returns the user's top-level posts with pinned posts first, each
// group newest first. Reposts and replies are left out.
func (ps *ProfileService) Timeline(ctx context.Context, viewerID, userID uuid.UUID, limit int) ([]PostView, error) {
	if limit <= 0 {
		limit = 20
	}
	posts, err := ps.store.FetchPosts(ctx, store.PostFilter{
		AuthorIn:       []uuid.UUID{userID},
		ExcludeReplies: true,
		ExcludeReposts: true,
		PinnedFirst:    true,
	}, limit)
	if err != nil {
		return nil, fmt.Errorf("timeline: %w", err)
	}
	views, _ := withMetrics(ctx, ps.aggregator, ps.log, viewerID, posts)
	return views, nil
}

// TogglePin flips the pin flag of one of the viewer's own top-level posts
// and returns the new state
func (ps *ProfileService) TogglePin(ctx context.Context, viewerID, postID uuid.UUID) (bool, error) {
	post, err := store.FetchPost(ctx, ps.store, postID)
	if err != nil {
		return false, fmt.Errorf("pin %s: %w", postID, err)
	}
	if post.UserID != viewerID {
		return false, ErrNotPostOwner
	}
	if post.IsRepost() || post.ReplyTo != nil {
		return false, fmt.Errorf("%w: only top-level posts can be pinned", ErrInvalidPost)
	}

	pinned := !post.IsPinned
	if err := ps.store.SetPinned(ctx, postID, viewerID, pinned); err != nil {
		return false, fmt.Errorf("pin %s: %w", postID, err)
	}
	ps.log.Debugw("post pin toggled", "post_id", postID, "pinned", pinned)
	return pinned, nil
}
