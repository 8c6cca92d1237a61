package services

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
)

// ErrInvalidInteractionWrite means an edge or interaction write failed. The
// caller should re-fetch the truth rather than trust local state.
var ErrInvalidInteractionWrite = errors.New("interaction write failed")

// InteractionWeights is the signed personalization weight of each action.
// Undoing an action appends the negated weight.
var InteractionWeights = map[models.InteractionKind]float64{
	models.InteractionLike:   1,
	models.InteractionRepost: 2,
	models.InteractionReply:  1.5,
	models.InteractionFollow: 3,
	models.InteractionView:   0.1,
}

// ToggleResult is the state of an edge after a toggle
type ToggleResult struct {
	Active  bool `json:"active"`
	Changed bool `json:"changed"`
}

// InteractionService handles likes, reposts, follows and views
type InteractionService struct {
	store   store.Store
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewInteractionService creates a new InteractionService. m may be nil.
func NewInteractionService(s store.Store, log *zap.SugaredLogger, m *metrics.Metrics) *InteractionService {
	return &InteractionService{
		store:   s,
		log:     log,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RecordLike moves the like edge to !currentlyLiked. Repeating a call is a
// no-op, so rapid double taps settle on the state of the last call.
func (s *InteractionService) RecordLike(ctx context.Context, viewerID, postID uuid.UUID, currentlyLiked bool) (ToggleResult, error) {
	post, err := s.target(ctx, postID)
	if err != nil {
		return ToggleResult{}, fmt.Errorf("%w: like %s: %w", ErrInvalidInteractionWrite, postID, err)
	}
	return s.toggle(ctx, store.EdgeLike, models.InteractionLike, viewerID, post.ID, post.UserID, &post.ID, topicsOf(post), !currentlyLiked)
}

// RecordRepost moves the repost edge to !currentlyReposted
func (s *InteractionService) RecordRepost(ctx context.Context, viewerID, postID uuid.UUID, currentlyReposted bool) (ToggleResult, error) {
	post, err := s.target(ctx, postID)
	if err != nil {
		return ToggleResult{}, fmt.Errorf("%w: repost %s: %w", ErrInvalidInteractionWrite, postID, err)
	}
	return s.toggle(ctx, store.EdgeRepost, models.InteractionRepost, viewerID, post.ID, post.UserID, &post.ID, topicsOf(post), !currentlyReposted)
}

// RecordFollow moves the follow edge to !currentlyFollowing
func (s *InteractionService) RecordFollow(ctx context.Context, viewerID, targetUserID uuid.UUID, currentlyFollowing bool) (ToggleResult, error) {
	if viewerID == targetUserID {
		return ToggleResult{}, fmt.Errorf("%w: %w: cannot follow yourself", ErrInvalidInteractionWrite, store.ErrInvalidEdge)
	}
	return s.toggle(ctx, store.EdgeFollow, models.InteractionFollow, viewerID, targetUserID, targetUserID, nil, nil, !currentlyFollowing)
}

// RecordView counts a view and logs a low-weight interaction
func (s *InteractionService) RecordView(ctx context.Context, viewerID, postID uuid.UUID) error {
	post, err := s.target(ctx, postID)
	if err != nil {
		return fmt.Errorf("%w: view %s: %w", ErrInvalidInteractionWrite, postID, err)
	}
	if err := s.store.IncrementViews(ctx, post.ID); err != nil {
		return fmt.Errorf("%w: view %s: %w", ErrInvalidInteractionWrite, post.ID, err)
	}
	return s.appendInteraction(ctx, models.InteractionView, viewerID, post.UserID, &post.ID, topicsOf(post), 1)
}

// target loads the post an action applies to. Actions on a repost row
// apply to its original.
func (s *InteractionService) target(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	post, err := store.FetchPost(ctx, s.store, postID)
	if err != nil {
		return nil, err
	}
	if post.RepostOf != nil {
		return store.FetchPost(ctx, s.store, *post.RepostOf)
	}
	return post, nil
}

// toggle applies the desired edge state and appends an interaction only
// when the edge actually changed
func (s *InteractionService) toggle(ctx context.Context, edge store.EdgeKind, kind models.InteractionKind,
	actorID, targetID, targetUserID uuid.UUID, postID *uuid.UUID, topics []string, want bool) (ToggleResult, error) {

	var (
		changed bool
		err     error
	)
	if want {
		changed, err = s.store.WriteEdge(ctx, edge, actorID, targetID)
	} else {
		changed, err = s.store.DeleteEdge(ctx, edge, actorID, targetID)
	}
	if err != nil {
		s.log.Errorw("edge write failed", "edge", edge, "actor_id", actorID, "target_id", targetID, "want", want, "error", err)
		return ToggleResult{}, fmt.Errorf("%w: %s edge: %w", ErrInvalidInteractionWrite, edge, err)
	}

	result := ToggleResult{Active: want, Changed: changed}
	if !changed {
		return result, nil
	}

	sign := 1.0
	if !want {
		sign = -1
	}
	if err := s.appendInteraction(ctx, kind, actorID, targetUserID, postID, topics, sign); err != nil {
		return result, err
	}
	return result, nil
}

func (s *InteractionService) appendInteraction(ctx context.Context, kind models.InteractionKind,
	actorID, targetUserID uuid.UUID, postID *uuid.UUID, topics []string, sign float64) error {

	record := &models.Interaction{
		ActorID:      actorID,
		TargetUserID: targetUserID,
		PostID:       postID,
		Kind:         kind,
		Weight:       sign * InteractionWeights[kind],
		Topics:       topics,
		CreatedAt:    s.now(),
	}
	if err := s.store.AppendInteraction(ctx, record); err != nil {
		s.log.Errorw("interaction append failed", "kind", kind, "actor_id", actorID, "error", err)
		return fmt.Errorf("%w: append %s interaction: %w", ErrInvalidInteractionWrite, kind, err)
	}
	s.metrics.InteractionRecorded(string(kind))
	return nil
}

// topicsOf returns the hashtags a post is about
func topicsOf(p *models.Post) models.StringList {
	if len(p.Tags) > 0 {
		return append(models.StringList(nil), p.Tags...)
	}
	return ranking.ExtractHashtags(p.Content)
}
