// Package store is the data-access layer consumed by the feed pipeline and
// the write paths. Implementations must treat like, repost and follow edges
// as sets keyed by (actor, target) and the interaction log as append-only.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"socialfeed/internal/models"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a single requested row does not exist
var ErrNotFound = errors.New("store: not found")

// ErrInvalidEdge is returned for edges the store refuses to write
var ErrInvalidEdge = errors.New("store: invalid edge")

// EdgeKind selects the relation an edge query or write targets
type EdgeKind string

const (
	// EdgeLike: actor liked post target
	EdgeLike EdgeKind = "like"
	// EdgeRepost: actor reposted post target (a posts row with repost_of)
	EdgeRepost EdgeKind = "repost"
	// EdgeReply: actor replied to post target (read-only, a posts row with reply_to)
	EdgeReply EdgeKind = "reply"
	// EdgeFollow: actor follows user target
	EdgeFollow EdgeKind = "follow"
)

// Edge is one (actor, target) pair
type Edge struct {
	ActorID  uuid.UUID `json:"actor_id"`
	TargetID uuid.UUID `json:"target_id"`
}

// Order controls the order of FetchPosts results
type Order int

const (
	NewestFirst Order = iota
	OldestFirst
)

// PostFilter narrows FetchPosts. Zero values mean "no constraint".
type PostFilter struct {
	IDs            []uuid.UUID
	AuthorIn       []uuid.UUID
	Since          *time.Time
	Until          *time.Time // exclusive
	ReplyTo        *uuid.UUID
	ExcludeReplies bool
	ExcludeReposts bool
	// PinnedFirst sorts pinned posts ahead of the rest, each group in OrderBy
	PinnedFirst bool
	OrderBy     Order
}

// Store is the full data-access surface
type Store interface {
	// FetchPosts returns posts with their Author preloaded
	FetchPosts(ctx context.Context, filter PostFilter, limit int) ([]models.Post, error)
	FetchEdges(ctx context.Context, kind EdgeKind, targetIDs []uuid.UUID) ([]Edge, error)
	// FetchInteractions returns the viewer's most recent interactions, newest first
	FetchInteractions(ctx context.Context, viewerID uuid.UUID, limit int) ([]models.Interaction, error)
	FetchFollowing(ctx context.Context, viewerID uuid.UUID) ([]uuid.UUID, error)
	FetchProfiles(ctx context.Context, excludeID uuid.UUID, limit int) ([]models.Profile, error)
	FetchPreference(ctx context.Context, userID uuid.UUID) (*models.UserFeedPreference, error)
	// SearchProfiles matches query case-insensitively against username and display name
	SearchProfiles(ctx context.Context, query string, limit int) ([]models.Profile, error)
	// SearchPosts matches query case-insensitively against content, newest first
	SearchPosts(ctx context.Context, query string, limit int) ([]models.Post, error)

	// WriteEdge is an idempotent insert; created is false when the edge already existed
	WriteEdge(ctx context.Context, kind EdgeKind, actorID, targetID uuid.UUID) (created bool, err error)
	// DeleteEdge is an idempotent delete; removed is false when there was nothing to delete
	DeleteEdge(ctx context.Context, kind EdgeKind, actorID, targetID uuid.UUID) (removed bool, err error)
	AppendInteraction(ctx context.Context, record *models.Interaction) error
	CreatePost(ctx context.Context, post *models.Post) error
	IncrementViews(ctx context.Context, postID uuid.UUID) error
	// SetPinned sets the pin flag of a post owned by ownerID, ErrNotFound otherwise
	SetPinned(ctx context.Context, postID, ownerID uuid.UUID, pinned bool) error
}

// FetchPost is a convenience lookup of a single post by id
func FetchPost(ctx context.Context, s Store, id uuid.UUID) (*models.Post, error) {
	posts, err := s.FetchPosts(ctx, PostFilter{IDs: []uuid.UUID{id}}, 1)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrNotFound
	}
	return &posts[0], nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a lower-cased LIKE pattern matching query anywhere
func containsPattern(query string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
}
