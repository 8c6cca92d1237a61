package store

import (
	"context"
	"errors"
	"fmt"

	"socialfeed/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on a relational database through gorm
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new gorm backed store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// FetchPosts returns posts matching the filter with authors preloaded
func (s *GormStore) FetchPosts(ctx context.Context, filter PostFilter, limit int) ([]models.Post, error) {
	q := s.db.WithContext(ctx).Preload("Author")

	if len(filter.IDs) > 0 {
		q = q.Where("id IN ?", filter.IDs)
	}
	if len(filter.AuthorIn) > 0 {
		q = q.Where("user_id IN ?", filter.AuthorIn)
	}
	if filter.Since != nil {
		q = q.Where("created_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		q = q.Where("created_at < ?", *filter.Until)
	}
	if filter.ReplyTo != nil {
		q = q.Where("reply_to = ?", *filter.ReplyTo)
	}
	if filter.ExcludeReplies {
		q = q.Where("reply_to IS NULL")
	}
	if filter.ExcludeReposts {
		q = q.Where("repost_of IS NULL")
	}

	if filter.PinnedFirst {
		q = q.Order("is_pinned DESC")
	}
	if filter.OrderBy == OldestFirst {
		q = q.Order("created_at ASC, id ASC")
	} else {
		q = q.Order("created_at DESC, id DESC")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var posts []models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}
	return posts, nil
}

// FetchEdges returns every (actor, target) pair of the given kind whose target is in targetIDs
func (s *GormStore) FetchEdges(ctx context.Context, kind EdgeKind, targetIDs []uuid.UUID) ([]Edge, error) {
	if len(targetIDs) == 0 {
		return nil, nil
	}

	q := s.db.WithContext(ctx)
	switch kind {
	case EdgeLike:
		q = q.Model(&models.Like{}).
			Select("user_id AS actor_id, post_id AS target_id").
			Where("post_id IN ?", targetIDs)
	case EdgeRepost:
		q = q.Model(&models.Post{}).
			Select("user_id AS actor_id, repost_of AS target_id").
			Where("repost_of IN ?", targetIDs)
	case EdgeReply:
		q = q.Model(&models.Post{}).
			Select("user_id AS actor_id, reply_to AS target_id").
			Where("reply_to IN ?", targetIDs)
	case EdgeFollow:
		q = q.Model(&models.Follow{}).
			Select("follower_id AS actor_id, following_id AS target_id").
			Where("following_id IN ?", targetIDs)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidEdge, kind)
	}

	var edges []Edge
	if err := q.Scan(&edges).Error; err != nil {
		return nil, fmt.Errorf("fetch %s edges: %w", kind, err)
	}
	return edges, nil
}

// FetchInteractions returns the most recent interactions of a viewer
func (s *GormStore) FetchInteractions(ctx context.Context, viewerID uuid.UUID, limit int) ([]models.Interaction, error) {
	q := s.db.WithContext(ctx).
		Where("actor_id = ?", viewerID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var interactions []models.Interaction
	if err := q.Find(&interactions).Error; err != nil {
		return nil, fmt.Errorf("fetch interactions: %w", err)
	}
	return interactions, nil
}

// FetchFollowing returns the ids of users the viewer follows
func (s *GormStore) FetchFollowing(ctx context.Context, viewerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ?", viewerID).
		Order("created_at ASC").
		Pluck("following_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("fetch following: %w", err)
	}
	return ids, nil
}

// FetchProfiles returns the newest profiles, skipping excludeID
func (s *GormStore) FetchProfiles(ctx context.Context, excludeID uuid.UUID, limit int) ([]models.Profile, error) {
	q := s.db.WithContext(ctx).
		Where("id <> ?", excludeID).
		Order("created_at DESC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var profiles []models.Profile
	if err := q.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("fetch profiles: %w", err)
	}
	return profiles, nil
}

// FetchPreference returns the feed preference row of a user
func (s *GormStore) FetchPreference(ctx context.Context, userID uuid.UUID) (*models.UserFeedPreference, error) {
	var pref models.UserFeedPreference
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch preference: %w", err)
	}
	return &pref, nil
}

// SearchProfiles matches username or display name, alphabetical by username
func (s *GormStore) SearchProfiles(ctx context.Context, query string, limit int) ([]models.Profile, error) {
	pattern := containsPattern(query)
	q := s.db.WithContext(ctx).
		Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(display_name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("username ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var profiles []models.Profile
	if err := q.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	return profiles, nil
}

// SearchPosts matches post content, newest first
func (s *GormStore) SearchPosts(ctx context.Context, query string, limit int) ([]models.Post, error) {
	q := s.db.WithContext(ctx).Preload("Author").
		Where(`LOWER(content) LIKE ? ESCAPE '\'`, containsPattern(query)).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var posts []models.Post
	if err := q.Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("search posts: %w", err)
	}
	return posts, nil
}

// WriteEdge inserts an edge unless it already exists
func (s *GormStore) WriteEdge(ctx context.Context, kind EdgeKind, actorID, targetID uuid.UUID) (bool, error) {
	q := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true})

	var res *gorm.DB
	switch kind {
	case EdgeLike:
		res = q.Create(&models.Like{UserID: actorID, PostID: targetID})
	case EdgeRepost:
		target := targetID
		res = q.Omit(clause.Associations).Create(&models.Post{UserID: actorID, RepostOf: &target})
	case EdgeFollow:
		if actorID == targetID {
			return false, fmt.Errorf("%w: self follow", ErrInvalidEdge)
		}
		res = q.Create(&models.Follow{FollowerID: actorID, FollowingID: targetID})
	default:
		return false, fmt.Errorf("%w: cannot write %q edges", ErrInvalidEdge, kind)
	}

	if res.Error != nil {
		return false, fmt.Errorf("write %s edge: %w", kind, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// DeleteEdge removes an edge if present
func (s *GormStore) DeleteEdge(ctx context.Context, kind EdgeKind, actorID, targetID uuid.UUID) (bool, error) {
	q := s.db.WithContext(ctx)

	var res *gorm.DB
	switch kind {
	case EdgeLike:
		res = q.Where("user_id = ? AND post_id = ?", actorID, targetID).Delete(&models.Like{})
	case EdgeRepost:
		res = q.Where("user_id = ? AND repost_of = ?", actorID, targetID).Delete(&models.Post{})
	case EdgeFollow:
		res = q.Where("follower_id = ? AND following_id = ?", actorID, targetID).Delete(&models.Follow{})
	default:
		return false, fmt.Errorf("%w: cannot delete %q edges", ErrInvalidEdge, kind)
	}

	if res.Error != nil {
		return false, fmt.Errorf("delete %s edge: %w", kind, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AppendInteraction appends a row to the interaction log
func (s *GormStore) AppendInteraction(ctx context.Context, record *models.Interaction) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

// CreatePost inserts a post or reply
func (s *GormStore) CreatePost(ctx context.Context, post *models.Post) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// IncrementViews bumps the view counter of a post
func (s *GormStore) IncrementViews(ctx context.Context, postID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("increment views: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPinned sets the pin flag of a post owned by ownerID
func (s *GormStore) SetPinned(ctx context.Context, postID, ownerID uuid.UUID, pinned bool) error {
	res := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND user_id = ?", postID, ownerID).
		UpdateColumn("is_pinned", pinned)
	if res.Error != nil {
		return fmt.Errorf("set pinned: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
