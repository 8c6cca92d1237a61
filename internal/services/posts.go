package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"socialfeed/internal/feeds"
	"socialfeed/internal/metrics"
	"socialfeed/internal/models"
	"socialfeed/internal/ranking"
	"socialfeed/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MaxPostCharacters = 280
	MaxMediaFiles     = 4
)

// ErrInvalidPost is returned for posts that fail validation
var ErrInvalidPost = errors.New("invalid post")

// CreatePostInput is what a client submits for a new post or reply
type CreatePostInput struct {
	Content   string     `json:"content"`
	MediaURLs []string   `json:"media_urls"`
	MediaType string     `json:"media_type"`
	Tags      []string   `json:"tags"`
	ReplyTo   *uuid.UUID `json:"reply_to"`
}

// maxReplies caps the replies loaded for a post detail
const maxReplies = 200

// PostDetail is a post with its direct replies, oldest reply first
type PostDetail struct {
	Post           PostView   `json:"post"`
	Replies        []PostView `json:"replies"`
	PartialMetrics bool       `json:"partial_metrics,omitempty"`
}

// PostService handles post creation and lookup
type PostService struct {
	store        store.Store
	interactions *InteractionService
	aggregator   *feeds.Aggregator
	log          *zap.SugaredLogger
	now          func() time.Time
}

// NewPostService creates a new PostService
func NewPostService(s store.Store, log *zap.SugaredLogger, m *metrics.Metrics) *PostService {
	return &PostService{
		store:        s,
		interactions: NewInteractionService(s, log, m),
		aggregator:   feeds.NewAggregator(s, 0, 0, 0, log),
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreatePost validates and stores a post. Hashtags in the content are merged
// with the explicit tags. A reply also logs a reply interaction towards the
// parent's author.
func (s *PostService) CreatePost(ctx context.Context, authorID uuid.UUID, in CreatePostInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" && len(in.MediaURLs) == 0 {
		return nil, fmt.Errorf("%w: add some content or media", ErrInvalidPost)
	}
	if n := utf8.RuneCountInString(content); n > MaxPostCharacters {
		return nil, fmt.Errorf("%w: %d characters, the limit is %d", ErrInvalidPost, n, MaxPostCharacters)
	}
	if len(in.MediaURLs) > MaxMediaFiles {
		return nil, fmt.Errorf("%w: at most %d media files", ErrInvalidPost, MaxMediaFiles)
	}

	mediaType := in.MediaType
	switch {
	case len(in.MediaURLs) == 0:
		mediaType = ""
	case mediaType == "":
		mediaType = "image"
	case mediaType != "image" && mediaType != "video":
		return nil, fmt.Errorf("%w: unknown media type %q", ErrInvalidPost, mediaType)
	}

	var parent *models.Post
	if in.ReplyTo != nil {
		p, err := s.interactions.target(ctx, *in.ReplyTo)
		if err != nil {
			return nil, fmt.Errorf("reply to %s: %w", *in.ReplyTo, err)
		}
		parent = p
	}

	post := &models.Post{
		UserID:    authorID,
		Content:   content,
		MediaURLs: in.MediaURLs,
		MediaType: mediaType,
		Tags:      mergeTags(in.Tags, ranking.ExtractHashtags(content)),
		CreatedAt: s.now(),
	}
	if parent != nil {
		post.ReplyTo = &parent.ID
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	if parent != nil {
		if err := s.interactions.appendInteraction(ctx, models.InteractionReply, authorID, parent.UserID, &parent.ID, topicsOf(parent), 1); err != nil {
			// the reply exists; only the personalization signal is lost
			s.log.Warnw("reply interaction not recorded", "post_id", post.ID, "error", err)
		}
	}
	return post, nil
}

// GetPostDetail loads a post and its replies with the viewer's engagement.
// A repost id resolves to its original.
func (s *PostService) GetPostDetail(ctx context.Context, viewerID, postID uuid.UUID) (*PostDetail, error) {
	post, err := store.FetchPost(ctx, s.store, postID)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", postID, err)
	}
	if post.RepostOf != nil {
		if post, err = store.FetchPost(ctx, s.store, *post.RepostOf); err != nil {
			return nil, fmt.Errorf("post %s: original: %w", postID, err)
		}
	}

	replies, err := s.store.FetchPosts(ctx, store.PostFilter{ReplyTo: &post.ID, OrderBy: store.OldestFirst}, maxReplies)
	if err != nil {
		return nil, fmt.Errorf("post %s: replies: %w", post.ID, err)
	}

	views, partial := withMetrics(ctx, s.aggregator, s.log, viewerID, append([]models.Post{*post}, replies...))
	return &PostDetail{Post: views[0], Replies: views[1:], PartialMetrics: partial}, nil
}

// mergeTags lower-cases, strips '#' and deduplicates, keeping first-seen order
func mergeTags(lists ...[]string) models.StringList {
	seen := make(map[string]bool)
	var out models.StringList
	for _, list := range lists {
		for _, tag := range list {
			tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}
