package store

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"socialfeed/internal/models"

	"github.com/google/uuid"
)

type edgeKey struct {
	actor  uuid.UUID
	target uuid.UUID
}

// MemoryStore is an in-process Store with the same set and append-only
// semantics as GormStore. It backs local runs with DB_DRIVER=memory and
// the tests of every package above the store.
type MemoryStore struct {
	mu           sync.RWMutex
	profiles     map[uuid.UUID]models.Profile
	posts        map[uuid.UUID]models.Post
	likes        map[edgeKey]time.Time
	follows      map[edgeKey]time.Time
	interactions []models.Interaction
	prefs        map[uuid.UUID]models.UserFeedPreference
	now          func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[uuid.UUID]models.Profile),
		posts:    make(map[uuid.UUID]models.Post),
		likes:    make(map[edgeKey]time.Time),
		follows:  make(map[edgeKey]time.Time),
		prefs:    make(map[uuid.UUID]models.UserFeedPreference),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AddProfile registers a profile, assigning an id when empty
func (s *MemoryStore) AddProfile(p models.Profile) models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.profiles[p.ID] = p
	return p
}

// SetPreference stores a feed preference row for a user
func (s *MemoryStore) SetPreference(pref models.UserFeedPreference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pref.ID == uuid.Nil {
		pref.ID = uuid.New()
	}
	s.prefs[pref.UserID] = pref
}

// FetchPosts returns posts matching the filter with authors attached
func (s *MemoryStore) FetchPosts(ctx context.Context, filter PostFilter, limit int) ([]models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := toSet(filter.IDs)
	authors := toSet(filter.AuthorIn)

	var out []models.Post
	for _, p := range s.posts {
		if ids != nil && !ids[p.ID] {
			continue
		}
		if authors != nil && !authors[p.UserID] {
			continue
		}
		if filter.Since != nil && p.CreatedAt.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && !p.CreatedAt.Before(*filter.Until) {
			continue
		}
		if filter.ReplyTo != nil && (p.ReplyTo == nil || *p.ReplyTo != *filter.ReplyTo) {
			continue
		}
		if filter.ExcludeReplies && p.ReplyTo != nil {
			continue
		}
		if filter.ExcludeReposts && p.RepostOf != nil {
			continue
		}
		p.Author = s.profiles[p.UserID]
		out = append(out, clonePost(p))
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if filter.PinnedFirst && a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if filter.OrderBy == OldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		c := bytes.Compare(a.ID[:], b.ID[:])
		if filter.OrderBy == OldestFirst {
			return c < 0
		}
		return c > 0
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FetchEdges returns every (actor, target) pair of the given kind whose target is in targetIDs
func (s *MemoryStore) FetchEdges(ctx context.Context, kind EdgeKind, targetIDs []uuid.UUID) ([]Edge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(targetIDs) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	targets := toSet(targetIDs)
	var edges []Edge
	switch kind {
	case EdgeLike:
		for k := range s.likes {
			if targets[k.target] {
				edges = append(edges, Edge{ActorID: k.actor, TargetID: k.target})
			}
		}
	case EdgeFollow:
		for k := range s.follows {
			if targets[k.target] {
				edges = append(edges, Edge{ActorID: k.actor, TargetID: k.target})
			}
		}
	case EdgeRepost:
		for _, p := range s.posts {
			if p.RepostOf != nil && targets[*p.RepostOf] {
				edges = append(edges, Edge{ActorID: p.UserID, TargetID: *p.RepostOf})
			}
		}
	case EdgeReply:
		for _, p := range s.posts {
			if p.ReplyTo != nil && targets[*p.ReplyTo] {
				edges = append(edges, Edge{ActorID: p.UserID, TargetID: *p.ReplyTo})
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidEdge, kind)
	}

	sort.Slice(edges, func(i, j int) bool {
		if c := bytes.Compare(edges[i].TargetID[:], edges[j].TargetID[:]); c != 0 {
			return c < 0
		}
		return bytes.Compare(edges[i].ActorID[:], edges[j].ActorID[:]) < 0
	})
	return edges, nil
}

// FetchInteractions returns the most recent interactions of a viewer
func (s *MemoryStore) FetchInteractions(ctx context.Context, viewerID uuid.UUID, limit int) ([]models.Interaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Interaction
	// newest first; the log is kept in append order
	for i := len(s.interactions) - 1; i >= 0; i-- {
		in := s.interactions[i]
		if in.ActorID != viewerID {
			continue
		}
		out = append(out, in)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FetchFollowing returns the ids of users the viewer follows
func (s *MemoryStore) FetchFollowing(ctx context.Context, viewerID uuid.UUID) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type followed struct {
		id uuid.UUID
		at time.Time
	}
	var list []followed
	for k, at := range s.follows {
		if k.actor == viewerID {
			list = append(list, followed{id: k.target, at: at})
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].at.Equal(list[j].at) {
			return list[i].at.Before(list[j].at)
		}
		return bytes.Compare(list[i].id[:], list[j].id[:]) < 0
	})

	ids := make([]uuid.UUID, len(list))
	for i, f := range list {
		ids[i] = f.id
	}
	return ids, nil
}

// FetchProfiles returns the newest profiles, skipping excludeID
func (s *MemoryStore) FetchProfiles(ctx context.Context, excludeID uuid.UUID, limit int) ([]models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Profile
	for _, p := range s.profiles {
		if p.ID != excludeID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FetchPreference returns the feed preference row of a user
func (s *MemoryStore) FetchPreference(ctx context.Context, userID uuid.UUID) (*models.UserFeedPreference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	pref, ok := s.prefs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &pref, nil
}

// SearchProfiles matches username or display name, alphabetical by username
func (s *MemoryStore) SearchProfiles(ctx context.Context, query string, limit int) ([]models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	var out []models.Profile
	for _, p := range s.profiles {
		if strings.Contains(strings.ToLower(p.Username), q) || strings.Contains(strings.ToLower(p.DisplayName), q) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SearchPosts matches post content, newest first
func (s *MemoryStore) SearchPosts(ctx context.Context, query string, limit int) ([]models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var ids []uuid.UUID
	q := strings.ToLower(query)
	for _, p := range s.posts {
		if strings.Contains(strings.ToLower(p.Content), q) {
			ids = append(ids, p.ID)
		}
	}
	s.mu.RUnlock()

	if len(ids) == 0 {
		return nil, nil
	}
	return s.FetchPosts(ctx, PostFilter{IDs: ids}, limit)
}

// WriteEdge inserts an edge unless it already exists
func (s *MemoryStore) WriteEdge(ctx context.Context, kind EdgeKind, actorID, targetID uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey{actor: actorID, target: targetID}
	switch kind {
	case EdgeLike:
		if _, ok := s.likes[key]; ok {
			return false, nil
		}
		s.likes[key] = s.now()
	case EdgeFollow:
		if actorID == targetID {
			return false, fmt.Errorf("%w: self follow", ErrInvalidEdge)
		}
		if _, ok := s.follows[key]; ok {
			return false, nil
		}
		s.follows[key] = s.now()
	case EdgeRepost:
		if _, ok := s.findRepost(actorID, targetID); ok {
			return false, nil
		}
		target := targetID
		p := models.Post{ID: uuid.New(), UserID: actorID, RepostOf: &target, CreatedAt: s.now()}
		s.posts[p.ID] = p
	default:
		return false, fmt.Errorf("%w: cannot write %q edges", ErrInvalidEdge, kind)
	}
	return true, nil
}

// DeleteEdge removes an edge if present
func (s *MemoryStore) DeleteEdge(ctx context.Context, kind EdgeKind, actorID, targetID uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey{actor: actorID, target: targetID}
	switch kind {
	case EdgeLike:
		if _, ok := s.likes[key]; !ok {
			return false, nil
		}
		delete(s.likes, key)
	case EdgeFollow:
		if _, ok := s.follows[key]; !ok {
			return false, nil
		}
		delete(s.follows, key)
	case EdgeRepost:
		id, ok := s.findRepost(actorID, targetID)
		if !ok {
			return false, nil
		}
		delete(s.posts, id)
	default:
		return false, fmt.Errorf("%w: cannot delete %q edges", ErrInvalidEdge, kind)
	}
	return true, nil
}

// AppendInteraction appends a row to the interaction log
func (s *MemoryStore) AppendInteraction(ctx context.Context, record *models.Interaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	s.interactions = append(s.interactions, *record)
	return nil
}

// CreatePost inserts a post or reply
func (s *MemoryStore) CreatePost(ctx context.Context, post *models.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	if _, exists := s.posts[post.ID]; exists {
		return fmt.Errorf("create post: duplicate id %s", post.ID)
	}
	if post.RepostOf != nil {
		if _, dup := s.findRepost(post.UserID, *post.RepostOf); dup {
			return fmt.Errorf("create post: duplicate repost of %s", *post.RepostOf)
		}
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = s.now()
	}
	stored := clonePost(*post)
	stored.Author = models.Profile{}
	s.posts[post.ID] = stored
	return nil
}

// IncrementViews bumps the view counter of a post
func (s *MemoryStore) IncrementViews(ctx context.Context, postID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok {
		return ErrNotFound
	}
	p.ViewCount++
	s.posts[postID] = p
	return nil
}

// SetPinned sets the pin flag of a post owned by ownerID
func (s *MemoryStore) SetPinned(ctx context.Context, postID, ownerID uuid.UUID, pinned bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID]
	if !ok || p.UserID != ownerID {
		return ErrNotFound
	}
	p.IsPinned = pinned
	s.posts[postID] = p
	return nil
}

// findRepost must be called with the lock held
func (s *MemoryStore) findRepost(actorID, originalID uuid.UUID) (uuid.UUID, bool) {
	for id, p := range s.posts {
		if p.UserID == actorID && p.RepostOf != nil && *p.RepostOf == originalID {
			return id, true
		}
	}
	return uuid.Nil, false
}

func clonePost(p models.Post) models.Post {
	if p.MediaURLs != nil {
		p.MediaURLs = append(models.StringList(nil), p.MediaURLs...)
	}
	if p.Tags != nil {
		p.Tags = append(models.StringList(nil), p.Tags...)
	}
	if p.ReplyTo != nil {
		v := *p.ReplyTo
		p.ReplyTo = &v
	}
	if p.RepostOf != nil {
		v := *p.RepostOf
		p.RepostOf = &v
	}
	return p
}

func toSet(ids []uuid.UUID) map[uuid.UUID]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
