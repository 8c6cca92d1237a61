package feeds

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"socialfeed/internal/logging"
	"socialfeed/internal/models"
	"socialfeed/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// flakyStore wraps a store and fails or stalls selected reads. A stalled
// read blocks until its context is done.
type flakyStore struct {
	store.Store

	mu              sync.Mutex
	failPosts       bool
	failPostsByID   bool
	failFollowing   bool
	failInteraction bool
	stallFollowing  bool
	stallEdges      bool
	failEdgesFor    map[uuid.UUID]bool
	edgeCalls       int
	extraEdges      []store.Edge
}

func (f *flakyStore) FetchPosts(ctx context.Context, filter store.PostFilter, limit int) ([]models.Post, error) {
	if f.failPosts && len(filter.IDs) == 0 {
		return nil, errBoom
	}
	if f.failPostsByID && len(filter.IDs) > 0 {
		return nil, errBoom
	}
	return f.Store.FetchPosts(ctx, filter, limit)
}

func (f *flakyStore) FetchFollowing(ctx context.Context, viewerID uuid.UUID) ([]uuid.UUID, error) {
	if f.failFollowing {
		return nil, errBoom
	}
	if f.stallFollowing {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.Store.FetchFollowing(ctx, viewerID)
}

func (f *flakyStore) FetchInteractions(ctx context.Context, viewerID uuid.UUID, limit int) ([]models.Interaction, error) {
	if f.failInteraction {
		return nil, errBoom
	}
	return f.Store.FetchInteractions(ctx, viewerID, limit)
}

func (f *flakyStore) FetchEdges(ctx context.Context, kind store.EdgeKind, targetIDs []uuid.UUID) ([]store.Edge, error) {
	f.mu.Lock()
	f.edgeCalls++
	f.mu.Unlock()
	if f.stallEdges {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	for _, id := range targetIDs {
		if f.failEdgesFor[id] {
			return nil, errBoom
		}
	}
	edges, err := f.Store.FetchEdges(ctx, kind, targetIDs)
	if err != nil {
		return nil, err
	}
	if kind == store.EdgeLike {
		edges = append(edges, f.extraEdges...)
	}
	return edges, nil
}

// world is a small social graph in a memory store
type world struct {
	store *store.MemoryStore
	now   time.Time
	users map[string]models.Profile
}

func newWorld(t *testing.T, names ...string) *world {
	w := &world{
		store: store.NewMemoryStore(),
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		users: make(map[string]models.Profile),
	}
	for _, n := range names {
		w.users[n] = w.store.AddProfile(models.Profile{Username: n, DisplayName: n})
	}
	return w
}

func (w *world) id(name string) uuid.UUID { return w.users[name].ID }

func (w *world) post(t *testing.T, author string, age time.Duration, content string) models.Post {
	p := models.Post{UserID: w.id(author), Content: content, CreatedAt: w.now.Add(-age)}
	require.NoError(t, w.store.CreatePost(context.Background(), &p))
	return p
}

func (w *world) repost(t *testing.T, reposter string, original uuid.UUID, age time.Duration) models.Post {
	target := original
	p := models.Post{UserID: w.id(reposter), RepostOf: &target, CreatedAt: w.now.Add(-age)}
	require.NoError(t, w.store.CreatePost(context.Background(), &p))
	return p
}

func (w *world) follow(t *testing.T, follower, following string) {
	_, err := w.store.WriteEdge(context.Background(), store.EdgeFollow, w.id(follower), w.id(following))
	require.NoError(t, err)
}

func (w *world) like(t *testing.T, who string, post uuid.UUID) {
	_, err := w.store.WriteEdge(context.Background(), store.EdgeLike, w.id(who), post)
	require.NoError(t, err)
}

func (w *world) service(s store.Store, opts Options) *FeedService {
	fs := NewFeedService(s, opts, logging.Nop(), nil)
	fs.now = func() time.Time { return w.now }
	return fs
}

func (w *world) reply(t *testing.T, author string, parent uuid.UUID, age time.Duration) models.Post {
	target := parent
	p := models.Post{UserID: w.id(author), Content: "reply", ReplyTo: &target, CreatedAt: w.now.Add(-age)}
	require.NoError(t, w.store.CreatePost(context.Background(), &p))
	return p
}

func postFilterAll() store.PostFilter {
	return store.PostFilter{}
}
