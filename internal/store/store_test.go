package store

import (
	"context"
	"testing"
	"time"

	"socialfeed/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fixture lets the same contract run against every Store implementation
type fixture struct {
	store      Store
	addProfile func(t *testing.T, username string) models.Profile
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// a single connection keeps the in-memory database alive across queries
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func gormFixture(t *testing.T) fixture {
	db := setupTestDB(t)
	return fixture{
		store: NewGormStore(db),
		addProfile: func(t *testing.T, username string) models.Profile {
			p := models.Profile{Username: username, DisplayName: username}
			require.NoError(t, db.Create(&p).Error)
			return p
		},
	}
}

func memoryFixture(t *testing.T) fixture {
	s := NewMemoryStore()
	return fixture{
		store: s,
		addProfile: func(t *testing.T, username string) models.Profile {
			return s.AddProfile(models.Profile{Username: username, DisplayName: username})
		},
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, f fixture)) {
	t.Run("gorm", func(t *testing.T) { fn(t, gormFixture(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, memoryFixture(t)) })
}

func createPost(t *testing.T, s Store, author uuid.UUID, content string, at time.Time) models.Post {
	p := models.Post{UserID: author, Content: content, CreatedAt: at}
	require.NoError(t, s.CreatePost(context.Background(), &p))
	return p
}

func TestStore_LikeEdgeIsASet(t *testing.T) {
	forEachStore(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		alice := f.addProfile(t, "alice")
		bob := f.addProfile(t, "bob")
		post := createPost(t, f.store, bob.ID, "hello", time.Now().UTC().Truncate(time.Second))

		created, err := f.store.WriteEdge(ctx, EdgeLike, alice.ID, post.ID)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = f.store.WriteEdge(ctx, EdgeLike, alice.ID, post.ID)
		require.NoError(t, err)
		assert.False(t, created, "second like must be a no-op")

		edges, err := f.store.FetchEdges(ctx, EdgeLike, []uuid.UUID{post.ID})
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, Edge{ActorID: alice.ID, TargetID: post.ID}, edges[0])

		removed, err := f.store.DeleteEdge(ctx, EdgeLike, alice.ID, post.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = f.store.DeleteEdge(ctx, EdgeLike, alice.ID, post.ID)
		require.NoError(t, err)
		assert.False(t, removed)

		edges, err = f.store.FetchEdges(ctx, EdgeLike, []uuid.UUID{post.ID})
		require.NoError(t, err)
		assert.Empty(t, edges)
	})
}

func TestStore_RepostEdgeIsAPostRow(t *testing.T) {
	forEachStore(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		alice := f.addProfile(t, "alice")
		bob := f.addProfile(t, "bob")
		original := createPost(t, f.store, bob.ID, "original", time.Now().UTC().Add(-time.Hour).Truncate(time.Second))

		created, err := f.store.WriteEdge(ctx, EdgeRepost, alice.ID, original.ID)
		require.NoError(t, err)
		assert.True(t, created)
		created, err = f.store.WriteEdge(ctx, EdgeRepost, alice.ID, original.ID)
		require.NoError(t, err)
		assert.False(t, created)

		edges, err := f.store.FetchEdges(ctx, EdgeRepost, []uuid.UUID{original.ID})
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, alice.ID, edges[0].ActorID)

		posts, err := f.store.FetchPosts(ctx, PostFilter{AuthorIn: []uuid.UUID{alice.ID}}, 10)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		require.NotNil(t, posts[0].RepostOf)
		assert.Equal(t, original.ID, *posts[0].RepostOf)
		assert.Empty(t, posts[0].Content)
		assert.Equal(t, "alice", posts[0].Author.Username)

		removed, err := f.store.DeleteEdge(ctx, EdgeRepost, alice.ID, original.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		posts, err = f.store.FetchPosts(ctx, PostFilter{AuthorIn: []uuid.UUID{alice.ID}}, 10)
		require.NoError(t, err)
		assert.Empty(t, posts)
	})
}

func TestStore_FollowEdges(t *testing.T) {
	forEachStore(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		alice := f.addProfile(t, "alice")
		bob := f.addProfile(t, "bob")

		_, err := f.store.WriteEdge(ctx, EdgeFollow, alice.ID, alice.ID)
		assert.ErrorIs(t, err, ErrInvalidEdge)

		created, err := f.store.WriteEdge(ctx, EdgeFollow, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, created)

		following, err := f.store.FetchFollowing(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{bob.ID}, following)

		followers, err := f.store.FetchEdges(ctx, EdgeFollow, []uuid.UUID{bob.ID})
		require.NoError(t, err)
		require.Len(t, followers, 1)
		assert.Equal(t, alice.ID, followers[0].ActorID)

		following, err = f.store.FetchFollowing(ctx, bob.ID)
		require.NoError(t, err)
		assert.Empty(t, following)
	})
}

func TestStore_ReplyEdgesAreReadOnly(t *testing.T) {
	forEachStore(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		alice := f.addProfile(t, "alice")
		bob := f.addProfile(t, "bob")
		now := time.Now().UTC().Truncate(time.Second)
		parent := createPost(t, f.store, bob.ID, "parent", now.Add(-time.Minute))

		reply := models.Post{UserID: alice.ID, Content: "reply", ReplyTo: &parent.ID, CreatedAt: now}
		require.NoError(t, f.store.CreatePost(ctx, &reply))

		edges, err := f.store.FetchEdges(ctx, EdgeReply, []uuid.UUID{parent.ID})
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, alice.ID, edges[0].ActorID)

		_, err = f.store.WriteEdge(ctx, EdgeReply, alice.ID, parent.ID)
		assert.ErrorIs(t, err, ErrInvalidEdge)
	})
}

func TestStore_FetchPostsFilters(t *testing.T) {
	forEachStore(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		alice := f.addProfile(t, "alice")
		bob := f.addProfile(t, "bob")
		now := time.Now().UTC().Truncate(time.Second)

		old := createPost(t, f.store, alice.ID, "old", now.Add(-48*time.Hour))
		mid := createPost(t, f.store, alice.ID, "mid", now.Add(-2*time.Hour))
		recent := createPost(t, f.store, bob.ID, "recent", now.Add(-time.Hour))
		reply := models.Post{UserID: bob.ID, Content: "reply", ReplyTo: &mid.ID, CreatedAt: now}
		require.NoError(t, f.store.CreatePost(ctx, &reply))

		t.Run("newest first", func(t *testing.T) {
			posts, err := f.store.FetchPosts(ctx, PostFilter{}, 0)
			require.NoError(t, err)
			require.Len(t, posts, 4)
			assert.Equal(t, reply.ID, posts[0].ID)
			assert.Equal(t, old.ID, posts[3].ID)
		})

		t.Run("oldest first with limit", func(t *testing.T) {
			posts, err := f.store.FetchPosts(ctx, PostFilter{OrderBy: OldestFirst}, 2)
			require.NoError(t, err)
			require.Len(t, posts, 2)
			assert.Equal(t, old.ID, posts[0].ID)
			assert.Equal(t, mid.ID, posts[1].ID)
		})

		t.Run("author and replies", func(t *testing.T) {
			posts, err := f.store.FetchPosts(ctx, PostFilter{AuthorIn: []uuid.UUID{bob.ID}, ExcludeReplies: true}, 10)
			require.NoError(t, err)
			require.Len(t, posts, 1)
			assert.Equal(t, recent.ID, posts[0].ID)
			assert.Equal(t, "bob", posts[0].Author.Username)
		})

		t.Run("since", func(t *testing.T) {
			since := now.Add(-3 * time.Hour)
			posts, err := f.store.FetchPosts(ctx, PostFilter{Since: &since}, 10)
			require.NoError(t, err)
			assert.Len(t, posts, 3)
		})

		t.Run("until is exclusive", func(t *testing.T) {
			until := mid.CreatedAt
			posts, err := f.store.FetchPosts(ctx, PostFilter{Until: &until}, 10)
			require.NoError(t, err)
			require.Len(t, posts, 1)
			assert.Equal(t, old.ID, posts[0].ID)
		})

		t.Run("replies to a post", func(t *testing.T) {
			posts, err := f.store.FetchPosts(ctx, PostFilter{ReplyTo: &mid.ID}, 10)
			require.NoError(t, err)
			require.Len(t, posts, 1)
			assert.Equal(t, reply.ID, posts[0].ID)
		})

		t.Run("by id", func(t *testing.T) {
			p, err := FetchPost(ctx, f.store, mid.ID)
			require.NoError(t, err)
			assert.Equal(t, "mid", p.Content)

			_, err = FetchPost(ctx, f.store, uuid.New())
			assert.ErrorIs(t, err, ErrNotFound)
		})
	})
}

func TestStore_PinnedPostsSortFirst(t *testing.T) {
	forEachStore(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		alice := f.addProfile(t, "alice")
		bob := f.addProfile(t, "bob")
		now := time.Now().UTC().Truncate(time.Second)

		older := createPost(t, f.store, alice.ID, "older", now.Add(-2*time.Hour))
		newer := createPost(t, f.store, alice.ID, "newer", now.Add(-time.Hour))

		require.NoError(t, f.store.SetPinned(ctx, older.ID, alice.ID, true))
		assert.ErrorIs(t, f.store.SetPinned(ctx, older.ID, bob.ID, false), ErrNotFound, "only the author can pin")
		assert.ErrorIs(t, f.store.SetPinned(ctx, uuid.New(), alice.ID, true), ErrNotFound)

		_, err := f.store.WriteEdge(ctx, EdgeRepost, alice.ID, createPost(t, f.store, bob.ID, "bob's", now.Add(-3*time.Hour)).ID)
		require.NoError(t, err)

		filter := PostFilter{AuthorIn: []uuid.UUID{alice.ID}, ExcludeReposts: true, PinnedFirst: true}
		posts, err := f.store.FetchPosts(ctx, filter, 10)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, older.ID, posts[0].ID)
		assert.True(t, posts[0].IsPinned)
		assert.Equal(t, newer.ID, posts[1].ID)

		require.NoError(t, f.store.SetPinned(ctx, older.ID, alice.ID, false))
		posts, err = f.store.FetchPosts(ctx, filter, 10)
		require.NoError(t, err)
		assert.Equal(t, newer.ID, posts[0].ID)
	})
}

func TestStore_Search(t *testing.T) {
	forEachStore(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		alice := f.addProfile(t, "alice")
		f.addProfile(t, "malice_99")
		f.addProfile(t, "bob")
		now := time.Now().UTC().Truncate(time.Second)

		older := createPost(t, f.store, alice.ID, "Learning Go generics", now.Add(-2*time.Hour))
		newer := createPost(t, f.store, alice.ID, "more GO today", now.Add(-time.Hour))
		createPost(t, f.store, alice.ID, "nothing to see", now)
		createPost(t, f.store, alice.ID, "100% sure", now)

		profiles, err := f.store.SearchProfiles(ctx, "ALIC", 10)
		require.NoError(t, err)
		require.Len(t, profiles, 2)
		assert.Equal(t, "alice", profiles[0].Username)
		assert.Equal(t, "malice_99", profiles[1].Username)

		profiles, err = f.store.SearchProfiles(ctx, "_", 10)
		require.NoError(t, err)
		require.Len(t, profiles, 1, "underscore is matched literally")

		posts, err := f.store.SearchPosts(ctx, "go", 10)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, newer.ID, posts[0].ID)
		assert.Equal(t, older.ID, posts[1].ID)
		assert.Equal(t, "alice", posts[0].Author.Username)

		posts, err = f.store.SearchPosts(ctx, "%", 10)
		require.NoError(t, err)
		assert.Len(t, posts, 1, "percent is matched literally")

		posts, err = f.store.SearchPosts(ctx, "go", 1)
		require.NoError(t, err)
		assert.Len(t, posts, 1)
	})
}

func TestStore_TagsRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		alice := f.addProfile(t, "alice")
		p := models.Post{
			UserID:    alice.ID,
			Content:   "#go is fun",
			Tags:      models.StringList{"go", "fun"},
			MediaURLs: models.StringList{"https://cdn.example.com/a.png"},
			MediaType: "image",
			CreatedAt: time.Now().UTC().Truncate(time.Second),
		}
		require.NoError(t, f.store.CreatePost(ctx, &p))

		got, err := FetchPost(ctx, f.store, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"go", "fun"}, []string(got.Tags))
		assert.Equal(t, []string{"https://cdn.example.com/a.png"}, []string(got.MediaURLs))
	})
}

func TestStore_InteractionsNewestFirst(t *testing.T) {
	forEachStore(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		alice := f.addProfile(t, "alice")
		bob := f.addProfile(t, "bob")
		now := time.Now().UTC().Truncate(time.Second)

		for i, w := range []float64{1, -1, 2} {
			require.NoError(t, f.store.AppendInteraction(ctx, &models.Interaction{
				ActorID:      alice.ID,
				TargetUserID: bob.ID,
				Kind:         models.InteractionLike,
				Weight:       w,
				CreatedAt:    now.Add(time.Duration(i) * time.Minute),
			}))
		}
		require.NoError(t, f.store.AppendInteraction(ctx, &models.Interaction{
			ActorID: bob.ID, TargetUserID: alice.ID, Kind: models.InteractionFollow, Weight: 3, CreatedAt: now,
		}))

		got, err := f.store.FetchInteractions(ctx, alice.ID, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 2.0, got[0].Weight)
		assert.Equal(t, -1.0, got[1].Weight)
	})
}

func TestStore_IncrementViews(t *testing.T) {
	forEachStore(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		alice := f.addProfile(t, "alice")
		p := createPost(t, f.store, alice.ID, "watch me", time.Now().UTC().Truncate(time.Second))

		require.NoError(t, f.store.IncrementViews(ctx, p.ID))
		require.NoError(t, f.store.IncrementViews(ctx, p.ID))

		got, err := FetchPost(ctx, f.store, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.ViewCount)

		assert.ErrorIs(t, f.store.IncrementViews(ctx, uuid.New()), ErrNotFound)
	})
}

func TestStore_PreferenceNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, f fixture) {
		_, err := f.store.FetchPreference(context.Background(), uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStore_HonoursCancellation(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.FetchPosts(ctx, PostFilter{}, 10)
	assert.ErrorIs(t, err, context.Canceled)
}
