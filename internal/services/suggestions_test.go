package services

import (
	"context"
	"testing"
	"time"

	"socialfeed/internal/models"
	"socialfeed/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestionService_Suggest(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	s := store.NewGormStore(db)
	now := time.Now().UTC()

	viewer := createProfile(t, db, "viewer", false)
	friend := createProfile(t, db, "friend", false)
	popular := createProfile(t, db, "popular", false)
	verified := createProfile(t, db, "verified", true)
	_ = verified
	active := createProfile(t, db, "active", false)
	quiet := createProfile(t, db, "quiet", false)

	follow := func(a, b models.Profile) {
		_, err := s.WriteEdge(ctx, store.EdgeFollow, a.ID, b.ID)
		require.NoError(t, err)
	}
	follow(viewer, friend)
	follow(friend, popular) // one mutual follower
	follow(quiet, popular)
	follow(active, popular)

	for i := 0; i < 3; i++ {
		p := models.Post{UserID: active.ID, Content: "busy", CreatedAt: now.Add(-time.Duration(i+1) * time.Hour)}
		require.NoError(t, s.CreatePost(ctx, &p))
	}
	old := models.Post{UserID: quiet.ID, Content: "long ago", CreatedAt: now.Add(-30 * 24 * time.Hour)}
	require.NoError(t, s.CreatePost(ctx, &old))

	got, err := NewSuggestionService(s).Suggest(ctx, viewer.ID, 10)
	require.NoError(t, err)

	var names []string
	byName := make(map[string]Suggestion)
	for _, sg := range got {
		names = append(names, sg.Profile.Username)
		byName[sg.Profile.Username] = sg
	}
	// active: 3 recent posts * 2 = 6; verified: 5; popular: 3 mutual + 0.3 followers = 3.3; quiet: 0
	assert.Equal(t, []string{"active", "verified", "popular", "quiet"}, names)
	assert.NotContains(t, names, "friend", "already followed")
	assert.NotContains(t, names, "viewer")

	assert.Equal(t, 1, byName["popular"].MutualFollowers)
	assert.Equal(t, 3, byName["popular"].Followers)
	assert.InDelta(t, 3.3, byName["popular"].Score, 1e-9)
	assert.Equal(t, 3, byName["active"].RecentPosts)
	assert.Equal(t, 0, byName["quiet"].RecentPosts)

	top, err := NewSuggestionService(s).Suggest(ctx, viewer.ID, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "active", top[0].Profile.Username)
}
