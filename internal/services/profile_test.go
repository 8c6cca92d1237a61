package services

import (
	"context"
	"testing"
	"time"

	"socialfeed/internal/logging"
	"socialfeed/internal/models"
	"socialfeed/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService_TimelinePinnedFirst(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	owner := s.AddProfile(models.Profile{Username: "owner"})
	other := s.AddProfile(models.Profile{Username: "other"})
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	add := func(author uuid.UUID, content string, age time.Duration) models.Post {
		p := models.Post{UserID: author, Content: content, CreatedAt: now.Add(-age)}
		require.NoError(t, s.CreatePost(ctx, &p))
		return p
	}
	oldest := add(owner.ID, "oldest", 3*time.Hour)
	middle := add(owner.ID, "middle", 2*time.Hour)
	newest := add(owner.ID, "newest", time.Hour)
	theirs := add(other.ID, "theirs", time.Hour)
	reply := models.Post{UserID: owner.ID, Content: "reply", ReplyTo: &theirs.ID, CreatedAt: now}
	require.NoError(t, s.CreatePost(ctx, &reply))
	_, err := s.WriteEdge(ctx, store.EdgeRepost, owner.ID, theirs.ID)
	require.NoError(t, err)
	_, err = s.WriteEdge(ctx, store.EdgeLike, other.ID, oldest.ID)
	require.NoError(t, err)

	svc := NewProfileService(s, logging.Nop())

	pinned, err := svc.TogglePin(ctx, owner.ID, oldest.ID)
	require.NoError(t, err)
	assert.True(t, pinned)

	timeline, err := svc.Timeline(ctx, other.ID, owner.ID, 10)
	require.NoError(t, err)
	require.Len(t, timeline, 3, "replies and reposts stay off the timeline")
	assert.Equal(t, oldest.ID, timeline[0].ID)
	assert.True(t, timeline[0].IsPinned)
	assert.Equal(t, 1, timeline[0].Metrics.LikeCount)
	assert.True(t, timeline[0].Metrics.ViewerHasLiked)
	assert.Equal(t, newest.ID, timeline[1].ID)
	assert.Equal(t, middle.ID, timeline[2].ID)

	pinned, err = svc.TogglePin(ctx, owner.ID, oldest.ID)
	require.NoError(t, err)
	assert.False(t, pinned)

	timeline, err = svc.Timeline(ctx, other.ID, owner.ID, 1)
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	assert.Equal(t, newest.ID, timeline[0].ID)
}

func TestProfileService_TogglePinRejects(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	owner := s.AddProfile(models.Profile{Username: "owner"})
	other := s.AddProfile(models.Profile{Username: "other"})
	post := models.Post{UserID: owner.ID, Content: "mine"}
	require.NoError(t, s.CreatePost(ctx, &post))
	reply := models.Post{UserID: owner.ID, Content: "reply", ReplyTo: &post.ID}
	require.NoError(t, s.CreatePost(ctx, &reply))

	svc := NewProfileService(s, logging.Nop())

	tests := []struct {
		name   string
		viewer uuid.UUID
		postID uuid.UUID
		want   error
	}{
		{"someone else's post", other.ID, post.ID, ErrNotPostOwner},
		{"reply", owner.ID, reply.ID, ErrInvalidPost},
		{"unknown post", owner.ID, uuid.New(), store.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.TogglePin(ctx, tt.viewer, tt.postID)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	stored, err := store.FetchPost(ctx, s, post.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsPinned)
}
