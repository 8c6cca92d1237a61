// Package ranking holds the pure part of the feed: sub-score functions over
// resolved posts and the composer that turns scored posts into an ordered
// feed. Nothing in this package performs I/O.
package ranking

import (
	"fmt"
	"time"

	"socialfeed/internal/models"

	"github.com/google/uuid"
)

// Mode selects how a feed is ordered
type Mode string

const (
	Chronological Mode = "chronological"
	Algorithmic   Mode = "algorithmic"
)

// ParseMode validates a mode name. An empty string yields fallback.
func ParseMode(s string, fallback Mode) (Mode, error) {
	switch Mode(s) {
	case "":
		return fallback, nil
	case Chronological, Algorithmic:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown feed mode %q", s)
}

// ResolvedPost is a feed entry with repost indirection already followed.
// Post is always the original; the repost fields describe the event that
// put it into the feed.
type ResolvedPost struct {
	// EntryID identifies the feed entry: the repost row for reposts, the post otherwise
	EntryID            uuid.UUID   `json:"entry_id"`
	Post               models.Post `json:"post"`
	IsRepost           bool        `json:"is_repost"`
	RepostedByID       uuid.UUID   `json:"reposted_by_id,omitempty"`
	RepostedByUsername string      `json:"reposted_by_username,omitempty"`
	RepostedAt         *time.Time  `json:"reposted_at,omitempty"`
}

// FromPost wraps an original post as a feed entry
func FromPost(p models.Post) ResolvedPost {
	return ResolvedPost{EntryID: p.ID, Post: p}
}

// FromRepost builds the entry for repost row r of original
func FromRepost(r models.Post, original models.Post) ResolvedPost {
	at := r.CreatedAt
	return ResolvedPost{
		EntryID:            r.ID,
		Post:               original,
		IsRepost:           true,
		RepostedByID:       r.UserID,
		RepostedByUsername: r.Author.Username,
		RepostedAt:         &at,
	}
}

// EffectiveAt is the time the entry entered the feed
func (r ResolvedPost) EffectiveAt() time.Time {
	if r.IsRepost && r.RepostedAt != nil {
		return *r.RepostedAt
	}
	return r.Post.CreatedAt
}

// EngagementMetrics are the per-fetch counts of an original post
type EngagementMetrics struct {
	LikeCount         int  `json:"like_count"`
	RepostCount       int  `json:"repost_count"`
	ReplyCount        int  `json:"reply_count"`
	ViewCount         int  `json:"view_count"`
	ViewerHasLiked    bool `json:"viewer_has_liked"`
	ViewerHasReposted bool `json:"viewer_has_reposted"`
}

// weighted is the damped-input engagement count shared by the engagement and
// virality scores
func (m EngagementMetrics) weighted() float64 {
	return float64(max(m.LikeCount, 0)) +
		2*float64(max(m.RepostCount, 0)) +
		1.5*float64(max(m.ReplyCount, 0))
}

// ScoredPost is a resolved post with its metrics and scores
type ScoredPost struct {
	ResolvedPost
	Metrics    EngagementMetrics  `json:"metrics"`
	SubScores  map[string]float64 `json:"sub_scores"`
	TotalScore float64            `json:"total_score"`
}
