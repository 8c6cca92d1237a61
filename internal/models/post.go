package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a row of the posts table. A post with RepostOf set is a repost
// event: it carries no content of its own and points at the original.
// A post with ReplyTo set is a reply to its parent.
type Post struct {
	ID        uuid.UUID  `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_posts_user_repost"`
	Content   string     `json:"content" db:"content" gorm:"type:text"`
	MediaURLs StringList `json:"media_urls" db:"media_urls"`
	MediaType string     `json:"media_type" db:"media_type"` // "image", "video" or empty
	ReplyTo   *uuid.UUID `json:"reply_to" db:"reply_to" gorm:"type:uuid;index"`
	RepostOf  *uuid.UUID `json:"repost_of" db:"repost_of" gorm:"type:uuid;index;uniqueIndex:idx_posts_user_repost"`
	IsPinned  bool       `json:"is_pinned" db:"is_pinned" gorm:"default:false"`
	ViewCount int        `json:"view_count" db:"view_count" gorm:"default:0"`
	Tags      StringList `json:"tags" db:"tags"` // lower-cased hashtags without '#'

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Author Profile `json:"author,omitempty" gorm:"foreignKey:UserID;references:ID"`
}

// TableName sets the table name for the Post model
func (Post) TableName() string {
	return "posts"
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return nil
}

// IsRepost reports whether the row is a repost event
func (p *Post) IsRepost() bool {
	return p.RepostOf != nil
}

// Like is a (user, post) like edge. The pair is unique.
type Like struct {
	ID        uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	UserID    uuid.UUID `json:"user_id" db:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_likes_user_post"`
	PostID    uuid.UUID `json:"post_id" db:"post_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_likes_user_post"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the Like model
func (Like) TableName() string {
	return "likes"
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
