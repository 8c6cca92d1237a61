package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Follow represents the relationship between a user and a user they follow
type Follow struct {
	ID          uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	FollowerID  uuid.UUID `json:"follower_id" db:"follower_id" gorm:"type:uuid;not null;uniqueIndex:idx_follows_pair"`
	FollowingID uuid.UUID `json:"following_id" db:"following_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_follows_pair"`
	CreatedAt   time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
}

// TableName sets the table name for the Follow model
func (Follow) TableName() string {
	return "follows"
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	ensureID(&f.ID)
	return nil
}
