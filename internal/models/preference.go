package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserFeedPreference represents per-user overrides for feed ranking.
// Nil weights fall back to the process defaults.
type UserFeedPreference struct {
	ID     uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	UserID uuid.UUID `json:"user_id" db:"user_id" gorm:"type:uuid;not null;uniqueIndex"`

	// Preference weights
	EngagementWeight *float64 `json:"engagement_weight" db:"engagement_weight"`
	AffinityWeight   *float64 `json:"affinity_weight" db:"affinity_weight"`
	RelevanceWeight  *float64 `json:"relevance_weight" db:"relevance_weight"`
	ViralityWeight   *float64 `json:"virality_weight" db:"virality_weight"`
	RecencyWeight    *float64 `json:"recency_weight" db:"recency_weight"`

	DiversityWindow *int   `json:"diversity_window" db:"diversity_window"`
	DefaultMode     string `json:"default_mode" db:"default_mode"` // "chronological", "algorithmic" or empty

	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the UserFeedPreference model
func (UserFeedPreference) TableName() string {
	return "user_feed_preferences"
}

func (p *UserFeedPreference) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
