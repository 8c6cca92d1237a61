package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InteractionKind names the action that produced an interaction
type InteractionKind string

const (
	InteractionLike   InteractionKind = "like"
	InteractionRepost InteractionKind = "repost"
	InteractionReply  InteractionKind = "reply"
	InteractionFollow InteractionKind = "follow"
	InteractionView   InteractionKind = "view"
)

// Interaction is one entry of a viewer's append-only personalization log.
// Rows are never updated or deleted; undoing an action appends a row with
// the opposite-sign weight.
type Interaction struct {
	ID           uuid.UUID       `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	ActorID      uuid.UUID       `json:"actor_id" db:"actor_id" gorm:"type:uuid;not null;index:idx_interactions_actor_created"`
	TargetUserID uuid.UUID       `json:"target_user_id" db:"target_user_id" gorm:"type:uuid;not null;index"`
	PostID       *uuid.UUID      `json:"post_id" db:"post_id" gorm:"type:uuid"`
	Kind         InteractionKind `json:"kind" db:"kind" gorm:"not null"`
	Weight       float64         `json:"weight" db:"weight" gorm:"not null"`
	Topics       StringList      `json:"topics" db:"topics"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at" gorm:"index:idx_interactions_actor_created"`
}

// TableName sets the table name for the Interaction model
func (Interaction) TableName() string {
	return "interactions"
}

func (i *Interaction) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now().UTC()
	}
	return nil
}
