package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Profile is a registered user as seen by other users
type Profile struct {
	ID          uuid.UUID `json:"id" db:"id" gorm:"primaryKey;type:uuid"`
	Username    string    `json:"username" db:"username" gorm:"uniqueIndex;not null"`
	DisplayName string    `json:"display_name" db:"display_name"`
	AvatarURL   string    `json:"avatar_url" db:"avatar_url"`
	Bio         string    `json:"bio" db:"bio"`
	IsVerified  bool      `json:"is_verified" db:"is_verified" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at" db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for the Profile model
func (Profile) TableName() string {
	return "profiles"
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
