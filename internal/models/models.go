// Package models contains all data models for the socialfeed application
package models

import (
	"database/sql/driver"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// AllModels returns a slice of all model types for database migrations
func AllModels() []interface{} {
	return []interface{}{
		&Profile{},
		&Post{},
		&Like{},
		&Follow{},
		&Interaction{},
		&UserFeedPreference{},
	}
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

// StringList is a text array column. PostgreSQL stores it as text[]; other
// dialects keep the same array literal in a plain text column.
type StringList []string

// GormDBDataType picks the column type per dialect
func (StringList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// Value implements driver.Valuer using the PostgreSQL array literal format
func (l StringList) Value() (driver.Value, error) {
	return pq.StringArray(l).Value()
}

// Scan implements sql.Scanner
func (l *StringList) Scan(src interface{}) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*l = StringList(arr)
	return nil
}

// ensureID assigns a fresh UUID when the caller left the primary key empty
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
