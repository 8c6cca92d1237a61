package services

import (
	"context"
	"testing"

	"socialfeed/internal/models"
	"socialfeed/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	return db
}

func createProfile(t *testing.T, db *gorm.DB, username string, verified bool) models.Profile {
	p := models.Profile{Username: username, DisplayName: username, IsVerified: verified}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// MockStore lets tests fail individual store calls. Calls that are not
// overridden go to the embedded store.
type MockStore struct {
	store.Store
	mock.Mock
}

func (m *MockStore) WriteEdge(ctx context.Context, kind store.EdgeKind, actorID, targetID uuid.UUID) (bool, error) {
	args := m.Called(ctx, kind, actorID, targetID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) AppendInteraction(ctx context.Context, record *models.Interaction) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}
