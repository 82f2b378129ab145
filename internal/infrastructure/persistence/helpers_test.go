package persistence

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/thirdhand/marketplace/internal/domain/catalog"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/infrastructure/persistence/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	identity.BcryptCost = bcrypt.MinCost
}

// setupTestDB opens an in-memory SQLite database with every marketplace table
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a second connection would see a different in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string, role identity.Role) *identity.User {
	t.Helper()
	user, _, err := identity.NewUser(username, username+"@example.com", "password123", role)
	require.NoError(t, err)
	require.NoError(t, NewGormUserRepository(db).Create(t.Context(), user))
	return user
}

func newTestArtwork(t *testing.T, artistID uuid.UUID, title string, price string, tags ...string) *catalog.Artwork {
	t.Helper()
	artwork, err := catalog.NewArtwork(artistID, catalog.Details{
		Title:       title,
		Description: "A piece called " + title,
		Price:       decimal.RequireFromString(price),
		Images:      []string{"https://cdn.example.com/" + title + ".jpg"},
		Tags:        tags,
		Medium:      "Oil",
		IsOriginal:  true,
	})
	require.NoError(t, err)
	return artwork
}

func createTestArtwork(t *testing.T, db *gorm.DB, artistID uuid.UUID, title string, price string, tags ...string) *catalog.Artwork {
	t.Helper()
	artwork := newTestArtwork(t, artistID, title, price, tags...)
	require.NoError(t, NewGormArtworkRepository(db).Create(t.Context(), artwork))
	return artwork
}
