package services

import (
	"testing"

	"github.com/pushp314/courier-backend/internal/database"
	"github.com/pushp314/courier-backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB points database.DB at an in-memory SQLite store with a
// clean schema. Rate limiting is disabled unless a test installs a
// limiter itself.
func setupTestDB(t *testing.T) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	database.DB = db

	if err := db.AutoMigrate(
		&models.User{},
		&models.Message{},
		&models.MessageHistory{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	// cache=shared keeps rows across connections; start each test clean.
	db.Exec("DELETE FROM notifications")
	db.Exec("DELETE FROM message_histories")
	db.Exec("DELETE FROM messages")
	db.Exec("DELETE FROM users")

	SetRateLimiter(nil)
}

func createTestUser(t *testing.T, id, username string) models.User {
	t.Helper()

	user := models.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
	}
	if err := database.DB.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}
