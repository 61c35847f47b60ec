package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vidshare_backend/internal/model"
	"vidshare_backend/pkg/database"
)

// NewTestDB opens a private in-memory SQLite database, migrates every model
// and installs it as database.DB for the duration of the test.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("could not open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("could not get sql.DB: %v", err)
	}
	// every connection to :memory: is a new database
	sqlDB.SetMaxOpenConns(1)

	original := database.DB
	database.DB = db
	if err := database.MigrateDatabase(model.All()...); err != nil {
		database.DB = original
		t.Fatalf("could not migrate test database: %v", err)
	}
	t.Cleanup(func() {
		database.DB = original
		sqlDB.Close()
	})

	return db
}

// CreateUser inserts a user whose password is "secret123"
func CreateUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("could not hash password: %v", err)
	}

	user := &model.User{
		Email:       username + "@example.com",
		Password:    string(hash),
		Username:    username,
		Name:        username,
		ChannelName: username,
		ChannelSlug: username,
		City:        "Chennai",
		State:       "Tamil Nadu",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("could not create user: %v", err)
	}
	return user
}

func CreateVideo(t *testing.T, db *gorm.DB, owner *model.User, fileName string) *model.Video {
	t.Helper()

	video := &model.Video{
		UserID:   owner.ID,
		Title:    "Test video " + fileName,
		FileName: fileName,
		Status:   model.VideoStatusReady,
	}
	if err := db.Create(video).Error; err != nil {
		t.Fatalf("could not create video: %v", err)
	}
	return video
}
