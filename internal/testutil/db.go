// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"testing"
	"time"

	"blogapi/internal/database"
	"blogapi/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Password is the plain text password given to every fixture user.
const Password = "Sup3r-Secret!"

// NewTestDB opens a private in-memory SQLite database with the full schema.
// The pool is pinned to one connection so every query sees the same database.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// CreateUser inserts an active user whose password is Password.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Name:     "Test User",
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

// LongContent returns post content of roughly the given number of words.
func LongContent(words int) string {
	buf := make([]byte, 0, words*6)
	for i := 0; i < words; i++ {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, "words"...)
	}
	return string(buf)
}

// CreatePost inserts an active post written by author.
func CreatePost(t testing.TB, db *gorm.DB, author *models.User, title string) *models.Post {
	t.Helper()

	post := &models.Post{
		Title:    title,
		Content:  LongContent(120),
		AuthorID: &author.ID,
	}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("create post %q: %v", title, err)
	}
	return post
}

// Age moves a row's created_at into the past so ordering tests are deterministic.
func Age(t testing.TB, db *gorm.DB, model any, id uint, by time.Duration) {
	t.Helper()
	if err := db.Model(model).Where("id = ?", id).UpdateColumn("created_at", time.Now().Add(-by)).Error; err != nil {
		t.Fatalf("age row: %v", err)
	}
}
