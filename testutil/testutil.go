// Package testutil wires an in-memory store and configuration for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/yatube/config"
	"github.com/cppla/yatube/models"
	"github.com/cppla/yatube/utils"
)

// Config is the configuration tests run with.
func Config() config.AppConfig {
	return config.AppConfig{
		JWTSecret:          "test-secret",
		TokenTTLHours:      1,
		PostsPerPage:       10,
		RateLimitPerMinute: 10000,
		AdminUsernames:     []string{"admin"},
		DBDriver:           "sqlite",
		DatabaseURI:        ":memory:",
		LogLevel:           "silent",
		GinMode:            "test",
	}
}

// Setup installs the test configuration and returns a migrated in-memory database.
func Setup(t *testing.T) *gorm.DB {
	t.Helper()
	config.Set(Config())

	db, err := config.OpenDatabase(config.Get())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := config.Migrate(db, models.All()...); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateUser stores a user with a known password of "password".
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword("password")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{Username: username, PasswordHash: hash, Provider: "local"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// CreateGroup stores a group with the given slug.
func CreateGroup(t *testing.T, db *gorm.DB, slug string) *models.Group {
	t.Helper()
	group := &models.Group{Title: fmt.Sprintf("Group %s", slug), Slug: slug, Description: "test group"}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("create group: %v", err)
	}
	return group
}

// CreatePost stores a post; group may be nil.
func CreatePost(t *testing.T, db *gorm.DB, author *models.User, group *models.Group, text string) *models.Post {
	t.Helper()
	post := &models.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		post.GroupID = &group.ID
	}
	if err := db.Omit("Author", "Group").Create(post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return post
}

// CreatePostAt stores a post with an explicit publication date.
func CreatePostAt(t *testing.T, db *gorm.DB, author *models.User, text string, at time.Time) *models.Post {
	t.Helper()
	post := &models.Post{Text: text, AuthorID: author.ID, PubDate: at}
	if err := db.Omit("Author", "Group").Create(post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return post
}

// Token issues a session token for user.
func Token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(user.ID, user.Username)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}
