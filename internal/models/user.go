// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an account in the blog.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	PubID     string    `gorm:"size:32;uniqueIndex;not null" json:"pub_id"`
	Username  string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email,omitempty"`
	Name      string    `gorm:"size:255" json:"name"`
	Password  string    `gorm:"not null" json:"-"`
	IsActive  bool      `gorm:"not null;default:false;index" json:"is_active"`
	LastIP    string    `gorm:"size:64" json:"-"`
	PostCount int       `gorm:"not null;default:0" json:"post_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns the opaque public id.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.PubID == "" {
		u.PubID = NewOpaqueID()
	}
	return nil
}

// Ref returns the public reference embedded in other payloads.
func (u *User) Ref() *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{PubID: u.PubID, Username: u.Username}
}

// UserRef is the public face of a user inside post, follow and reaction payloads.
type UserRef struct {
	PubID    string `json:"pub_id"`
	Username string `json:"username"`
}

// UserProfile is a user with follow graph counts.
type UserProfile struct {
	User
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
}

// NewOpaqueID returns a random 32 character hex identifier.
func NewOpaqueID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
