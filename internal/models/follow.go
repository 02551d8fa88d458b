package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// UserFollowing is a directed follow edge from UserID to FollowingUserID.
type UserFollowing struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	UserID          uint      `gorm:"not null;uniqueIndex:idx_user_following_pair" json:"-"`
	FollowingUserID uint      `gorm:"not null;uniqueIndex:idx_user_following_pair;index" json:"-"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`

	// Relationships
	User          *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	FollowingUser *User `gorm:"foreignKey:FollowingUserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (UserFollowing) TableName() string {
	return "user_followings"
}

// BeforeCreate refuses self follows by comparing account emails, not ids.
func (f *UserFollowing) BeforeCreate(tx *gorm.DB) error {
	if f.UserID == f.FollowingUserID {
		return NewValidationError("You can not follow yourself.")
	}

	var emails []string
	if err := tx.Session(&gorm.Session{NewDB: true}).
		Model(&User{}).
		Where("id IN ?", []uint{f.UserID, f.FollowingUserID}).
		Pluck("email", &emails).Error; err != nil {
		return err
	}
	if len(emails) == 2 && strings.EqualFold(emails[0], emails[1]) {
		return NewValidationError("You can not follow yourself.")
	}
	return nil
}
