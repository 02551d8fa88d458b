package models

import "time"

// ReactionValue is the stored state of a user's reaction to a post.
// Neutral is represented by the absence of a row.
type ReactionValue int

const (
	// ReactionDislike marks a disliked post.
	ReactionDislike ReactionValue = -1
	// ReactionLike marks a liked post.
	ReactionLike ReactionValue = 1
)

// String returns the verb used in messages and metrics.
func (v ReactionValue) String() string {
	switch v {
	case ReactionLike:
		return "liked"
	case ReactionDislike:
		return "disliked"
	default:
		return "neutral"
	}
}

// PostReaction holds one user's like or dislike of one post.
type PostReaction struct {
	UserID    uint          `gorm:"primaryKey;autoIncrement:false" json:"-"`
	PostID    uint          `gorm:"primaryKey;autoIncrement:false;index" json:"-"`
	Value     ReactionValue `gorm:"type:smallint;not null" json:"value"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Post *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (PostReaction) TableName() string {
	return "post_reactions"
}

// PostBookmark records that a user saved a post.
type PostBookmark struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"-"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"-"`
	CreatedAt time.Time `json:"created_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Post *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (PostBookmark) TableName() string {
	return "post_bookmarks"
}

// ReactionCounts are the engagement totals recomputed after every reaction.
type ReactionCounts struct {
	Likes    int `json:"likes_count"`
	Dislikes int `json:"dislikes_count"`
}

// Score is likes minus dislikes.
func (c ReactionCounts) Score() int {
	return c.Likes - c.Dislikes
}
