package models

import (
	"time"

	"gorm.io/gorm"
)

// Tag labels posts. Names are unique regardless of case.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	PubID     string    `gorm:"size:32;uniqueIndex;not null" json:"pub_id"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	PostCount int64     `gorm:"->;-:migration" json:"post_count,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Tag) TableName() string {
	return "tags"
}

// BeforeCreate assigns the opaque public id.
func (t *Tag) BeforeCreate(_ *gorm.DB) error {
	if t.PubID == "" {
		t.PubID = NewOpaqueID()
	}
	return nil
}
