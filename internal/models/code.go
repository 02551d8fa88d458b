package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultCodeTTL is how long a freshly issued or rotated code stays valid.
const DefaultCodeTTL = 72 * time.Hour

// CodeWindow is the value and lifetime shared by every emailed code.
type CodeWindow struct {
	Code      string    `gorm:"size:32;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
}

// NewCodeWindow issues a fresh code value valid for ttl from now.
func NewCodeWindow(now time.Time, ttl time.Duration) CodeWindow {
	var w CodeWindow
	w.Rotate(now, ttl)
	return w
}

// Expired reports whether the code can no longer be redeemed at now.
func (w *CodeWindow) Expired(now time.Time) bool {
	return !now.Before(w.ExpiresAt)
}

// Rotate replaces the code value and restarts its lifetime from now.
func (w *CodeWindow) Rotate(now time.Time, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	w.Code = NewOpaqueID()
	w.ExpiresAt = now.Add(ttl)
}

// Expire pushes the expiration into the past so the code cannot be reused.
func (w *CodeWindow) Expire(now time.Time) {
	w.ExpiresAt = now.Add(-time.Second)
}

// Window exposes the embedded window of any code model.
func (w *CodeWindow) Window() *CodeWindow {
	return w
}

// fill covers codes created without an explicit window.
func (w *CodeWindow) fill() {
	if w.Code == "" {
		w.Code = NewOpaqueID()
	}
	if w.ExpiresAt.IsZero() {
		w.ExpiresAt = time.Now().Add(DefaultCodeTTL)
	}
}

// VerificationCode activates a newly registered account.
type VerificationCode struct {
	ID     uint  `gorm:"primaryKey" json:"-"`
	UserID uint  `gorm:"not null;index" json:"-"`
	User   *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CodeWindow
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (VerificationCode) TableName() string {
	return "verification_codes"
}

// BeforeCreate fills in a missing code value or expiry.
func (v *VerificationCode) BeforeCreate(_ *gorm.DB) error {
	v.fill()
	return nil
}

// PasswordResetCode authorizes a single password change.
type PasswordResetCode struct {
	ID     uint  `gorm:"primaryKey" json:"-"`
	UserID uint  `gorm:"not null;index" json:"-"`
	User   *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CodeWindow
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PasswordResetCode) TableName() string {
	return "password_reset_codes"
}

// BeforeCreate fills in a missing code value or expiry.
func (p *PasswordResetCode) BeforeCreate(_ *gorm.DB) error {
	p.fill()
	return nil
}
