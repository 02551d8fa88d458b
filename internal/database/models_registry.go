package database

import "blogapi/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.VerificationCode{},
		&models.PasswordResetCode{},
		&models.UserFollowing{},
		&models.Tag{},
		&models.Post{},
		&models.PostReaction{},
		&models.PostBookmark{},
	}
}
