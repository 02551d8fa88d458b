package database

import (
	"testing"

	"blogapi/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPersistentModels_IncludesEngagementTables(t *testing.T) {
	var hasReaction, hasBookmark bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.PostReaction:
			hasReaction = true
		case *models.PostBookmark:
			hasBookmark = true
		}
	}
	assert.True(t, hasReaction, "PersistentModels should include PostReaction")
	assert.True(t, hasBookmark, "PersistentModels should include PostBookmark")
}
