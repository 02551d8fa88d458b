package notifications

import (
	"time"

	"blogapi/internal/models"
)

// Event types pushed to users.
const (
	EventPostLiked      = "post_liked"
	EventPostDisliked   = "post_disliked"
	EventPostBookmarked = "post_bookmarked"
	EventUserFollowed   = "user_followed"
)

// Event is the envelope written to the websocket.
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEvent stamps an event of the given type.
func NewEvent(eventType string, payload any) Event {
	return Event{Type: eventType, Payload: payload, CreatedAt: time.Now().UTC()}
}

// ReactionPayload tells an author someone reacted to their post.
type ReactionPayload struct {
	PostSlug      string          `json:"post_slug"`
	Actor         *models.UserRef `json:"actor"`
	LikesCount    int             `json:"likes_count"`
	DislikesCount int             `json:"dislikes_count"`
	Score         int             `json:"score"`
}

// BookmarkPayload tells an author someone saved their post.
type BookmarkPayload struct {
	PostSlug string          `json:"post_slug"`
	Actor    *models.UserRef `json:"actor"`
}

// FollowPayload tells a user they gained a follower.
type FollowPayload struct {
	Follower *models.UserRef `json:"follower"`
}
