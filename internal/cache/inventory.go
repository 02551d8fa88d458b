package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	// PostSlugKeyPrefix keys a rendered post by slug.
	PostSlugKeyPrefix = "post:slug:%s"
	// PublicProfileKeyPrefix keys a public profile by pub id.
	PublicProfileKeyPrefix = "user:pub:%s"
)

const (
	PostTTL    = 30 * time.Minute
	ProfileTTL = 5 * time.Minute
)

func PostSlugKey(slug string) string {
	return fmt.Sprintf(PostSlugKeyPrefix, slug)
}

func PublicProfileKey(pubID string) string {
	return fmt.Sprintf(PublicProfileKeyPrefix, pubID)
}

// Invalidate deletes keys, best-effort.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidatePost(ctx context.Context, slugs ...string) {
	keys := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if s != "" {
			keys = append(keys, PostSlugKey(s))
		}
	}
	Invalidate(ctx, keys...)
}

func InvalidateProfile(ctx context.Context, pubIDs ...string) {
	keys := make([]string, 0, len(pubIDs))
	for _, id := range pubIDs {
		if id != "" {
			keys = append(keys, PublicProfileKey(id))
		}
	}
	Invalidate(ctx, keys...)
}
