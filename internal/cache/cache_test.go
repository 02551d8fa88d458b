package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedThing struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() {
		_ = client.Close()
		SetClient(nil)
	})
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	mr := setupRedis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			calls++
			*dest = cachedThing{Name: "first", Count: calls}
			return nil
		}
	}

	var got cachedThing
	require.NoError(t, Aside(ctx, PostSlugKey("abc"), &got, PostTTL, fetch(&got)))
	assert.Equal(t, cachedThing{Name: "first", Count: 1}, got)
	assert.True(t, mr.Exists("post:slug:abc"))
	assert.Equal(t, PostTTL, mr.TTL("post:slug:abc"))

	var again cachedThing
	require.NoError(t, Aside(ctx, PostSlugKey("abc"), &again, PostTTL, fetch(&again)))
	assert.Equal(t, 1, calls)
	assert.Equal(t, got, again)

	InvalidatePost(ctx, "abc", "")
	assert.False(t, mr.Exists("post:slug:abc"))
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := setupRedis(t)
	boom := errors.New("not found")

	var got cachedThing
	err := Aside(context.Background(), PublicProfileKey("p1"), &got, ProfileTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("user:pub:p1"))
}

func TestAside_WithoutRedisFallsThrough(t *testing.T) {
	SetClient(nil)

	var got cachedThing
	err := Aside(context.Background(), "k", &got, time.Minute, func() error {
		got.Name = "db"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "db", got.Name)
	assert.NotPanics(t, func() { Invalidate(context.Background(), "k") })
}

func TestAside_RedisDownDegradesToFetch(t *testing.T) {
	mr := setupRedis(t)
	mr.Close()

	var got cachedThing
	err := Aside(context.Background(), "k", &got, time.Minute, func() error {
		got.Count = 3
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Count)
}

func TestParseAddr(t *testing.T) {
	opts, err := parseAddr("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)

	opts, err = parseAddr("redis://:secret@cache:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = parseAddr("redis://cache:6379/not-a-db")
	assert.Error(t, err)
}

func TestInitRedis_UnreachableLeavesClientNil(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	InitRedis(addr)
	assert.Nil(t, GetClient())

	InitRedis("redis://cache:6379/not-a-db")
	assert.Nil(t, GetClient())
}
