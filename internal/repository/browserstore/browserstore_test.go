package browserstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func exerciseArea(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	a := repo.Area("sess-a")
	b := repo.Area("sess-b")

	v, err := a.GetItem(ctx, "cart")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, a.SetItem(ctx, "cart", []byte(`{"items":[]}`)))
	v, err = a.GetItem(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, string(v))

	v, err = b.GetItem(ctx, "cart")
	require.NoError(t, err)
	assert.Nil(t, v, "areas must not leak between sessions")

	require.NoError(t, repo.Ping(ctx))
}

func TestMemory_Area(t *testing.T) {
	exerciseArea(t, NewMemory())
}

func TestMemory_DropRemovesOnlyThatSession(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	a := repo.Area("sess-a")
	ab := repo.Area("sess-ab")
	require.NoError(t, a.SetItem(ctx, "cart", []byte(`{"items":[]}`)))
	require.NoError(t, ab.SetItem(ctx, "cart", []byte(`{"items":[]}`)))

	repo.(*memoryRepo).Drop("sess-a")

	v, err := a.GetItem(ctx, "cart")
	require.NoError(t, err)
	assert.Nil(t, v)
	v, err = ab.GetItem(ctx, "cart")
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestRedis_Area(t *testing.T) {
	_, client := setupTestRedis(t)
	exerciseArea(t, NewRedis(client, time.Hour))
}

func TestRedis_KeysExpire(t *testing.T) {
	mr, client := setupTestRedis(t)
	repo := NewRedis(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Area("s").SetItem(ctx, "cart", []byte("x")))
	assert.True(t, mr.Exists(defaultKeyPrefix+"s:cart"))

	mr.FastForward(2 * time.Minute)
	v, err := repo.Area("s").GetItem(ctx, "cart")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestRedis_ErrorsSurface(t *testing.T) {
	mr, client := setupTestRedis(t)
	repo := NewRedis(client, 0)
	mr.Close()

	_, err := repo.Area("s").GetItem(context.Background(), "cart")
	assert.Error(t, err)
	assert.Error(t, repo.Area("s").SetItem(context.Background(), "cart", []byte("x")))
}

func TestDial_InvalidURL(t *testing.T) {
	_, err := Dial(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestDial_Miniredis(t *testing.T) {
	mr, _ := setupTestRedis(t)
	client, err := Dial(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	_ = client.Close()
}
