package storage

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client), mr
}

func TestRedisStore_SaveLoadRoom(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	data := &RoomData{
		Code:  "123456",
		State: "playing",
		Players: []PlayerData{
			{ID: "p1", Name: "Alice", IsAdmin: true, CardsCount: 5},
			{ID: "p2", Name: "Bob", CardsCount: 4, PairsCount: 1},
		},
		PlayerOrder: []string{"p1", "p2"},
		CurrentIdx:  1,
		CreatedAt:   time.Now().Unix(),
	}

	require.NoError(t, store.SaveRoom(ctx, "123456", data))

	loaded, err := store.LoadRoom(ctx, "123456")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, data.Code, loaded.Code)
	assert.Equal(t, data.State, loaded.State)
	assert.Equal(t, data.Players, loaded.Players)
	assert.Equal(t, 1, loaded.CurrentIdx)
	assert.Nil(t, loaded.Result)
}

func TestRedisStore_SaveNil(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	require.NoError(t, store.SaveRoom(context.Background(), "000000", nil))
	assert.False(t, mr.Exists(roomKeyPrefix+"000000"))
}

func TestRedisStore_LoadMissing(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t)
	loaded, err := store.LoadRoom(context.Background(), "999999")
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStore_DeleteRoom(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRoom(ctx, "111111", &RoomData{Code: "111111"}))
	require.NoError(t, store.DeleteRoom(ctx, "111111"))

	loaded, err := store.LoadRoom(ctx, "111111")
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStore_Expiration(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	store.WithExpiration(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.SaveRoom(ctx, "222222", &RoomData{Code: "222222"}))
	assert.Equal(t, time.Minute, mr.TTL(roomKeyPrefix+"222222"))

	require.NoError(t, store.SetRoomExpiration(ctx, "222222", 10*time.Second))
	assert.Equal(t, 10*time.Second, mr.TTL(roomKeyPrefix+"222222"))

	mr.FastForward(11 * time.Second)
	loaded, err := store.LoadRoom(ctx, "222222")
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStore_GetAllRoomCodes(t *testing.T) {
	t.Parallel()

	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	for _, code := range []string{"100001", "100002", "100003"} {
		require.NoError(t, store.SaveRoom(ctx, code, &RoomData{Code: code}))
	}

	codes, err := store.GetAllRoomCodes(ctx)
	require.NoError(t, err)
	sort.Strings(codes)
	assert.Equal(t, []string{"100001", "100002", "100003"}, codes)
}

func TestRedisStore_Ping(t *testing.T) {
	t.Parallel()

	store, mr := newTestRedisStore(t)
	assert.NoError(t, store.Ping(context.Background()))

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}
