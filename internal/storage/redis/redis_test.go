package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/session-service/internal/models"
	"github.com/pribylovaa/session-service/internal/storage"
	"github.com/pribylovaa/session-service/internal/storage/storagetest"
)

func newTestStorage(t *testing.T) (*Storage, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	st := NewWithClient(rdb, "")
	t.Cleanup(st.Close)

	return st, mr
}

func TestStorage_Contract(t *testing.T) {
	storagetest.RunRefreshTokenSuite(t, storagetest.Harness{
		NewStore: func(t *testing.T) storage.RefreshTokenStorage {
			st, _ := newTestStorage(t)
			return st
		},
	})
}

func TestStorage_KeyLayout(t *testing.T) {
	st, mr := newTestStorage(t)
	ctx := context.Background()

	owner := uuid.New()
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	tok := &models.RefreshToken{OwnerID: owner, TokenHash: "abc", ExpiresAt: exp}
	require.NoError(t, st.UpsertRefreshToken(ctx, tok))

	ownerKey := DefaultPrefix + "owner:" + owner.String()
	require.True(t, mr.Exists(ownerKey))
	require.Equal(t, "abc", mr.HGet(ownerKey, "hash"))
	require.Equal(t, "1", mr.HGet(ownerKey, "ver"))

	holder, err := mr.Get(DefaultPrefix + "hash:abc")
	require.NoError(t, err)
	require.Equal(t, owner.String(), holder)

	// Ключи живут без TTL.
	require.Zero(t, mr.TTL(ownerKey))

	tok.TokenHash = "def"
	require.NoError(t, st.UpsertRefreshToken(ctx, tok))
	require.False(t, mr.Exists(DefaultPrefix+"hash:abc"))
	require.True(t, mr.Exists(DefaultPrefix+"hash:def"))
}

// Индекс без записи (или указывающий на устаревший хэш) не находит токен.
func TestStorage_RefreshTokenByHash_DanglingIndex(t *testing.T) {
	st, mr := newTestStorage(t)

	owner := uuid.New()
	require.NoError(t, mr.Set(DefaultPrefix+"hash:ghost", owner.String()))

	_, err := st.RefreshTokenByHash(context.Background(), "ghost")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStorage_Ping(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	st := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), "")
	defer st.Close()
	require.NoError(t, st.Ping(context.Background()))

	mr.Close()
	require.Error(t, st.Ping(context.Background()))
}

func TestNew_BadURL(t *testing.T) {
	_, err := New(context.Background(), "://bad", "")
	require.Error(t, err)
}

func TestNew_OK(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	st, err := New(context.Background(), "redis://"+mr.Addr()+"/0", "custom:")
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.UpsertRefreshToken(context.Background(), &models.RefreshToken{
		OwnerID: uuid.New(), TokenHash: "x", ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.True(t, mr.Exists("custom:hash:x"))
}
