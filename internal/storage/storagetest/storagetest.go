// storagetest содержит общий набор проверок контракта storage.RefreshTokenStorage,
// который прогоняют тесты каждой реализации.
package storagetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/session-service/internal/models"
	"github.com/pribylovaa/session-service/internal/storage"
)

// Harness отдаёт свежее хранилище и способ завести владельца.
type Harness struct {
	NewStore func(t *testing.T) storage.RefreshTokenStorage
	// NewOwner по умолчанию — uuid.New().
	NewOwner func(t *testing.T) uuid.UUID
}

func (h Harness) owner(t *testing.T) uuid.UUID {
	if h.NewOwner != nil {
		return h.NewOwner(t)
	}
	return uuid.New()
}

// RunRefreshTokenSuite прогоняет проверки контракта.
func RunRefreshTokenSuite(t *testing.T, h Harness) {
	exp := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("insert_and_lookup", func(t *testing.T) {
		st, ctx, owner := h.NewStore(t), context.Background(), h.owner(t)

		tok := &models.RefreshToken{OwnerID: owner, TokenHash: "h1", ExpiresAt: exp}
		require.NoError(t, st.UpsertRefreshToken(ctx, tok))
		require.NotEqual(t, uuid.Nil, tok.ID)
		require.Equal(t, int64(1), tok.Version)

		byOwner, err := st.RefreshTokenByOwner(ctx, owner)
		require.NoError(t, err)
		require.Equal(t, *tok, *byOwner)

		byHash, err := st.RefreshTokenByHash(ctx, "h1")
		require.NoError(t, err)
		require.Equal(t, *tok, *byHash)
	})

	t.Run("not_found", func(t *testing.T) {
		st, ctx := h.NewStore(t), context.Background()

		_, err := st.RefreshTokenByOwner(ctx, uuid.New())
		require.ErrorIs(t, err, storage.ErrNotFound)

		_, err = st.RefreshTokenByHash(ctx, "absent")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("second_insert_for_owner_conflicts", func(t *testing.T) {
		st, ctx, owner := h.NewStore(t), context.Background(), h.owner(t)

		require.NoError(t, st.UpsertRefreshToken(ctx, &models.RefreshToken{OwnerID: owner, TokenHash: "a", ExpiresAt: exp}))

		err := st.UpsertRefreshToken(ctx, &models.RefreshToken{OwnerID: owner, TokenHash: "b", ExpiresAt: exp})
		require.ErrorIs(t, err, storage.ErrConflict)

		got, err := st.RefreshTokenByOwner(ctx, owner)
		require.NoError(t, err)
		require.Equal(t, "a", got.TokenHash)
	})

	t.Run("duplicate_hash_rejected", func(t *testing.T) {
		st, ctx := h.NewStore(t), context.Background()

		require.NoError(t, st.UpsertRefreshToken(ctx, &models.RefreshToken{OwnerID: h.owner(t), TokenHash: "same", ExpiresAt: exp}))

		err := st.UpsertRefreshToken(ctx, &models.RefreshToken{OwnerID: h.owner(t), TokenHash: "same", ExpiresAt: exp})
		require.ErrorIs(t, err, storage.ErrAlreadyExists)
	})

	t.Run("update_in_place", func(t *testing.T) {
		st, ctx, owner := h.NewStore(t), context.Background(), h.owner(t)

		tok := &models.RefreshToken{OwnerID: owner, TokenHash: "old", ExpiresAt: exp}
		require.NoError(t, st.UpsertRefreshToken(ctx, tok))
		id := tok.ID

		tok.TokenHash = "new"
		tok.ExpiresAt = exp.Add(time.Hour)
		require.NoError(t, st.UpsertRefreshToken(ctx, tok))
		require.Equal(t, id, tok.ID)
		require.Equal(t, int64(2), tok.Version)

		_, err := st.RefreshTokenByHash(ctx, "old")
		require.ErrorIs(t, err, storage.ErrNotFound)

		got, err := st.RefreshTokenByHash(ctx, "new")
		require.NoError(t, err)
		require.Equal(t, *tok, *got)
	})

	t.Run("stale_version_conflicts", func(t *testing.T) {
		st, ctx, owner := h.NewStore(t), context.Background(), h.owner(t)

		require.NoError(t, st.UpsertRefreshToken(ctx, &models.RefreshToken{OwnerID: owner, TokenHash: "h0", ExpiresAt: exp}))

		a, err := st.RefreshTokenByOwner(ctx, owner)
		require.NoError(t, err)
		b, err := st.RefreshTokenByOwner(ctx, owner)
		require.NoError(t, err)

		a.TokenHash = "ha"
		require.NoError(t, st.UpsertRefreshToken(ctx, a))

		b.TokenHash = "hb"
		require.ErrorIs(t, st.UpsertRefreshToken(ctx, b), storage.ErrConflict)

		got, err := st.RefreshTokenByOwner(ctx, owner)
		require.NoError(t, err)
		require.Equal(t, "ha", got.TokenHash)

		_, err = st.RefreshTokenByHash(ctx, "hb")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("update_after_delete_conflicts", func(t *testing.T) {
		st, ctx, owner := h.NewStore(t), context.Background(), h.owner(t)

		tok := &models.RefreshToken{OwnerID: owner, TokenHash: "h", ExpiresAt: exp}
		require.NoError(t, st.UpsertRefreshToken(ctx, tok))
		require.NoError(t, st.DeleteRefreshToken(ctx, tok))

		tok.TokenHash = "h2"
		require.ErrorIs(t, st.UpsertRefreshToken(ctx, tok), storage.ErrConflict)
	})

	t.Run("delete_by_id_and_hash", func(t *testing.T) {
		st, ctx, owner := h.NewStore(t), context.Background(), h.owner(t)

		tok := &models.RefreshToken{OwnerID: owner, TokenHash: "h", ExpiresAt: exp}
		require.NoError(t, st.UpsertRefreshToken(ctx, tok))

		// Чужой хэш не удаляет запись.
		require.NoError(t, st.DeleteRefreshToken(ctx, &models.RefreshToken{ID: tok.ID, OwnerID: owner, TokenHash: "other"}))
		_, err := st.RefreshTokenByOwner(ctx, owner)
		require.NoError(t, err)

		require.NoError(t, st.DeleteRefreshToken(ctx, tok))
		_, err = st.RefreshTokenByOwner(ctx, owner)
		require.ErrorIs(t, err, storage.ErrNotFound)
		_, err = st.RefreshTokenByHash(ctx, "h")
		require.ErrorIs(t, err, storage.ErrNotFound)

		// Повторное удаление — не ошибка.
		require.NoError(t, st.DeleteRefreshToken(ctx, tok))

		// После удаления владелец снова может получить запись.
		require.NoError(t, st.UpsertRefreshToken(ctx, &models.RefreshToken{OwnerID: owner, TokenHash: "h", ExpiresAt: exp}))
	})

	t.Run("delete_stale_snapshot_keeps_rotated", func(t *testing.T) {
		st, ctx, owner := h.NewStore(t), context.Background(), h.owner(t)

		tok := &models.RefreshToken{OwnerID: owner, TokenHash: "h0", ExpiresAt: exp}
		require.NoError(t, st.UpsertRefreshToken(ctx, tok))
		stale := *tok

		tok.TokenHash = "h1"
		require.NoError(t, st.UpsertRefreshToken(ctx, tok))

		require.NoError(t, st.DeleteRefreshToken(ctx, &stale))

		got, err := st.RefreshTokenByOwner(ctx, owner)
		require.NoError(t, err)
		require.Equal(t, "h1", got.TokenHash)
	})

	t.Run("concurrent_rotation_single_winner", func(t *testing.T) {
		st, ctx, owner := h.NewStore(t), context.Background(), h.owner(t)

		require.NoError(t, st.UpsertRefreshToken(ctx, &models.RefreshToken{OwnerID: owner, TokenHash: "h0", ExpiresAt: exp}))
		snapshot, err := st.RefreshTokenByOwner(ctx, owner)
		require.NoError(t, err)

		const n = 16
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			wins  []string
			start = make(chan struct{})
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tok := *snapshot
				tok.TokenHash = uuid.NewString()
				<-start
				if st.UpsertRefreshToken(ctx, &tok) == nil {
					mu.Lock()
					wins = append(wins, tok.TokenHash)
					mu.Unlock()
				}
			}()
		}
		close(start)
		wg.Wait()

		require.Len(t, wins, 1)

		got, err := st.RefreshTokenByOwner(ctx, owner)
		require.NoError(t, err)
		require.Equal(t, wins[0], got.TokenHash)
		require.Equal(t, int64(2), got.Version)
	})

	t.Run("concurrent_insert_single_winner", func(t *testing.T) {
		st, ctx, owner := h.NewStore(t), context.Background(), h.owner(t)

		const n = 16
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tok := &models.RefreshToken{OwnerID: owner, TokenHash: uuid.NewString(), ExpiresAt: exp}
				if st.UpsertRefreshToken(ctx, tok) == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		require.Equal(t, 1, wins)
	})
}
