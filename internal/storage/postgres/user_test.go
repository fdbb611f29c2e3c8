package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/session-service/internal/models"
	"github.com/pribylovaa/session-service/internal/storage"
)

// TestIntegration_SaveUser_And_Lookups_OK — сохранение пользователя и поиск
// по ID, имени и email (email без учёта регистра).
func TestIntegration_SaveUser_And_Lookups_OK(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()
	u := &models.User{
		ID:           uuid.New(),
		Username:     "alice",
		Email:        "Alice@Example.Com",
		PasswordHash: "hash",
		CreatedAt:    now,
	}
	require.NoError(t, st.SaveUser(ctx, u))

	byID, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", byID.Username)
	require.WithinDuration(t, now, byID.CreatedAt, time.Second)

	byName, err := st.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, byName.ID)

	byEmail, err := st.UserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	exists, err := st.UserExists(ctx, "alice")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = st.UserExists(ctx, "bob")
	require.NoError(t, err)
	require.False(t, exists)
}

// TestIntegration_SaveUser_Duplicates — повтор имени или email (в другом регистре).
func TestIntegration_SaveUser_Duplicates(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, st.SaveUser(ctx, &models.User{
		ID: uuid.New(), Username: "alice", Email: "alice@example.com", PasswordHash: "h", CreatedAt: now,
	}))

	err := st.SaveUser(ctx, &models.User{
		ID: uuid.New(), Username: "alice", Email: "other@example.com", PasswordHash: "h", CreatedAt: now,
	})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	err = st.SaveUser(ctx, &models.User{
		ID: uuid.New(), Username: "bob", Email: "ALICE@EXAMPLE.COM", PasswordHash: "h", CreatedAt: now,
	})
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestIntegration_UserLookups_NotFound(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx := context.Background()

	_, err := st.UserByID(ctx, uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.UserByUsername(ctx, "absent")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.UserByEmail(ctx, "absent@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// TestIntegration_UserQueries_ContextCanceled — отменённый контекст
// «просачивается» в ошибки чтения как context.Canceled.
func TestIntegration_UserQueries_ContextCanceled(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := st.UserByUsername(ctx, "alice")
	require.ErrorIs(t, err, context.Canceled)

	_, err = st.UserByID(ctx, uuid.New())
	require.ErrorIs(t, err, context.Canceled)
}
