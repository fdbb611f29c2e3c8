package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/session-service/internal/models"
	"github.com/pribylovaa/session-service/internal/storage"
	"github.com/pribylovaa/session-service/internal/storage/storagetest"
)

func TestStorage_Contract(t *testing.T) {
	storagetest.RunRefreshTokenSuite(t, storagetest.Harness{
		NewStore: func(t *testing.T) storage.RefreshTokenStorage { return New() },
	})
}

func TestStorage_Users(t *testing.T) {
	st := New()
	ctx := context.Background()

	u := &models.User{
		ID:           uuid.New(),
		Username:     "alice",
		Email:        "Alice@Example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, st.SaveUser(ctx, u))

	byID, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, *u, *byID)

	byName, err := st.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, u.ID, byName.ID)

	byEmail, err := st.UserByEmail(ctx, "alice@example.COM")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	ok, err := st.UserExists(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.UserExists(ctx, "Alice")
	require.NoError(t, err)
	require.False(t, ok)

	// Возвращается копия: изменения не влияют на хранилище.
	byID.Username = "mallory"
	again, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", again.Username)
}

func TestStorage_SaveUser_Duplicates(t *testing.T) {
	st := New()
	ctx := context.Background()

	base := models.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}
	require.NoError(t, st.SaveUser(ctx, &base))

	sameID := base
	sameID.Username, sameID.Email = "bob", "bob@example.com"
	require.ErrorIs(t, st.SaveUser(ctx, &sameID), storage.ErrAlreadyExists)

	sameName := models.User{ID: uuid.New(), Username: "alice", Email: "x@example.com"}
	require.ErrorIs(t, st.SaveUser(ctx, &sameName), storage.ErrAlreadyExists)

	sameEmail := models.User{ID: uuid.New(), Username: "carol", Email: "ALICE@example.com"}
	require.ErrorIs(t, st.SaveUser(ctx, &sameEmail), storage.ErrAlreadyExists)
}

func TestStorage_UserLookups_NotFound(t *testing.T) {
	st := New()
	ctx := context.Background()

	_, err := st.UserByID(ctx, uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.UserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.UserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)
}
