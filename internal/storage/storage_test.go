package storage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/session-service/internal/storage"
	"github.com/pribylovaa/session-service/internal/storage/memory"
)

func TestSplit_RoutesAndClosesInOrder(t *testing.T) {
	users, tokens := memory.New(), memory.New()

	var closed []string
	s := storage.NewSplit(users, tokens,
		func() { closed = append(closed, "tokens") },
		func() { closed = append(closed, "users") },
	)

	require.Same(t, users, s.UserStorage)
	require.Same(t, tokens, s.RefreshTokenStorage)

	s.Close()
	require.Equal(t, []string{"tokens", "users"}, closed)
}
