package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRefreshToken_Expired_Boundary(t *testing.T) {
	t.Parallel()

	exp := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rt := &RefreshToken{ExpiresAt: exp}

	require.False(t, rt.Expired(exp.Add(-time.Nanosecond)))
	require.True(t, rt.Expired(exp))
	require.True(t, rt.Expired(exp.Add(time.Second)))
}
