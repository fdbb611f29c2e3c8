package requestid

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestIntoFrom(t *testing.T) {
	require.Equal(t, "", From(context.Background()))

	ctx := Into(context.Background(), "rid-1")
	require.Equal(t, "rid-1", From(ctx))
}

func TestAccept(t *testing.T) {
	require.Equal(t, "rid-123", Accept(" rid-123 "))

	for _, bad := range []string{"", "   ", strings.Repeat("x", 129), "a\r\nSet-Cookie: x"} {
		got := Accept(bad)
		_, err := uuid.Parse(got)
		require.NoError(t, err, "input %q", bad)
	}
}
