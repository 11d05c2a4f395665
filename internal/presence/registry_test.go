package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"presencefabric/internal/store/storetest"
)

func TestRegistry_ClaimRefreshIsOnline(t *testing.T) {
	r := NewRegistry(storetest.New(), time.Minute)
	ctx := context.Background()

	becameOnline, _, err := r.ClaimOnline(ctx, "alice@example.com", "server-a")
	require.NoError(t, err)
	require.True(t, becameOnline)

	refreshed, err := r.Refresh(ctx, "alice@example.com", "server-a")
	require.NoError(t, err)
	require.True(t, refreshed)

	online, err := r.IsOnline(ctx, "alice@example.com")
	require.NoError(t, err)
	require.True(t, online)
}

func TestRegistry_CrossServerReclaimBlocksRefresh(t *testing.T) {
	r := NewRegistry(storetest.New(), time.Minute)
	ctx := context.Background()

	_, _, err := r.ClaimOnline(ctx, "alice@example.com", "server-a")
	require.NoError(t, err)

	becameOnline, _, err := r.ClaimOnline(ctx, "alice@example.com", "server-b")
	require.NoError(t, err)
	require.False(t, becameOnline, "server-b reclaims an already-online user")

	refreshed, err := r.Refresh(ctx, "alice@example.com", "server-a")
	require.NoError(t, err)
	require.False(t, refreshed, "server-a no longer owns the claim")
}

func TestRegistry_ReleaseIfOwnedTurnsUserOffline(t *testing.T) {
	r := NewRegistry(storetest.New(), time.Minute)
	ctx := context.Background()

	_, _, err := r.ClaimOnline(ctx, "alice@example.com", "server-a")
	require.NoError(t, err)

	becameOffline, err := r.ReleaseIfOwned(ctx, "alice@example.com", "server-a")
	require.NoError(t, err)
	require.True(t, becameOffline)

	online, err := r.IsOnline(ctx, "alice@example.com")
	require.NoError(t, err)
	require.False(t, online)
}

func TestRegistry_ReleaseIfOwnedIsNotIdempotentTrue(t *testing.T) {
	r := NewRegistry(storetest.New(), time.Minute)
	ctx := context.Background()

	_, _, err := r.ClaimOnline(ctx, "alice@example.com", "server-a")
	require.NoError(t, err)

	first, err := r.ReleaseIfOwned(ctx, "alice@example.com", "server-a")
	require.NoError(t, err)
	require.True(t, first)

	second, err := r.ReleaseIfOwned(ctx, "alice@example.com", "server-a")
	require.NoError(t, err)
	require.False(t, second, "releasing an already-released claim reports no transition")
}
