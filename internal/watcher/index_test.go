package watcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presencefabric/internal/store/storetest"
)

func TestIndex_AddWatchersThenMembers(t *testing.T) {
	idx := NewIndex(storetest.New(), time.Minute)
	ctx := context.Background()

	require.NoError(t, idx.AddWatchers(ctx, []string{"alice@example.com", "bob@example.com"}, "server-a"))

	members, err := idx.Members(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"server-a"}, members)

	members, err = idx.Members(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"server-a"}, members)
}

func TestIndex_AddWatchersIsIdempotent(t *testing.T) {
	idx := NewIndex(storetest.New(), time.Minute)
	ctx := context.Background()

	require.NoError(t, idx.AddWatchers(ctx, []string{"alice@example.com"}, "server-a"))
	require.NoError(t, idx.AddWatchers(ctx, []string{"alice@example.com"}, "server-a"))

	members, err := idx.Members(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Len(t, members, 1, "adding the same watcher twice is set semantics, not a duplicate")
}

func TestIndex_RemoveWatchers(t *testing.T) {
	idx := NewIndex(storetest.New(), time.Minute)
	ctx := context.Background()

	require.NoError(t, idx.AddWatchers(ctx, []string{"alice@example.com"}, "server-a"))
	require.NoError(t, idx.AddWatchers(ctx, []string{"alice@example.com"}, "server-b"))
	require.NoError(t, idx.RemoveWatchers(ctx, []string{"alice@example.com"}, "server-a"))

	members, err := idx.Members(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"server-b"}, members)
}

func TestIndex_MembersEmptyForUnwatchedUser(t *testing.T) {
	idx := NewIndex(storetest.New(), time.Minute)

	members, err := idx.Members(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, members)
}
