// Package watcher implements the Watcher Index: the per-observed-user set
// of server ids currently interested, used for targeted fan-out.
// Membership is a hint, not a guarantee; a publisher that finds an empty
// set may skip publishing.
package watcher

import (
	"context"
	"time"

	"presencefabric/internal/store"
)

// Index tracks, per user, which servers currently have at least one local
// session focused on them.
type Index struct {
	store store.Backend
	ttl   time.Duration
}

// NewIndex builds a watcher Index backed by s. ttl is applied to a user's
// whole watcher set, not to each member, and is re-applied on every add; a
// set that no server adds to within ttl expires with all its members.
func NewIndex(s store.Backend, ttl time.Duration) *Index {
	return &Index{store: s, ttl: ttl}
}

func watcherKey(user string) string {
	return "presence:watchers:" + user
}

// AddWatchers adds serverID as a watcher of every user in users, in a single
// pipeline, (re)applying the TTL on each add.
func (idx *Index) AddWatchers(ctx context.Context, users []string, serverID string) error {
	if len(users) == 0 {
		return nil
	}
	keys := make([]string, len(users))
	for i, u := range users {
		keys[i] = watcherKey(u)
	}
	return idx.store.PipelineAddToSets(ctx, keys, serverID, idx.ttl)
}

// RemoveWatchers removes serverID as a watcher of every user in users, in a
// single pipeline.
func (idx *Index) RemoveWatchers(ctx context.Context, users []string, serverID string) error {
	if len(users) == 0 {
		return nil
	}
	keys := make([]string, len(users))
	for i, u := range users {
		keys[i] = watcherKey(u)
	}
	return idx.store.PipelineRemoveFromSets(ctx, keys, serverID)
}

// Members returns the current watcher set for user. An empty, nil-error
// result means no server is currently interested.
func (idx *Index) Members(ctx context.Context, user string) ([]string, error) {
	return idx.store.SetMembers(ctx, watcherKey(user))
}
