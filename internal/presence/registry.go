// Package presence implements the presence registry: authoritative
// online-truth via TTL keys owned by a server id, plus last-seen and
// last-active timestamps.
package presence

import (
	"context"
	"strconv"
	"time"

	"presencefabric/internal/store"
)

// Registry is the authoritative source of "is this user online, and who
// owns that claim" across the fabric.
type Registry struct {
	store store.Backend
	ttl   time.Duration
}

// NewRegistry builds a Registry backed by s, claiming presence for ttl at a
// time (refreshed by the owning server's heartbeat loop).
func NewRegistry(s store.Backend, ttl time.Duration) *Registry {
	return &Registry{store: s, ttl: ttl}
}

// PresenceKey is the store key for a user's presence claim:
// presence:user:{user_key}.
func PresenceKey(user string) string {
	return "presence:user:" + user
}

func lastSeenKey(user string) string {
	return "presence:lastseen:" + user
}

func lastActiveKey(user string) string {
	return "presence:lastactive:" + user
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// ClaimOnline atomically claims presence for user under serverID, capturing
// whatever server (if any) held the claim beforehand. becameOnline is true
// only when no one held the claim. As a side effect it bumps last-active and
// opportunistically reads last-seen in the same round trip.
func (r *Registry) ClaimOnline(ctx context.Context, user, serverID string) (becameOnline bool, lastSeenMS *int64, err error) {
	_, existed, err := r.store.SetWithTTLAndGetPrevious(ctx, PresenceKey(user), serverID, r.ttl)
	if err != nil {
		return false, nil, err
	}
	becameOnline = !existed

	lastSeenVal, ok, err := r.store.SetAndGet(ctx, lastActiveKey(user), strconv.FormatInt(nowMillis(), 10), lastSeenKey(user))
	if err != nil {
		return becameOnline, nil, err
	}
	if ok {
		if ms, convErr := strconv.ParseInt(lastSeenVal, 10, 64); convErr == nil {
			lastSeenMS = &ms
		}
	}
	return becameOnline, lastSeenMS, nil
}

// Refresh extends user's presence TTL if and only if serverID currently owns
// it. A false return (with nil error) means "I no longer own presence" and
// leaves the key untouched. Refresh keeps no record of a false result, so a
// caller that calls it again for the same user simply gets false again.
func (r *Registry) Refresh(ctx context.Context, user, serverID string) (refreshed bool, err error) {
	return r.store.RefreshIfOwner(ctx, PresenceKey(user), serverID, r.ttl)
}

// ReleaseIfOwned updates last-seen, then deletes the presence key only if
// serverID still owns it. becameOffline is true for a clean offline
// transition the caller should publish a flip for.
func (r *Registry) ReleaseIfOwned(ctx context.Context, user, serverID string) (becameOffline bool, err error) {
	if err := r.store.Set(ctx, lastSeenKey(user), strconv.FormatInt(nowMillis(), 10)); err != nil {
		return false, err
	}
	return r.store.DeleteIfOwner(ctx, PresenceKey(user), serverID)
}

// IsOnline reports whether user currently has a live presence claim.
func (r *Registry) IsOnline(ctx context.Context, user string) (bool, error) {
	return r.store.Exists(ctx, PresenceKey(user))
}

// OwnerOf returns the server id currently claiming user's presence, or ok=false
// if the user is offline.
func (r *Registry) OwnerOf(ctx context.Context, user string) (serverID string, ok bool, err error) {
	return r.store.Get(ctx, PresenceKey(user))
}

// LastActive returns the last-active timestamp in milliseconds since epoch,
// or ok=false if the user has never authenticated or refreshed.
func (r *Registry) LastActive(ctx context.Context, user string) (ms int64, ok bool, err error) {
	val, exists, err := r.store.Get(ctx, lastActiveKey(user))
	if err != nil || !exists {
		return 0, false, err
	}
	parsed, convErr := strconv.ParseInt(val, 10, 64)
	if convErr != nil {
		return 0, false, nil
	}
	return parsed, true, nil
}
