package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Adapter is the typed store wrapper: set-with-TTL capturing the previous
// value, compare-and-swap via scripted execution, pub/sub to named
// channels, and pipelined reads. Every other package in the presence
// fabric talks to the store only through an Adapter.
type Adapter struct {
	client *redis.Client
}

// New wraps an existing store client. The caller owns the client's
// lifecycle (Close); the Adapter does not.
func New(client *redis.Client) *Adapter {
	return &Adapter{client: client}
}

// Raw exposes the underlying client for callers that need a redis verb the
// Adapter does not wrap (the readiness probe's PING). Kept as an explicit
// escape hatch rather than growing Adapter into a god object that re-exposes
// every redis verb.
func (a *Adapter) Raw() *redis.Client {
	return a.client
}

// SetWithTTLAndGetPrevious atomically sets key to value with the given TTL
// and returns whatever value the key held immediately beforehand. existed is
// false when the key did not exist, which is how claim_online computes
// became_online.
func (a *Adapter) SetWithTTLAndGetPrevious(ctx context.Context, key, value string, ttl time.Duration) (previous string, existed bool, err error) {
	res, err := a.client.SetArgs(ctx, key, value, redis.SetArgs{TTL: ttl, Get: true}).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return res, true, nil
}

// Set stores value under key with no expiry. Used for last-seen and
// last-active timestamps, which are intrinsically idempotent absolute
// values and carry no TTL.
func (a *Adapter) Set(ctx context.Context, key, value string) error {
	return a.client.Set(ctx, key, value, 0).Err()
}

// Get returns the value at key. ok is false when the key does not exist.
func (a *Adapter) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	res, err := a.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return res, true, nil
}

// Exists reports whether key is present.
func (a *Adapter) Exists(ctx context.Context, key string) (bool, error) {
	n, err := a.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes key unconditionally.
func (a *Adapter) Delete(ctx context.Context, key string) error {
	return a.client.Del(ctx, key).Err()
}

// PipelineGet issues one GET per key in a single round trip, preserving
// input order in the result. Used by the Batch Query (component G) to keep
// snapshot() at O(1) store round-trips regardless of batch size.
func (a *Adapter) PipelineGet(ctx context.Context, keys []string) ([]StringResult, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	pipe := a.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.Get(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}
	results := make([]StringResult, len(keys))
	for i, cmd := range cmds {
		val, err := cmd.Result()
		if err == redis.Nil {
			results[i] = StringResult{Exists: false}
			continue
		}
		if err != nil {
			return nil, err
		}
		results[i] = StringResult{Value: val, Exists: true}
	}
	return results, nil
}

// StringResult is one slot of a PipelineGet result.
type StringResult struct {
	Value  string
	Exists bool
}

// SetAndGet executes, in one pipeline round trip, a SET of setKey=setValue
// (no TTL) and a GET of getKey. Used where a write needs to opportunistically
// read another key in the same round trip; claim_online bumps last-active
// while reading last-seen this way.
func (a *Adapter) SetAndGet(ctx context.Context, setKey, setValue, getKey string) (value string, exists bool, err error) {
	pipe := a.client.Pipeline()
	pipe.Set(ctx, setKey, setValue, 0)
	getCmd := pipe.Get(ctx, getKey)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return "", false, err
	}
	val, err := getCmd.Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// RefreshIfOwner runs the refresh_if_owner script: extends key's TTL only if
// its current value equals owner. Returns false, not an error, on ownership
// mismatch, a normal no-op result rather than a failure.
func (a *Adapter) RefreshIfOwner(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	res, err := refreshIfOwnerScript.Run(ctx, a.client, []string{key}, owner, int(ttl.Seconds())).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// DeleteIfOwner runs the delete_if_owner script: deletes key only if its
// current value equals owner.
func (a *Adapter) DeleteIfOwner(ctx context.Context, key, owner string) (bool, error) {
	res, err := deleteIfOwnerScript.Run(ctx, a.client, []string{key}, owner).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// Publish fires payload to channel. Best-effort and fire-and-forget; the
// caller decides whether to retry.
func (a *Adapter) Publish(ctx context.Context, channel string, payload []byte) error {
	return a.client.Publish(ctx, channel, payload).Err()
}

// Subscribe blocks, delivering every message received on channel to handler,
// until ctx is cancelled or the subscription errors. One dedicated
// connection per subscription context.
func (a *Adapter) Subscribe(ctx context.Context, channel string, handler func(channel string, payload []byte)) error {
	sub := a.client.Subscribe(ctx, channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			handler(msg.Channel, []byte(msg.Payload))
		}
	}
}

// PipelineAddToSets adds member to every set named in keys and (re)applies
// ttl to each, in a single pipeline round trip. Used by the Watcher Index to
// register one server as a watcher of many users at once.
func (a *Adapter) PipelineAddToSets(ctx context.Context, keys []string, member string, ttl time.Duration) error {
	if len(keys) == 0 {
		return nil
	}
	pipe := a.client.Pipeline()
	for _, k := range keys {
		pipe.SAdd(ctx, k, member)
		pipe.Expire(ctx, k, ttl)
	}
	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// PipelineRemoveFromSets removes member from every set named in keys, in a
// single pipeline round trip.
func (a *Adapter) PipelineRemoveFromSets(ctx context.Context, keys []string, member string) error {
	if len(keys) == 0 {
		return nil
	}
	pipe := a.client.Pipeline()
	for _, k := range keys {
		pipe.SRem(ctx, k, member)
	}
	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// SetMembers returns the current members of the set at key.
func (a *Adapter) SetMembers(ctx context.Context, key string) ([]string, error) {
	return a.client.SMembers(ctx, key).Result()
}
