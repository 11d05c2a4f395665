package store

import (
	"context"
	"time"
)

// Backend is the narrow set of store operations the presence, watcher, and
// flip packages depend on. *Adapter satisfies it against a live Redis; the
// storetest package provides an in-memory fake satisfying it for unit tests
// that need no live Redis.
type Backend interface {
	SetWithTTLAndGetPrevious(ctx context.Context, key, value string, ttl time.Duration) (previous string, existed bool, err error)
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	PipelineGet(ctx context.Context, keys []string) ([]StringResult, error)
	SetAndGet(ctx context.Context, setKey, setValue, getKey string) (value string, exists bool, err error)
	RefreshIfOwner(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	DeleteIfOwner(ctx context.Context, key, owner string) (bool, error)
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string, handler func(channel string, payload []byte)) error
	PipelineAddToSets(ctx context.Context, keys []string, member string, ttl time.Duration) error
	PipelineRemoveFromSets(ctx context.Context, keys []string, member string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
}

var _ Backend = (*Adapter)(nil)
