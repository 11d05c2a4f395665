// Package storetest provides an in-memory fake of store.Backend for tests
// that exercise the Presence Registry and Watcher Index without a live
// Redis. It reproduces the CAS scripts' exact semantics (refresh_if_owner,
// delete_if_owner) and pub/sub delivery in-process, but never expires a key
// on its own: every TTL argument it receives is ignored.
package storetest

import (
	"context"
	"sync"
	"time"

	"presencefabric/internal/store"
)

type subscription struct {
	ch   chan []byte
	done <-chan struct{}
}

// Fake is a mutex-guarded in-memory implementation of store.Backend.
type Fake struct {
	mu   sync.Mutex
	kv   map[string]string
	sets map[string]map[string]struct{}

	subMu sync.Mutex
	subs  map[string][]subscription
}

// New returns an empty Fake, ready to use.
func New() *Fake {
	return &Fake{
		kv:   make(map[string]string),
		sets: make(map[string]map[string]struct{}),
		subs: make(map[string][]subscription),
	}
}

var _ store.Backend = (*Fake)(nil)

func (f *Fake) SetWithTTLAndGetPrevious(_ context.Context, key, value string, _ time.Duration) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, existed := f.kv[key]
	f.kv[key] = value
	return prev, existed, nil
}

func (f *Fake) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kv[key] = value
	return nil
}

func (f *Fake) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.kv[key]
	return v, ok, nil
}

func (f *Fake) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.kv[key]
	return ok, nil
}

func (f *Fake) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.kv, key)
	return nil
}

func (f *Fake) PipelineGet(_ context.Context, keys []string) ([]store.StringResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make([]store.StringResult, len(keys))
	for i, k := range keys {
		v, ok := f.kv[k]
		results[i] = store.StringResult{Value: v, Exists: ok}
	}
	return results, nil
}

func (f *Fake) SetAndGet(_ context.Context, setKey, setValue, getKey string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kv[setKey] = setValue
	v, ok := f.kv[getKey]
	return v, ok, nil
}

// RefreshIfOwner mirrors the refresh_if_owner Lua script: a no-op, successful
// false return when key's current value is not owner.
func (f *Fake) RefreshIfOwner(_ context.Context, key, owner string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kv[key] == owner, nil
}

// DeleteIfOwner mirrors the delete_if_owner Lua script.
func (f *Fake) DeleteIfOwner(_ context.Context, key, owner string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.kv[key] != owner {
		return false, nil
	}
	delete(f.kv, key)
	return true, nil
}

func (f *Fake) Publish(_ context.Context, channel string, payload []byte) error {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	for _, sub := range f.subs[channel] {
		select {
		case sub.ch <- payload:
		case <-sub.done:
		default:
		}
	}
	return nil
}

// Subscribe blocks until ctx is cancelled, delivering each Publish on
// channel to handler in the order published. A Publish that finds this
// subscription's 16-message buffer full is dropped for it.
func (f *Fake) Subscribe(ctx context.Context, channel string, handler func(channel string, payload []byte)) error {
	ch := make(chan []byte, 16)
	sub := subscription{ch: ch, done: ctx.Done()}

	f.subMu.Lock()
	f.subs[channel] = append(f.subs[channel], sub)
	f.subMu.Unlock()

	defer func() {
		f.subMu.Lock()
		defer f.subMu.Unlock()
		peers := f.subs[channel]
		for i, s := range peers {
			if s.ch == ch {
				f.subs[channel] = append(peers[:i], peers[i+1:]...)
				break
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload := <-ch:
			handler(channel, payload)
		}
	}
}

func (f *Fake) PipelineAddToSets(_ context.Context, keys []string, member string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		set, ok := f.sets[k]
		if !ok {
			set = make(map[string]struct{})
			f.sets[k] = set
		}
		set[member] = struct{}{}
	}
	return nil
}

func (f *Fake) PipelineRemoveFromSets(_ context.Context, keys []string, member string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.sets[k], member)
	}
	return nil
}

func (f *Fake) SetMembers(_ context.Context, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.sets[key]
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	return members, nil
}
