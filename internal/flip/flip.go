// Package flip implements the flip publisher and subscriber: targeted
// fan-out of online/offline transitions, routed through the watcher index
// rather than a broadcast shard.
package flip

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"presencefabric/internal/store"
	"presencefabric/internal/watcher"
	"presencefabric/pkg/logger"
)

// Event is the wire payload published on a server's own channel and
// delivered to any local session watching User.
type Event struct {
	User        string `json:"user"`
	Online      bool   `json:"online"`
	TimestampMS int64  `json:"timestamp_ms"`
}

func serverChannel(serverID string) string {
	return "presence:server:" + serverID
}

// Publisher looks up the watcher set for a user and fans the flip out to
// exactly the servers that are currently interested, per-channel, once
// each. A user with no watchers costs one SMEMBERS call and no publish.
type Publisher struct {
	store store.Backend
	index *watcher.Index
}

// NewPublisher builds a Publisher over index's watcher sets.
func NewPublisher(s store.Backend, index *watcher.Index) *Publisher {
	return &Publisher{store: s, index: index}
}

// Publish fans out a flip for user's new online state to every server
// watching user. Publish errors are logged and swallowed per server:
// fan-out is best-effort and must never block the caller's claim/release
// path on a slow subscriber.
func (p *Publisher) Publish(ctx context.Context, user string, online bool) {
	servers, err := p.index.Members(ctx, user)
	if err != nil {
		logger.GetGlobalLogger().Errorf("flip: watcher lookup failed for %s: %v", user, err)
		return
	}
	if len(servers) == 0 {
		return
	}

	payload, err := json.Marshal(Event{User: user, Online: online, TimestampMS: time.Now().UnixMilli()})
	if err != nil {
		logger.GetGlobalLogger().Errorf("flip: marshal failed for %s: %v", user, err)
		return
	}

	for _, serverID := range servers {
		if err := p.store.Publish(ctx, serverChannel(serverID), payload); err != nil {
			logger.GetGlobalLogger().Errorf("flip: publish to %s failed: %v", serverID, err)
		}
	}
}

// Subscriber listens on this server's own channel and hands each decoded
// Event to onFlip. Malformed payloads are logged and dropped, never
// propagated as a Run error, so one bad message can't tear down the whole
// subscription loop.
type Subscriber struct {
	store    store.Backend
	serverID string
	onFlip   func(Event)

	warnedMu sync.Mutex
	warned   map[string]bool
}

// NewSubscriber builds a Subscriber bound to serverID's own channel.
func NewSubscriber(s store.Backend, serverID string, onFlip func(Event)) *Subscriber {
	return &Subscriber{store: s, serverID: serverID, onFlip: onFlip, warned: make(map[string]bool)}
}

// Run blocks until ctx is cancelled or the underlying subscription errors.
func (s *Subscriber) Run(ctx context.Context) error {
	return s.store.Subscribe(ctx, serverChannel(s.serverID), func(_ string, payload []byte) {
		var evt Event
		if err := json.Unmarshal(payload, &evt); err != nil {
			s.warnOnce(err.Error())
			return
		}
		s.onFlip(evt)
	})
}

// maxTrackedReasons bounds the warned set so an attacker or a buggy
// publisher that varies its malformed payload's error text cannot grow this
// map without limit; once full, further distinct reasons log every time
// rather than being tracked.
const maxTrackedReasons = 256

// warnOnce logs a parse-failure reason the first time it is seen and stays
// silent on every repeat of the same reason, so a persistently misbehaving
// publisher cannot flood the log.
func (s *Subscriber) warnOnce(reason string) {
	s.warnedMu.Lock()
	seen := s.warned[reason]
	if !seen && len(s.warned) < maxTrackedReasons {
		s.warned[reason] = true
	}
	s.warnedMu.Unlock()
	if !seen {
		logger.GetGlobalLogger().Errorf("flip: dropping malformed payload: %s", reason)
	}
}
