// Package store is the typed wrapper around the shared key-value/pub-sub
// collaborator. It hosts the owner-guarded compare-and-swap scripts and is
// the sole means of touching the shared store; no other package imports
// go-redis directly.
package store

import (
	"github.com/redis/go-redis/v9"
)

// Config describes how to reach the shared store.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient creates a new store client. Presence-fabric processes create one
// of these for the regular command path and a second, separate connection
// (via NewSubscriberClient) for subscription contexts, since a connection
// in subscribe mode cannot issue regular commands.
func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewSubscriberClient creates a dedicated client for the flip subscriber.
// Kept as a distinct constructor (even though it builds an identical
// *redis.Client) so call sites document which connection is for which
// role.
func NewSubscriberClient(cfg Config) *redis.Client {
	return NewClient(cfg)
}
