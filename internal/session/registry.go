package session

import (
	"sync"

	"presencefabric/pkg/apperrors"
)

// Registry is the process-wide local-sessions map and per-IP connection
// counter: a map from user key to the set of live session handles
// authenticated as that key, plus a rate-limit counter per source address.
// A single coarse lock guards both, since neither structure sees enough
// contention to justify sharding.
type Registry struct {
	mu              sync.RWMutex
	all             map[string]*Session            // session id -> session, every live connection
	byUser          map[string]map[string]*Session // user -> session id -> session, authenticated only
	connsByAddr     map[string]int
	maxConnsPerAddr int
}

// NewRegistry builds an empty Registry enforcing maxConnsPerAddr concurrent
// connections per source address.
func NewRegistry(maxConnsPerAddr int) *Registry {
	return &Registry{
		all:             make(map[string]*Session),
		byUser:          make(map[string]map[string]*Session),
		connsByAddr:     make(map[string]int),
		maxConnsPerAddr: maxConnsPerAddr,
	}
}

// Accept admits a new connection from remote, incrementing its address
// count and registering sess in the all-sessions map so the heartbeat tick
// reaches it even before it authenticates. Returns apperrors.ErrRateLimited
// if remote is already at the connection cap, in which case the caller
// must close the transport with a policy code without admitting sess.
func (r *Registry) Accept(remote string, sess *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connsByAddr[remote] >= r.maxConnsPerAddr {
		return apperrors.ErrRateLimited
	}
	r.connsByAddr[remote]++
	r.all[sess.ID] = sess
	return nil
}

// Release decrements remote's connection count, pruning the entry once it
// hits zero, and removes sess from the all-sessions map. Call once per
// connection on final teardown, after any Detach.
func (r *Registry) Release(remote string, sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.all, sess.ID)
	r.connsByAddr[remote]--
	if r.connsByAddr[remote] <= 0 {
		delete(r.connsByAddr, remote)
	}
}

// Attach registers sess under user. Call on successful auth (and again on
// re-auth, after Detach-ing the previous identity).
func (r *Registry) Attach(user string, sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.byUser[user]
	if !ok {
		set = make(map[string]*Session)
		r.byUser[user] = set
	}
	set[sess.ID] = sess
}

// Detach removes sess from user's set, pruning the user entry once empty.
// Returns true if that removal left no other local session for user, the
// signal the caller uses to decide whether release_if_owned applies.
func (r *Registry) Detach(user string, sess *Session) (wasLastForUser bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.byUser[user]
	if !ok {
		return true
	}
	delete(set, sess.ID)
	if len(set) == 0 {
		delete(r.byUser, user)
		return true
	}
	return false
}

// CountForUser returns the number of live local sessions authenticated as
// user.
func (r *Registry) CountForUser(user string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[user])
}

// SessionsForUser returns a snapshot slice of the live sessions currently
// authenticated as user. It matches on session identity, not on focus sets;
// flip delivery does not use it.
func (r *Registry) SessionsForUser(user string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byUser[user]
	out := make([]*Session, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	return out
}

// All returns a snapshot slice of every live connection (authenticated or
// not), used by the heartbeat tick to iterate all sessions once per
// interval.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.all))
	for _, s := range r.all {
		out = append(out, s)
	}
	return out
}
