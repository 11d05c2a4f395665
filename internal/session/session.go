// Package session implements the per-connection state machine, its focus
// set, and the rate limits and heartbeat gating that keep refresh cost
// bounded.
package session

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"presencefabric/pkg/apperrors"
)

// State is one of the three states in a session's lifecycle.
type State int

const (
	StateConnecting State = iota
	StateAuthenticated
	StateClosed
)

// Session holds the mutable state of one live connection. Fields touched
// only from the connection's own goroutine and the heartbeat tick (awaiting
// pong, last refresh time) are protected by mu, a single per-session mutex
// rather than atomics, since contention here is never more than two
// goroutines.
type Session struct {
	ID     string
	Remote string // source address, for the per-IP connection cap

	mu           sync.Mutex
	state        State
	user         string
	focus        map[string]struct{}
	awaitingPong bool
	lastRefresh  time.Time
	focusLimiter *rate.Limiter
	pusher       func([]byte)
	pinger       func() error
	terminator   func()
}

// New builds a Connecting session. focusPerMinute seeds the focus rate
// limiter: a token bucket holding at most focusPerMinute tokens and refilling
// at focusPerMinute per minute. It is not a fixed 60-second window; a client
// that drains the full bucket and keeps calling can pass up to nearly twice
// focusPerMinute focus calls within one 60-second span.
func New(id, remote string, focusPerMinute int) *Session {
	return &Session{
		ID:           id,
		Remote:       remote,
		state:        StateConnecting,
		focus:        make(map[string]struct{}),
		focusLimiter: rate.NewLimiter(rate.Limit(float64(focusPerMinute)/60.0), focusPerMinute),
	}
}

// SetPusher installs the transport-layer callback used to deliver
// server-to-client frames, decoupling the session state machine from any
// concrete transport.
func (s *Session) SetPusher(pusher func([]byte)) {
	s.mu.Lock()
	s.pusher = pusher
	s.mu.Unlock()
}

// Push hands payload to the installed transport callback, if any. Safe to
// call after the transport has gone away: a nil pusher is a silent no-op.
func (s *Session) Push(payload []byte) {
	s.mu.Lock()
	pusher := s.pusher
	s.mu.Unlock()
	if pusher != nil {
		pusher(payload)
	}
}

// SetLivenessHooks installs the transport's ping sender and hard-terminate
// callback, used by the heartbeat tick.
func (s *Session) SetLivenessHooks(pinger func() error, terminator func()) {
	s.mu.Lock()
	s.pinger = pinger
	s.terminator = terminator
	s.mu.Unlock()
}

// SendPing invokes the installed ping callback, if any, returning its
// error so the heartbeat loop can decide whether to terminate immediately
// on a write failure.
func (s *Session) SendPing() error {
	s.mu.Lock()
	pinger := s.pinger
	s.mu.Unlock()
	if pinger == nil {
		return nil
	}
	return pinger()
}

// Terminate invokes the installed hard-close callback, if any. Used by the
// heartbeat tick when a session missed its previous pong.
func (s *Session) Terminate() {
	s.mu.Lock()
	terminator := s.terminator
	s.mu.Unlock()
	if terminator != nil {
		terminator()
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// User returns the authenticated user key, or "" if not yet authenticated.
func (s *Session) User() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Authenticate transitions Connecting or Authenticated to Authenticated
// under the new user key. Returns the previous user key (non-empty on
// re-auth, per the Authenticated row's "auth to new user -> detach+re-auth"
// transition) so the caller can detach the old identity from its indexes.
func (s *Session) Authenticate(user string) (previousUser string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previousUser = s.user
	s.user = user
	s.state = StateAuthenticated
	s.focus = make(map[string]struct{})
	return previousUser
}

// Close transitions the session to Closed. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}

// RequireAuthenticated returns apperrors.ErrNotAuthenticated when the
// session has not completed auth, matching the Connecting row's "only auth
// accepted; others => error reply".
func (s *Session) RequireAuthenticated() error {
	if s.State() != StateAuthenticated {
		return apperrors.ErrNotAuthenticated
	}
	return nil
}

// ConsumeFocusBudget takes one token from the per-minute focus token bucket
// (see New). A false return means the caller should reply with a typed
// rate-limit error and otherwise leave the session open.
func (s *Session) ConsumeFocusBudget() bool {
	return s.focusLimiter.Allow()
}

// ApplyFocus adds users to the focus set, capped so the resulting set never
// exceeds maxFocus, and returns exactly the users that were newly added
// (already-focused users are silently ignored). Duplicate keys within
// users are deduplicated by set semantics.
func (s *Session) ApplyFocus(users []string, maxFocus int) (added []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := maxFocus - len(s.focus)
	if room <= 0 {
		return nil
	}
	for _, u := range users {
		if _, ok := s.focus[u]; ok {
			continue
		}
		if len(added) >= room {
			break
		}
		s.focus[u] = struct{}{}
		added = append(added, u)
	}
	return added
}

// ApplyBlur removes users from the focus set and returns exactly the users
// that were actually focused (so the caller knows which watcher-index
// entries might need decrementing).
func (s *Session) ApplyBlur(users []string) (removed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		if _, ok := s.focus[u]; ok {
			delete(s.focus, u)
			removed = append(removed, u)
		}
	}
	return removed
}

// FocusedUsers returns a snapshot copy of the current focus set.
func (s *Session) FocusedUsers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]string, 0, len(s.focus))
	for u := range s.focus {
		users = append(users, u)
	}
	return users
}

// HasUnfocused reports whether any user in users is not already in the
// focus set, so a caller can tell a genuinely new focus request apart from
// an idempotent re-focus of users already being watched.
func (s *Session) HasUnfocused(users []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		if _, ok := s.focus[u]; !ok {
			return true
		}
	}
	return false
}

// FocusCount returns the current size of the focus set.
func (s *Session) FocusCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.focus)
}

// MarkPingSent flips awaitingPong on, called by the heartbeat tick right
// before sending a transport ping.
func (s *Session) MarkPingSent() {
	s.mu.Lock()
	s.awaitingPong = true
	s.mu.Unlock()
}

// ObservedPong clears awaitingPong, called by the transport's pong handler.
func (s *Session) ObservedPong() {
	s.mu.Lock()
	s.awaitingPong = false
	s.mu.Unlock()
}

// MissedPong reports whether the session is still awaiting a pong from the
// previous tick; the heartbeat loop terminates such a session.
func (s *Session) MissedPong() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awaitingPong
}

// ShouldRefresh reports whether this session's per-session refresh cooldown
// has elapsed, given it is authenticated with a non-empty focus set. A
// true result also records now as the new lastRefresh, so repeated calls
// within one cooldown window return false without re-checking the clock
// twice.
func (s *Session) ShouldRefresh(cooldown time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated || len(s.focus) == 0 {
		return false
	}
	if now.Sub(s.lastRefresh) < cooldown {
		return false
	}
	s.lastRefresh = now
	return true
}
