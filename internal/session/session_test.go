package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"presencefabric/pkg/apperrors"
)

func TestSession_StartsConnecting(t *testing.T) {
	s := New("s1", "1.2.3.4", 60)
	assert.Equal(t, StateConnecting, s.State())
	assert.ErrorIs(t, s.RequireAuthenticated(), apperrors.ErrNotAuthenticated)
}

func TestSession_AuthenticateTransitionsState(t *testing.T) {
	s := New("s1", "1.2.3.4", 60)
	previous := s.Authenticate("a@x")
	assert.Equal(t, "", previous)
	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, "a@x", s.User())
	assert.NoError(t, s.RequireAuthenticated())
}

func TestSession_ReAuthReturnsPreviousUserAndClearsFocus(t *testing.T) {
	s := New("s1", "1.2.3.4", 60)
	s.Authenticate("a@x")
	s.ApplyFocus([]string{"b@x"}, 100)

	previous := s.Authenticate("c@x")
	assert.Equal(t, "a@x", previous)
	assert.Equal(t, "c@x", s.User())
	assert.Empty(t, s.FocusedUsers())
}

func TestSession_ApplyFocus_DedupsAndCapsAtMax(t *testing.T) {
	s := New("s1", "1.2.3.4", 60)
	s.Authenticate("a@x")

	added := s.ApplyFocus([]string{"b@x", "b@x", "c@x"}, 2)
	assert.ElementsMatch(t, []string{"b@x", "c@x"}, added)

	// Already at the cap: a further focus on a brand new user adds nothing.
	added = s.ApplyFocus([]string{"d@x"}, 2)
	assert.Empty(t, added)

	// Re-focusing an already-focused user is silently ignored.
	added = s.ApplyFocus([]string{"b@x"}, 2)
	assert.Empty(t, added)
}

func TestSession_ApplyBlur_OnlyReturnsActuallyFocused(t *testing.T) {
	s := New("s1", "1.2.3.4", 60)
	s.Authenticate("a@x")
	s.ApplyFocus([]string{"b@x", "c@x"}, 100)

	removed := s.ApplyBlur([]string{"b@x", "z@x"})
	assert.Equal(t, []string{"b@x"}, removed)
	assert.Equal(t, []string{"c@x"}, s.FocusedUsers())
}

func TestSession_ShouldRefresh_GatesOnFocusAndCooldown(t *testing.T) {
	s := New("s1", "1.2.3.4", 60)
	now := time.Now()

	// Not authenticated yet.
	assert.False(t, s.ShouldRefresh(time.Second, now))

	s.Authenticate("a@x")
	// Authenticated but empty focus set: never refreshes.
	assert.False(t, s.ShouldRefresh(time.Second, now))

	s.ApplyFocus([]string{"b@x"}, 100)
	assert.True(t, s.ShouldRefresh(time.Second, now))
	// Immediately again, within cooldown: false.
	assert.False(t, s.ShouldRefresh(time.Second, now))
	// After the cooldown has elapsed: true again.
	assert.True(t, s.ShouldRefresh(time.Second, now.Add(2*time.Second)))
}

func TestSession_PongTracking(t *testing.T) {
	s := New("s1", "1.2.3.4", 60)
	assert.False(t, s.MissedPong())
	s.MarkPingSent()
	assert.True(t, s.MissedPong())
	s.ObservedPong()
	assert.False(t, s.MissedPong())
}

func TestSession_PushIsNoopWithoutPusher(t *testing.T) {
	s := New("s1", "1.2.3.4", 60)
	assert.NotPanics(t, func() { s.Push([]byte("hello")) })
}

func TestSession_PushDeliversToInstalledPusher(t *testing.T) {
	s := New("s1", "1.2.3.4", 60)
	var got []byte
	s.SetPusher(func(b []byte) { got = b })
	s.Push([]byte("hi"))
	assert.Equal(t, []byte("hi"), got)
}
