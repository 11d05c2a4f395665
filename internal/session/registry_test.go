package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"presencefabric/pkg/apperrors"
)

func TestRegistry_ConnectionCapPerAddress(t *testing.T) {
	r := NewRegistry(2)
	s1 := New("s1", "1.1.1.1", 60)
	s2 := New("s2", "1.1.1.1", 60)
	s3 := New("s3", "1.1.1.1", 60)

	assert.NoError(t, r.Accept("1.1.1.1", s1))
	assert.NoError(t, r.Accept("1.1.1.1", s2))
	assert.ErrorIs(t, r.Accept("1.1.1.1", s3), apperrors.ErrRateLimited)

	r.Release("1.1.1.1", s1)
	assert.NoError(t, r.Accept("1.1.1.1", s3))
}

func TestRegistry_AttachDetach_TracksLastForUser(t *testing.T) {
	r := NewRegistry(10)
	s1 := New("s1", "1.1.1.1", 60)
	s2 := New("s2", "1.1.1.2", 60)

	r.Attach("a@x", s1)
	r.Attach("a@x", s2)
	assert.Equal(t, 2, r.CountForUser("a@x"))

	wasLast := r.Detach("a@x", s1)
	assert.False(t, wasLast)
	assert.Equal(t, 1, r.CountForUser("a@x"))

	wasLast = r.Detach("a@x", s2)
	assert.True(t, wasLast)
	assert.Equal(t, 0, r.CountForUser("a@x"))
}

func TestRegistry_All_IncludesUnauthenticatedConnections(t *testing.T) {
	r := NewRegistry(10)
	s1 := New("s1", "1.1.1.1", 60)
	assert.NoError(t, r.Accept("1.1.1.1", s1))

	all := r.All()
	assert.Len(t, all, 1)
	assert.Equal(t, StateConnecting, all[0].State())
}

func TestRegistry_SessionsForUser(t *testing.T) {
	r := NewRegistry(10)
	s1 := New("s1", "1.1.1.1", 60)
	r.Attach("a@x", s1)

	sessions := r.SessionsForUser("a@x")
	assert.Len(t, sessions, 1)
	assert.Equal(t, s1, sessions[0])
	assert.Empty(t, r.SessionsForUser("nobody@x"))
}
