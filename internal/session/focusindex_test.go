package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFocusIndex_AddReturnsOnlyZeroToNonzeroTransitions(t *testing.T) {
	idx := NewFocusIndex()

	became := idx.Add([]string{"a@x", "b@x"})
	assert.ElementsMatch(t, []string{"a@x", "b@x"}, became)

	// A second session also focusing a@x does not re-trigger the watcher add.
	became = idx.Add([]string{"a@x", "c@x"})
	assert.ElementsMatch(t, []string{"c@x"}, became)
}

func TestFocusIndex_RemoveOnlyFiresOnDropToZero(t *testing.T) {
	idx := NewFocusIndex()
	idx.Add([]string{"a@x"})
	idx.Add([]string{"a@x"}) // two local watchers now

	gone := idx.Remove([]string{"a@x"})
	assert.Empty(t, gone, "count dropped from 2 to 1, still watched")

	gone = idx.Remove([]string{"a@x"})
	assert.Equal(t, []string{"a@x"}, gone, "count dropped from 1 to 0")
}

func TestFocusIndex_RemoveIsNoopBelowZero(t *testing.T) {
	idx := NewFocusIndex()
	gone := idx.Remove([]string{"never-added@x"})
	assert.Empty(t, gone)
}
