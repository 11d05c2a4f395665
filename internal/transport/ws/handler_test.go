package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presencefabric/internal/flip"
	"presencefabric/internal/presence"
	"presencefabric/internal/session"
	"presencefabric/internal/store/storetest"
	"presencefabric/internal/watcher"
)

func newTestHandler(serverID string) *Handler {
	backend := storetest.New()
	return NewHandler(
		Config{ServerID: serverID, PresenceTTL: time.Minute, MaxFocusPerClient: 10, FocusRateLimitPerMinute: 60},
		session.NewRegistry(10),
		session.NewFocusIndex(),
		presence.NewRegistry(backend, time.Minute),
		watcher.NewIndex(backend, time.Minute),
		flip.NewPublisher(backend, watcher.NewIndex(backend, time.Minute)),
		presence.NewBatchQuery(presence.NewRegistry(backend, time.Minute), 500),
		nil,
	)
}

func mustRaw(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestHandleAuth_ReauthDetachesPreviousFocusFromWatcherIndex(t *testing.T) {
	h := newTestHandler("server-a")
	ctx := context.Background()

	sess := session.New("sess-1", "1.2.3.4", 60)
	sess.SetPusher(func([]byte) {})

	h.handleAuth(ctx, sess, mustRaw(t, AuthPayload{User: "alice@example.com"}))
	h.handleFocus(ctx, sess, mustRaw(t, FocusPayload{Users: []string{"bob@example.com", "carol@example.com"}}))

	members, err := h.watcherIndex.Members(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Contains(t, members, "server-a", "server should be registered as a watcher after focus")

	// Re-auth as a different user without ever blurring: the previous
	// session's focus set must still be detached from the watcher index.
	h.handleAuth(ctx, sess, mustRaw(t, AuthPayload{User: "dave@example.com"}))

	members, err = h.watcherIndex.Members(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.NotContains(t, members, "server-a", "re-auth must detach the previous user's focus set from the watcher index")

	members, err = h.watcherIndex.Members(ctx, "carol@example.com")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestHandleFocus_ReFocusOfAlreadyWatchedUsersAtCapacityIsNotAnError(t *testing.T) {
	h := newTestHandler("server-a")
	h.maxFocusPerClient = 1
	ctx := context.Background()

	var replies []Out
	sess := session.New("sess-1", "1.2.3.4", 600)
	sess.SetPusher(func(payload []byte) {
		var out Out
		require.NoError(t, json.Unmarshal(payload, &out))
		replies = append(replies, out)
	})

	h.handleAuth(ctx, sess, mustRaw(t, AuthPayload{User: "alice@example.com"}))
	h.handleFocus(ctx, sess, mustRaw(t, FocusPayload{Users: []string{"bob@example.com"}}))
	require.Equal(t, 1, sess.FocusCount())

	// Re-sending focus for the same, already-watched user at full capacity
	// must still succeed: nothing new was requested.
	h.handleFocus(ctx, sess, mustRaw(t, FocusPayload{Users: []string{"bob@example.com"}}))

	last := replies[len(replies)-1]
	assert.Equal(t, "focus_ok", last.Type, "idempotent re-focus at capacity must not be rejected as focus_limit_exceeded")

	// A genuinely new user at full capacity is correctly rejected.
	h.handleFocus(ctx, sess, mustRaw(t, FocusPayload{Users: []string{"carol@example.com"}}))
	last = replies[len(replies)-1]
	assert.Equal(t, "error", last.Type)
}
