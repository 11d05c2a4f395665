package ws

import (
	"context"
	"time"

	"presencefabric/pkg/apperrors"
	"presencefabric/pkg/logger"
)

// RunHeartbeat is the single per-process heartbeat tick: every
// heartbeat_interval, visit each live session. A session that missed the
// previous tick's pong is terminated; otherwise it is sent a fresh ping
// and, if authenticated with a non-empty focus set and past its refresh
// cooldown, its presence claim is refreshed. A refresh that reports lost
// ownership is logged; the session is not stopped from refreshing, and it
// is refreshed again once its next cooldown elapses. It returns when ctx is
// cancelled, as part of the shutdown sequence (stop the tick before
// closing transports).
func (h *Handler) RunHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.tick(ctx)
		}
	}
}

func (h *Handler) tick(ctx context.Context) {
	now := time.Now()
	for _, sess := range h.registry.All() {
		if sess.MissedPong() {
			sess.Terminate()
			continue
		}
		sess.MarkPingSent()
		if err := sess.SendPing(); err != nil {
			sess.Terminate()
			continue
		}

		user := sess.User()
		if user == "" {
			continue
		}
		if !sess.ShouldRefresh(h.refreshCooldown, now) {
			continue
		}
		refreshed, err := h.presenceRegistry.Refresh(ctx, user, h.serverID)
		if h.metrics != nil {
			h.metrics.RefreshCalls.Inc()
		}
		if err != nil {
			logger.GetGlobalLogger().Errorf("heartbeat: refresh failed for %s: %v", user, err)
			continue
		}
		if !refreshed {
			logger.GetGlobalLogger().Warnf("heartbeat: %v: server %s for user %s", apperrors.ErrNotOwner, h.serverID, user)
		}
	}
}
