// Package ws is the websocket transport: the gin upgrade endpoint, the
// per-connection read/write pumps, and the message dispatch that drives
// the session state machine.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"presencefabric/internal/flip"
	"presencefabric/internal/metrics"
	"presencefabric/internal/presence"
	"presencefabric/internal/session"
	"presencefabric/internal/validate"
	"presencefabric/internal/watcher"
	"presencefabric/pkg/apperrors"
	"presencefabric/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// structValidator enforces the struct tags on decoded client payloads
// (AuthPayload.User's "required" tag, notably), the same validator used to
// check config.Config.
var structValidator = validator.New()

// errorCode maps a sentinel from pkg/apperrors to the typed code a client
// sees on an error reply, so every rejected message carries one of a fixed,
// documented set of codes rather than an ad hoc string.
func errorCode(err error) string {
	switch err {
	case apperrors.ErrNotAuthenticated:
		return "not_authenticated"
	case apperrors.ErrRateLimited:
		return "rate_limited"
	case apperrors.ErrInvalidUserKey:
		return "invalid_user"
	case apperrors.ErrInvalidPayload:
		return "invalid_payload"
	case apperrors.ErrStoreUnavailable:
		return "store_unavailable"
	case apperrors.ErrUnknownMessageType:
		return "unknown_type"
	case apperrors.ErrFocusLimitExceeded:
		return "focus_limit_exceeded"
	default:
		return "error"
	}
}

// Handler wires the Session Manager to the Presence Registry, Watcher
// Index, and Flip Publisher. One Handler per server process.
type Handler struct {
	serverID          string
	registry          *session.Registry
	focusIndex        *session.FocusIndex
	presenceRegistry  *presence.Registry
	watcherIndex      *watcher.Index
	publisher         *flip.Publisher
	batchQuery        *presence.BatchQuery
	metrics           *metrics.Collectors
	heartbeatInterval time.Duration
	presenceTTL       time.Duration
	refreshCooldown   time.Duration
	maxFocusPerClient int
	focusRatePerMin   int
}

// Config bundles the tunables a Handler needs beyond its collaborators.
type Config struct {
	ServerID                string
	HeartbeatInterval       time.Duration
	PresenceTTL             time.Duration
	RefreshCooldown         time.Duration
	MaxFocusPerClient       int
	FocusRateLimitPerMinute int
}

// NewHandler builds a Handler. registry's connection cap must already be
// configured by the caller.
func NewHandler(
	cfg Config,
	registry *session.Registry,
	focusIndex *session.FocusIndex,
	presenceRegistry *presence.Registry,
	watcherIndex *watcher.Index,
	publisher *flip.Publisher,
	batchQuery *presence.BatchQuery,
	collectors *metrics.Collectors,
) *Handler {
	return &Handler{
		serverID:          cfg.ServerID,
		registry:          registry,
		focusIndex:        focusIndex,
		presenceRegistry:  presenceRegistry,
		watcherIndex:      watcherIndex,
		publisher:         publisher,
		batchQuery:        batchQuery,
		metrics:           collectors,
		heartbeatInterval: cfg.HeartbeatInterval,
		presenceTTL:       cfg.PresenceTTL,
		refreshCooldown:   cfg.RefreshCooldown,
		maxFocusPerClient: cfg.MaxFocusPerClient,
		focusRatePerMin:   cfg.FocusRateLimitPerMinute,
	}
}

// Connect upgrades an HTTP request to a websocket connection and drives it
// until disconnect, covering the full Connecting -> Authenticated -> Closed
// lifecycle.
func (h *Handler) Connect(c *gin.Context) {
	remote := c.ClientIP()
	sess := session.New(uuid.NewString(), remote, h.focusRatePerMin)

	if err := h.registry.Accept(remote, sess); err != nil {
		rejected, upErr := upgrader.Upgrade(c.Writer, c.Request, nil)
		if upErr != nil {
			return
		}
		closeMsg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "connection limit exceeded")
		_ = rejected.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
		_ = rejected.Close()
		return
	}
	defer h.registry.Release(remote, sess)

	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	cn := newConn(wsConn)
	sess.SetPusher(cn.enqueue)
	sess.SetLivenessHooks(cn.sendPing, cn.close)

	// writeCtx bounds the write pump's lifetime to this connection; it is
	// cancelled once readLoop returns so the pump goroutine always exits
	// instead of blocking forever on a channel nothing closes.
	writeCtx, cancelWrite := context.WithCancel(context.Background())
	go cn.writePump(writeCtx)
	defer cn.close()

	wsConn.SetPongHandler(func(string) error {
		sess.ObservedPong()
		return nil
	})

	h.readLoop(context.Background(), sess, cn)
	cancelWrite()
	h.disconnect(context.Background(), sess)
}

func (h *Handler) readLoop(ctx context.Context, sess *session.Session, cn *conn) {
	for {
		_, data, err := cn.ws.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.reply(sess, "error", ErrorReply{Code: errorCode(apperrors.ErrInvalidPayload), Message: "malformed envelope"})
			continue
		}

		switch env.Type {
		case "auth":
			h.handleAuth(ctx, sess, env.Payload)
		case "focus", "subscribe", "presence:focus":
			h.handleFocus(ctx, sess, env.Payload)
		case "blur":
			h.handleBlur(ctx, sess, env.Payload)
		case "ping":
			h.reply(sess, "pong", nil)
		default:
			h.reply(sess, "error", ErrorReply{Code: errorCode(apperrors.ErrUnknownMessageType), Message: "unknown message type: " + env.Type})
		}
	}
}

func (h *Handler) handleAuth(ctx context.Context, sess *session.Session, raw json.RawMessage) {
	var p AuthPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.reply(sess, "error", ErrorReply{Code: errorCode(apperrors.ErrInvalidPayload), Message: "invalid auth payload"})
		return
	}
	if err := structValidator.Struct(&p); err != nil {
		h.reply(sess, "error", ErrorReply{Code: errorCode(apperrors.ErrInvalidPayload), Message: "invalid auth payload"})
		return
	}

	user, err := validate.UserKey(p.User)
	if err != nil {
		h.reply(sess, "error", ErrorReply{Code: errorCode(apperrors.ErrInvalidUserKey), Message: err.Error()})
		return
	}

	previousFocused := sess.FocusedUsers()
	previousUser := sess.Authenticate(user)
	if previousUser != "" && previousUser != user {
		h.detachUser(ctx, sess, previousUser, previousFocused)
	} else if becameUnwatched := h.focusIndex.Remove(previousFocused); len(becameUnwatched) > 0 {
		// Re-auth as the same user still cleared the session's focus set.
		if err := h.watcherIndex.RemoveWatchers(ctx, becameUnwatched, h.serverID); err != nil {
			logger.GetGlobalLogger().Errorf("auth: watcher remove failed: %v", err)
		}
	}
	h.registry.Attach(user, sess)

	becameOnline, lastSeenMS, err := h.presenceRegistry.ClaimOnline(ctx, user, h.serverID)
	if err != nil {
		h.reply(sess, "error", ErrorReply{Code: errorCode(apperrors.ErrStoreUnavailable), Message: "presence claim failed"})
		return
	}
	if h.metrics != nil {
		h.metrics.ClaimOnlineCalls.Inc()
		if becameOnline {
			h.metrics.OnlineUsers.Inc()
		}
	}
	if becameOnline {
		h.publisher.Publish(ctx, user, true)
		if h.metrics != nil {
			h.metrics.FlipsPublished.Inc()
		}
	}

	h.reply(sess, "auth_ok", AuthOk{
		User:        user,
		ServerID:    h.serverID,
		HeartbeatMS: h.heartbeatInterval.Milliseconds(),
		TTLSeconds:  int64(h.presenceTTL.Seconds()),
		LastSeenMS:  lastSeenMS,
	})
}

func (h *Handler) handleFocus(ctx context.Context, sess *session.Session, raw json.RawMessage) {
	if err := sess.RequireAuthenticated(); err != nil {
		if h.metrics != nil {
			h.metrics.FocusRejections.Inc()
		}
		h.reply(sess, "error", ErrorReply{Code: errorCode(err), Message: err.Error()})
		return
	}
	var p FocusPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.reply(sess, "error", ErrorReply{Code: errorCode(apperrors.ErrInvalidPayload), Message: "invalid focus payload"})
		return
	}
	if !sess.ConsumeFocusBudget() {
		if h.metrics != nil {
			h.metrics.FocusRejections.Inc()
		}
		h.reply(sess, "error", ErrorReply{Code: errorCode(apperrors.ErrRateLimited), Message: apperrors.ErrRateLimited.Error()})
		return
	}

	wasAtCapacity := sess.FocusCount() >= h.maxFocusPerClient
	requestsNewUser := sess.HasUnfocused(p.Users)
	added := sess.ApplyFocus(p.Users, h.maxFocusPerClient)
	if len(added) == 0 {
		if wasAtCapacity && requestsNewUser {
			if h.metrics != nil {
				h.metrics.FocusRejections.Inc()
			}
			h.reply(sess, "error", ErrorReply{Code: errorCode(apperrors.ErrFocusLimitExceeded), Message: apperrors.ErrFocusLimitExceeded.Error()})
			return
		}
		h.reply(sess, "focus_ok", FocusOk{})
		return
	}

	becameWatched := h.focusIndex.Add(added)
	if len(becameWatched) > 0 {
		if err := h.watcherIndex.AddWatchers(ctx, becameWatched, h.serverID); err != nil {
			logger.GetGlobalLogger().Errorf("focus: watcher add failed: %v", err)
		}
	}

	statuses, err := h.batchQuery.Snapshot(ctx, added)
	if err != nil {
		h.reply(sess, "error", ErrorReply{Code: errorCode(apperrors.ErrStoreUnavailable), Message: "snapshot failed"})
		return
	}
	h.reply(sess, "focus_ok", FocusOk{Statuses: toStatusDTOs(statuses)})
}

func (h *Handler) handleBlur(ctx context.Context, sess *session.Session, raw json.RawMessage) {
	if err := sess.RequireAuthenticated(); err != nil {
		h.reply(sess, "error", ErrorReply{Code: errorCode(err), Message: err.Error()})
		return
	}
	var p BlurPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.reply(sess, "error", ErrorReply{Code: errorCode(apperrors.ErrInvalidPayload), Message: "invalid blur payload"})
		return
	}

	removed := sess.ApplyBlur(p.Users)
	if len(removed) > 0 {
		becameUnwatched := h.focusIndex.Remove(removed)
		if len(becameUnwatched) > 0 {
			if err := h.watcherIndex.RemoveWatchers(ctx, becameUnwatched, h.serverID); err != nil {
				logger.GetGlobalLogger().Errorf("blur: watcher remove failed: %v", err)
			}
		}
	}
	h.reply(sess, "blur_ok", BlurOk{})
}

// disconnect runs the teardown sequence: release rate limit entries
// (already handled by the deferred registry.Release in Connect), remove
// all focus mappings, batch-remove watcher entries whose local count hit
// zero, and release presence ownership if this was the last local session
// for the user.
func (h *Handler) disconnect(ctx context.Context, sess *session.Session) {
	sess.Close()
	user := sess.User()
	if user == "" {
		return
	}
	h.detachUser(ctx, sess, user, sess.FocusedUsers())
}

// detachUser removes user's local session from the registry and, if it was
// the last one, releases presence ownership. focused is the set of users
// this session had focused immediately before this detach began; callers
// must capture it before any state change (such as Session.Authenticate)
// clears the session's live focus set out from under them.
func (h *Handler) detachUser(ctx context.Context, sess *session.Session, user string, focused []string) {
	if len(focused) > 0 {
		becameUnwatched := h.focusIndex.Remove(focused)
		if len(becameUnwatched) > 0 {
			if err := h.watcherIndex.RemoveWatchers(ctx, becameUnwatched, h.serverID); err != nil {
				logger.GetGlobalLogger().Errorf("disconnect: watcher remove failed: %v", err)
			}
		}
	}

	wasLast := h.registry.Detach(user, sess)
	if !wasLast {
		return
	}

	becameOffline, err := h.presenceRegistry.ReleaseIfOwned(ctx, user, h.serverID)
	if err != nil {
		logger.GetGlobalLogger().Errorf("disconnect: release_if_owned failed for %s: %v", user, err)
		return
	}
	if becameOffline {
		if h.metrics != nil {
			h.metrics.OnlineUsers.Dec()
			h.metrics.FlipsPublished.Inc()
		}
		h.publisher.Publish(ctx, user, false)
	}
}

func (h *Handler) reply(sess *session.Session, msgType string, payload any) {
	out := Out{Type: msgType, Payload: payload}
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	sess.Push(data)
}

func toStatusDTOs(statuses []presence.Status) []StatusDTO {
	dtos := make([]StatusDTO, len(statuses))
	for i, s := range statuses {
		dtos[i] = StatusDTO{
			User:         s.User,
			Online:       s.Online,
			LastActiveMS: s.LastActiveMS,
			Bucket:       string(s.Bucket),
		}
	}
	return dtos
}
