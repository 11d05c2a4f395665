// Package demo is a REST login endpoint that exercises the same user-key
// validation as the websocket auth path, without any real identity
// verification. It exists so a demo client can acquire a user key to open
// a websocket session with, the way a throwaway front-end would in
// development.
package demo

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"presencefabric/internal/metrics"
	"presencefabric/internal/validate"
)

// LoginRequest is the demo-login request body.
type LoginRequest struct {
	User string `json:"user" validate:"required"`
}

// LoginResponse echoes back the normalized, validated user key a client
// should now present on its websocket auth frame.
type LoginResponse struct {
	User string `json:"user"`
}

// Handler serves POST /v1/auth/demo-login. It owns the demo-grade user
// registry: the set of known user keys this collaborator has ever seen.
type Handler struct {
	mu      sync.Mutex
	known   map[string]struct{}
	metrics *metrics.Collectors
}

// NewHandler builds a demo Handler with an empty user registry. collectors
// may be nil, in which case the registry's size is simply not exported.
func NewHandler(collectors *metrics.Collectors) *Handler {
	return &Handler{known: make(map[string]struct{}), metrics: collectors}
}

// Login validates the requested user key using the same predicate the
// websocket transport applies, registers it in the demo user registry if
// unseen, and hands it back normalized. It performs no authentication:
// identity verification beyond syntactic validation is out of scope for
// this demo collaborator.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := validate.UserKey(req.User)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.mu.Lock()
	h.known[user] = struct{}{}
	count := len(h.known)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.DemoUsersRegistered.Set(float64(count))
	}

	c.JSON(http.StatusOK, LoginResponse{User: user})
}

// Known reports whether user has ever completed a successful demo login.
func (h *Handler) Known(user string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.known[user]
	return ok
}

// KnownCount returns the number of distinct user keys registered so far.
func (h *Handler) KnownCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.known)
}
