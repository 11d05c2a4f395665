// Package httpapi assembles the gin router for every HTTP-surfaced
// collaborator the presence fabric exposes: the websocket upgrade
// endpoint, the demo login collaborator, health/readiness probes, a REST
// snapshot endpoint for clients that reconcile over HTTP instead of their
// open websocket, and the Prometheus metrics mount.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"presencefabric/internal/demo"
	"presencefabric/internal/metrics"
	"presencefabric/internal/middleware"
	"presencefabric/internal/presence"
	"presencefabric/internal/store"
	"presencefabric/internal/transport/ws"
	"presencefabric/pkg/apperrors"
	"presencefabric/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// SnapshotRequest is the REST counterpart of the websocket focus_ok
// snapshot: pipelined presence reads for an explicit user list, for a
// client doing a periodic reconciliation tick over HTTP.
type SnapshotRequest struct {
	Users []string `json:"users"`
}

type snapshotHandler struct {
	batchQuery *presence.BatchQuery
}

func (h *snapshotHandler) handle(c *gin.Context) {
	var req SnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	statuses, err := h.batchQuery.Snapshot(c.Request.Context(), req.Users)
	if errors.Is(err, apperrors.ErrOversizedBatch) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}

// New builds the full gin engine: websocket upgrade, demo login, snapshot,
// health/readiness, and metrics.
func New(wsHandler *ws.Handler, batchQuery *presence.BatchQuery, adapter *store.Adapter, serverID string, collectors *metrics.Collectors) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.ServerID(serverID))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger.GetGlobalLogger()))

	r.GET("/ws", wsHandler.Connect)

	demoHandler := demo.NewHandler(collectors)
	r.POST("/v1/auth/demo-login", demoHandler.Login)

	snap := &snapshotHandler{batchQuery: batchQuery}
	r.POST("/v1/presence/snapshot", snap.handle)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()
		if err := adapter.Raw().Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "store unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
