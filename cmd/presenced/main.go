package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"presencefabric/config"
	"presencefabric/internal/flip"
	"presencefabric/internal/metrics"
	"presencefabric/internal/presence"
	"presencefabric/internal/serverid"
	"presencefabric/internal/session"
	"presencefabric/internal/store"
	"presencefabric/internal/transport/httpapi"
	"presencefabric/internal/transport/ws"
	"presencefabric/internal/watcher"
	"presencefabric/pkg/logger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "presenced",
		Short: "Horizontally scalable real-time presence fabric",
	}
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the presence fabric server process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logMode := logger.DevelopmentMode
	if cfg.AppMode == "production" {
		logMode = logger.ProductionMode
	}
	logger.Init(logMode)
	log := logger.GetGlobalLogger()

	serverID := serverid.Resolve(cfg.ServerID)
	log.Infof("presenced starting: server_id=%s port=%s mode=%s", serverID, cfg.Port, cfg.AppMode)

	redisClient := store.NewClient(store.Config{Addr: cfg.StoreURL, Password: cfg.StorePass})
	subscriberClient := store.NewSubscriberClient(store.Config{Addr: cfg.StoreURL, Password: cfg.StorePass})
	adapter := store.New(redisClient)
	subscriberAdapter := store.New(subscriberClient)

	presenceRegistry := presence.NewRegistry(adapter, cfg.PresenceTTL())
	batchQuery := presence.NewBatchQuery(presenceRegistry, cfg.MaxSnapshotBatch)
	watcherIndex := watcher.NewIndex(adapter, cfg.WatcherTTL())
	publisher := flip.NewPublisher(adapter, watcherIndex)

	sessionRegistry := session.NewRegistry(cfg.MaxConnectionsPerIP)
	focusIndex := session.NewFocusIndex()
	collectors := metrics.New()

	wsHandler := ws.NewHandler(
		ws.Config{
			ServerID:                serverID,
			HeartbeatInterval:       cfg.HeartbeatInterval(),
			PresenceTTL:             cfg.PresenceTTL(),
			RefreshCooldown:         cfg.RefreshCooldown(),
			MaxFocusPerClient:       cfg.MaxFocusPerClient,
			FocusRateLimitPerMinute: cfg.FocusRateLimitPerMinute,
		},
		sessionRegistry,
		focusIndex,
		presenceRegistry,
		watcherIndex,
		publisher,
		batchQuery,
		collectors,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subscriber := flip.NewSubscriber(subscriberAdapter, serverID, func(evt flip.Event) {
		deliverFlip(sessionRegistry, evt)
	})
	go func() {
		if err := subscriber.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorf("flip subscriber exited: %v", err)
		}
	}()

	heartbeatCtx, stopHeartbeat := context.WithCancel(context.Background())
	go wsHandler.RunHeartbeat(heartbeatCtx)

	router := httpapi.New(wsHandler, batchQuery, adapter, serverID, collectors)
	httpServer := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	log.Infof("received %s, shutting down", sig)

	// Shutdown sequence: stop accepting, stop the heartbeat tick, close
	// transports, then close store connections.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("http server shutdown: %v", err)
	}

	stopHeartbeat()
	for _, sess := range sessionRegistry.All() {
		sess.Terminate() // closing the transport ends its read loop and runs disconnect
	}
	cancel() // stops the flip subscriber, which is the other long-lived transport

	if err := redisClient.Close(); err != nil {
		log.Errorf("closing store client: %v", err)
	}
	if err := subscriberClient.Close(); err != nil {
		log.Errorf("closing subscriber client: %v", err)
	}

	return nil
}

// deliverFlip routes one incoming flip event to every local session whose
// focus set contains evt.User, the targeted fan-out half that runs on the
// subscribing side. This server's own channel only ever carries events
// for users at least one local session watches, but a session may be
// authenticated as a different user than the one it watches, so the
// match is against focus sets, not session identity.
func deliverFlip(registry *session.Registry, evt flip.Event) {
	out := ws.Out{
		Type: "presence_update",
		Payload: ws.PresenceUpdate{
			User:        evt.User,
			Online:      evt.Online,
			TimestampMS: evt.TimestampMS,
		},
	}
	data, err := json.Marshal(out)
	if err != nil {
		return
	}

	for _, sess := range registry.All() {
		if sess.State() != session.StateAuthenticated {
			continue
		}
		for _, u := range sess.FocusedUsers() {
			if u == evt.User {
				sess.Push(data)
				break
			}
		}
	}
}
