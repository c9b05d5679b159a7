// Medibook - Real-time Presence and Notification Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/medibook

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/medibook/internal/api"
	"github.com/tomtom215/medibook/internal/auth"
	"github.com/tomtom215/medibook/internal/authz"
	"github.com/tomtom215/medibook/internal/config"
	"github.com/tomtom215/medibook/internal/dispatch"
	"github.com/tomtom215/medibook/internal/eventbridge"
	"github.com/tomtom215/medibook/internal/logging"
	"github.com/tomtom215/medibook/internal/supervisor"
	"github.com/tomtom215/medibook/internal/supervisor/services"
	ws "github.com/tomtom215/medibook/internal/websocket"
)

const httpIdleTimeout = 60 * time.Second

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("addr", cfg.ListenAddr()).
		Str("environment", cfg.Server.Environment).
		Bool("events_enabled", cfg.Events.Enabled).
		Msg("Starting Medibook realtime server")

	tokens, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize token verification")
	}
	authn := auth.NewTokenAuthenticator(tokens, cfg.Security.AuthTimeout)

	hub := ws.NewHub(authn, cfg.Realtime)
	notifiers := dispatch.New(hub.Router)
	hub.Sessions.SetInboundHandler(notifiers.InboundHandler())

	enforcer, err := authz.NewEnforcer(cfg.Authz)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization")
	}
	defer enforcer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	handler := api.NewHandler(hub, notifiers.Appointments, &cfg.Security)

	tree.AddRealtimeService(services.NewHubService(hub))

	if cfg.Events.Enabled {
		bridge, closeSubscriber := initEventBridge(cfg.Events, notifiers.Appointments)
		defer closeSubscriber()
		handler.AddReadinessCheck("event_bridge", bridge.Ready)
		tree.AddRealtimeService(bridge)
		logging.Info().
			Str("url", cfg.Events.URL).
			Str("subject", cfg.Events.Subject).
			Str("queue_group", cfg.Events.QueueGroup).
			Msg("Appointment event bridge added to supervisor tree")
	} else {
		logging.Info().Msg("NATS event ingest disabled (NATS_ENABLED=false); HTTP ingest only")
	}

	router := api.NewRouter(
		handler,
		api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)),
		authn,
		enforcer,
	)

	// WriteTimeout stays zero: hijacked WebSocket connections manage their
	// own deadlines.
	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router.Setup(),
		ReadHeaderTimeout: cfg.Server.Timeout,
		IdleTimeout:       httpIdleTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	logging.Info().Msg("Medibook stopped")
}

// initEventBridge connects the NATS subscriber. The returned func closes it
// after the supervisor tree has stopped the bridge.
func initEventBridge(cfg config.EventsConfig, notifier eventbridge.Notifier) (*eventbridge.Bridge, func()) {
	wmLogger := logging.NewWatermillAdapter("eventbridge")

	subscriber, err := eventbridge.NewNATSSubscriber(cfg, wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create NATS subscriber")
	}

	bridge := eventbridge.New(subscriber, cfg.Subject, notifier, wmLogger)
	return bridge, func() {
		if err := subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing NATS subscriber")
		}
	}
}
